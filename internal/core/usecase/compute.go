package usecase

import (
	"log/slog"

	"github.com/dosipov/geotech-qa/internal/core/domain"
	"github.com/dosipov/geotech-qa/internal/core/ports"
)

// CalculatorMetrics records each selected calculator run by status.
type CalculatorMetrics interface {
	RecordCalculatorCall(service, calculator, status string)
}

type noopCalculatorMetrics struct{}

func (noopCalculatorMetrics) RecordCalculatorCall(string, string, string) {}

// ComputeDispatch selects and runs at most one calculator per question.
// Calculators are tried in registration order: the first whose trigger
// parameters appear in the decision wins, so bearing capacity takes
// priority over settlement when both parameter sets are present.
type ComputeDispatch struct {
	service     string
	calculators []ports.Calculator
	metrics     CalculatorMetrics
	logger      *slog.Logger
}

func NewComputeDispatch(service string, metrics CalculatorMetrics, logger *slog.Logger, calculators ...ports.Calculator) *ComputeDispatch {
	if metrics == nil {
		metrics = noopCalculatorMetrics{}
	}
	return &ComputeDispatch{
		service:     service,
		calculators: calculators,
		metrics:     metrics,
		logger:      logger,
	}
}

// Dispatch runs the selected calculator, or returns nil when the
// action does not call for computation, no calculator is triggered, or
// the triggered calculator declines its inputs. Validation failures
// never propagate.
func (d *ComputeDispatch) Dispatch(outcome domain.DecisionOutcome) *domain.ComputeResult {
	if !outcome.NeedsComputation() {
		return nil
	}

	calc := d.selectCalculator(outcome.Params)
	if calc == nil {
		d.logger.Warn("compute_no_calculator_triggered")
		return nil
	}

	inputs := make(map[string]float64)
	for _, name := range calc.RequiredParams() {
		value, ok := outcome.Params.Value(name)
		if !ok {
			d.logger.Warn("compute_missing_parameter", "calculator", calc.Name(), "parameter", name)
			d.metrics.RecordCalculatorCall(d.service, calc.Name(), "missing_parameter")
			return nil
		}
		inputs[name] = value
	}

	output, err := calc.Compute(inputs)
	if err != nil {
		d.logger.Warn("compute_declined", "calculator", calc.Name(), "error", err)
		d.metrics.RecordCalculatorCall(d.service, calc.Name(), "declined")
		return nil
	}

	d.logger.Info("compute_completed", "calculator", calc.Name(), "value", output.Value)
	d.metrics.RecordCalculatorCall(d.service, calc.Name(), "success")
	return &domain.ComputeResult{
		CalcType:   calc.Name(),
		Result:     output,
		Parameters: outcome.Params,
	}
}

// selectCalculator returns the first calculator with at least one of
// its required parameters present.
func (d *ComputeDispatch) selectCalculator(params domain.Params) ports.Calculator {
	for _, calc := range d.calculators {
		for _, name := range calc.RequiredParams() {
			if _, ok := params.Value(name); ok {
				return calc
			}
		}
	}
	return nil
}

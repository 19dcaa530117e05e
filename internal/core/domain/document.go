package domain

// Document is one knowledge base source as yielded by the document loader.
type Document struct {
	Content  string           `json:"content"`
	Metadata DocumentMetadata `json:"metadata"`
}

type DocumentMetadata struct {
	Source   string `json:"source"`
	Title    string `json:"title"`
	FilePath string `json:"file_path"`
}

// Chunk is a bounded segment of a source document, the unit of
// embedding and citation. Immutable once created.
type Chunk struct {
	ChunkID  string        `json:"chunk_id"`
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

type ChunkMetadata struct {
	Source      string `json:"source"`
	Title       string `json:"title"`
	FilePath    string `json:"file_path"`
	ChunkIndex  int    `json:"chunk_index"`
	WordCount   int    `json:"word_count"`
	ChunkLength int    `json:"chunk_length"`
}

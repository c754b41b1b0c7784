package knowledge

// FrontMatter is metadata supplied alongside (or parsed out of) a document.
type FrontMatter struct {
	Title      string   `json:"title,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Created    string   `json:"created,omitempty"`
}

// DocumentInput is what the ingestion boundary hands to the pipeline.
type DocumentInput struct {
	ID   string       `json:"id"`
	Raw  string       `json:"raw"`
	Meta *FrontMatter `json:"meta,omitempty"`
}

type Document struct {
	ID          string   `json:"id"`
	FileName    string   `json:"file_name"`
	Title       string   `json:"title"`
	Tags        []string `json:"tags"`
	Categories  []string `json:"categories"`
	Created     string   `json:"created,omitempty"`
	Text        string   `json:"text"`
	Raw         string   `json:"-"`
	ContentHash string   `json:"content_hash"`
}

// ProcessedDocument is a document with everything extracted from it.
type ProcessedDocument struct {
	Document *Document
	Entities []Entity
	Triples  []Triple
	Strategy string
	Degraded bool
}

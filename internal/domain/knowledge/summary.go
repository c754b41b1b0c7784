package knowledge

import "time"

type DocumentStatus string

const (
	DocumentProcessed DocumentStatus = "processed"
	DocumentSkipped   DocumentStatus = "skipped"
	DocumentFailed    DocumentStatus = "failed"
	DocumentUnchanged DocumentStatus = "unchanged"
)

type DocumentResult struct {
	ID        string         `json:"id"`
	Status    DocumentStatus `json:"status"`
	Strategy  string         `json:"strategy,omitempty"`
	Entities  int            `json:"entities"`
	Relations int            `json:"relations"`
	Degraded  bool           `json:"degraded,omitempty"`
	Reason    string         `json:"reason,omitempty"`
}

// WriteSummary counts the rows sent to the graph store.
type WriteSummary struct {
	Documents   int `json:"documents"`
	Entities    int `json:"entities"`
	Memberships int `json:"memberships"`
	Relations   int `json:"relations"`
}

func (w *WriteSummary) Add(o WriteSummary) {
	w.Documents += o.Documents
	w.Entities += o.Entities
	w.Memberships += o.Memberships
	w.Relations += o.Relations
}

func (w WriteSummary) Total() int {
	return w.Documents + w.Entities + w.Memberships + w.Relations
}

type BatchSummary struct {
	RunID      string           `json:"run_id"`
	Strategy   string           `json:"strategy"`
	Processed  int              `json:"processed"`
	Skipped    int              `json:"skipped"`
	Failed     int              `json:"failed"`
	Unchanged  int              `json:"unchanged"`
	Flushes    int              `json:"flushes"`
	Written    WriteSummary     `json:"written"`
	Documents  []DocumentResult `json:"documents"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

func (s *BatchSummary) Record(r DocumentResult) {
	switch r.Status {
	case DocumentProcessed:
		s.Processed++
	case DocumentSkipped:
		s.Skipped++
	case DocumentFailed:
		s.Failed++
	case DocumentUnchanged:
		s.Unchanged++
	}
	s.Documents = append(s.Documents, r)
}

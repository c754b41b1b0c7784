package entities

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kaptinlin/jsonrepair"

	"github.com/hedaiyu-site/Graduation-project/internal/domain/knowledge"
	"github.com/hedaiyu-site/Graduation-project/internal/platform/logger"
)

const ModelStrategyName = "model"

// NERClient is the chat completion surface the model strategy needs.
type NERClient interface {
	GenerateJSON(ctx context.Context, system, user string) (string, error)
}

const nerSystemPrompt = `You are a named entity recognizer for technical notes written in English or Chinese.
Return a JSON object with two fields:
  "entities": a list of {"text": string, "label": string} using labels PERSON, ORG, GPE, LOC, PRODUCT, EVENT, WORK_OF_ART, or any other label you detect;
  "noun_phrases": a list of the noun phrases in the text.
Copy every "text" and noun phrase exactly as it appears in the input. Do not add commentary.`

var nerLabelTypes = map[string]string{
	"PERSON":      knowledge.EntityTypePerson,
	"ORG":         knowledge.EntityTypeOrganization,
	"GPE":         knowledge.EntityTypeLocation,
	"LOC":         knowledge.EntityTypeLocation,
	"PRODUCT":     knowledge.EntityTypeProduct,
	"EVENT":       knowledge.EntityTypeEvent,
	"WORK_OF_ART": knowledge.EntityTypeArtwork,
}

var demonstratives = map[string]struct{}{
	"this": {}, "that": {}, "these": {}, "those": {},
	"这": {}, "那": {}, "这些": {}, "那些": {}, "这个": {}, "那个": {},
}

// ModelStrategy asks a language model for named entities and noun phrases.
type ModelStrategy struct {
	client   NERClient
	log      *logger.Logger
	maxRunes int
}

func NewModelStrategy(client NERClient, log *logger.Logger) *ModelStrategy {
	if log == nil {
		log = logger.Nop()
	}
	return &ModelStrategy{client: client, log: log.With("service", "ModelNER"), maxRunes: 6000}
}

func (m *ModelStrategy) Name() string { return ModelStrategyName }

func (m *ModelStrategy) Available(context.Context) bool { return m != nil && m.client != nil }

func (m *ModelStrategy) Extract(ctx context.Context, text string) ([]knowledge.Entity, error) {
	if m == nil || m.client == nil {
		return nil, fmt.Errorf("model strategy not configured")
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	var out []knowledge.Entity
	for _, chunk := range splitParagraphs(text, m.maxRunes) {
		raw, err := m.client.GenerateJSON(ctx, nerSystemPrompt, chunk)
		if err != nil {
			return nil, fmt.Errorf("model ner: %w", err)
		}
		resp, err := parseNERResponse(raw)
		if err != nil {
			return nil, fmt.Errorf("model ner: %w", err)
		}
		out = append(out, resp.toEntities()...)
	}
	return knowledge.DedupeEntities(out), nil
}

type nerEntity struct {
	Text   string `json:"text"`
	Name   string `json:"name"`
	Entity string `json:"entity"`
	Label  string `json:"label"`
	Type   string `json:"type"`
}

func (e nerEntity) surface() string {
	switch {
	case e.Text != "":
		return e.Text
	case e.Name != "":
		return e.Name
	}
	return e.Entity
}

func (e nerEntity) label() string {
	if e.Label != "" {
		return e.Label
	}
	return e.Type
}

type nerResponse struct {
	Entities      []nerEntity `json:"entities"`
	NamedEntities []nerEntity `json:"named_entities"`
	NounPhrases   []string    `json:"noun_phrases"`
	NounChunks    []string    `json:"noun_chunks"`
}

func parseNERResponse(raw string) (nerResponse, error) {
	raw = strings.TrimSpace(raw)
	var resp nerResponse
	if err := json.Unmarshal([]byte(raw), &resp); err == nil {
		return resp, nil
	}
	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return resp, fmt.Errorf("repair response: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &resp); err != nil {
		return resp, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

func (r nerResponse) toEntities() []knowledge.Entity {
	named := r.Entities
	if len(named) == 0 {
		named = r.NamedEntities
	}
	phrases := r.NounPhrases
	if len(phrases) == 0 {
		phrases = r.NounChunks
	}

	out := make([]knowledge.Entity, 0, len(named)+len(phrases))
	for _, ne := range named {
		typ, ok := nerLabelTypes[strings.ToUpper(strings.TrimSpace(ne.label()))]
		if !ok {
			continue
		}
		if e, ok := knowledge.NewEntity(ne.surface(), typ); ok {
			out = append(out, e)
		}
	}
	for _, p := range phrases {
		p = strings.TrimSpace(p)
		if utf8.RuneCountInString(p) <= 2 {
			continue
		}
		if _, ok := demonstratives[strings.ToLower(p)]; ok {
			continue
		}
		if e, ok := knowledge.NewEntity(p, knowledge.EntityTypeConcept); ok {
			out = append(out, e)
		}
	}
	return out
}

// splitParagraphs groups paragraphs into chunks of at most maxRunes runes.
// A single oversized paragraph is cut on rune boundaries.
func splitParagraphs(text string, maxRunes int) []string {
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return []string{text}
	}
	var out []string
	var cur strings.Builder
	curRunes := 0
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
		curRunes = 0
	}
	for _, para := range strings.Split(text, "\n\n") {
		r := []rune(para)
		for len(r) > maxRunes {
			flush()
			out = append(out, string(r[:maxRunes]))
			r = r[maxRunes:]
		}
		if curRunes+len(r)+2 > maxRunes {
			flush()
		}
		if curRunes > 0 {
			cur.WriteString("\n\n")
			curRunes += 2
		}
		cur.WriteString(string(r))
		curRunes += len(r)
	}
	flush()
	return out
}

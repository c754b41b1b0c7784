package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/hedaiyu-site/Graduation-project/internal/domain/knowledge"
)

const bom = "\ufeff"

// Normalize turns raw input into a Document with cleaned text. Failures are
// document_parse errors; the caller skips the document.
func Normalize(in knowledge.DocumentInput) (*knowledge.Document, error) {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return nil, knowledge.DocumentParseError("normalize", "empty document id", nil)
	}
	if !utf8.ValidString(in.Raw) {
		return nil, knowledge.DocumentParseError("normalize", "document "+id+" is not valid UTF-8", nil)
	}

	raw := strings.TrimPrefix(in.Raw, bom)
	block, body, found, err := splitFrontMatter(raw)
	if err != nil {
		return nil, knowledge.DocumentParseError("normalize", "document "+id, err)
	}

	meta := in.Meta
	if meta == nil && found {
		meta, err = parseFrontMatter(block)
		if err != nil {
			return nil, knowledge.DocumentParseError("normalize", "front-matter of "+id, err)
		}
	}
	if meta == nil {
		meta = &knowledge.FrontMatter{}
	}

	fileName := baseName(id)
	title := strings.TrimSpace(meta.Title)
	if title == "" {
		title = strings.TrimSuffix(fileName, path.Ext(fileName))
	}

	sum := sha256.Sum256([]byte(in.Raw))
	return &knowledge.Document{
		ID:          id,
		FileName:    fileName,
		Title:       title,
		Tags:        uniqueTrimmed(meta.Tags),
		Categories:  uniqueTrimmed(meta.Categories),
		Created:     strings.TrimSpace(meta.Created),
		Text:        Clean(body),
		Raw:         in.Raw,
		ContentHash: hex.EncodeToString(sum[:]),
	}, nil
}

func baseName(id string) string {
	return path.Base(strings.ReplaceAll(id, "\\", "/"))
}

func uniqueTrimmed(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Package knowledge holds the documents used as supporting context for summaries.
package knowledge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// DefaultCategory is assigned to documents loaded without one.
const DefaultCategory = "general"

// Document is an ingestible knowledge entry.
type Document struct {
	ID       string
	Content  string
	Category string
	Metadata map[string]string
}

// Snippet is a single knowledge search hit.
type Snippet struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
	Score    float64           `json:"score"`
}

// NewDocument builds a document with a fresh random id and flattened metadata.
func NewDocument(content, category string, metadata map[string]any) Document {
	if category == "" {
		category = DefaultCategory
	}
	md := SanitizeMetadata(metadata)
	md["category"] = category
	return Document{
		ID:       uuid.NewString(),
		Content:  content,
		Category: category,
		Metadata: md,
	}
}

// SanitizeMetadata flattens metadata values to strings: lists are joined with
// ", ", scalars keep their textual form, anything else goes through fmt.
func SanitizeMetadata(in map[string]any) map[string]string {
	out := make(map[string]string, len(in)+1)
	for k, v := range in {
		out[k] = flatten(v)
	}
	return out
}

func flatten(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = flatten(e)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}

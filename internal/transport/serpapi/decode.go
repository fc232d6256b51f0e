package serpapi

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/expatscout/internal/domain/record"
)

// SerpAPI fields are polymorphic: the same key may hold a string, an object or a list.

func decodeDate(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		StartDate string `json:"start_date"`
		When      string `json:"when"`
		Date      string `json:"date"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return record.FirstNonEmpty(obj.StartDate, obj.When, obj.Date)
	}
	return ""
}

func decodeVenue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		Name string `json:"name"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return obj.Name
	}
	return ""
}

func decodeAddress(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var parts []any
	if json.Unmarshal(raw, &parts) != nil {
		return ""
	}
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == nil {
			continue
		}
		v := fmt.Sprint(p)
		if v != "" {
			kept = append(kept, v)
		}
	}
	return strings.Join(kept, ", ")
}

// decodeTicketLink accepts both an object and the list form SerpAPI actually returns.
func decodeTicketLink(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	type ticket struct {
		Link string `json:"link"`
	}
	var one ticket
	if json.Unmarshal(raw, &one) == nil {
		return one.Link
	}
	var many []ticket
	if json.Unmarshal(raw, &many) == nil {
		for _, t := range many {
			if strings.TrimSpace(t.Link) != "" {
				return t.Link
			}
		}
	}
	return ""
}

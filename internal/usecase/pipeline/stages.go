package pipeline

import (
	"cmp"
	"slices"
	"strings"

	"github.com/kailas-cloud/expatscout/internal/domain/record"
)

// Stage labels for dropped-record accounting.
const (
	StageInvalidLink = "invalid_link"
	StageMissingDate = "missing_date"
	StagePast        = "past"
	StageDuplicate   = "duplicate"
)

const (
	undatedSortKey = "9999-12-31"
	untimedSortKey = "00:00"
)

// Drops counts records removed per stage.
type Drops map[string]int

// Filter removes records that fail p's link and date checks. Each check is
// switched on by its own policy field.
// today is a YYYY-MM-DD date; past dates compare lexicographically.
func Filter(recs []record.Record, p Policy, today string) ([]record.Record, Drops) {
	drops := Drops{}
	if !p.ValidateLinks && !p.RequireDate && !p.DropPast {
		return recs, drops
	}

	out := make([]record.Record, 0, len(recs))
	for _, r := range recs {
		switch {
		case p.ValidateLinks && (strings.TrimSpace(r.Title) == "" || !record.IsDetailLink(r.URL)):
			drops[StageInvalidLink]++
		case p.RequireDate && r.StartDate == "":
			drops[StageMissingDate]++
		case p.DropPast && r.StartDate != "" && r.StartDate < today:
			drops[StagePast]++
		default:
			out = append(out, r)
		}
	}
	return out, drops
}

// DedupeKey is the identity used to collapse repeated listings.
func DedupeKey(r record.Record, byCompany bool) string {
	key := strings.ToLower(strings.TrimSpace(r.Title))
	if d := strings.TrimSpace(r.StartDate); d != "" {
		key += "_" + d
	}
	if byCompany {
		key += "_" + strings.ToLower(strings.TrimSpace(r.Company))
	}
	return key
}

// Dedupe keeps the first record per DedupeKey. Untitled records are dropped.
func Dedupe(recs []record.Record, byCompany bool) ([]record.Record, int) {
	seen := make(map[string]struct{}, len(recs))
	out := make([]record.Record, 0, len(recs))
	dropped := 0
	for _, r := range recs {
		if strings.TrimSpace(r.Title) == "" {
			dropped++
			continue
		}
		k := DedupeKey(r, byCompany)
		if _, dup := seen[k]; dup {
			dropped++
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out, dropped
}

// Sort orders records by date then time, undated last. Ties keep input order.
func Sort(recs []record.Record) {
	slices.SortStableFunc(recs, func(a, b record.Record) int {
		return cmp.Or(
			cmp.Compare(orDefault(a.StartDate, undatedSortKey), orDefault(b.StartDate, undatedSortKey)),
			cmp.Compare(orDefault(a.StartTime, untimedSortKey), orDefault(b.StartTime, untimedSortKey)),
		)
	})
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Page is one window over a sorted result set.
type Page struct {
	Items      []record.Record
	Page       int
	PageSize   int
	TotalPages int
	Total      int
}

// Paginate returns the 1-indexed page of recs. Out-of-range pages are empty.
func Paginate(recs []record.Record, page, pageSize int) Page {
	page = max(page, 1)
	p := Page{Page: page, PageSize: pageSize, Total: len(recs), Items: []record.Record{}}
	if pageSize < 1 {
		return p
	}
	if p.Total > 0 {
		p.TotalPages = (p.Total-1)/pageSize + 1
	}
	if page > p.TotalPages {
		return p
	}
	start := (page - 1) * pageSize
	end := p.Total
	if p.Total-start > pageSize {
		end = start + pageSize
	}
	p.Items = recs[start:end]
	return p
}

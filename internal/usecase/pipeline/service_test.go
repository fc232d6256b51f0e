package pipeline

import (
	"context"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/expatscout/internal/domain/intent"
	"github.com/kailas-cloud/expatscout/internal/domain/record"
	"github.com/kailas-cloud/expatscout/internal/metrics"
)

type fixedClock string

func (c fixedClock) Today() string { return string(c) }

const today = "2026-01-15"

func ev(title, date, url string) record.Record {
	return record.Record{Title: title, StartDate: date, URL: url, Type: record.Events}
}

func titles(recs []record.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Title
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFilter_EventPolicy(t *testing.T) {
	recs := []record.Record{
		ev("ok", "2026-02-01", "https://a.example/1"),
		ev("", "2026-02-01", "https://a.example/2"),
		ev("relative", "2026-02-01", "/e/3"),
		ev("aggregator", "2026-02-01", "https://www.google.com/search?q=x"),
		ev("undated", "", "https://a.example/4"),
		ev("past", "2026-01-14", "https://a.example/5"),
		ev("today", today, "https://a.example/6"),
	}

	got, drops := Filter(recs, DefaultPolicies()[intent.Event], today)
	if want := []string{"ok", "today"}; !equal(titles(got), want) {
		t.Errorf("kept %v, want %v", titles(got), want)
	}
	if drops[StageInvalidLink] != 3 || drops[StageMissingDate] != 1 || drops[StagePast] != 1 {
		t.Errorf("unexpected drops: %v", drops)
	}
}

func TestFilter_Disabled(t *testing.T) {
	recs := []record.Record{ev("", "", "")}
	got, drops := Filter(recs, Policy{}, today)
	if len(got) != 1 || len(drops) != 0 {
		t.Errorf("expected pass-through, got %v %v", got, drops)
	}
}

func TestFilter_DateChecksWithoutLinkValidation(t *testing.T) {
	recs := []record.Record{
		ev("relative link", "2026-02-01", "/e/1"),
		ev("undated", "", "https://a.example/2"),
		ev("past", "2026-01-14", "https://a.example/3"),
	}
	p := DefaultPolicies()[intent.Event]
	p.ValidateLinks = false

	got, drops := Filter(recs, p, today)
	if want := []string{"relative link"}; !equal(titles(got), want) {
		t.Errorf("kept %v, want %v", titles(got), want)
	}
	if drops[StageInvalidLink] != 0 || drops[StageMissingDate] != 1 || drops[StagePast] != 1 {
		t.Errorf("unexpected drops: %v", drops)
	}
}

func TestFilter_LinksOnly(t *testing.T) {
	recs := []record.Record{
		ev("undated", "", "https://a.example/1"),
		ev("past", "2020-01-01", "https://a.example/2"),
		ev("bad link", "2026-02-01", "ftp://a.example/3"),
	}
	got, drops := Filter(recs, Policy{ValidateLinks: true}, today)
	if want := []string{"undated", "past"}; !equal(titles(got), want) {
		t.Errorf("kept %v, want %v", titles(got), want)
	}
	if drops[StageInvalidLink] != 1 || len(drops) != 1 {
		t.Errorf("unexpected drops: %v", drops)
	}
}

func TestDedupe(t *testing.T) {
	recs := []record.Record{
		ev("Jazz Night", "2026-03-01", "https://a/1"),
		ev("  jazz night ", "2026-03-01", "https://b/1"),
		ev("Jazz Night", "2026-03-02", "https://a/2"),
		ev("Jazz Night", "", "https://a/3"),
		ev("   ", "", "https://a/4"),
	}
	got, dropped := Dedupe(recs, false)
	if len(got) != 3 || dropped != 2 {
		t.Fatalf("expected 3 kept / 2 dropped, got %d / %d", len(got), dropped)
	}
	if got[0].URL != "https://a/1" {
		t.Errorf("expected first occurrence to win, got %q", got[0].URL)
	}
}

func TestDedupe_ByCompany(t *testing.T) {
	recs := []record.Record{
		{Title: "Go Engineer", Company: "Monzo"},
		{Title: "Go Engineer", Company: "Wise"},
		{Title: "go engineer", Company: "MONZO"},
	}
	got, dropped := Dedupe(recs, true)
	if len(got) != 2 || dropped != 1 {
		t.Errorf("expected 2 kept / 1 dropped, got %d / %d", len(got), dropped)
	}
	if got, _ := Dedupe(recs, false); len(got) != 1 {
		t.Errorf("expected title-only dedupe to keep 1, got %d", len(got))
	}
}

func TestSort_StableUndatedLast(t *testing.T) {
	recs := []record.Record{
		{Title: "undated-a"},
		{Title: "late", StartDate: "2026-05-01"},
		{Title: "evening", StartDate: "2026-02-01", StartTime: "19:00"},
		{Title: "untimed", StartDate: "2026-02-01"},
		{Title: "morning", StartDate: "2026-02-01", StartTime: "09:30"},
		{Title: "undated-b"},
	}
	Sort(recs)
	want := []string{"untimed", "morning", "evening", "late", "undated-a", "undated-b"}
	if !equal(titles(recs), want) {
		t.Errorf("got %v, want %v", titles(recs), want)
	}
}

func TestPaginate(t *testing.T) {
	recs := make([]record.Record, 23)
	for i := range recs {
		recs[i].Title = string(rune('a' + i))
	}

	tests := []struct {
		name      string
		page      int
		size      int
		wantLen   int
		wantPages int
		wantFirst string
	}{
		{"first page", 1, 10, 10, 3, "a"},
		{"last partial page", 3, 10, 3, 3, "u"},
		{"out of range", 4, 10, 0, 3, ""},
		{"page below one", 0, 10, 10, 3, "a"},
		{"exact fit", 1, 23, 23, 1, "a"},
		{"huge page", math.MaxInt, 10, 0, 3, ""},
		{"huge page small size", math.MaxInt / 10, 10, 0, 3, ""},
		{"huge page and size", math.MaxInt, math.MaxInt, 0, 1, ""},
		{"huge size", 1, math.MaxInt, 23, 1, "a"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := Paginate(recs, tc.page, tc.size)
			if len(p.Items) != tc.wantLen || p.TotalPages != tc.wantPages || p.Total != 23 {
				t.Fatalf("got len=%d pages=%d total=%d", len(p.Items), p.TotalPages, p.Total)
			}
			if tc.wantLen > 0 && p.Items[0].Title != tc.wantFirst {
				t.Errorf("first item %q, want %q", p.Items[0].Title, tc.wantFirst)
			}
		})
	}
}

func TestPaginate_Empty(t *testing.T) {
	p := Paginate(nil, 1, 10)
	if p.TotalPages != 0 || p.Total != 0 || p.Items == nil || len(p.Items) != 0 {
		t.Errorf("unexpected empty page: %+v", p)
	}
}

func TestPolicies_Overrides(t *testing.T) {
	yes, no := true, false
	got := Policies(map[string]Override{
		"job":     {RequireDate: &yes},
		"event":   {DropPast: &no},
		"weather": {Dedupe: &yes},
	})

	job := got[intent.Job]
	if !job.RequireDate || !job.Dedupe || !job.DedupeByCompany {
		t.Errorf("unexpected job policy: %+v", job)
	}
	if got[intent.Event].DropPast || !got[intent.Event].RequireDate {
		t.Errorf("unexpected event policy: %+v", got[intent.Event])
	}
	if got[intent.General] != (Policy{}) {
		t.Errorf("general policy changed: %+v", got[intent.General])
	}
}

func TestRun_JobsKeepRelativeDates(t *testing.T) {
	svc := New(fixedClock(today), nil)
	recs := []record.Record{
		{Title: "Go Engineer", Company: "Monzo", StartDate: "3 days ago", URL: "https://jobs/1", Type: record.Jobs},
		{Title: "Data Analyst", Company: "Wise", URL: "https://jobs/2", Type: record.Jobs},
		{Title: "Go Engineer", Company: "Monzo", StartDate: "3 days ago", URL: "https://jobs/3", Type: record.Jobs},
	}
	got := svc.Run(context.Background(), intent.Job, recs)
	if len(got) != 2 {
		t.Fatalf("expected 2 jobs, got %d: %v", len(got), titles(got))
	}
	// "3 days ago" sorts before the undated posting.
	if got[0].Title != "Go Engineer" {
		t.Errorf("unexpected order: %v", titles(got))
	}
}

func TestRun_EventsEndToEnd(t *testing.T) {
	metrics.RegisterSearchMetrics()
	dup := metrics.PipelineDroppedTotal.WithLabelValues("event", StageDuplicate)
	before := testutil.ToFloat64(dup)

	svc := New(fixedClock(today), nil)
	recs := []record.Record{
		ev("B", "2026-03-01", "https://x/b"),
		ev("A", "2026-02-01", "https://x/a"),
		ev("a", "2026-02-01", "https://y/a"),
		ev("Old", "2025-12-01", "https://x/old"),
	}
	got := svc.Run(context.Background(), intent.Event, recs)
	if want := []string{"A", "B"}; !equal(titles(got), want) {
		t.Errorf("got %v, want %v", titles(got), want)
	}
	if recs[0].Title != "B" {
		t.Error("input slice was reordered")
	}
	if d := testutil.ToFloat64(dup) - before; d != 1 {
		t.Errorf("expected 1 duplicate counted, got %f", d)
	}
}

func TestRun_GeneralPassesThrough(t *testing.T) {
	svc := New(fixedClock(today), nil)
	got := svc.Run(context.Background(), intent.General, []record.Record{{Title: ""}})
	if len(got) != 1 {
		t.Errorf("expected pass-through, got %d", len(got))
	}
}

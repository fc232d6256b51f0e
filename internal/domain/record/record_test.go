package record

import "testing"

func TestIsAggregatorURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.google.com/search?q=concerts", true},
		{"https://google.com/url?q=https://example.com", true},
		{"https://www.google.com/maps/search/venue", true},
		{"https://www.eventbrite.com/e/jazz-night-123", false},
		{"https://www.google.com/maps/place/venue", false},
	}

	for _, tc := range tests {
		if got := IsAggregatorURL(tc.url); got != tc.want {
			t.Errorf("IsAggregatorURL(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}

func TestIsDetailLink(t *testing.T) {
	if !IsDetailLink("http://example.com/e/1") {
		t.Error("plain http link should be a detail link")
	}
	if IsDetailLink("/relative/path") {
		t.Error("relative link should not be a detail link")
	}
	if IsDetailLink("https://www.google.com/search?q=x") {
		t.Error("aggregator link should not be a detail link")
	}
	if IsDetailLink("") {
		t.Error("empty link should not be a detail link")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo wörld", 5); got != "héllo" {
		t.Errorf("expected rune-safe cut, got %q", got)
	}
	if got := Truncate("short", 200); got != "short" {
		t.Errorf("expected unchanged, got %q", got)
	}
	if got := Truncate("abc", 0); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty("", "  ", "b", "c"); got != "b" {
		t.Errorf("expected b, got %q", got)
	}
	if got := FirstNonEmpty(); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

package params

import (
	"net/url"
	"testing"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantPage   int
		wantOffset int
	}{
		{"defaults", "", 20, 1, 0},
		{"explicit", "limit=10&page=3", 10, 3, 20},
		{"limit capped", "limit=500", 50, 1, 0},
		{"zero limit falls back", "limit=0", 20, 1, 0},
		{"negative page ignored", "page=-2", 20, 1, 0},
		{"garbage ignored", "limit=abc&page=xyz", 20, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			p := ParsePagination(q)
			if p.Limit != tt.wantLimit || p.Page != tt.wantPage || p.Offset != tt.wantOffset {
				t.Errorf("got limit=%d page=%d offset=%d, want limit=%d page=%d offset=%d",
					p.Limit, p.Page, p.Offset, tt.wantLimit, tt.wantPage, tt.wantOffset)
			}
		})
	}
}

func TestComputeMeta(t *testing.T) {
	q, _ := url.ParseQuery("limit=10&page=2")
	p := ParsePagination(q)
	p.ComputeMeta(35)

	if p.TotalPages != 4 {
		t.Errorf("TotalPages = %d, want 4", p.TotalPages)
	}
	if !p.HasNext {
		t.Error("page 2 of 4 should have a next page")
	}
	if !p.HasPrev {
		t.Error("page 2 should have a previous page")
	}

	p.Page = 4
	p.ComputeMeta(35)
	if p.HasNext {
		t.Error("last page should not have a next page")
	}
}

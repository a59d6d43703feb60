package httpserver

import (
	"net/url"
	"testing"
)

func TestBuildProductFilters(t *testing.T) {
	values, _ := url.ParseQuery("q= database &category= computing &limit=150")

	filters, err := buildProductFilters(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filters.Query == nil || *filters.Query != "database" {
		t.Fatalf("query not trimmed: %+v", filters.Query)
	}
	if filters.Category == nil || *filters.Category != "computing" {
		t.Fatalf("category parse failed: %+v", filters.Category)
	}
	if filters.Limit != 150 {
		t.Fatalf("limit not parsed: %d", filters.Limit)
	}
}

func TestBuildProductFilters_InvalidLimit(t *testing.T) {
	values, _ := url.ParseQuery("limit=abc")
	if _, err := buildProductFilters(values); err == nil {
		t.Fatalf("expected error for invalid limit")
	}
}

func TestBuildProductFilters_InvalidCursor(t *testing.T) {
	values, _ := url.ParseQuery("cursor=!!!not-base64!!!")
	if _, err := buildProductFilters(values); err == nil {
		t.Fatalf("expected error for invalid cursor")
	}
}

func TestNormalizeStringPtr(t *testing.T) {
	if normalizeStringPtr(nil) != nil {
		t.Fatalf("nil input should stay nil")
	}
	empty := "   "
	if normalizeStringPtr(&empty) != nil {
		t.Fatalf("blank input should collapse to nil")
	}
	padded := " value "
	got := normalizeStringPtr(&padded)
	if got == nil || *got != "value" {
		t.Fatalf("trim failed: %v", got)
	}
}

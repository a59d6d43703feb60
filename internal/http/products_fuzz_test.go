package httpserver

import (
	"net/url"
	"testing"
)

func FuzzBuildProductFilters(f *testing.F) {
	seeds := []string{
		"q=database&category=computing",
		"limit=200",
		"cursor=eyJmb28iOiJiYXIifQ==",
		"",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, raw string) {
		values, err := url.ParseQuery(raw)
		if err != nil {
			return
		}
		_, _ = buildProductFilters(values)
	})
}

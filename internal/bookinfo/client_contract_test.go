package bookinfo

import (
	"context"
	"io"
	"log"
	"os"
	"testing"
	"time"
)

// TestHTTPClientSmoke checks the client against a running metadata service,
// typically the bookinfo-mock binary.
func TestHTTPClientSmoke(t *testing.T) {
	baseURL := os.Getenv("BOOKINFO_URL")
	if baseURL == "" {
		t.Skip("BOOKINFO_URL not provided")
	}
	apiKey := os.Getenv("BOOKINFO_API_KEY")
	client, err := NewHTTPClient(baseURL, apiKey, 3*time.Second, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("create http client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := client.Fetch(ctx, "The Go Programming Language")
	if err != nil {
		t.Fatalf("fetch mock data: %v", err)
	}
	if result.Publisher == nil && result.Author == nil {
		t.Fatalf("unexpected metadata payload: %+v", result)
	}
}

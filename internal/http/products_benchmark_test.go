package httpserver

import (
	"fmt"
	"net/http"
	"testing"
)

func BenchmarkHandleSubmitRating(b *testing.B) {
	srv := buildTestServer(b)
	productID := createTestProduct(b, srv, "Benchmark Product")

	tokens := make([]string, 64)
	for i := range tokens {
		tokens[i] = bearerToken(b, fmt.Sprintf("bench-%d", i))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := doRequest(srv, http.MethodPost, "/products/"+productID+"/rating", tokens[i%len(tokens)], []byte(`{"score":4}`))
		if rec.Code != http.StatusCreated && rec.Code != http.StatusOK {
			b.Fatalf("unexpected status %d", rec.Code)
		}
	}
}

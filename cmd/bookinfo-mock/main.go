package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
)

type bookEntry struct {
	Title     string  `json:"title"`
	Author    *string `json:"author"`
	Publisher *string `json:"publisher"`
	ISBN      *string `json:"isbn"`
	Pages     *int    `json:"pages"`
	Category  *string `json:"category"`
}

func main() {
	var (
		port    = flag.String("port", "9099", "port to listen on")
		data    = flag.String("data", "mock-bookinfo.json", "path to mock data file")
		verbose = flag.Bool("log", false, "enable request logging")
	)
	flag.Parse()

	file, err := os.ReadFile(*data)
	if err != nil {
		log.Fatalf("read mock data: %v", err)
	}

	var payload map[string]bookEntry
	if err := json.Unmarshal(file, &payload); err != nil {
		log.Fatalf("parse mock data: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/bookinfo", func(w http.ResponseWriter, r *http.Request) {
		title := r.URL.Query().Get("title")
		entry, ok := payload[title]
		if !ok {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		if *verbose {
			log.Printf("served metadata for %q", title)
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(entry); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	addr := ":" + *port
	log.Printf("mock bookinfo listening on %s (%d entries)", addr, len(payload))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

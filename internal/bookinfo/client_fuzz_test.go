package bookinfo

import "testing"

func FuzzConvertToResult(f *testing.F) {
	f.Add("Alan A. A. Donovan", "Addison-Wesley", "978-0134190440", 380, "computing")

	f.Fuzz(func(t *testing.T, author, publisher, isbn string, pages int, category string) {
		resp := apiResponse{
			Author:    optionalString(author),
			Publisher: optionalString(publisher),
			ISBN:      optionalString(isbn),
			Category:  optionalString(category),
		}
		if pages%2 == 0 {
			resp.Pages = &pages
		}

		result := convertToResult(resp)
		if result == nil {
			t.Fatalf("convertToResult returned nil result")
		}
		for name, field := range map[string]*string{
			"author":    result.Author,
			"publisher": result.Publisher,
			"isbn":      result.ISBN,
			"category":  result.Category,
		} {
			if field != nil && *field == "" {
				t.Fatalf("%s normalized to empty string", name)
			}
		}
	})
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

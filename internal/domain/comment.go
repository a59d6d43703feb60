package domain

import "time"

// Comment is a user's free-text note on a product. Each user holds at most
// one comment per product; posting again replaces the text.
type Comment struct {
	ID        string
	ProductID string
	UserID    string
	Detail    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

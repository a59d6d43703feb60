package domain

import "time"

// Score bounds accepted for a rating submission.
const (
	MinScore = 1
	MaxScore = 5
)

// Rating represents a single user's score for a product. At most one
// rating exists per (product, user) pair; resubmission revises it in place.
type Rating struct {
	ProductID string
	UserID    string
	Score     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RatingAggregate is the derived (count, mean) summary stored on the product
// row. It is co-updated with the rating set and is never written independently.
type RatingAggregate struct {
	Count int64
	Mean  float64
}

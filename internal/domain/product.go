package domain

import "time"

// Specification is a key/value attribute attached to a product
// (e.g. author, publisher, ISBN for a book).
type Specification struct {
	ID        string
	ProductID string
	Item      string
	Value     string
}

// Product represents the canonical product entity in the database/service.
type Product struct {
	ID             string
	Title          string
	Price          float64
	Description    *string
	Cover          *string
	Detail         *string
	Category       *string
	Likes          int64
	Specifications []Specification
	Aggregate      RatingAggregate
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Stockpile tracks the sellable and frozen amounts for a product.
type Stockpile struct {
	ProductID string
	Amount    int64
	Frozen    int64
}

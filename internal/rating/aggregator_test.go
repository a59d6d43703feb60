package rating

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/tomatomall/tomatomall/internal/domain"
)

const epsilon = 1e-9

func TestApplyFirst(t *testing.T) {
	tests := []struct {
		name      string
		agg       domain.RatingAggregate
		score     int
		wantCount int64
		wantMean  float64
	}{
		{"first ever", domain.RatingAggregate{}, 4, 1, 4.0},
		{"second rater", domain.RatingAggregate{Count: 1, Mean: 4}, 2, 2, 3.0},
		{"third rater", domain.RatingAggregate{Count: 2, Mean: 3}, 3, 3, 3.0},
		{"min score", domain.RatingAggregate{}, 1, 1, 1.0},
		{"max score", domain.RatingAggregate{Count: 4, Mean: 1}, 5, 5, 1.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := applyFirst(tt.agg, tt.score)
			if got.Count != tt.wantCount {
				t.Fatalf("count = %d, want %d", got.Count, tt.wantCount)
			}
			if math.Abs(got.Mean-tt.wantMean) > epsilon {
				t.Fatalf("mean = %v, want %v", got.Mean, tt.wantMean)
			}
		})
	}
}

func TestApplyRevision(t *testing.T) {
	tests := []struct {
		name     string
		agg      domain.RatingAggregate
		oldScore int
		newScore int
		wantMean float64
	}{
		{"revise up", domain.RatingAggregate{Count: 2, Mean: 3}, 4, 5, 3.5},
		{"revise down", domain.RatingAggregate{Count: 2, Mean: 3}, 4, 1, 1.5},
		{"single rater", domain.RatingAggregate{Count: 1, Mean: 2}, 2, 5, 5.0},
		{"same score", domain.RatingAggregate{Count: 3, Mean: 3.5}, 4, 4, 3.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := applyRevision(tt.agg, tt.oldScore, tt.newScore)
			if got.Count != tt.agg.Count {
				t.Fatalf("count changed on revision: %d -> %d", tt.agg.Count, got.Count)
			}
			if math.Abs(got.Mean-tt.wantMean) > epsilon {
				t.Fatalf("mean = %v, want %v", got.Mean, tt.wantMean)
			}
		})
	}
}

func TestApplyRevision_SameScoreIdempotent(t *testing.T) {
	agg := domain.RatingAggregate{Count: 7, Mean: 3.2857142857142856}
	once := applyRevision(agg, 3, 3)
	twice := applyRevision(once, 3, 3)
	if once.Count != agg.Count || twice.Count != agg.Count {
		t.Fatalf("count drifted: %d, %d, want %d", once.Count, twice.Count, agg.Count)
	}
	if math.Abs(once.Mean-agg.Mean) > epsilon || math.Abs(twice.Mean-agg.Mean) > epsilon {
		t.Fatalf("mean drifted: %v, %v, want %v", once.Mean, twice.Mean, agg.Mean)
	}
}

// The aggregate must stay reconcilable with the underlying score set after
// every incremental update: mean*count == sum(scores) within tolerance.
func TestAggregateInvariant_RandomSequences(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))

	for seq := 0; seq < 20; seq++ {
		agg := domain.RatingAggregate{}
		scores := make(map[int]int)

		for op := 0; op < 500; op++ {
			user := rnd.Intn(50)
			score := domain.MinScore + rnd.Intn(domain.MaxScore-domain.MinScore+1)

			if old, ok := scores[user]; ok {
				agg = applyRevision(agg, old, score)
			} else {
				agg = applyFirst(agg, score)
			}
			scores[user] = score

			var sum float64
			for _, s := range scores {
				sum += float64(s)
			}
			if agg.Count != int64(len(scores)) {
				t.Fatalf("seq %d op %d: count = %d, want %d", seq, op, agg.Count, len(scores))
			}
			if math.Abs(agg.Mean*float64(agg.Count)-sum) > epsilon {
				t.Fatalf("seq %d op %d: mean*count = %v, want sum %v", seq, op, agg.Mean*float64(agg.Count), sum)
			}
		}
	}
}

func TestSubmit_RejectsBeforeTouchingStorage(t *testing.T) {
	// A nil pool is safe here: validation must fail before any query runs.
	agg := New(nil, nil, 3)
	ctx := context.Background()

	if _, err := agg.Submit(ctx, "c6e1f7ee-95a7-47c5-b55c-bb7b2d70e2a1", "user1", 0); !errors.Is(err, ErrScoreOutOfRange) {
		t.Fatalf("score 0: err = %v, want ErrScoreOutOfRange", err)
	}
	if _, err := agg.Submit(ctx, "c6e1f7ee-95a7-47c5-b55c-bb7b2d70e2a1", "user1", 6); !errors.Is(err, ErrScoreOutOfRange) {
		t.Fatalf("score 6: err = %v, want ErrScoreOutOfRange", err)
	}
	if _, err := agg.Submit(ctx, "c6e1f7ee-95a7-47c5-b55c-bb7b2d70e2a1", "", 3); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("empty user: err = %v, want ErrNotAuthenticated", err)
	}
	if _, err := agg.Submit(ctx, "not-a-uuid", "user1", 3); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("malformed id: err = %v, want ErrProductNotFound", err)
	}
}

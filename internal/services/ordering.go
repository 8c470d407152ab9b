package services

import (
	"fmt"

	"github.com/google/uuid"
)

// Rank is the display position of one item, counted from 1.
type Rank struct {
	ID           uuid.UUID `json:"id"`
	DisplayOrder int       `json:"display_order"`
}

// Move returns a copy of list with the element at index from moved to index
// to. Indexes are 0-based; the input is left untouched.
func Move[T any](list []T, from, to int) ([]T, error) {
	if from < 0 || from >= len(list) || to < 0 || to >= len(list) {
		return nil, fmt.Errorf("move %d -> %d out of range for %d items", from, to, len(list))
	}
	out := make([]T, 0, len(list))
	out = append(out, list[:from]...)
	out = append(out, list[from+1:]...)

	item := list[from]
	out = append(out[:to], append([]T{item}, out[to:]...)...)
	return out, nil
}

// Renumber assigns the dense ranks 1..N in list order.
func Renumber(ids []uuid.UUID) []Rank {
	ranks := make([]Rank, len(ids))
	for i, id := range ids {
		ranks[i] = Rank{ID: id, DisplayOrder: i + 1}
	}
	return ranks
}

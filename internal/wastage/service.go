package wastage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mess/internal/mealclock"
)

// ErrMissingFields mirrors the attendance validation contract for
// wastage input.
var ErrMissingFields = errors.New("meal instance, meal slot, used kg, leftover kg and noted_by are required")

// Service validates and persists wastage entries.
type Service struct {
	repo *Repository
}

// NewService creates a wastage service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Record validates and stores one wastage log with its breakdown.
func (s *Service) Record(ctx context.Context, mealID, slotRaw, notedBy string, totalCooked, used, leftover float64, breakdown []BreakdownRow) (Log, error) {
	if mealID == "" || notedBy == "" || used < 0 || leftover < 0 {
		return Log{}, ErrMissingFields
	}
	slot, ok := mealclock.ParseSlot(slotRaw)
	if !ok {
		return Log{}, fmt.Errorf("invalid meal slot %q", slotRaw)
	}
	return s.repo.Create(ctx, Log{
		MealID:        mealID,
		Slot:          slot,
		TotalCookedKg: totalCooked,
		UsedKg:        used,
		LeftoverKg:    leftover,
		NotedBy:       notedBy,
	}, breakdown)
}

// Series returns chart points for [from, to).
func (s *Service) Series(ctx context.Context, from, to time.Time) ([]SeriesPoint, error) {
	if !from.Before(to) {
		return nil, errors.New("from must be before to")
	}
	return s.repo.Series(ctx, from, to)
}

// Pie returns the category aggregation for one meal slot.
func (s *Service) Pie(ctx context.Context, mealID, slotRaw string) ([]PieSlice, error) {
	if mealID == "" {
		return nil, ErrMissingFields
	}
	slot, ok := mealclock.ParseSlot(slotRaw)
	if !ok {
		return nil, fmt.Errorf("invalid meal slot %q", slotRaw)
	}
	return s.repo.Pie(ctx, mealID, slot)
}

// Categories lists the waste buckets.
func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	return s.repo.Categories(ctx)
}

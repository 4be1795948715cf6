package menu

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mess/internal/mealclock"
)

// ErrNoMenu is returned when a date has no meal instance yet.
var ErrNoMenu = errors.New("no menu entered for this date")

// Service wraps menu reads and staff writes.
type Service struct {
	repo *Repository
	mess *mealclock.Mess
}

// NewService creates a menu service.
func NewService(repo *Repository, mess *mealclock.Mess) *Service {
	return &Service{repo: repo, mess: mess}
}

// SetToday upserts today's meal instance. At least one slot description
// is required.
func (s *Service) SetToday(ctx context.Context, breakfast, lunch, dinner string) (MealInstance, error) {
	if breakfast == "" && lunch == "" && dinner == "" {
		return MealInstance{}, errors.New("at least one of breakfast, lunch, dinner is required")
	}
	return s.repo.Upsert(ctx, s.mess.Today(), breakfast, lunch, dinner)
}

// Week returns the recent menu listing for the student dashboard.
func (s *Service) Week(ctx context.Context) ([]MealInstance, error) {
	return s.repo.List(ctx, 7)
}

// Today returns today's meal instance and the slot currently being
// served, if a serving window is open.
func (s *Service) Today(ctx context.Context) (MealInstance, mealclock.Slot, bool, error) {
	start, end := s.mess.DayBounds(s.mess.Now())
	meal, err := s.repo.ForDay(ctx, start, end)
	if err != nil {
		return MealInstance{}, "", false, fmt.Errorf("load today's menu: %w", err)
	}
	if meal == nil {
		return MealInstance{}, "", false, ErrNoMenu
	}
	slot, open := s.mess.CurrentSlot()
	return *meal, slot, open, nil
}

// StatsForDate returns per-slot YES/NO headcounts for the date's meal
// instance, for the staff dashboard.
func (s *Service) StatsForDate(ctx context.Context, date time.Time) ([]SlotStats, error) {
	start, end := s.mess.DayBounds(date)
	meal, err := s.repo.ForDay(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("load menu: %w", err)
	}
	if meal == nil {
		return nil, ErrNoMenu
	}

	var stats []SlotStats
	for _, slot := range mealclock.Slots {
		yes, no, err := s.repo.CountResponses(ctx, meal.ID, slot)
		if err != nil {
			return nil, fmt.Errorf("count %s responses: %w", slot, err)
		}
		stats = append(stats, SlotStats{Slot: slot, Items: meal.ItemsFor(slot), YesCount: yes, NoCount: no})
	}
	return stats, nil
}

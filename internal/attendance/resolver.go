package attendance

import (
	"context"
	"fmt"
	"log"

	"mess/internal/mealclock"
	"mess/internal/metrics"
)

// Resolver fills in the scheduled defaults: students who never answered
// for a slot are assumed attending once the cutoff passes, and serving
// time re-issues tokens for everyone coming. Both jobs are idempotent
// under re-run.
type Resolver struct {
	svc  *Service
	mess *mealclock.Mess
}

// NewResolver builds a resolver sharing the rule engine's issuance path.
func NewResolver(svc *Service, mess *mealclock.Mess) *Resolver {
	return &Resolver{svc: svc, mess: mess}
}

// todayMealID resolves the meal instance for the current civil date, or
// "" when staff have not entered a menu yet.
func (r *Resolver) todayMealID(ctx context.Context) (string, error) {
	start, end := r.mess.DayBounds(r.mess.Now())
	return r.svc.store.MealIDForDay(ctx, start, end)
}

// ResolveDefaults marks YES for every student lacking any record for
// today's meal and the given slot. Insertion is conditional on the
// natural key, so a student who answered between listing and insert, or
// a re-run after a crash, is skipped without a duplicate token or a
// double credit. One student's failure never aborts the rest.
func (r *Resolver) ResolveDefaults(ctx context.Context, slot mealclock.Slot) ([]Record, error) {
	mealID, err := r.todayMealID(ctx)
	if err != nil {
		return nil, fmt.Errorf("find today's meal: %w", err)
	}
	if mealID == "" {
		log.Printf("auto-resolve %s: no menu entered for today, nothing to do", slot)
		return nil, nil
	}

	students, err := r.svc.store.ListUnresponded(ctx, mealID, slot)
	if err != nil {
		return nil, fmt.Errorf("list unresponded students: %w", err)
	}

	var resolved []Record
	for _, student := range students {
		rec := r.svc.newYesRecord(student.ID, mealID, slot)
		created, err := r.svc.store.CreateRecordIfAbsent(ctx, rec)
		if err != nil {
			log.Printf("auto-resolve %s: student %s skipped: %v", slot, student.ID, err)
			continue
		}
		if !created {
			continue
		}
		if err := r.svc.store.CreditPoints(ctx, student.ID, r.svc.yesPoints); err != nil {
			log.Printf("auto-resolve %s: credit for student %s failed: %v", slot, student.ID, err)
			continue
		}
		metrics.AutoResolveTotal.WithLabelValues(string(slot)).Inc()
		metrics.PointsCreditedTotal.Add(float64(r.svc.yesPoints))
		resolved = append(resolved, rec)
	}
	log.Printf("auto-resolve %s: defaulted %d of %d unresponded students", slot, len(resolved), len(students))
	return resolved, nil
}

// RefreshTokens re-issues tokens for every YES record of today's meal
// and slot, giving entry scanners a fresh validity window at serving
// time. Points are not touched; this is not a new YES transition.
func (r *Resolver) RefreshTokens(ctx context.Context, slot mealclock.Slot) ([]Record, error) {
	mealID, err := r.todayMealID(ctx)
	if err != nil {
		return nil, fmt.Errorf("find today's meal: %w", err)
	}
	if mealID == "" {
		log.Printf("token refresh %s: no menu entered for today, nothing to do", slot)
		return nil, nil
	}

	records, err := r.svc.store.ListYesRecords(ctx, mealID, slot)
	if err != nil {
		return nil, fmt.Errorf("list YES records: %w", err)
	}

	var refreshed []Record
	for _, rec := range records {
		fresh := r.svc.newYesRecord(rec.StudentID, rec.MealID, rec.Slot)
		if err := r.svc.store.UpdateToken(ctx, rec.ID, *fresh.Token, *fresh.TokenIssuedAt, *fresh.ValidUntil); err != nil {
			log.Printf("token refresh %s: record %s skipped: %v", slot, rec.ID, err)
			continue
		}
		rec.Token = fresh.Token
		rec.TokenIssuedAt = fresh.TokenIssuedAt
		rec.ValidUntil = fresh.ValidUntil
		metrics.TokenRefreshTotal.WithLabelValues(string(slot)).Inc()
		refreshed = append(refreshed, rec)
	}
	log.Printf("token refresh %s: re-issued %d tokens", slot, len(refreshed))
	return refreshed, nil
}

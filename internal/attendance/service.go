package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mess/internal/mealclock"
	"mess/internal/metrics"
)

// Store is the persistence surface the rule engine needs. Implemented by
// *Repository; faked in tests.
type Store interface {
	FindOrCreateStudent(ctx context.Context, name, email string) (Student, error)
	GetStudent(ctx context.Context, id string) (*Student, error)
	StudentPoints(ctx context.Context, id string) (int, error)
	CreditPoints(ctx context.Context, studentID string, amount int) error
	MealExists(ctx context.Context, id string) (bool, error)
	MealIDForDay(ctx context.Context, dayStart, dayEnd time.Time) (string, error)
	GetRecord(ctx context.Context, studentID, mealID string, slot mealclock.Slot) (*Record, error)
	SaveRecord(ctx context.Context, rec Record) (Record, error)
	CreateRecordIfAbsent(ctx context.Context, rec Record) (bool, error)
	UpdateToken(ctx context.Context, recordID, token string, issuedAt, validUntil time.Time) error
	ActiveToken(ctx context.Context, studentID string, now time.Time) (string, error)
	ListUnresponded(ctx context.Context, mealID string, slot mealclock.Slot) ([]Student, error)
	ListYesRecords(ctx context.Context, mealID string, slot mealclock.Slot) ([]Record, error)
	ListNoEntries(ctx context.Context, mealID string, slot mealclock.Slot) ([]NoEntry, error)
}

// Service is the attendance rule engine. It holds no mutable state of
// its own; per-key serialization is delegated to the store's natural-key
// upserts, so it is safe to call from any number of handlers.
type Service struct {
	store     Store
	mess      *mealclock.Mess
	validity  time.Duration
	yesPoints int
}

// NewService wires the rule engine.
func NewService(store Store, mess *mealclock.Mess, tokenValidity time.Duration, yesPoints int) *Service {
	if tokenValidity <= 0 {
		tokenValidity = 2 * time.Hour
	}
	if yesPoints <= 0 {
		yesPoints = 15
	}
	return &Service{store: store, mess: mess, validity: tokenValidity, yesPoints: yesPoints}
}

// FindOrCreateStudent looks a student up by email, creating one on first
// sight. Email comparison is normalized by the store.
func (s *Service) FindOrCreateStudent(ctx context.Context, name, email string) (Student, error) {
	if email == "" {
		return Student{}, ErrMissingFields
	}
	return s.store.FindOrCreateStudent(ctx, name, email)
}

// Points returns a student's accumulated reward points.
func (s *Service) Points(ctx context.Context, studentID string) (int, error) {
	if studentID == "" {
		return 0, ErrMissingFields
	}
	return s.store.StudentPoints(ctx, studentID)
}

// Submit runs one response through the state machine. NO is blocked at
// or after the slot's cutoff; YES is always accepted (a late YES means
// "I am still coming"). Every accepted YES issues a fresh token and
// credits points, including a repeat YES refreshing its token.
func (s *Service) Submit(ctx context.Context, studentID, mealID, slotRaw, responseRaw string) (Record, error) {
	if studentID == "" || mealID == "" || slotRaw == "" {
		return Record{}, ErrMissingFields
	}
	slot, ok := mealclock.ParseSlot(slotRaw)
	if !ok {
		return Record{}, ErrInvalidSlot
	}

	student, err := s.store.GetStudent(ctx, studentID)
	if err != nil {
		return Record{}, fmt.Errorf("lookup student: %w", err)
	}
	if student == nil {
		return Record{}, ErrStudentNotFound
	}
	exists, err := s.store.MealExists(ctx, mealID)
	if err != nil {
		return Record{}, fmt.Errorf("lookup meal: %w", err)
	}
	if !exists {
		return Record{}, ErrMealNotFound
	}

	// Anything other than an explicit NO is treated as YES.
	if Response(responseRaw) == No {
		return s.submitNo(ctx, studentID, mealID, slot)
	}
	return s.submitYes(ctx, studentID, mealID, slot)
}

func (s *Service) submitNo(ctx context.Context, studentID, mealID string, slot mealclock.Slot) (Record, error) {
	// Cutoff is checked before the duplicate check: a second NO after
	// the window closes reports the window, not the duplicate.
	if s.mess.CutoffPassed(slot) {
		metrics.ResponsesTotal.WithLabelValues(string(slot), "NO", "rejected_cutoff").Inc()
		return Record{}, &Rejection{Kind: CutoffPassed, Slot: slot}
	}
	existing, err := s.store.GetRecord(ctx, studentID, mealID, slot)
	if err != nil {
		return Record{}, fmt.Errorf("load record: %w", err)
	}
	if existing != nil && existing.Response == No {
		metrics.ResponsesTotal.WithLabelValues(string(slot), "NO", "rejected_duplicate").Inc()
		return Record{}, &Rejection{Kind: DuplicateResponse, Slot: slot}
	}

	// A NO record never carries a token; a YES→NO flip clears it but
	// leaves previously credited points untouched.
	saved, err := s.store.SaveRecord(ctx, Record{
		StudentID: studentID,
		MealID:    mealID,
		Slot:      slot,
		Response:  No,
	})
	if err != nil {
		return Record{}, fmt.Errorf("save NO record: %w", err)
	}
	metrics.ResponsesTotal.WithLabelValues(string(slot), "NO", "accepted").Inc()
	return saved, nil
}

func (s *Service) submitYes(ctx context.Context, studentID, mealID string, slot mealclock.Slot) (Record, error) {
	rec := s.newYesRecord(studentID, mealID, slot)
	saved, err := s.store.SaveRecord(ctx, rec)
	if err != nil {
		return Record{}, fmt.Errorf("save YES record: %w", err)
	}
	if err := s.store.CreditPoints(ctx, studentID, s.yesPoints); err != nil {
		return Record{}, fmt.Errorf("credit points: %w", err)
	}
	metrics.ResponsesTotal.WithLabelValues(string(slot), "YES", "accepted").Inc()
	metrics.PointsCreditedTotal.Add(float64(s.yesPoints))
	return saved, nil
}

// newYesRecord builds a YES record with a freshly issued token. Each
// issuance gets a new opaque identifier; the previous token on the same
// record stops resolving once this one is stored.
func (s *Service) newYesRecord(studentID, mealID string, slot mealclock.Slot) Record {
	issued := s.mess.Now()
	until := issued.Add(s.validity)
	token := uuid.NewString()
	return Record{
		StudentID:     studentID,
		MealID:        mealID,
		Slot:          slot,
		Response:      Yes,
		Token:         &token,
		TokenIssuedAt: &issued,
		ValidUntil:    &until,
	}
}

// ActiveToken returns the student's most recently issued unexpired
// token, or "" when none is active.
func (s *Service) ActiveToken(ctx context.Context, studentID string) (string, error) {
	if studentID == "" {
		return "", ErrMissingFields
	}
	return s.store.ActiveToken(ctx, studentID, s.mess.Now())
}

// NoList is the staff projection of NO responders for a meal and slot,
// newest response first.
func (s *Service) NoList(ctx context.Context, mealID, slotRaw string) ([]NoEntry, error) {
	if mealID == "" {
		return nil, ErrMissingFields
	}
	slot, ok := mealclock.ParseSlot(slotRaw)
	if !ok {
		return nil, ErrInvalidSlot
	}
	return s.store.ListNoEntries(ctx, mealID, slot)
}

// TokenValidity exposes how long issued tokens stay scannable.
func (s *Service) TokenValidity() time.Duration { return s.validity }

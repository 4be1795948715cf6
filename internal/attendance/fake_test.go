package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mess/internal/mealclock"
)

// fakeStore is an in-memory Store honoring the natural-key upsert
// semantics the Postgres repository provides.
type fakeStore struct {
	students   []*Student
	meals      map[string]time.Time
	records    map[string]*Record
	nextID     int
	failCredit map[string]bool
	failCreate map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		meals:      make(map[string]time.Time),
		records:    make(map[string]*Record),
		failCredit: make(map[string]bool),
		failCreate: make(map[string]bool),
	}
}

func (f *fakeStore) addStudent(id, name, email string) *Student {
	s := &Student{ID: id, Name: name, Email: email, CreatedAt: time.Now()}
	f.students = append(f.students, s)
	return s
}

func (f *fakeStore) addMeal(id string, date time.Time) {
	f.meals[id] = date
}

func key(studentID, mealID string, slot mealclock.Slot) string {
	return studentID + "|" + mealID + "|" + string(slot)
}

func (f *fakeStore) FindOrCreateStudent(_ context.Context, name, email string) (Student, error) {
	for _, s := range f.students {
		if s.Email == email {
			return *s, nil
		}
	}
	s := f.addStudent(fmt.Sprintf("s%d", len(f.students)+1), name, email)
	return *s, nil
}

func (f *fakeStore) GetStudent(_ context.Context, id string) (*Student, error) {
	for _, s := range f.students {
		if s.ID == id {
			copied := *s
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) StudentPoints(_ context.Context, id string) (int, error) {
	for _, s := range f.students {
		if s.ID == id {
			return s.Points, nil
		}
	}
	return 0, ErrStudentNotFound
}

func (f *fakeStore) CreditPoints(_ context.Context, studentID string, amount int) error {
	if f.failCredit[studentID] {
		return errors.New("induced credit failure")
	}
	for _, s := range f.students {
		if s.ID == studentID {
			s.Points += amount
			return nil
		}
	}
	return ErrStudentNotFound
}

func (f *fakeStore) MealExists(_ context.Context, id string) (bool, error) {
	_, ok := f.meals[id]
	return ok, nil
}

func (f *fakeStore) MealIDForDay(_ context.Context, dayStart, dayEnd time.Time) (string, error) {
	for id, date := range f.meals {
		if !date.Before(dayStart) && date.Before(dayEnd) {
			return id, nil
		}
	}
	return "", nil
}

func (f *fakeStore) GetRecord(_ context.Context, studentID, mealID string, slot mealclock.Slot) (*Record, error) {
	rec, ok := f.records[key(studentID, mealID, slot)]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

func (f *fakeStore) SaveRecord(_ context.Context, rec Record) (Record, error) {
	k := key(rec.StudentID, rec.MealID, rec.Slot)
	now := time.Now()
	if existing, ok := f.records[k]; ok {
		existing.Response = rec.Response
		existing.Token = rec.Token
		existing.TokenIssuedAt = rec.TokenIssuedAt
		existing.ValidUntil = rec.ValidUntil
		existing.UpdatedAt = now
		return *existing, nil
	}
	f.nextID++
	rec.ID = fmt.Sprintf("r%d", f.nextID)
	rec.CreatedAt = now
	rec.UpdatedAt = now
	f.records[k] = &rec
	return rec, nil
}

func (f *fakeStore) CreateRecordIfAbsent(_ context.Context, rec Record) (bool, error) {
	if f.failCreate[rec.StudentID] {
		return false, errors.New("induced insert failure")
	}
	k := key(rec.StudentID, rec.MealID, rec.Slot)
	if _, ok := f.records[k]; ok {
		return false, nil
	}
	f.nextID++
	rec.ID = fmt.Sprintf("r%d", f.nextID)
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	f.records[k] = &rec
	return true, nil
}

func (f *fakeStore) UpdateToken(_ context.Context, recordID, token string, issuedAt, validUntil time.Time) error {
	for _, rec := range f.records {
		if rec.ID == recordID {
			rec.Token = &token
			rec.TokenIssuedAt = &issuedAt
			rec.ValidUntil = &validUntil
			rec.UpdatedAt = time.Now()
			return nil
		}
	}
	return errors.New("record not found")
}

func (f *fakeStore) ActiveToken(_ context.Context, studentID string, now time.Time) (string, error) {
	var best *Record
	for _, rec := range f.records {
		if rec.StudentID != studentID || rec.Response != Yes || rec.Token == nil {
			continue
		}
		if rec.ValidUntil == nil || rec.ValidUntil.Before(now) {
			continue
		}
		if best == nil || rec.TokenIssuedAt.After(*best.TokenIssuedAt) {
			best = rec
		}
	}
	if best == nil {
		return "", nil
	}
	return *best.Token, nil
}

func (f *fakeStore) ListUnresponded(_ context.Context, mealID string, slot mealclock.Slot) ([]Student, error) {
	var out []Student
	for _, s := range f.students {
		if _, ok := f.records[key(s.ID, mealID, slot)]; !ok {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStore) ListYesRecords(_ context.Context, mealID string, slot mealclock.Slot) ([]Record, error) {
	var out []Record
	for _, rec := range f.records {
		if rec.MealID == mealID && rec.Slot == slot && rec.Response == Yes {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeStore) ListNoEntries(_ context.Context, mealID string, slot mealclock.Slot) ([]NoEntry, error) {
	var out []NoEntry
	for _, rec := range f.records {
		if rec.MealID != mealID || rec.Slot != slot || rec.Response != No {
			continue
		}
		for _, s := range f.students {
			if s.ID == rec.StudentID {
				out = append(out, NoEntry{StudentID: s.ID, Name: s.Name, RollNo: s.RollNo, HostelID: s.HostelID, RespondedAt: rec.UpdatedAt})
			}
		}
	}
	return out, nil
}

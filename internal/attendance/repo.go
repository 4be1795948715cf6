package attendance

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"mess/internal/mealclock"
)

// Repository persists attendance data in Postgres. The natural-key
// unique constraint on (student_id, meal_instance_id, meal_slot) plus
// upsert-on-conflict gives the per-key serialization the rule engine
// relies on.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// FindOrCreateStudent returns the student with the given email, creating
// one on first authentication. Email is matched case-insensitively.
func (r *Repository) FindOrCreateStudent(ctx context.Context, name, email string) (Student, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (id, name, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET
			name = COALESCE(NULLIF(EXCLUDED.name, ''), students.name)
		RETURNING id, name, email, roll_no, hostel_id, points, created_at
	`, uuid.NewString(), strings.TrimSpace(name), email)
	var s Student
	if err := row.Scan(&s.ID, &s.Name, &s.Email, &s.RollNo, &s.HostelID, &s.Points, &s.CreatedAt); err != nil {
		return Student{}, err
	}
	return s, nil
}

// GetStudent returns a student by id, nil when absent.
func (r *Repository) GetStudent(ctx context.Context, id string) (*Student, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, roll_no, hostel_id, points, created_at
		FROM students WHERE id = $1
	`, id)
	var s Student
	if err := row.Scan(&s.ID, &s.Name, &s.Email, &s.RollNo, &s.HostelID, &s.Points, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// StudentPoints returns the accumulated point total.
func (r *Repository) StudentPoints(ctx context.Context, id string) (int, error) {
	var points int
	err := r.db.QueryRowContext(ctx, `SELECT points FROM students WHERE id = $1`, id).Scan(&points)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrStudentNotFound
	}
	return points, err
}

// CreditPoints adds amount to a student's total. Strictly additive;
// there is no debit path.
func (r *Repository) CreditPoints(ctx context.Context, studentID string, amount int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE students SET points = points + $2 WHERE id = $1
	`, studentID, amount)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrStudentNotFound
	}
	return nil
}

// MealExists reports whether a meal instance id is known.
func (r *Repository) MealExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM meal_instances WHERE id = $1)
	`, id).Scan(&exists)
	return exists, err
}

// MealIDForDay returns the meal instance whose date falls in
// [dayStart, dayEnd), or "" when staff have not entered one.
func (r *Repository) MealIDForDay(ctx context.Context, dayStart, dayEnd time.Time) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		SELECT id FROM meal_instances
		WHERE menu_date >= $1 AND menu_date < $2
		ORDER BY menu_date DESC
		LIMIT 1
	`, dayStart, dayEnd).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

const recordColumns = `id, student_id, meal_instance_id, meal_slot, response, token, token_issued_at, valid_until, created_at, updated_at`

func scanRecord(row interface{ Scan(...any) error }) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.StudentID, &rec.MealID, &rec.Slot, &rec.Response,
		&rec.Token, &rec.TokenIssuedAt, &rec.ValidUntil, &rec.CreatedAt, &rec.UpdatedAt)
	return rec, err
}

// GetRecord loads the record for a natural key, nil when the student has
// not responded yet.
func (r *Repository) GetRecord(ctx context.Context, studentID, mealID string, slot mealclock.Slot) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE student_id = $1 AND meal_instance_id = $2 AND meal_slot = $3
	`, studentID, mealID, slot)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// SaveRecord upserts on the natural key: a second submission updates the
// existing row in place, never appends a duplicate.
func (r *Repository) SaveRecord(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records
			(id, student_id, meal_instance_id, meal_slot, response, token, token_issued_at, valid_until)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (student_id, meal_instance_id, meal_slot) DO UPDATE SET
			response = EXCLUDED.response,
			token = EXCLUDED.token,
			token_issued_at = EXCLUDED.token_issued_at,
			valid_until = EXCLUDED.valid_until,
			updated_at = NOW()
		RETURNING `+recordColumns+`
	`, rec.ID, rec.StudentID, rec.MealID, rec.Slot, rec.Response, rec.Token, rec.TokenIssuedAt, rec.ValidUntil)
	return scanRecord(row)
}

// CreateRecordIfAbsent inserts only when no record exists for the
// natural key. Returns whether the insert landed; the resolver credits
// points only in that case.
func (r *Repository) CreateRecordIfAbsent(ctx context.Context, rec Record) (bool, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_records
			(id, student_id, meal_instance_id, meal_slot, response, token, token_issued_at, valid_until)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (student_id, meal_instance_id, meal_slot) DO NOTHING
	`, rec.ID, rec.StudentID, rec.MealID, rec.Slot, rec.Response, rec.Token, rec.TokenIssuedAt, rec.ValidUntil)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// UpdateToken swaps in a freshly issued token on an existing record.
func (r *Repository) UpdateToken(ctx context.Context, recordID, token string, issuedAt, validUntil time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE attendance_records
		SET token = $2, token_issued_at = $3, valid_until = $4, updated_at = NOW()
		WHERE id = $1
	`, recordID, token, issuedAt, validUntil)
	return err
}

// ActiveToken returns the most recently issued unexpired token across
// all of the student's YES records, "" when none.
func (r *Repository) ActiveToken(ctx context.Context, studentID string, now time.Time) (string, error) {
	var token string
	err := r.db.QueryRowContext(ctx, `
		SELECT token FROM attendance_records
		WHERE student_id = $1 AND response = 'YES' AND token IS NOT NULL AND valid_until >= $2
		ORDER BY token_issued_at DESC
		LIMIT 1
	`, studentID, now).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return token, err
}

// ListUnresponded returns every student with no record at all for the
// meal and slot.
func (r *Repository) ListUnresponded(ctx context.Context, mealID string, slot mealclock.Slot) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.email, s.roll_no, s.hostel_id, s.points, s.created_at
		FROM students s
		WHERE NOT EXISTS (
			SELECT 1 FROM attendance_records a
			WHERE a.student_id = s.id AND a.meal_instance_id = $1 AND a.meal_slot = $2
		)
		ORDER BY s.created_at
	`, mealID, slot)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.RollNo, &s.HostelID, &s.Points, &s.CreatedAt); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// ListYesRecords returns all YES records for the meal and slot.
func (r *Repository) ListYesRecords(ctx context.Context, mealID string, slot mealclock.Slot) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records
		WHERE meal_instance_id = $1 AND meal_slot = $2 AND response = 'YES'
		ORDER BY created_at
	`, mealID, slot)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListNoEntries returns the NO responders for a meal and slot, newest
// response first.
func (r *Repository) ListNoEntries(ctx context.Context, mealID string, slot mealclock.Slot) ([]NoEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.roll_no, s.hostel_id, a.updated_at
		FROM attendance_records a
		JOIN students s ON s.id = a.student_id
		WHERE a.meal_instance_id = $1 AND a.meal_slot = $2 AND a.response = 'NO'
		ORDER BY a.updated_at DESC
	`, mealID, slot)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []NoEntry
	for rows.Next() {
		var e NoEntry
		if err := rows.Scan(&e.StudentID, &e.Name, &e.RollNo, &e.HostelID, &e.RespondedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

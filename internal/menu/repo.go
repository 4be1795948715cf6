package menu

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"mess/internal/mealclock"
)

// Repository persists meal instances in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const mealColumns = `id, menu_date, breakfast, lunch, dinner, created_at, updated_at`

func scanMeal(row interface{ Scan(...any) error }) (MealInstance, error) {
	var m MealInstance
	err := row.Scan(&m.ID, &m.MenuDate, &m.Breakfast, &m.Lunch, &m.Dinner, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// Upsert stores the menu for a date, merging into the existing row when
// staff re-enter the same day. Empty slot text leaves the stored text
// alone.
func (r *Repository) Upsert(ctx context.Context, date time.Time, breakfast, lunch, dinner string) (MealInstance, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO meal_instances (id, menu_date, breakfast, lunch, dinner)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (menu_date) DO UPDATE SET
			breakfast = COALESCE(NULLIF(EXCLUDED.breakfast, ''), meal_instances.breakfast),
			lunch = COALESCE(NULLIF(EXCLUDED.lunch, ''), meal_instances.lunch),
			dinner = COALESCE(NULLIF(EXCLUDED.dinner, ''), meal_instances.dinner),
			updated_at = NOW()
		RETURNING `+mealColumns+`
	`, uuid.NewString(), date, breakfast, lunch, dinner)
	return scanMeal(row)
}

// List returns meal instances in date order, newest last.
func (r *Repository) List(ctx context.Context, limit int) ([]MealInstance, error) {
	if limit <= 0 {
		limit = 31
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+mealColumns+`
		FROM meal_instances
		ORDER BY menu_date DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meals []MealInstance
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, err
		}
		meals = append(meals, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Stored newest-first for the LIMIT, presented oldest-first.
	for i, j := 0, len(meals)-1; i < j; i, j = i+1, j-1 {
		meals[i], meals[j] = meals[j], meals[i]
	}
	return meals, nil
}

// ForDay returns the meal instance whose date falls in [dayStart,
// dayEnd), nil when staff have not entered one.
func (r *Repository) ForDay(ctx context.Context, dayStart, dayEnd time.Time) (*MealInstance, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+mealColumns+`
		FROM meal_instances
		WHERE menu_date >= $1 AND menu_date < $2
		ORDER BY menu_date DESC
		LIMIT 1
	`, dayStart, dayEnd)
	m, err := scanMeal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// CountResponses returns YES and NO headcounts for one slot of a meal.
func (r *Repository) CountResponses(ctx context.Context, mealID string, slot mealclock.Slot) (yes, no int, err error) {
	err = r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE response = 'YES'),
			COUNT(*) FILTER (WHERE response = 'NO')
		FROM attendance_records
		WHERE meal_instance_id = $1 AND meal_slot = $2
	`, mealID, slot).Scan(&yes, &no)
	return yes, no, err
}

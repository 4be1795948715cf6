package wastage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mess/internal/mealclock"
)

// Repository persists wastage logs in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create stores a log and its category breakdown in one transaction so
// a partial breakdown never survives a failure. A second log for the
// same (meal, slot) updates the existing one and replaces its breakdown.
func (r *Repository) Create(ctx context.Context, l Log, breakdown []BreakdownRow) (Log, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Log{}, err
	}
	defer tx.Rollback()

	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	row := tx.QueryRowContext(ctx, `
		INSERT INTO wastage_logs (id, meal_instance_id, meal_slot, total_cooked_kg, used_kg, leftover_kg, noted_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (meal_instance_id, meal_slot) DO UPDATE SET
			total_cooked_kg = EXCLUDED.total_cooked_kg,
			used_kg = EXCLUDED.used_kg,
			leftover_kg = EXCLUDED.leftover_kg,
			noted_by = EXCLUDED.noted_by
		RETURNING id, created_at
	`, l.ID, l.MealID, l.Slot, l.TotalCookedKg, l.UsedKg, l.LeftoverKg, l.NotedBy)
	if err := row.Scan(&l.ID, &l.CreatedAt); err != nil {
		return Log{}, fmt.Errorf("insert wastage log: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM wastage_breakdown WHERE wastage_id = $1`, l.ID); err != nil {
		return Log{}, fmt.Errorf("clear breakdown: %w", err)
	}
	// Collapse repeated categories; the breakdown table keys on
	// (wastage, category).
	kgByCategory := make(map[string]float64)
	var order []string
	for _, b := range breakdown {
		if b.CategoryID == "" {
			continue
		}
		if _, seen := kgByCategory[b.CategoryID]; !seen {
			order = append(order, b.CategoryID)
		}
		kgByCategory[b.CategoryID] += b.Kg
	}
	for _, categoryID := range order {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO wastage_breakdown (wastage_id, category_id, kg)
			VALUES ($1,$2,$3)
		`, l.ID, categoryID, kgByCategory[categoryID]); err != nil {
			return Log{}, fmt.Errorf("insert breakdown row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Log{}, err
	}
	return l, nil
}

// Series returns logs joined with their meal dates for [from, to).
func (r *Repository) Series(ctx context.Context, from, to time.Time) ([]SeriesPoint, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT w.id, w.meal_instance_id, w.meal_slot, w.total_cooked_kg, w.used_kg, w.leftover_kg, w.noted_by, w.created_at, m.menu_date
		FROM wastage_logs w
		JOIN meal_instances m ON m.id = w.meal_instance_id
		WHERE w.created_at >= $1 AND w.created_at < $2
		ORDER BY w.created_at
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []SeriesPoint
	for rows.Next() {
		var p SeriesPoint
		if err := rows.Scan(&p.ID, &p.MealID, &p.Slot, &p.TotalCookedKg, &p.UsedKg, &p.LeftoverKg, &p.NotedBy, &p.CreatedAt, &p.MenuDate); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Pie aggregates breakdown kilograms per category for one meal slot.
// Categories with no recorded waste appear with zero so the chart keeps
// a stable legend.
func (r *Repository) Pie(ctx context.Context, mealID string, slot mealclock.Slot) ([]PieSlice, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, COALESCE(SUM(b.kg) FILTER (
			WHERE w.meal_instance_id = $1 AND w.meal_slot = $2
		), 0)
		FROM wastage_categories c
		LEFT JOIN wastage_breakdown b ON b.category_id = c.id
		LEFT JOIN wastage_logs w ON w.id = b.wastage_id
		GROUP BY c.id, c.name
		ORDER BY c.name
	`, mealID, slot)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slices []PieSlice
	for rows.Next() {
		var s PieSlice
		if err := rows.Scan(&s.CategoryID, &s.Name, &s.Kg); err != nil {
			return nil, err
		}
		slices = append(slices, s)
	}
	return slices, rows.Err()
}

// Categories lists all waste categories by name.
func (r *Repository) Categories(ctx context.Context) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM wastage_categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// BreakdownFor returns category kilograms keyed by wastage id for a set
// of logs, used by the export.
func (r *Repository) BreakdownFor(ctx context.Context, from, to time.Time) (map[string]map[string]float64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT b.wastage_id, b.category_id, b.kg
		FROM wastage_breakdown b
		JOIN wastage_logs w ON w.id = b.wastage_id
		WHERE w.created_at >= $1 AND w.created_at < $2
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]map[string]float64)
	for rows.Next() {
		var wastageID, categoryID string
		var kg float64
		if err := rows.Scan(&wastageID, &categoryID, &kg); err != nil {
			return nil, err
		}
		if out[wastageID] == nil {
			out[wastageID] = make(map[string]float64)
		}
		out[wastageID][categoryID] += kg
	}
	return out, rows.Err()
}

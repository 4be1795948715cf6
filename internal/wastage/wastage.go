// Package wastage records kitchen food waste per meal and reports it:
// date-range series for the line chart, per-meal category breakdown for
// the pie chart, and an XLSX export for the mess committee.
package wastage

import (
	"time"

	"mess/internal/mealclock"
)

// Category is a waste bucket (rice, curry, bread, ...).
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BreakdownRow attributes part of a log's leftover to one category.
type BreakdownRow struct {
	CategoryID string  `json:"category_id"`
	Kg         float64 `json:"kg"`
}

// Log is one wastage entry for one meal slot of a meal instance.
type Log struct {
	ID            string         `json:"id"`
	MealID        string         `json:"meal_instance_id"`
	Slot          mealclock.Slot `json:"meal_slot"`
	TotalCookedKg float64        `json:"total_cooked_kg"`
	UsedKg        float64        `json:"used_kg"`
	LeftoverKg    float64        `json:"leftover_kg"`
	NotedBy       string         `json:"noted_by"`
	CreatedAt     time.Time      `json:"created_at"`
}

// SeriesPoint is a log joined with its meal date for charting.
type SeriesPoint struct {
	Log
	MenuDate time.Time `json:"date"`
}

// PieSlice is the aggregated kilograms for one category of one meal.
type PieSlice struct {
	CategoryID string  `json:"category_id"`
	Name       string  `json:"name"`
	Kg         float64 `json:"kg"`
}

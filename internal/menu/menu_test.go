package menu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mess/internal/mealclock"
)

func TestItemsFor(t *testing.T) {
	m := MealInstance{Breakfast: "idli, sambar", Lunch: "rice, dal", Dinner: "roti, paneer"}
	assert.Equal(t, "idli, sambar", m.ItemsFor(mealclock.Breakfast))
	assert.Equal(t, "rice, dal", m.ItemsFor(mealclock.Lunch))
	assert.Equal(t, "roti, paneer", m.ItemsFor(mealclock.Dinner))
}

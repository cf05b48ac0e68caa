package core

import (
	"errors"
	"math"
	"testing"
)

func entriesFixture() []FoodEntry {
	return []FoodEntry{
		{Date: NewDate(2025, 3, 1), Time: TimeOfDay{Hour: 8}, Label: "oats", Calories: 350, Protein: 12},
		{Date: NewDate(2025, 3, 1), Time: TimeOfDay{Hour: 13}, Label: "chicken bowl", Calories: 700, Protein: 55},
		{Date: NewDate(2025, 3, 3), Time: TimeOfDay{Hour: 20}, Label: "pasta", Calories: 820, Protein: 28},
	}
}

func TestTotals(t *testing.T) {
	cal, prot := Totals(entriesFixture())
	if cal != 1870 || prot != 95 {
		t.Fatalf("totals = (%v, %v), want (1870, 95)", cal, prot)
	}
	cal, prot = Totals(nil)
	if cal != 0 || prot != 0 {
		t.Fatalf("empty totals = (%v, %v), want zeros", cal, prot)
	}
}

func TestSummarize(t *testing.T) {
	goals := Goals{Calories: 2000, Protein: 150}

	s, err := Summarize(NewDate(2025, 3, 1), entriesFixture(), goals)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if s.TotalCalories != 1050 || s.TotalProtein != 67 {
		t.Fatalf("totals = (%v, %v), want (1050, 67)", s.TotalCalories, s.TotalProtein)
	}
	if s.CalorieProgress != 1050.0/2000.0 {
		t.Fatalf("calorie progress = %v", s.CalorieProgress)
	}

	// Day without entries is a zero summary, not an error.
	s, err = Summarize(NewDate(2025, 3, 2), entriesFixture(), goals)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if s.TotalCalories != 0 || s.TotalProtein != 0 || s.CalorieProgress != 0 || s.ProteinProgress != 0 {
		t.Fatalf("expected zero summary, got %+v", s)
	}
}

func TestSummarizeOverGoalNotClamped(t *testing.T) {
	day := NewDate(2025, 3, 1)
	entries := []FoodEntry{
		{Date: day, Time: TimeOfDay{Hour: 12}, Calories: 2500, Protein: 100},
	}
	s, err := Summarize(day, entries, Goals{Calories: 2000, Protein: 150})
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if s.CalorieProgress != 1.25 {
		t.Fatalf("calorie progress = %v, want 1.25", s.CalorieProgress)
	}
	if math.Abs(s.ProteinProgress-100.0/150.0) > 1e-9 {
		t.Fatalf("protein progress = %v, want %v", s.ProteinProgress, 100.0/150.0)
	}
}

func TestSummarizeNonPositiveGoal(t *testing.T) {
	_, err := Summarize(NewDate(2025, 3, 1), entriesFixture(), Goals{Calories: 0, Protein: 150})
	if !errors.Is(err, ErrNonPositiveGoal) {
		t.Fatalf("expected ErrNonPositiveGoal, got %v", err)
	}
}

func TestSummarizeRange(t *testing.T) {
	goals := Goals{Calories: 2000, Protein: 150}
	start, end := NewDate(2025, 3, 1), NewDate(2025, 3, 4)

	out, err := SummarizeRange(start, end, entriesFixture(), goals)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("len = %d, want 4", len(out))
	}
	for i, s := range out {
		want := NewDate(2025, 3, 1+i)
		if !s.Date.Equal(want) {
			t.Fatalf("summary %d date = %v, want %v", i, s.Date, want)
		}
	}
	// Gap day stays zero.
	if out[1].TotalCalories != 0 {
		t.Fatalf("expected zero summary for gap day, got %+v", out[1])
	}
	if out[2].TotalCalories != 820 {
		t.Fatalf("expected 820 calories on day 3, got %v", out[2].TotalCalories)
	}
}

func TestSummarizeRangeInverted(t *testing.T) {
	out, err := SummarizeRange(NewDate(2025, 3, 4), NewDate(2025, 3, 1), entriesFixture(), Goals{Calories: 2000, Protein: 150})
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty result for start > end, got %d summaries", len(out))
	}
}

func TestSummarizeRangeSingleDay(t *testing.T) {
	day := NewDate(2025, 3, 3)
	out, err := SummarizeRange(day, day, entriesFixture(), Goals{Calories: 2000, Protein: 150})
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if len(out) != 1 || out[0].TotalCalories != 820 {
		t.Fatalf("unexpected result %+v", out)
	}
}

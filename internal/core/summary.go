package core

// DailySummary is the derived per-day aggregate the dashboard and history
// views render. It is computed on demand and never stored.
type DailySummary struct {
	Date            Date
	TotalCalories   float64
	TotalProtein    float64
	CalorieProgress float64 // total / goal, not clamped above 1
	ProteinProgress float64
}

// Totals sums calories and protein across the given entries.
func Totals(entries []FoodEntry) (calories, protein float64) {
	for _, e := range entries {
		calories += e.Calories
		protein += e.Protein
	}
	return calories, protein
}

// Summarize aggregates the entries logged on day against the given goals.
// A day with no entries yields a zero summary. Returns ErrNonPositiveGoal
// instead of dividing by a goal that violates the Goals invariant.
func Summarize(day Date, entries []FoodEntry, goals Goals) (DailySummary, error) {
	if goals.Calories <= 0 || goals.Protein <= 0 {
		return DailySummary{}, ErrNonPositiveGoal
	}

	s := DailySummary{Date: day}
	for _, e := range entries {
		if !e.Date.Equal(day) {
			continue
		}
		s.TotalCalories += e.Calories
		s.TotalProtein += e.Protein
	}
	s.CalorieProgress = s.TotalCalories / goals.Calories
	s.ProteinProgress = s.TotalProtein / goals.Protein
	return s, nil
}

// SummarizeRange returns one summary per calendar day in [start, end],
// inclusive, in ascending order. Days without entries are included as zero
// summaries. start after end yields an empty slice, not an error.
func SummarizeRange(start, end Date, entries []FoodEntry, goals Goals) ([]DailySummary, error) {
	if goals.Calories <= 0 || goals.Protein <= 0 {
		return nil, ErrNonPositiveGoal
	}
	if start.After(end.Time) {
		return nil, nil
	}

	// Bucket entries by date up front so the scan over days is cheap.
	byDay := make(map[string][]FoodEntry)
	for _, e := range entries {
		key := e.Date.String()
		byDay[key] = append(byDay[key], e)
	}

	var out []DailySummary
	for day := start; !day.After(end.Time); day = day.Next() {
		s, err := Summarize(day, byDay[day.String()], goals)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

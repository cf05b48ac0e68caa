package http

import (
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nutrilog/internal/core"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	g := s.goals.Get()
	data := struct {
		Date         string
		Time         string
		GoalCalories string
		GoalProtein  string
	}{
		Date:         core.DateOf(now).String(),
		Time:         now.Format("15:04"),
		GoalCalories: core.FormatAmount(g.Calories),
		GoalProtein:  core.FormatAmount(g.Protein),
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

type entryRow struct {
	ID       int64
	Time     string
	Label    string
	Calories string
	Protein  string
}

type progressData struct {
	Date         string
	Calories     string
	Protein      string
	GoalCalories string
	GoalProtein  string
	CaloriePct   int // actual percentage, may exceed 100
	ProteinPct   int
	CalorieWidth int // bar width, clamped to 100
	ProteinWidth int
	Entries      []entryRow
}

// handleDailyProgress renders the daily progress partial for one day.
func (s *Server) handleDailyProgress(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	day := core.Today()
	if v := strings.TrimSpace(r.URL.Query().Get("date")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			s.logger.WarnContext(r.Context(), "Invalid date parameter", "date", v)
		} else {
			day = d
		}
	}

	sum, err := s.getDailySummary(r.Context(), day)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Daily summary error", "error", err, "entry_date", day.String())
		_, _ = w.Write([]byte(`<section id="daily-progress" class="daily-progress"><div class="placeholder">Error loading progress</div></section>`))
		return
	}

	entries, err := s.store.ListRange(r.Context(), day, day)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "List entries error", "error", err, "entry_date", day.String())
	}

	g := s.goals.Get()
	data := progressData{
		Date:         day.String(),
		Calories:     core.FormatAmount(sum.TotalCalories),
		Protein:      core.FormatAmount(sum.TotalProtein),
		GoalCalories: core.FormatAmount(g.Calories),
		GoalProtein:  core.FormatAmount(g.Protein),
		CaloriePct:   percent(sum.CalorieProgress),
		ProteinPct:   percent(sum.ProteinProgress),
		CalorieWidth: clampWidth(percent(sum.CalorieProgress)),
		ProteinWidth: clampWidth(percent(sum.ProteinProgress)),
	}
	for _, e := range entries {
		data.Entries = append(data.Entries, entryRow{
			ID:       int64(e.ID),
			Time:     e.Time.String(),
			Label:    template.HTMLEscapeString(e.Label),
			Calories: core.FormatAmount(e.Calories),
			Protein:  core.FormatAmount(e.Protein),
		})
	}

	if s.templates == nil {
		_, _ = w.Write([]byte(`<section id="daily-progress" class="daily-progress"><div class="placeholder">` +
			data.Calories + ` / ` + data.GoalCalories + ` kcal</div></section>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "daily_progress.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "daily_progress.html")
		_, _ = w.Write([]byte(`<section id="daily-progress" class="daily-progress"><div class="placeholder">Error rendering progress</div></section>`))
	}
}

type historyRow struct {
	Date       string
	Calories   string
	Protein    string
	CaloriePct int
	ProteinPct int
}

// handleHistory renders per-day summaries for a date range, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	end := core.Today()
	start := core.Date{Time: end.AddDate(0, 0, -6)}
	if v := strings.TrimSpace(r.URL.Query().Get("start")); v != "" {
		if d, err := core.ParseDate(v); err == nil {
			start = d
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("end")); v != "" {
		if d, err := core.ParseDate(v); err == nil {
			end = d
		}
	}
	if start.After(end.Time) {
		s.logger.WarnContext(r.Context(), "Invalid range parameters", "start", start.String(), "end", end.String())
		start, end = end, start
	}

	sums, err := s.getHistory(r.Context(), start, end)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "History error", "error", err, "start", start.String(), "end", end.String())
		_, _ = w.Write([]byte(`<section id="history" class="history"><div class="placeholder">Error loading history</div></section>`))
		return
	}

	data := struct {
		Start string
		End   string
		Rows  []historyRow
	}{Start: start.String(), End: end.String()}
	for i := len(sums) - 1; i >= 0; i-- {
		sum := sums[i]
		data.Rows = append(data.Rows, historyRow{
			Date:       sum.Date.String(),
			Calories:   core.FormatAmount(sum.TotalCalories),
			Protein:    core.FormatAmount(sum.TotalProtein),
			CaloriePct: percent(sum.CalorieProgress),
			ProteinPct: percent(sum.ProteinProgress),
		})
	}

	if s.templates == nil {
		_, _ = w.Write([]byte(`<section id="history" class="history"><div class="placeholder">` +
			strconv.Itoa(len(data.Rows)) + ` days</div></section>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "history.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "history.html")
		_, _ = w.Write([]byte(`<section id="history" class="history"><div class="placeholder">Error rendering history</div></section>`))
	}
}

type trendRow struct {
	Date     string
	Calories string
	Width    int
}

// handleTrend renders a calorie bar chart over the trailing N days.
func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	days := 14
	if v := strings.TrimSpace(r.URL.Query().Get("days")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= 90 {
			days = n
		}
	}

	end := core.Today()
	start := core.Date{Time: end.AddDate(0, 0, -(days - 1))}
	sums, err := s.getHistory(r.Context(), start, end)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Trend error", "error", err, "days", days)
		_, _ = w.Write([]byte(`<section id="trend" class="trend"><div class="placeholder">Error loading trend</div></section>`))
		return
	}

	var maxCalories float64
	for _, sum := range sums {
		if sum.TotalCalories > maxCalories {
			maxCalories = sum.TotalCalories
		}
	}

	data := struct {
		Days int
		Max  string
		Rows []trendRow
	}{Days: days, Max: core.FormatAmount(maxCalories)}
	for _, sum := range sums {
		width := 0
		if maxCalories > 0 && sum.TotalCalories > 0 {
			width = int(sum.TotalCalories/maxCalories*100 + 0.5)
			if width > 0 && width < 2 {
				width = 2
			}
			if width > 100 {
				width = 100
			}
		}
		data.Rows = append(data.Rows, trendRow{
			Date:     sum.Date.String(),
			Calories: core.FormatAmount(sum.TotalCalories),
			Width:    width,
		})
	}

	if s.templates == nil {
		_, _ = w.Write([]byte(`<section id="trend" class="trend"><div class="placeholder">` +
			strconv.Itoa(len(data.Rows)) + ` days</div></section>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "trend.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "trend.html")
		_, _ = w.Write([]byte(`<section id="trend" class="trend"><div class="placeholder">Error rendering trend</div></section>`))
	}
}

func percent(ratio float64) int {
	if ratio < 0 {
		return 0
	}
	return int(ratio*100 + 0.5)
}

func clampWidth(pct int) int {
	if pct > 100 {
		return 100
	}
	return pct
}

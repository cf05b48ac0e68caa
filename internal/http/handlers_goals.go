package http

import (
	"html/template"
	"net/http"

	"nutrilog/internal/core"
)

// handleGoals serves the goal form on GET and updates targets on POST.
func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderGoalsForm(w, r)
	case http.MethodPost:
		s.updateGoals(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) renderGoalsForm(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	g := s.goals.Get()
	data := struct {
		GoalCalories string
		GoalProtein  string
	}{
		GoalCalories: core.FormatAmount(g.Calories),
		GoalProtein:  core.FormatAmount(g.Protein),
	}

	if s.templates == nil {
		_, _ = w.Write([]byte(`<div class="placeholder">` + data.GoalCalories + ` kcal / ` + data.GoalProtein + ` g</div>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "goals_form.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "goals_form.html")
		_, _ = w.Write([]byte(`<div class="error">Error rendering goals</div>`))
	}
}

func (s *Server) updateGoals(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Invalid request format</div>`))
		return
	}

	calories, err := core.ParseAmount(r.Form.Get("calories"))
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Invalid calorie goal</div>`))
		return
	}
	protein, err := core.ParseAmount(r.Form.Get("protein"))
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Invalid protein goal</div>`))
		return
	}

	g := core.Goals{Calories: calories, Protein: protein}
	if err := s.goals.Set(g); err != nil {
		s.logger.WarnContext(r.Context(), "Goal update rejected", "error", err,
			"goal_calories", calories, "goal_protein", protein)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Invalid goals: ` + template.HTMLEscapeString(err.Error()) + `</div>`))
		return
	}

	// Progress ratios depend on the goals, so cached summaries are stale.
	s.invalidateCaches()
	s.logger.InfoContext(r.Context(), "Goals updated",
		"goal_calories", calories, "goal_protein", protein, "operation", "update")

	w.Header().Set("HX-Trigger", `{"goals:updated": {}}`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Goals updated: ` +
		core.FormatAmount(calories) + ` kcal, ` + core.FormatAmount(protein) + ` g protein</div>`))
}

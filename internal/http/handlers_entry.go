package http

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"nutrilog/internal/core"
	"nutrilog/internal/export"
	"nutrilog/internal/ledger"
)

// entryFromForm builds a FoodEntry from common form fields. Date and time
// default to now when omitted so quick logging needs only the amounts.
func entryFromForm(r *http.Request) (core.FoodEntry, string) {
	now := time.Now()
	date := core.DateOf(now)
	if v := strings.TrimSpace(r.Form.Get("date")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.FoodEntry{}, "Invalid date"
		}
		date = d
	}

	tod := core.TimeOfDayOf(now)
	if v := strings.TrimSpace(r.Form.Get("time")); v != "" {
		t, err := core.ParseTimeOfDay(v)
		if err != nil {
			return core.FoodEntry{}, "Invalid time"
		}
		tod = t
	}

	calories, err := core.ParseAmount(r.Form.Get("calories"))
	if err != nil {
		return core.FoodEntry{}, "Invalid calories"
	}
	protein, err := core.ParseAmount(r.Form.Get("protein"))
	if err != nil {
		return core.FoodEntry{}, "Invalid protein"
	}

	return core.FoodEntry{
		Date:     date,
		Time:     tod,
		Label:    sanitizeInput(r.Form.Get("label")),
		Calories: calories,
		Protein:  protein,
	}, ""
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.logger.ErrorContext(r.Context(), "Parse form error", "error", err, "method", r.Method, "url", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Invalid request format</div>`))
		return
	}

	entry, formErr := entryFromForm(r)
	if formErr != "" {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">` + template.HTMLEscapeString(formErr) + `</div>`))
		return
	}
	if err := entry.Validate(); err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Invalid data: ` + template.HTMLEscapeString(err.Error()) + `</div>`))
		return
	}

	id, err := s.store.Append(r.Context(), entry)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to save entry",
			"error", err,
			"entry_label", entry.Label,
			"calories", entry.Calories,
			"protein", entry.Protein,
			"operation", "append")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Error saving entry</div>`))
		return
	}

	atomic.AddInt64(&s.appMetrics.totalEntries, 1)
	s.invalidateCaches()

	s.logger.InfoContext(r.Context(), "Entry created",
		"entry_id", int64(id),
		"entry_date", entry.Date.String(),
		"calories", entry.Calories,
		"protein", entry.Protein,
		"operation", "create")

	w.Header().Set("HX-Trigger", `{"entry:created": {"date": "`+entry.Date.String()+`"}}`)
	w.WriteHeader(http.StatusOK)
	label := entry.Label
	if label == "" {
		label = "entry"
	}
	_, _ = w.Write([]byte(`<div class="success">Logged ` + template.HTMLEscapeString(label) +
		` (#` + strconv.FormatInt(int64(id), 10) + `): ` +
		core.FormatAmount(entry.Calories) + ` kcal, ` +
		core.FormatAmount(entry.Protein) + ` g protein</div>`))
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Invalid request format</div>`))
		return
	}

	id, err := strconv.ParseInt(strings.TrimSpace(r.Form.Get("id")), 10, 64)
	if err != nil || id <= 0 {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Invalid entry id</div>`))
		return
	}

	entry, formErr := entryFromForm(r)
	if formErr != "" {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">` + template.HTMLEscapeString(formErr) + `</div>`))
		return
	}
	if err := entry.Validate(); err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Invalid data: ` + template.HTMLEscapeString(err.Error()) + `</div>`))
		return
	}

	if err := s.store.Update(r.Context(), core.EntryID(id), entry); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<div class="error">Entry not found</div>`))
			return
		}
		s.logger.ErrorContext(r.Context(), "Failed to update entry", "error", err, "entry_id", id)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Error updating entry</div>`))
		return
	}

	s.invalidateCaches()
	s.logger.InfoContext(r.Context(), "Entry updated", "entry_id", id, "entry_date", entry.Date.String())

	w.Header().Set("HX-Trigger", `{"entry:updated": {"date": "`+entry.Date.String()+`"}}`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Entry #` + strconv.FormatInt(id, 10) + ` updated</div>`))
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Invalid request format</div>`))
		return
	}

	id, err := strconv.ParseInt(strings.TrimSpace(r.Form.Get("id")), 10, 64)
	if err != nil || id <= 0 {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Invalid entry id</div>`))
		return
	}

	removed, err := s.store.Delete(r.Context(), core.EntryID(id))
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to delete entry", "error", err, "entry_id", id)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Error deleting entry</div>`))
		return
	}

	if removed {
		s.invalidateCaches()
		s.logger.InfoContext(r.Context(), "Entry deleted", "entry_id", id)
	}

	w.Header().Set("HX-Trigger", `{"entry:deleted": {"id": `+strconv.FormatInt(id, 10)+`}}`)
	w.WriteHeader(http.StatusOK)
	if removed {
		_, _ = w.Write([]byte(`<div class="success">Entry #` + strconv.FormatInt(id, 10) + ` deleted</div>`))
		return
	}
	_, _ = w.Write([]byte(`<div class="success">Entry #` + strconv.FormatInt(id, 10) + ` was already gone</div>`))
}

// handleExport streams the log as a CSV download, optionally limited to a
// date range via start/end query parameters.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var (
		entries []core.FoodEntry
		err     error
	)
	startStr := strings.TrimSpace(r.URL.Query().Get("start"))
	endStr := strings.TrimSpace(r.URL.Query().Get("end"))
	if startStr != "" || endStr != "" {
		start, perr := core.ParseDate(startStr)
		if perr != nil {
			http.Error(w, "invalid start date", http.StatusBadRequest)
			return
		}
		end, perr := core.ParseDate(endStr)
		if perr != nil {
			http.Error(w, "invalid end date", http.StatusBadRequest)
			return
		}
		entries, err = s.store.ListRange(r.Context(), start, end)
	} else {
		entries, err = s.store.Load(r.Context())
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Export failed", "error", err, "operation", "export")
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	filename := "food_log_" + time.Now().Format("2006-01-02") + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := export.WriteCSV(w, entries); err != nil {
		s.logger.ErrorContext(r.Context(), "CSV write failed", "error", err, "operation", "export")
	}
}

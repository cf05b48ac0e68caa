package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Daily   RepeatInterval = "daily"
	Weekly  RepeatInterval = "weekly"
	Monthly RepeatInterval = "monthly"
)

type (
	RepeatInterval string

	// EntryID identifies a logged entry within its store. For the flat-file
	// backend it is the row's insertion position; for SQLite it is the rowid.
	EntryID int64

	// Date is a calendar date, normalized to midnight UTC.
	Date struct {
		time.Time
	}

	// TimeOfDay is a wall-clock time with second precision.
	TimeOfDay struct {
		Hour   int
		Minute int
		Second int
	}

	// FoodEntry is one logged meal or snack.
	FoodEntry struct {
		ID       EntryID
		Date     Date
		Time     TimeOfDay
		Label    string // optional free text
		Calories float64
		Protein  float64 // grams
	}

	// Goals holds the current daily intake targets.
	Goals struct {
		Calories float64
		Protein  float64
	}

	// RecurringEntry is a template that is auto-logged when due.
	RecurringEntry struct {
		ID        int64
		Label     string
		Calories  float64
		Protein   float64
		Time      TimeOfDay
		Every     RepeatInterval
		StartDate Date
		EndDate   Date // zero value means no end
	}
)

var (
	ErrZeroDate         = errors.New("date cannot be zero")
	ErrInvalidTime      = errors.New("invalid time of day")
	ErrNegativeCalories = errors.New("calories cannot be negative")
	ErrNegativeProtein  = errors.New("protein cannot be negative")
	ErrLabelTooLong     = errors.New("label too long (max 200 characters)")
	ErrInvalidGoal      = errors.New("goal values must be strictly positive")

	// ErrNonPositiveGoal signals that a non-positive goal reached the
	// aggregation engine. Goals.Validate prevents it; hitting it is a bug.
	ErrNonPositiveGoal = errors.New("non-positive goal in aggregation")
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// Today returns the current calendar date.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses an ISO-8601 date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	return nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

// Next returns the following calendar day.
func (d Date) Next() Date {
	return Date{Time: d.AddDate(0, 0, 1)}
}

// Equal reports whether two dates fall on the same calendar day.
func (d Date) Equal(other Date) bool {
	return d.Year() == other.Year() && d.YearDay() == other.YearDay()
}

// Day returns the day of the month.
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month as 1-12.
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year.
func (d Date) Year() int {
	return d.Time.Year()
}

// ParseTimeOfDay parses a 24-hour clock time, accepting HH:MM or HH:MM:SS.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
		}
	}
	return TimeOfDay{}, fmt.Errorf("parse time %q: %w", s, ErrInvalidTime)
}

// TimeOfDayOf extracts the clock time from t.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}
}

func (t TimeOfDay) Validate() error {
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 || t.Second < 0 || t.Second > 59 {
		return ErrInvalidTime
	}
	return nil
}

// String formats the time as HH:MM:SS.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// Before reports whether t is earlier in the day than other.
func (t TimeOfDay) Before(other TimeOfDay) bool {
	a := t.Hour*3600 + t.Minute*60 + t.Second
	b := other.Hour*3600 + other.Minute*60 + other.Second
	return a < b
}

func (e FoodEntry) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := e.Time.Validate(); err != nil {
		return err
	}
	if e.Calories < 0 {
		return ErrNegativeCalories
	}
	if e.Protein < 0 {
		return ErrNegativeProtein
	}
	if len(e.Label) > 200 {
		return ErrLabelTooLong
	}
	return nil
}

// DefaultGoals returns the built-in daily targets used until the user sets
// their own.
func DefaultGoals() Goals {
	return Goals{Calories: 2200, Protein: 130}
}

func (g Goals) Validate() error {
	if g.Calories <= 0 || g.Protein <= 0 {
		return ErrInvalidGoal
	}
	return nil
}

func (re RecurringEntry) Validate() error {
	if err := re.StartDate.Validate(); err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	if !re.EndDate.IsZero() && re.EndDate.Before(re.StartDate.Time) {
		return errors.New("end date must not be before start date")
	}
	if err := re.Time.Validate(); err != nil {
		return err
	}
	switch re.Every {
	case Daily, Weekly, Monthly:
	default:
		return fmt.Errorf("invalid repeat interval %q", re.Every)
	}
	if len(strings.TrimSpace(re.Label)) == 0 {
		return errors.New("empty label")
	}
	if len(re.Label) > 200 {
		return ErrLabelTooLong
	}
	if re.Calories < 0 {
		return ErrNegativeCalories
	}
	if re.Protein < 0 {
		return ErrNegativeProtein
	}
	return nil
}

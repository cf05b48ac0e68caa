package services

import (
	"fmt"
	"time"

	"nutrilog/internal/core"
)

// DuenessChecker decides whether a recurring meal template should be logged
// again, given when it was last applied.
type DuenessChecker interface {
	IsDue(lastApplied, now time.Time, startDate core.Date) bool
}

// DailyChecker logs the template once per calendar day.
type DailyChecker struct{}

func (DailyChecker) IsDue(lastApplied, now time.Time, _ core.Date) bool {
	if lastApplied.IsZero() {
		return true
	}
	return lastApplied.Format("2006-01-02") != now.Format("2006-01-02")
}

// WeeklyChecker logs the template when 7 or more days have passed.
type WeeklyChecker struct{}

func (WeeklyChecker) IsDue(lastApplied, now time.Time, _ core.Date) bool {
	if lastApplied.IsZero() {
		return true
	}
	daysSince := now.Sub(lastApplied).Hours() / 24
	return daysSince >= 7
}

// MonthlyChecker logs the template once per month, on the start date's day of
// the month, clamped to shorter months.
type MonthlyChecker struct{}

func (MonthlyChecker) IsDue(lastApplied, now time.Time, startDate core.Date) bool {
	if lastApplied.IsZero() {
		return true
	}

	// Already applied this month?
	if lastApplied.Year() == now.Year() && lastApplied.Month() == now.Month() {
		return false
	}

	targetDay := startDate.Day()
	lastDayOfMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if targetDay > lastDayOfMonth {
		targetDay = lastDayOfMonth
	}
	return now.Day() >= targetDay
}

var duenessStrategies = map[core.RepeatInterval]DuenessChecker{
	core.Daily:   DailyChecker{},
	core.Weekly:  WeeklyChecker{},
	core.Monthly: MonthlyChecker{},
}

// GetDuenessChecker returns the checker for a repeat interval.
func GetDuenessChecker(interval core.RepeatInterval) (DuenessChecker, error) {
	checker, ok := duenessStrategies[interval]
	if !ok {
		return nil, fmt.Errorf("unknown repeat interval: %s", interval)
	}
	return checker, nil
}

package services

import (
	"testing"
	"time"

	"nutrilog/internal/core"
)

func TestDailyChecker_IsDue(t *testing.T) {
	checker := DailyChecker{}
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	startDate := core.NewDate(2026, 1, 1)

	tests := []struct {
		name        string
		lastApplied time.Time
		want        bool
	}{
		{
			name:        "never applied - is due",
			lastApplied: time.Time{},
			want:        true,
		},
		{
			name:        "applied today - not due",
			lastApplied: time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC),
			want:        false,
		},
		{
			name:        "applied yesterday - is due",
			lastApplied: time.Date(2026, 1, 14, 12, 0, 0, 0, time.UTC),
			want:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checker.IsDue(tt.lastApplied, now, startDate)
			if got != tt.want {
				t.Errorf("DailyChecker.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWeeklyChecker_IsDue(t *testing.T) {
	checker := WeeklyChecker{}
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	startDate := core.NewDate(2026, 1, 1)

	tests := []struct {
		name        string
		lastApplied time.Time
		want        bool
	}{
		{
			name:        "never applied - is due",
			lastApplied: time.Time{},
			want:        true,
		},
		{
			name:        "applied 3 days ago - not due",
			lastApplied: time.Date(2026, 1, 12, 12, 0, 0, 0, time.UTC),
			want:        false,
		},
		{
			name:        "applied 7 days ago - is due",
			lastApplied: time.Date(2026, 1, 8, 12, 0, 0, 0, time.UTC),
			want:        true,
		},
		{
			name:        "applied 10 days ago - is due",
			lastApplied: time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC),
			want:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checker.IsDue(tt.lastApplied, now, startDate)
			if got != tt.want {
				t.Errorf("WeeklyChecker.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMonthlyChecker_IsDue(t *testing.T) {
	checker := MonthlyChecker{}
	startDate := core.NewDate(2026, 1, 15)

	tests := []struct {
		name        string
		lastApplied time.Time
		now         time.Time
		want        bool
	}{
		{
			name:        "never applied - is due",
			lastApplied: time.Time{},
			now:         time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC),
			want:        true,
		},
		{
			name:        "applied this month - not due",
			lastApplied: time.Date(2026, 2, 15, 8, 0, 0, 0, time.UTC),
			now:         time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC),
			want:        false,
		},
		{
			name:        "new month, before target day - not due",
			lastApplied: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
			now:         time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC),
			want:        false,
		},
		{
			name:        "new month, on target day - is due",
			lastApplied: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
			now:         time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC),
			want:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checker.IsDue(tt.lastApplied, tt.now, startDate)
			if got != tt.want {
				t.Errorf("MonthlyChecker.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMonthlyCheckerClampsShortMonths(t *testing.T) {
	checker := MonthlyChecker{}
	// Template anchored to the 31st; February should fire on the 28th.
	startDate := core.NewDate(2026, 1, 31)
	lastApplied := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)
	now := time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC)

	if !checker.IsDue(lastApplied, now, startDate) {
		t.Error("expected template anchored to day 31 to be due on Feb 28")
	}
}

func TestGetDuenessChecker(t *testing.T) {
	for _, interval := range []core.RepeatInterval{core.Daily, core.Weekly, core.Monthly} {
		if _, err := GetDuenessChecker(interval); err != nil {
			t.Errorf("GetDuenessChecker(%s) error = %v", interval, err)
		}
	}
	if _, err := GetDuenessChecker("hourly"); err == nil {
		t.Error("expected error for unknown interval")
	}
}

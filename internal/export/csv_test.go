package export

import (
	"strings"
	"testing"

	"nutrilog/internal/core"
)

func TestWriteCSVEmpty(t *testing.T) {
	var sb strings.Builder
	if err := WriteCSV(&sb, nil); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if got := sb.String(); got != "date,time,calories,protein,label\n" {
		t.Errorf("empty export = %q", got)
	}
}

func TestWriteCSVRows(t *testing.T) {
	d, _ := core.ParseDate("2026-03-14")
	tod, _ := core.ParseTimeOfDay("08:30")
	entries := []core.FoodEntry{
		{Date: d, Time: tod, Label: "oatmeal, cooked", Calories: 320, Protein: 12.5},
	}

	var sb strings.Builder
	if err := WriteCSV(&sb, entries); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "date,time,calories,protein,label\n" +
		"2026-03-14,08:30:00,320,12.5,\"oatmeal, cooked\"\n"
	if sb.String() != want {
		t.Errorf("export = %q, want %q", sb.String(), want)
	}
}

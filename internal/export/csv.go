// Package export renders the entry log for download.
package export

import (
	"encoding/csv"
	"io"

	"nutrilog/internal/core"
)

// WriteCSV streams the entries in the on-disk file layout. The header row is
// always written, so an empty log still yields a parseable document.
func WriteCSV(w io.Writer, entries []core.FoodEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "time", "calories", "protein", "label"}); err != nil {
		return err
	}
	for _, e := range entries {
		rec := []string{
			e.Date.String(),
			e.Time.String(),
			core.FormatAmount(e.Calories),
			core.FormatAmount(e.Protein),
			e.Label,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

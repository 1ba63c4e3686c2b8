// Package normalizer converts heterogeneous spreadsheet cell encodings into
// the canonical forms the import engine persists: ISO dates and plain decimal
// amounts.
package normalizer

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrInvalidDate marks a Fecha cell that none of the accepted encodings fit.
var ErrInvalidDate = errors.New("fecha inválida")

const isoDate = "2006-01-02"

// serialEpoch is the conventional spreadsheet epoch, 1899-12-30, which bakes
// in the historical Lotus leap-year offset. Serial N maps to
// epoch + N*86,400,000 ms.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// datetimeLayouts are the native date/time renderings spreadsheet libraries
// hand us for date-typed cells.
var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01-02-06", // excelize raw default date format
	"1/2/06 15:04",
}

// NormalizeDate accepts the three Fecha encodings the template tolerates and
// returns the date as YYYY-MM-DD:
//
//   - an ISO string already in YYYY-MM-DD form, passed through unchanged;
//   - a numeric spreadsheet serial, days since 1899-12-30;
//   - a native date/time rendering, reformatted from its calendar fields.
//
// Anything else fails with ErrInvalidDate.
func NormalizeDate(cell string) (string, error) {
	if cell == "" {
		return "", fmt.Errorf("%w: celda vacía", ErrInvalidDate)
	}

	if isoDatePattern.MatchString(cell) {
		if _, err := time.Parse(isoDate, cell); err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidDate, cell)
		}
		return cell, nil
	}

	if serial, err := strconv.ParseFloat(cell, 64); err == nil {
		return FromSerial(serial), nil
	}

	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, cell); err == nil {
			return FromTime(t), nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidDate, cell)
}

// FromSerial converts a spreadsheet serial date to YYYY-MM-DD.
func FromSerial(serial float64) string {
	ms := int64(serial * 86_400_000)
	return FromTime(serialEpoch.Add(time.Duration(ms) * time.Millisecond))
}

// FromTime formats a native date value from its calendar fields, zero-padded.
func FromTime(t time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
}

package core

// normalize.go turns raw spreadsheet cells into canonical numbers.
//
// Training exports are typed by hand in several offices, so one column can
// hold "2.5", "2,5", "02h30p" and "2 giờ" side by side. Every function here
// degrades to zero instead of failing; callers that need to know what was
// suppressed use NormalizeCell and count the returned CellStatus.

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// CellStatus describes how a raw cell was interpreted.
type CellStatus int

const (
	CellEmpty     CellStatus = iota // blank or missing
	CellNumber                      // plain or locale-formatted number
	CellDuration                    // "HHhMMp" duration converted to hours
	CellMalformed                   // non-empty but nothing usable; value is 0
)

func (s CellStatus) String() string {
	switch s {
	case CellEmpty:
		return "empty"
	case CellNumber:
		return "number"
	case CellDuration:
		return "duration"
	default:
		return "malformed"
	}
}

var (
	hoursPattern   = regexp.MustCompile(`(\d+)h`)
	minutesPattern = regexp.MustCompile(`(\d+)p`)
)

// Normalize converts a raw cell value to a number. It never panics and
// every failure yields 0.
func Normalize(v any) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case string:
		f, _ := NormalizeCell(n)
		return f
	case []byte:
		f, _ := NormalizeCell(string(n))
		return f
	default:
		slog.Debug("normalize: unsupported cell type", "type", fmt.Sprintf("%T", v))
		return 0
	}
}

// NormalizeCell parses a raw string cell and reports how it was read.
//
// Strings containing "h" or "p" (any case) are durations: "<n>h" hours and
// "<n>p" minutes, result rounded to two decimals. Anything else is reduced
// to digits, '.' and ',' with the first comma read as a decimal point.
func NormalizeCell(raw string) (float64, CellStatus) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, CellEmpty
	}

	lower := strings.ToLower(s)
	if strings.ContainsAny(lower, "hp") {
		return parseDuration(lower, raw)
	}

	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	cleaned := strings.Replace(b.String(), ",", ".", 1)

	f, ok := parseLeadingFloat(cleaned)
	if !ok {
		slog.Debug("normalize: unparseable number", "raw", raw)
		return 0, CellMalformed
	}
	return f, CellNumber
}

func parseDuration(lower, raw string) (float64, CellStatus) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, lower)

	var hours, minutes int
	found := false
	if m := hoursPattern.FindStringSubmatch(compact); m != nil {
		hours, _ = strconv.Atoi(m[1])
		found = true
	}
	if m := minutesPattern.FindStringSubmatch(compact); m != nil {
		minutes, _ = strconv.Atoi(m[1])
		found = true
	}
	if !found {
		slog.Debug("normalize: malformed duration", "raw", raw)
		return 0, CellMalformed
	}
	return round2(float64(hours) + float64(minutes)/60), CellDuration
}

// parseLeadingFloat parses the longest prefix of s that is a valid decimal
// number, so "1.234.5" reads as 1.234 rather than failing outright.
func parseLeadingFloat(s string) (float64, bool) {
	end := 0
	seenDot := false
	digits := 0
	for i, r := range s {
		if r >= '0' && r <= '9' {
			digits++
			end = i + 1
			continue
		}
		if r == '.' && !seenDot {
			seenDot = true
			continue
		}
		break
	}
	if digits == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// NormalizeCode returns the canonical join key for a registration code:
// whitespace removed and upper-cased.
func NormalizeCode(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

// CleanText trims s and collapses internal whitespace runs to one space.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

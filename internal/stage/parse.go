package stage

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/joescharf/codereview/internal/models"
)

// intValue reads an integer id that the model may have emitted as a number or
// a numeric string. Fractions and non-numeric text are rejected.
func intValue(r gjson.Result) (int, bool) {
	switch r.Type {
	case gjson.Number:
		if r.Num != math.Trunc(r.Num) {
			return 0, false
		}
		return int(r.Num), true
	case gjson.String:
		n, err := strconv.Atoi(strings.TrimSpace(r.Str))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// parseLocation reads a {start_line, end_line, start_col, end_col} object.
// A missing or non-positive start line yields nil.
func parseLocation(r gjson.Result) *models.Location {
	if !r.IsObject() {
		return nil
	}
	start, ok := intValue(r.Get("start_line"))
	if !ok || start <= 0 {
		return nil
	}
	end, ok := intValue(r.Get("end_line"))
	if !ok || end < start {
		end = start
	}
	loc := &models.Location{StartLine: start, EndLine: end}
	if c, ok := intValue(r.Get("start_col")); ok && c > 0 {
		loc.StartCol = &c
	}
	if c, ok := intValue(r.Get("end_col")); ok && c > 0 {
		loc.EndCol = &c
	}
	return loc
}

func trimmed(r gjson.Result, path string) string {
	return strings.TrimSpace(r.Get(path).String())
}

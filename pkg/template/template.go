// Package template substitutes {{path}} references into strings and
// evaluates restricted arithmetic expressions over context values.
package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/recordflow/recordflow/pkg/models"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// Render substitutes every {{path}} reference in the input with the value
// resolved from the execution context, including dotted nested lookups.
// Unresolvable references render as empty strings.
func Render(input string, ctx *models.ExecutionContext) string {
	return placeholderPattern.ReplaceAllStringFunc(input, func(match string) string {
		path := strings.TrimSpace(placeholderPattern.FindStringSubmatch(match)[1])

		value, ok := ctx.Lookup(path)
		if !ok {
			return ""
		}

		return FormatValue(value)
	})
}

// RenderValue renders a field value preserving types: when the whole input is
// a single {{path}} reference the resolved value is returned as-is, otherwise
// the input is rendered as a string. Non-string inputs pass through untouched.
func RenderValue(input any, ctx *models.ExecutionContext) any {
	s, ok := input.(string)
	if !ok {
		return input
	}

	trimmed := strings.TrimSpace(s)

	if matches := placeholderPattern.FindStringSubmatch(trimmed); matches != nil && matches[0] == trimmed {
		path := strings.TrimSpace(matches[1])

		value, found := ctx.Lookup(path)
		if found {
			return value
		}

		return ""
	}

	return Render(s, ctx)
}

// FormatValue renders a context value as a string, keeping integers free of
// a trailing ".0".
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

var todayPlusPattern = regexp.MustCompile(`^today\s*\+\s*(\d+)$`)

// ResolveDateMacro maps the date macros accepted in action field values
// (today, tomorrow, nextWeek, in3Days, today + N) to ISO dates. The second
// return reports whether the input was a macro at all.
func ResolveDateMacro(value string, now time.Time) (string, bool) {
	const layout = "2006-01-02"

	switch strings.TrimSpace(value) {
	case "today":
		return now.Format(layout), true
	case "tomorrow":
		return now.AddDate(0, 0, 1).Format(layout), true
	case "nextWeek":
		return now.AddDate(0, 0, 7).Format(layout), true
	case "in3Days":
		return now.AddDate(0, 0, 3).Format(layout), true
	}

	if m := todayPlusPattern.FindStringSubmatch(strings.TrimSpace(value)); m != nil {
		days, err := strconv.Atoi(m[1])
		if err == nil {
			return now.AddDate(0, 0, days).Format(layout), true
		}
	}

	return "", false
}

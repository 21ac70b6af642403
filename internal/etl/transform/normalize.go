package transform

import (
	"strconv"
	"strings"

	"github.com/coursex/coursex-backend/internal/clients/classapi"
	"github.com/coursex/coursex-backend/internal/types"
)

// MapSectionType classifies the upstream mode string into the fixed section
// type enumeration; anything unrecognized becomes Other, never dropped.
func MapSectionType(raw string) string {
	v := strings.ToLower(raw)
	switch {
	case strings.Contains(v, "lecture"):
		return types.SectionTypeLecture
	case strings.Contains(v, "discussion"):
		return types.SectionTypeDiscussion
	case strings.Contains(v, "lab"):
		return types.SectionTypeLab
	case strings.Contains(v, "quiz"):
		return types.SectionTypeQuiz
	case strings.Contains(v, "studio"):
		return types.SectionTypeStudio
	default:
		return types.SectionTypeOther
	}
}

// NormalizeCourseCode trims and upper-cases a course or program code.
func NormalizeCourseCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CourseNumberFromCode extracts the numeric tail of a PREFIX-NUM code such
// as CSCI-103; nil when there is none.
func CourseNumberFromCode(code string) *int {
	parts := strings.SplitN(code, "-", 2)
	if len(parts) < 2 {
		return nil
	}
	digits := strings.Builder{}
	for _, ch := range parts[1] {
		if ch >= '0' && ch <= '9' {
			digits.WriteRune(ch)
		}
	}
	if digits.Len() == 0 {
		return nil
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil {
		return nil
	}
	return &n
}

// safeCourseCode picks the best course code from the three upstream
// variants, preferring the one matching the program being processed.
func safeCourseCode(course classapi.Course, preferredPrefix string) string {
	candidates := []*classapi.CourseCode{
		course.ScheduledCourseCode,
		course.MatchedCourseCode,
		course.PublishedCourseCode,
	}
	if preferredPrefix != "" {
		for _, c := range candidates {
			if c != nil && c.Prefix == preferredPrefix && c.CourseHyphen != "" {
				return c.CourseHyphen
			}
		}
	}
	for _, c := range candidates {
		if c != nil && c.CourseHyphen != "" {
			return c.CourseHyphen
		}
	}
	return ""
}

func coursePrefix(course classapi.Course) string {
	for _, c := range []*classapi.CourseCode{
		course.ScheduledCourseCode,
		course.PublishedCourseCode,
		course.MatchedCourseCode,
	} {
		if c != nil && c.Prefix != "" {
			return c.Prefix
		}
	}
	return ""
}

var dayNameToAbbr = map[string]string{
	"Mon": "M",
	"Tue": "T",
	"Wed": "W",
	"Thu": "Th",
	"Fri": "F",
	"Sat": "Sa",
	"Sun": "Su",
}

func formatDays(days []string, fallbackDayCode string) string {
	if len(days) > 0 {
		var b strings.Builder
		for _, d := range days {
			if d == "" {
				continue
			}
			if abbr, ok := dayNameToAbbr[d]; ok {
				b.WriteString(abbr)
				continue
			}
			if len(d) >= 2 {
				b.WriteString(d[:2])
			} else {
				b.WriteString(d)
			}
		}
		return b.String()
	}
	code := strings.ToUpper(strings.TrimSpace(fallbackDayCode))
	if code == "" {
		return ""
	}
	return strings.ReplaceAll(code, "H", "Th")
}

// FormatTimeSchedule renders the opaque display string stored on a section:
// "MW 10:00 - 11:50", "TBA" when nothing is scheduled, and a "(+N more)"
// suffix when distinct slots exceed one. Downstream never parses this.
func FormatTimeSchedule(entries []classapi.ScheduleEntry) string {
	if len(entries) == 0 {
		return "TBA"
	}
	var formatted []string
	seen := map[string]struct{}{}
	for _, entry := range entries {
		dayStr := formatDays(entry.Days, entry.DayCode)
		start := entry.StartTime
		end := entry.EndTime
		if dayStr == "" && start == "" && end == "" {
			continue
		}
		var slot string
		switch {
		case start != "" && end != "":
			slot = strings.TrimSpace(dayStr + " " + start + " - " + end)
		case start != "":
			slot = strings.TrimSpace(dayStr + " " + start)
		default:
			slot = dayStr
		}
		if _, ok := seen[slot]; ok {
			continue
		}
		seen[slot] = struct{}{}
		formatted = append(formatted, slot)
	}
	if len(formatted) == 0 {
		return "TBA"
	}
	if len(formatted) == 1 {
		return formatted[0]
	}
	return formatted[0] + " (+" + strconv.Itoa(len(formatted)-1) + " more)"
}

// SplitDuplicatedCredit breaks the free-text duplicate-credit note into its
// individual course references.
func SplitDuplicatedCredit(text string) []string {
	if text == "" {
		return nil
	}
	replaced := strings.NewReplacer("/", ",", ";", ",").Replace(text)
	var parts []string
	for _, chunk := range strings.Split(replaced, ",") {
		for _, sub := range strings.Split(chunk, " and ") {
			if v := strings.TrimSpace(sub); v != "" {
				parts = append(parts, v)
			}
		}
	}
	return parts
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

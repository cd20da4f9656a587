package summarize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Accepted meeting-date spellings. Two-digit years read as 2000+yy.
var (
	isoDateRe    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	koreanDateRe = regexp.MustCompile(`^\s*(\d{2,4})\s*년\s*(\d{1,2})\s*월\s*(\d{1,2})\s*일\s*$`)
	sepDateRe    = regexp.MustCompile(`^\s*(\d{2,4})[./-](\d{1,2})[./-](\d{1,2})\s*$`)
	digitDateRe  = regexp.MustCompile(`^\s*(\d{6}|\d{8})\s*$`)
)

// NormalizeMeetingDate converts a free-form meeting date to ISO YYYY-MM-DD.
// Accepts ISO, Korean ("25년 9월 22일"), separator ("2025.9.22", "25/9/22",
// "25-09-22"), and run-together digits (YYMMDD, YYYYMMDD). Returns an empty
// string when nothing parses or the date is not a real calendar date.
func NormalizeMeetingDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	if isoDateRe.MatchString(s) {
		if _, err := time.Parse("2006-01-02", s); err == nil {
			return s
		}
		return ""
	}

	for _, re := range []*regexp.Regexp{koreanDateRe, sepDateRe} {
		if m := re.FindStringSubmatch(s); m != nil {
			return buildISO(m[1], m[2], m[3])
		}
	}

	if m := digitDateRe.FindStringSubmatch(s); m != nil {
		raw := m[1]
		if len(raw) == 6 {
			return buildISO(raw[0:2], raw[2:4], raw[4:6])
		}
		return buildISO(raw[0:4], raw[4:6], raw[6:8])
	}

	return ""
}

func buildISO(year, month, day string) string {
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	if y < 100 {
		y += 2000
	}
	iso := fmt.Sprintf("%04d-%02d-%02d", y, m, d)
	if _, err := time.Parse("2006-01-02", iso); err != nil {
		return ""
	}
	return iso
}

// normalizeActions trims owner and task, keeps only valid ISO due dates, and
// clears any due date earlier than the meeting date. Models that hallucinate
// a past year otherwise produce deadlines before the meeting happened.
func normalizeActions(actions []Action, meetingDate string) []Action {
	var meeting time.Time
	if meetingDate != "" {
		meeting, _ = time.Parse("2006-01-02", meetingDate)
	}

	normalized := make([]Action, 0, len(actions))
	for _, a := range actions {
		a.Owner = strings.TrimSpace(a.Owner)
		a.Task = strings.TrimSpace(a.Task)

		due := strings.TrimSpace(a.Due)
		a.Due = ""
		if isoDateRe.MatchString(due) {
			if d, err := time.Parse("2006-01-02", due); err == nil {
				if meeting.IsZero() || !d.Before(meeting) {
					a.Due = due
				}
			}
		}
		normalized = append(normalized, a)
	}
	return normalized
}

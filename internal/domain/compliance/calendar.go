// Package compliance holds the pure leaves of the regulatory deadline engine:
// the calendar and deadline calculator, the obligatory-procedure validator,
// and the alert classifier.  Nothing in this package performs I/O or keeps
// state; the application-layer controller orchestrates these functions and
// owns persistence.
package compliance

import (
	"fmt"
	"strconv"
	"time"

	"github.com/medregula/casetrack/internal/domain/cases"
	"github.com/medregula/casetrack/pkg/errors"
)

// Calendar-day arithmetic works on the date's own year/month/day components
// in UTC.  Reinterpreting a timestamp through a local timezone can shift the
// calendar date by one day (or the competency by one month under negative-UTC
// offsets), which is exactly the class of bug this package must not have.

// dateOnly truncates t to midnight UTC using t's own components.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// endOfDay returns 23:59:59 UTC of t's calendar day.
func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, time.UTC)
}

// GenericDeadline returns the case-type deadline anchored on referenceDate:
// +30 calendar days for ONCOLOGICAL, +60 for GENERAL.
func GenericDeadline(caseType cases.CaseType, referenceDate time.Time) time.Time {
	days := 60
	if caseType == cases.CaseTypeOncological {
		days = 30
	}
	return endOfDay(dateOnly(referenceDate).AddDate(0, 0, days))
}

// DaysRemaining returns the number of whole calendar days from now until
// deadline; negative values mean overdue.  Both sides are truncated to
// midnight so time-of-day noise can never produce an off-by-one.
func DaysRemaining(deadline, now time.Time) int {
	return int(dateOnly(deadline).Sub(dateOnly(now)).Hours() / 24)
}

// CompetencyCode derives the "YYYYMM" billing competency from d's own year
// and month.
func CompetencyCode(d time.Time) string {
	return fmt.Sprintf("%04d%02d", d.Year(), int(d.Month()))
}

// CompetencyCodeFromString derives the competency from an ISO "YYYY-MM-DD"
// date string by direct substring extraction, never round-tripping through a
// timezone-aware date value.  Returns a validation error on malformed input.
func CompetencyCodeFromString(isoDate string) (string, error) {
	if len(isoDate) < 7 || isoDate[4] != '-' {
		return "", errors.Validation("date must start with YYYY-MM: " + isoDate)
	}
	code := isoDate[:4] + isoDate[5:7]
	if err := ValidateCompetencyCode(code); err != nil {
		return "", err
	}
	return code, nil
}

// ValidateCompetencyCode checks the six-digit "YYYYMM" format with a month in
// 01..12.  The other competency functions trust this contract and must only
// receive codes validated at the boundary.
func ValidateCompetencyCode(code string) error {
	if len(code) != 6 {
		return errors.New(errors.ErrCodeCompetencyMalformed, "competency code must be six digits: "+code)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return errors.New(errors.ErrCodeCompetencyMalformed, "competency code must be numeric: "+code)
		}
	}
	month, _ := strconv.Atoi(code[4:])
	if month < 1 || month > 12 {
		return errors.New(errors.ErrCodeCompetencyMalformed, "competency month out of range: "+code)
	}
	return nil
}

// parseCompetency splits a well-formed code into year and month.
func parseCompetency(code string) (int, time.Month) {
	year, _ := strconv.Atoi(code[:4])
	month, _ := strconv.Atoi(code[4:])
	return year, time.Month(month)
}

// NextCompetency returns the code of the following month, rolling the year
// at December.
func NextCompetency(code string) string {
	year, month := parseCompetency(code)
	if month == time.December {
		return fmt.Sprintf("%04d01", year+1)
	}
	return fmt.Sprintf("%04d%02d", year, int(month)+1)
}

// CompetencyPeriodEnd returns the last calendar day of the competency's
// month, end of day.
func CompetencyPeriodEnd(code string) time.Time {
	year, month := parseCompetency(code)
	// Day zero of the following month normalizes to the last day of this one.
	return time.Date(year, month+1, 0, 23, 59, 59, 0, time.UTC)
}

// NthBusinessDayOfFollowingMonth returns the n-th business day (Mon-Fri) of
// the month after the competency.  n is 1-based; values below 1 are treated
// as 1.  Public holidays are not special-cased; the production rule n=5 is
// the billing submission deadline.
func NthBusinessDayOfFollowingMonth(code string, n int) time.Time {
	if n < 1 {
		n = 1
	}
	year, month := parseCompetency(code)
	d := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	count := 0
	for {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			count++
			if count == n {
				return d
			}
		}
		d = d.AddDate(0, 0, 1)
	}
}

// OncologicalRegistrationDeadline is the lesser of firstProcedureDate + 30
// calendar days and the end of the window-end competency.  The 30-day offset
// is computed on date-only UTC components so local-timezone drift cannot
// shift the result by a day.
func OncologicalRegistrationDeadline(firstProcedureDate time.Time, windowEndCompetency string) time.Time {
	byProcedure := endOfDay(dateOnly(firstProcedureDate).AddDate(0, 0, 30))
	byPeriod := CompetencyPeriodEnd(windowEndCompetency)
	if byProcedure.Before(byPeriod) {
		return byProcedure
	}
	return byPeriod
}

// GeneralRegistrationDeadline is always the end of the window-end competency.
func GeneralRegistrationDeadline(windowEndCompetency string) time.Time {
	return CompetencyPeriodEnd(windowEndCompetency)
}

// RegistrationDeadline dispatches to the regime-specific deadline for the
// case type.
func RegistrationDeadline(caseType cases.CaseType, windowStart time.Time, windowEndCompetency string) time.Time {
	if caseType == cases.CaseTypeOncological {
		return OncologicalRegistrationDeadline(windowStart, windowEndCompetency)
	}
	return GeneralRegistrationDeadline(windowEndCompetency)
}

package compliance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medregula/casetrack/internal/domain/cases"
	"github.com/medregula/casetrack/pkg/errors"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestGenericDeadline(t *testing.T) {
	ref := date(2026, time.January, 10)

	onco := GenericDeadline(cases.CaseTypeOncological, ref)
	assert.Equal(t, date(2026, time.February, 9).Day(), onco.Day())
	assert.Equal(t, time.February, onco.Month())

	general := GenericDeadline(cases.CaseTypeGeneral, ref)
	assert.Equal(t, time.March, general.Month())
	assert.Equal(t, 11, general.Day())
}

func TestDaysRemaining(t *testing.T) {
	now := time.Date(2026, time.March, 10, 17, 45, 0, 0, time.UTC)

	tests := []struct {
		name     string
		deadline time.Time
		want     int
	}{
		{"same day regardless of clock", time.Date(2026, time.March, 10, 1, 0, 0, 0, time.UTC), 0},
		{"tomorrow end of day", time.Date(2026, time.March, 11, 23, 59, 59, 0, time.UTC), 1},
		{"one week out", date(2026, time.March, 17), 7},
		{"overdue is negative", date(2026, time.March, 8), -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysRemaining(tt.deadline, now))
		})
	}
}

func TestCompetencyCode(t *testing.T) {
	assert.Equal(t, "202601", CompetencyCode(date(2026, time.January, 1)))
	assert.Equal(t, "202612", CompetencyCode(date(2026, time.December, 31)))
}

func TestCompetencyCodeFromString(t *testing.T) {
	code, err := CompetencyCodeFromString("2026-02-15")
	require.NoError(t, err)
	assert.Equal(t, "202602", code)

	_, err = CompetencyCodeFromString("15/02/2026")
	assert.Error(t, err)

	_, err = CompetencyCodeFromString("2026-13-01")
	assert.True(t, errors.IsCode(err, errors.ErrCodeCompetencyMalformed))
}

func TestValidateCompetencyCode(t *testing.T) {
	assert.NoError(t, ValidateCompetencyCode("202601"))
	assert.NoError(t, ValidateCompetencyCode("199912"))

	for _, bad := range []string{"", "2026", "2026001", "20260a", "202600", "202613"} {
		assert.Error(t, ValidateCompetencyCode(bad), bad)
	}
}

func TestNextCompetency(t *testing.T) {
	assert.Equal(t, "202602", NextCompetency("202601"))
	assert.Equal(t, "202701", NextCompetency("202612"))
}

func TestCompetencyPeriodEnd(t *testing.T) {
	tests := []struct {
		code    string
		wantDay int
	}{
		{"202601", 31},
		{"202602", 28},
		{"202802", 29}, // leap year
		{"202604", 30},
		{"202612", 31},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			end := CompetencyPeriodEnd(tt.code)
			assert.Equal(t, tt.wantDay, end.Day())
			assert.Equal(t, 23, end.Hour())
			// the next instant belongs to the following competency
			assert.Equal(t, NextCompetency(tt.code), CompetencyCode(end.Add(time.Second)))
		})
	}
}

func TestNthBusinessDayOfFollowingMonth(t *testing.T) {
	// March 2026 after competency 202602: Mar 1 is a Sunday, so business
	// days run Mon 2, Tue 3, Wed 4, Thu 5, Fri 6.
	fifth := NthBusinessDayOfFollowingMonth("202602", 5)
	assert.Equal(t, date(2026, time.March, 6), fifth)

	// June 2026 after 202605: Jun 1 is a Monday.
	first := NthBusinessDayOfFollowingMonth("202605", 1)
	assert.Equal(t, date(2026, time.June, 1), first)
	fifthJune := NthBusinessDayOfFollowingMonth("202605", 5)
	assert.Equal(t, date(2026, time.June, 5), fifthJune)

	// Year rollover.
	jan := NthBusinessDayOfFollowingMonth("202612", 1)
	assert.Equal(t, 2027, jan.Year())
	assert.Equal(t, time.January, jan.Month())
	assert.Equal(t, date(2027, time.January, 1), jan) // Jan 1 2027 is a Friday

	// n below 1 clamps to the first business day instead of looping.
	assert.Equal(t, first, NthBusinessDayOfFollowingMonth("202605", 0))
	assert.Equal(t, first, NthBusinessDayOfFollowingMonth("202605", -3))
}

func TestOncologicalRegistrationDeadline(t *testing.T) {
	t.Run("thirty day rule binds before period end", func(t *testing.T) {
		// First procedure Feb 15: +30d lands Mar 17, inside competency
		// 202603, so the period end (Mar 31) does not bind.
		got := OncologicalRegistrationDeadline(date(2026, time.February, 15), "202603")
		assert.Equal(t, 2026, got.Year())
		assert.Equal(t, time.March, got.Month())
		assert.Equal(t, 17, got.Day())
	})

	t.Run("period end binds when thirty days overshoot", func(t *testing.T) {
		// Window confined to January: +30d from Jan 1 is Jan 31, equal to
		// the period end, and the period end wins the tie.
		got := OncologicalRegistrationDeadline(date(2026, time.January, 1), "202601")
		assert.Equal(t, time.January, got.Month())
		assert.Equal(t, 31, got.Day())
	})

	t.Run("short month clamps", func(t *testing.T) {
		// +30d from Feb 1 is Mar 3, but competency 202602 ends Feb 28.
		got := OncologicalRegistrationDeadline(date(2026, time.February, 1), "202602")
		assert.Equal(t, time.February, got.Month())
		assert.Equal(t, 28, got.Day())
	})
}

func TestGeneralRegistrationDeadline(t *testing.T) {
	got := GeneralRegistrationDeadline("202604")
	assert.Equal(t, date(2026, time.April, 30).Day(), got.Day())
	assert.Equal(t, time.April, got.Month())
}

func TestRegistrationDeadlineDispatch(t *testing.T) {
	start := date(2026, time.February, 15)

	onco := RegistrationDeadline(cases.CaseTypeOncological, start, "202603")
	assert.Equal(t, 17, onco.Day())

	general := RegistrationDeadline(cases.CaseTypeGeneral, start, "202603")
	assert.Equal(t, 31, general.Day())
}

func TestDeadlineMonotonicity(t *testing.T) {
	// Moving the window end to a later competency never moves the general
	// deadline earlier.
	prev := GeneralRegistrationDeadline("202601")
	code := "202601"
	for i := 0; i < 24; i++ {
		code = NextCompetency(code)
		next := GeneralRegistrationDeadline(code)
		require.True(t, next.After(prev), "competency %s", code)
		prev = next
	}
}

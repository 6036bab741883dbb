package compliance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medregula/casetrack/internal/domain/cases"
	"github.com/medregula/casetrack/internal/infrastructure/monitoring/logging"
	"github.com/medregula/casetrack/internal/testutil"
	"github.com/medregula/casetrack/pkg/errors"
)

const tplOnco = "tpl-onco"

func oncoEntries() []*cases.ChecklistEntry {
	return []*cases.ChecklistEntry{
		{ID: "e-consult", TemplateID: tplOnco, Code: "0301010072", Name: "Consultation with specialist", Obligatory: true, DisplayOrder: 1},
		{ID: "e-tele", TemplateID: tplOnco, Code: "0301010110", Name: "Teleconsultation", Obligatory: true, DisplayOrder: 2},
		{ID: "e-biopsy", TemplateID: tplOnco, Code: "0201010585", Name: "Biopsy", Obligatory: true, DisplayOrder: 3},
		{ID: "e-anatpath", TemplateID: tplOnco, Code: "0203020030", Name: "Anatomopathological exam", Obligatory: true, DisplayOrder: 4},
	}
}

type capturedEvent struct {
	c *cases.Case
	a *cases.Alert
}

type capturePublisher struct {
	events []capturedEvent
}

func (p *capturePublisher) PublishAlertChanged(_ context.Context, c *cases.Case, a *cases.Alert) error {
	p.events = append(p.events, capturedEvent{c: c, a: a})
	return nil
}

type fixture struct {
	store   *testutil.MemStore
	clock   *testutil.Clock
	pub     *capturePublisher
	service *Service
}

func newFixture(t *testing.T, at time.Time) *fixture {
	t.Helper()
	f := &fixture{
		store: testutil.NewMemStore(),
		clock: testutil.NewClock(at),
		pub:   &capturePublisher{},
	}
	f.store.SeedTemplate(tplOnco, oncoEntries())
	f.service = NewService(f.store, logging.NewNopLogger(),
		WithClock(f.clock.Now), WithPublisher(f.pub))
	return f
}

func (f *fixture) openOnco(t *testing.T) *cases.Case {
	t.Helper()
	c, err := f.service.OpenCase(context.Background(), "patient-1", tplOnco, cases.CaseTypeOncological)
	require.NoError(t, err)
	return c
}

// executionID finds the pending execution for a checklist entry.
func (f *fixture) executionID(t *testing.T, caseID, entryID string) string {
	t.Helper()
	execs, err := f.store.Executions().FindByCaseID(context.Background(), caseID)
	require.NoError(t, err)
	for _, e := range execs {
		if e.EntryID == entryID {
			return e.ID
		}
	}
	t.Fatalf("no execution for entry %s", entryID)
	return ""
}

func (f *fixture) markDone(t *testing.T, caseID, entryID string, on time.Time) (*cases.Case, *cases.Alert, error) {
	t.Helper()
	return f.service.RecordExecution(context.Background(), ExecutionUpdate{
		ExecutionID:   f.executionID(t, caseID, entryID),
		Status:        cases.ExecDone,
		ExecutionDate: &on,
	})
}

func utcDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestOpenCase(t *testing.T) {
	f := newFixture(t, utcDate(2026, time.January, 1))
	c := f.openOnco(t)

	assert.Equal(t, cases.StatusOpen, c.Status)
	assert.Equal(t, utcDate(2026, time.January, 31).Day(), c.GenericDeadline.Day())

	execs, err := f.store.Executions().FindByCaseID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Len(t, execs, 4)
	for _, e := range execs {
		assert.Equal(t, cases.ExecPending, e.Status)
	}

	alert := f.store.AlertFor(c.ID)
	require.NotNil(t, alert)
	assert.Equal(t, 30, alert.DaysRemaining)
	assert.Equal(t, cases.TierInfo, alert.Tier)
}

func TestOpenCaseUnknownTemplate(t *testing.T) {
	f := newFixture(t, utcDate(2026, time.January, 1))
	_, err := f.service.OpenCase(context.Background(), "patient-1", "tpl-missing", cases.CaseTypeGeneral)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTemplateNotFound))
}

func TestWindowCollapsesToStartCompetency(t *testing.T) {
	// Oncological case with the consultation performed on Jan 1: the 30-day
	// deadline lands on Jan 31, still inside January, so the end competency
	// collapses onto the start.
	f := newFixture(t, utcDate(2026, time.January, 1))
	c := f.openOnco(t)

	updated, _, err := f.markDone(t, c.ID, "e-consult", utcDate(2026, time.January, 1))
	require.NoError(t, err)

	require.True(t, updated.HasWindow())
	assert.Equal(t, "202601", *updated.StartCompetency)
	assert.Equal(t, "202601", *updated.EndCompetency)
	assert.Equal(t, cases.StatusInProgress, updated.Status)

	view, err := f.service.DeadlineViewByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, utcDate(2026, time.January, 31).Day(), view.EffectiveDeadline.Day())
	assert.Equal(t, time.January, view.EffectiveDeadline.Month())
}

func TestWindowSpansTwoCompetencies(t *testing.T) {
	// Consultation on Feb 15: the 30-day deadline lands on Mar 17, so the
	// window extends into March.
	f := newFixture(t, utcDate(2026, time.February, 15))
	c := f.openOnco(t)

	updated, alert, err := f.markDone(t, c.ID, "e-consult", utcDate(2026, time.February, 15))
	require.NoError(t, err)

	assert.Equal(t, "202602", *updated.StartCompetency)
	assert.Equal(t, "202603", *updated.EndCompetency)

	view, err := f.service.DeadlineViewByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, utcDate(2026, time.March, 17).Day(), view.EffectiveDeadline.Day())
	assert.Equal(t, time.March, view.EffectiveDeadline.Month())

	// 30 days out on the day of the first procedure.
	assert.Equal(t, 30, alert.DaysRemaining)
	assert.Equal(t, cases.TierInfo, alert.Tier)

	// Submission cutoff: fifth business day of April 2026 (Apr 1 is a
	// Wednesday), purely informational.
	require.NotNil(t, view.SubmissionDeadline)
	assert.Equal(t, utcDate(2026, time.April, 7), *view.SubmissionDeadline)
}

func TestDeadlineViolationRejectsWrite(t *testing.T) {
	f := newFixture(t, utcDate(2026, time.January, 1))
	c := f.openOnco(t)

	_, _, err := f.markDone(t, c.ID, "e-consult", utcDate(2026, time.January, 1))
	require.NoError(t, err)

	// Deadline is Jan 31; a biopsy dated Feb 10 must be rejected outright.
	_, _, err = f.markDone(t, c.ID, "e-biopsy", utcDate(2026, time.February, 10))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDeadlineViolation))

	// The offending execution was not persisted.
	biopsy, err2 := f.store.Executions().FindByID(context.Background(), f.executionID(t, c.ID, "e-biopsy"))
	require.NoError(t, err2)
	assert.Equal(t, cases.ExecPending, biopsy.Status)

	// The stored window is untouched.
	stored, err2 := f.store.Cases().FindByID(context.Background(), c.ID)
	require.NoError(t, err2)
	assert.Equal(t, "202601", *stored.EndCompetency)
}

func TestAutoCompleteOnChecklistSatisfaction(t *testing.T) {
	f := newFixture(t, utcDate(2026, time.February, 15))
	c := f.openOnco(t)

	day := utcDate(2026, time.February, 15)
	_, _, err := f.markDone(t, c.ID, "e-consult", day)
	require.NoError(t, err)
	_, _, err = f.markDone(t, c.ID, "e-biopsy", day.AddDate(0, 0, 3))
	require.NoError(t, err)

	// Anatomic pathology awaiting its result already satisfies the entry.
	collected := day.AddDate(0, 0, 5)
	updated, _, err := f.service.RecordExecution(context.Background(), ExecutionUpdate{
		ExecutionID:   f.executionID(t, c.ID, "e-anatpath"),
		Status:        cases.ExecAwaitingResult,
		ExecutionDate: &collected,
		CollectedAt:   &collected,
	})
	require.NoError(t, err)

	assert.Equal(t, cases.StatusCompleted, updated.Status)
	require.NotNil(t, updated.CompletedAt)
}

func TestManualCompletionListsEveryUnmetItem(t *testing.T) {
	f := newFixture(t, utcDate(2026, time.February, 15))
	c := f.openOnco(t)

	_, err := f.service.CompleteCase(context.Background(), c.ID)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeChecklistIncomplete))

	var ae *errors.AppError
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Detail, "Biopsy")
	assert.Contains(t, ae.Detail, "Anatomopathological exam")
	assert.Contains(t, ae.Detail, "one of")
}

func TestRecordExecutionOnTerminalCase(t *testing.T) {
	f := newFixture(t, utcDate(2026, time.February, 15))
	c := f.openOnco(t)

	_, err := f.service.CancelCase(context.Background(), c.ID, "requested by patient")
	require.NoError(t, err)

	_, _, err = f.markDone(t, c.ID, "e-consult", utcDate(2026, time.February, 16))
	assert.True(t, errors.IsCode(err, errors.ErrCodeIllegalTransition))
}

func TestCancelRequiresJustification(t *testing.T) {
	f := newFixture(t, utcDate(2026, time.February, 15))
	c := f.openOnco(t)

	_, err := f.service.CancelCase(context.Background(), c.ID, "")
	assert.True(t, errors.IsCode(err, errors.ErrCodeIllegalTransition))

	stored, err2 := f.store.Cases().FindByID(context.Background(), c.ID)
	require.NoError(t, err2)
	assert.Equal(t, cases.StatusOpen, stored.Status)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	f := newFixture(t, utcDate(2026, time.February, 15))
	c := f.openOnco(t)
	_, _, err := f.markDone(t, c.ID, "e-consult", utcDate(2026, time.February, 15))
	require.NoError(t, err)

	first, firstAlert, err := f.service.Recompute(context.Background(), c.ID)
	require.NoError(t, err)
	second, secondAlert, err := f.service.Recompute(context.Background(), c.ID)
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, *first.StartCompetency, *second.StartCompetency)
	assert.Equal(t, *first.EndCompetency, *second.EndCompetency)
	assert.Equal(t, firstAlert.DaysRemaining, secondAlert.DaysRemaining)
	assert.Equal(t, firstAlert.Tier, secondAlert.Tier)
}

func TestWindowClearsWhenLastDoneReverted(t *testing.T) {
	f := newFixture(t, utcDate(2026, time.February, 15))
	c := f.openOnco(t)
	_, _, err := f.markDone(t, c.ID, "e-consult", utcDate(2026, time.February, 15))
	require.NoError(t, err)

	updated, _, err := f.service.RecordExecution(context.Background(), ExecutionUpdate{
		ExecutionID: f.executionID(t, c.ID, "e-consult"),
		Status:      cases.ExecPending,
	})
	require.NoError(t, err)
	assert.False(t, updated.HasWindow())

	view, err := f.service.DeadlineViewByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.GenericDeadline, view.EffectiveDeadline)
}

func TestAlertTierDecaysWithCalendar(t *testing.T) {
	f := newFixture(t, utcDate(2026, time.February, 15))
	c := f.openOnco(t)
	_, _, err := f.markDone(t, c.ID, "e-consult", utcDate(2026, time.February, 15))
	require.NoError(t, err)

	// Deadline Mar 17.  On Mar 10 seven days remain: ATTENTION.
	f.clock.Set(utcDate(2026, time.March, 10))
	view, err := f.service.DeadlineViewByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, view.DaysRemaining)
	assert.Equal(t, cases.TierAttention, view.Tier)

	// On Mar 14 three days remain: CRITICAL.
	f.clock.Set(utcDate(2026, time.March, 14))
	view, err = f.service.DeadlineViewByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, cases.TierCritical, view.Tier)
}

func TestAcknowledgmentResetsOnTierChange(t *testing.T) {
	f := newFixture(t, utcDate(2026, time.February, 15))
	c := f.openOnco(t)
	_, _, err := f.markDone(t, c.ID, "e-consult", utcDate(2026, time.February, 15))
	require.NoError(t, err)

	require.NoError(t, f.service.AcknowledgeAlert(context.Background(), c.ID))
	require.True(t, f.store.AlertFor(c.ID).Acknowledged)

	// Same tier: acknowledgment survives recomputation.
	_, alert, err := f.service.Recompute(context.Background(), c.ID)
	require.NoError(t, err)
	assert.True(t, alert.Acknowledged)

	// Tier escalates to ATTENTION: acknowledgment is cleared.
	f.clock.Set(utcDate(2026, time.March, 10))
	_, alert, err = f.service.Recompute(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, cases.TierAttention, alert.Tier)
	assert.False(t, alert.Acknowledged)
}

func TestSweepExpired(t *testing.T) {
	f := newFixture(t, utcDate(2026, time.January, 1))
	overdue := f.openOnco(t)
	surviving := f.openOnco(t)

	day := utcDate(2026, time.January, 2)
	_, _, err := f.markDone(t, surviving.ID, "e-consult", day)
	require.NoError(t, err)
	_, _, err = f.markDone(t, surviving.ID, "e-biopsy", day)
	require.NoError(t, err)
	collected := day
	_, _, err = f.service.RecordExecution(context.Background(), ExecutionUpdate{
		ExecutionID:   f.executionID(t, surviving.ID, "e-anatpath"),
		Status:        cases.ExecAwaitingResult,
		ExecutionDate: &collected,
	})
	require.NoError(t, err)

	// Both generic deadlines (Jan 31) have passed by Feb 10.
	f.clock.Set(utcDate(2026, time.February, 10))
	expired, err := f.service.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	gone, err := f.store.Cases().FindByID(context.Background(), overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, cases.StatusExpired, gone.Status)

	kept, err := f.store.Cases().FindByID(context.Background(), surviving.ID)
	require.NoError(t, err)
	assert.Equal(t, cases.StatusCompleted, kept.Status)

	alert := f.store.AlertFor(overdue.ID)
	require.NotNil(t, alert)
	assert.Equal(t, cases.TierCritical, alert.Tier)
	assert.Negative(t, alert.DaysRemaining)

	// A second sweep finds nothing to do.
	expired, err = f.service.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Zero(t, expired)
}

func TestSweepAlertCountsDownToRegistrationDeadline(t *testing.T) {
	// The case expires on its generic deadline (Jan 31), but a window exists,
	// so the stored alert must count down to the registration deadline
	// (Jan 20 + 30d = Feb 19), not to the generic one.
	f := newFixture(t, utcDate(2026, time.January, 1))
	c := f.openOnco(t)
	_, _, err := f.markDone(t, c.ID, "e-consult", utcDate(2026, time.January, 20))
	require.NoError(t, err)

	f.clock.Set(utcDate(2026, time.February, 5))
	expired, err := f.service.SweepExpired(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, expired)

	alert := f.store.AlertFor(c.ID)
	require.NotNil(t, alert)
	assert.Equal(t, 14, alert.DaysRemaining)
	assert.Equal(t, cases.TierInfo, alert.Tier)
}

func TestPublisherReceivesAlertChanges(t *testing.T) {
	f := newFixture(t, utcDate(2026, time.February, 15))
	c := f.openOnco(t)

	_, _, err := f.markDone(t, c.ID, "e-consult", utcDate(2026, time.February, 15))
	require.NoError(t, err)

	require.NotEmpty(t, f.pub.events)
	last := f.pub.events[len(f.pub.events)-1]
	assert.Equal(t, c.ID, last.c.ID)
	assert.Equal(t, cases.TierInfo, last.a.Tier)
}

func TestDeriveWindowOrderIndependent(t *testing.T) {
	d1 := utcDate(2026, time.February, 20)
	d2 := utcDate(2026, time.February, 16)
	execs := []*cases.Execution{
		{ID: "a", EntryID: "e1", Status: cases.ExecDone, ExecutionDate: &d1},
		{ID: "b", EntryID: "e2", Status: cases.ExecDone, ExecutionDate: &d2},
	}
	win, err := deriveWindow(cases.CaseTypeOncological, execs)
	require.NoError(t, err)
	assert.Equal(t, d2, win.start)
	assert.Equal(t, d1, win.end)
	assert.Equal(t, "202602", win.startComp)
}

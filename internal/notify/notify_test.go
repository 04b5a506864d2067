package notify_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"notepipe/internal/domain"
	"notepipe/internal/notify"
)

func sampleReport() *domain.RunReport {
	r := domain.NewRunReport(time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC))
	r.FinishedAt = r.StartedAt.Add(2 * time.Minute)

	ok := domain.NewFileResult(domain.SourceFile{ID: "1", Name: "a.jpg"})
	for _, s := range []domain.FileState{
		domain.FileStateValidated, domain.FileStateClassified, domain.FileStateExtracted,
		domain.FileStateRefined, domain.FileStateTitled, domain.FileStateAssembled,
		domain.FileStatePersisted, domain.FileStateRelocated,
	} {
		_ = ok.Advance(s)
	}
	ok.DocumentName = "2024-06-01 Plan.md"

	skipped := domain.NewFileResult(domain.SourceFile{ID: "2", Name: "notes.txt"})
	_ = skipped.Skip("unsupported extension txt")

	r.Results = []domain.FileResult{*ok, *skipped}
	return r
}

func TestShouldSend(t *testing.T) {
	clean := sampleReport()
	assert.True(t, notify.ShouldSend(clean, false))
	assert.False(t, notify.ShouldSend(clean, true))

	failed := sampleReport()
	bad := domain.NewFileResult(domain.SourceFile{ID: "3", Name: "b.png"})
	_ = bad.Advance(domain.FileStateValidated)
	_ = bad.Fail(domain.NewStageError(domain.KindExtractionFailure, errors.New("empty reply")))
	failed.Results = append(failed.Results, *bad)
	assert.True(t, notify.ShouldSend(failed, true))

	aborted := sampleReport()
	aborted.Aborted = true
	assert.True(t, notify.ShouldSend(aborted, true))
}

func TestSubject(t *testing.T) {
	r := sampleReport()
	assert.Equal(t, "[notepipe] ok: 1 succeeded, 0 failed, 1 skipped", notify.Subject(r))

	r.Aborted = true
	assert.Contains(t, notify.Subject(r), "aborted")
}

func TestBody(t *testing.T) {
	r := sampleReport()
	r.Aborted = true
	r.AbortReason = "AuthFailure"
	r.NotAttempted = []string{"c.jpg"}

	body := notify.Body(r)
	assert.Contains(t, body, "a.jpg -> 2024-06-01 Plan.md")
	assert.Contains(t, body, "SKIPPED  notes.txt: unsupported extension txt")
	assert.Contains(t, body, "Not attempted (AuthFailure):")
	assert.Contains(t, body, "  c.jpg\n")
}

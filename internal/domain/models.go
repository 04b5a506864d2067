package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SourceFile represents a file discovered in the source folder of the remote store.
type SourceFile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Extension string    `json:"extension"`
	Size      int64     `json:"size"`
	MimeType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
	IsFolder  bool      `json:"is_folder,omitempty"`
	Content   []byte    `json:"-"`
}

// IsPDF reports whether the file is a PDF document.
func (f SourceFile) IsPDF() bool {
	return f.Extension == "pdf"
}

// Image is an encoded raster image together with its media type.
type Image struct {
	Data      []byte `json:"-"`
	MediaType string `json:"media_type"`
	Ext       string `json:"ext"`
}

// Section is one heading-delimited part of a refined body.
type Section struct {
	Heading string `json:"heading"`
	Level   int    `json:"level"`
	Text    string `json:"text"`
}

// RefinedDocument is the text produced for one note.
type RefinedDocument struct {
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Sections   []Section `json:"sections,omitempty"`
	SourceDate time.Time `json:"source_date"`
}

// OutputArtifact is the document/image pair written to the destination folder.
type OutputArtifact struct {
	BaseName     string `json:"base_name"`
	Markdown     []byte `json:"-"`
	Image        Image  `json:"-"`
	DocumentName string `json:"document_name"`
	ImageName    string `json:"image_name"`
	Folder       string `json:"folder"`
}

// FileResult captures the outcome of one source file in a run.
type FileResult struct {
	FileID       string      `json:"file_id"`
	FileName     string      `json:"file_name"`
	State        FileState   `json:"state"`
	NoteType     NoteType    `json:"note_type,omitempty"`
	Kind         ErrorKind   `json:"error_kind,omitempty"`
	Err          error       `json:"-"`
	Message      string      `json:"message,omitempty"`
	DocumentName string      `json:"document_name,omitempty"`
	ImageName    string      `json:"image_name,omitempty"`
	History      []FileState `json:"history"`
}

// NewFileResult starts tracking f in the DISCOVERED state.
func NewFileResult(f SourceFile) *FileResult {
	return &FileResult{
		FileID:   f.ID,
		FileName: f.Name,
		State:    FileStateDiscovered,
		History:  []FileState{FileStateDiscovered},
	}
}

// Advance moves the result to next, rejecting transitions the state machine does not allow.
func (r *FileResult) Advance(next FileState) error {
	if !r.State.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, r.State, next)
	}
	r.State = next
	r.History = append(r.History, next)
	return nil
}

// Fail moves the result to FAILED and records the cause.
func (r *FileResult) Fail(err error) error {
	if err := r.Advance(FileStateFailed); err != nil {
		return err
	}
	r.Kind = KindOf(err)
	r.Err = err
	r.Message = err.Error()
	return nil
}

// Skip moves the result to SKIPPED with a human-readable reason.
func (r *FileResult) Skip(reason string) error {
	if err := r.Advance(FileStateSkipped); err != nil {
		return err
	}
	r.Kind = KindValidationSkip
	r.Message = reason
	return nil
}

// RunReport summarizes one invocation of the pipeline.
type RunReport struct {
	RunID        uuid.UUID    `json:"run_id"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   time.Time    `json:"finished_at"`
	DryRun       bool         `json:"dry_run"`
	Results      []FileResult `json:"results"`
	NotAttempted []string     `json:"not_attempted,omitempty"`
	Aborted      bool         `json:"aborted"`
	AbortReason  string       `json:"abort_reason,omitempty"`
}

// NewRunReport creates an empty report with a fresh run id.
func NewRunReport(startedAt time.Time) *RunReport {
	return &RunReport{RunID: uuid.New(), StartedAt: startedAt}
}

func (r *RunReport) count(state FileState) int {
	n := 0
	for i := range r.Results {
		if r.Results[i].State == state {
			n++
		}
	}
	return n
}

// Succeeded returns the number of files that reached RELOCATED (or ASSEMBLED in a dry run).
func (r *RunReport) Succeeded() int {
	if r.DryRun {
		return r.count(FileStateAssembled)
	}
	return r.count(FileStateRelocated)
}

// Failed returns the number of files that ended in FAILED.
func (r *RunReport) Failed() int {
	return r.count(FileStateFailed)
}

// Skipped returns the number of files that ended in SKIPPED.
func (r *RunReport) Skipped() int {
	return r.count(FileStateSkipped)
}

// Summary renders a one-line description of the run.
func (r *RunReport) Summary() string {
	s := fmt.Sprintf("run %s: %d succeeded, %d failed, %d skipped",
		r.RunID, r.Succeeded(), r.Failed(), r.Skipped())
	if r.Aborted {
		s += fmt.Sprintf(", aborted (%s), %d not attempted", r.AbortReason, len(r.NotAttempted))
	}
	return s
}

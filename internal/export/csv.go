package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"notepipe/internal/domain"
)

// BOM is the UTF-8 byte order mark that makes Excel on Windows read CSV as UTF-8.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// notAttemptedState marks files an aborted run never reached.
const notAttemptedState = "NOT_ATTEMPTED"

// columns defines the header row shared by the CSV and XLSX reports.
var columns = []string{
	"Run ID",
	"File Name",
	"State",
	"Note Type",
	"Error Kind",
	"Message",
	"Document",
	"Image",
	"History",
}

// Writer wraps csv.Writer for exporting run reports as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteReport writes one row per file in report, followed by the files an
// aborted run did not attempt.
func (w *Writer) WriteReport(report *domain.RunReport) error {
	for _, row := range reportRows(report) {
		if err := w.csv.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

// WriteCSV writes a complete CSV report, BOM included, to out.
func WriteCSV(out io.Writer, report *domain.RunReport) error {
	if _, err := out.Write(BOM); err != nil {
		return err
	}
	w := NewWriter(out)
	if err := w.WriteHeader(); err != nil {
		return err
	}
	if err := w.WriteReport(report); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// reportRows flattens report into table rows matching columns.
func reportRows(report *domain.RunReport) [][]string {
	runID := report.RunID.String()
	rows := make([][]string, 0, len(report.Results)+len(report.NotAttempted))
	for i := range report.Results {
		r := &report.Results[i]
		rows = append(rows, []string{
			runID,
			r.FileName,
			string(r.State),
			string(r.NoteType),
			string(r.Kind),
			r.Message,
			r.DocumentName,
			r.ImageName,
			formatHistory(r.History),
		})
	}
	for _, name := range report.NotAttempted {
		rows = append(rows, []string{runID, name, notAttemptedState, "", "", report.AbortReason, "", "", ""})
	}
	return rows
}

func formatHistory(states []domain.FileState) string {
	parts := make([]string, len(states))
	for i, s := range states {
		parts[i] = string(s)
	}
	return strings.Join(parts, " > ")
}

// BuildFilename returns a report file name such as
// "notepipe-run_2024-06-01_0800.csv" for a run started at startedAt.
func BuildFilename(startedAt time.Time, ext string) string {
	return fmt.Sprintf("notepipe-run_%s.%s", startedAt.Format("2006-01-02_1504"), strings.TrimPrefix(ext, "."))
}

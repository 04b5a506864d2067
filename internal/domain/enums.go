package domain

import "strings"

// NoteType describes the structural nature of a handwritten note.
type NoteType string

const (
	NoteTypePaper      NoteType = "PAPER"
	NoteTypeWhiteboard NoteType = "WHITEBOARD"
	NoteTypeOther      NoteType = "OTHER"
)

// ParseNoteType maps a classifier label onto a NoteType. Unknown labels map to OTHER.
func ParseNoteType(label string) NoteType {
	switch NoteType(strings.ToUpper(strings.TrimSpace(label))) {
	case NoteTypePaper:
		return NoteTypePaper
	case NoteTypeWhiteboard:
		return NoteTypeWhiteboard
	default:
		return NoteTypeOther
	}
}

// AllowedExtensions maps accepted file extensions (lower case, without dot) to their MIME type.
var AllowedExtensions = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"tif":  "image/tiff",
	"pdf":  "application/pdf",
}

// IsAllowedExtension reports whether ext (with or without leading dot, any case) is accepted.
func IsAllowedExtension(ext string) bool {
	_, ok := AllowedExtensions[normalizeExt(ext)]
	return ok
}

// ContentTypeForExtension returns the MIME type for ext, or application/octet-stream.
func ContentTypeForExtension(ext string) string {
	if ct, ok := AllowedExtensions[normalizeExt(ext)]; ok {
		return ct
	}
	return "application/octet-stream"
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// FileState is the position of a source file in the processing state machine.
type FileState string

const (
	FileStateDiscovered FileState = "DISCOVERED"
	FileStateValidated  FileState = "VALIDATED"
	FileStateClassified FileState = "CLASSIFIED"
	FileStateExtracted  FileState = "EXTRACTED"
	FileStateRefined    FileState = "REFINED"
	FileStateTitled     FileState = "TITLED"
	FileStateAssembled  FileState = "ASSEMBLED"
	FileStatePersisted  FileState = "PERSISTED"
	FileStateRelocated  FileState = "RELOCATED"
	FileStateFailed     FileState = "FAILED"
	FileStateSkipped    FileState = "SKIPPED"
)

// transitions lists the legal successor states. FAILED is reachable from every
// non-terminal state past DISCOVERED and is handled in CanTransition.
var transitions = map[FileState][]FileState{
	FileStateDiscovered: {FileStateValidated, FileStateSkipped},
	FileStateValidated:  {FileStateClassified, FileStateSkipped},
	FileStateClassified: {FileStateExtracted},
	FileStateExtracted:  {FileStateRefined},
	FileStateRefined:    {FileStateTitled},
	FileStateTitled:     {FileStateAssembled},
	FileStateAssembled:  {FileStatePersisted},
	FileStatePersisted:  {FileStateRelocated},
}

// Terminal reports whether no further transition is possible from s.
func (s FileState) Terminal() bool {
	return s == FileStateRelocated || s == FileStateFailed || s == FileStateSkipped
}

// CanTransition reports whether moving from s to next is legal.
func (s FileState) CanTransition(next FileState) bool {
	if s.Terminal() {
		return false
	}
	if next == FileStateFailed {
		return true
	}
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ErrorKind classifies why a file left the happy path.
type ErrorKind string

const (
	KindNone                  ErrorKind = ""
	KindValidationSkip        ErrorKind = "ValidationSkip"
	KindDownloadFailure       ErrorKind = "DownloadFailure"
	KindConversionFailure     ErrorKind = "ConversionFailure"
	KindClassificationFailure ErrorKind = "ClassificationFailure"
	KindExtractionFailure     ErrorKind = "ExtractionFailure"
	KindRefinementFailure     ErrorKind = "RefinementFailure"
	KindTitlingFailure        ErrorKind = "TitlingFailure"
	KindPersistFailure        ErrorKind = "PersistFailure"
	KindRelocationFailure     ErrorKind = "RelocationFailure"
	KindAuthFailure           ErrorKind = "AuthFailure"
)

// LinkStyle selects how the assembled document links to its image.
type LinkStyle string

const (
	LinkStyleWiki     LinkStyle = "wiki"
	LinkStyleMarkdown LinkStyle = "markdown"
)

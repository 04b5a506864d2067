package notes_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"notepipe/internal/completion"
	"notepipe/internal/domain"
	"notepipe/internal/notes"
	"notepipe/internal/port"
	"notepipe/internal/prompts"
	"notepipe/mocks"
)

func TestClassifier_Labels(t *testing.T) {
	tests := []struct {
		reply string
		want  domain.NoteType
	}{
		{"PAPER", domain.NoteTypePaper},
		{"paper.", domain.NoteTypePaper},
		{"`WHITEBOARD`", domain.NoteTypeWhiteboard},
		{"\"Whiteboard\"\n", domain.NoteTypeWhiteboard},
		{"This is a WHITEBOARD photo", domain.NoteTypeWhiteboard},
		{"PAPER, handwritten PAPER", domain.NoteTypePaper},
		{"Not a WHITEBOARD, it is PAPER", domain.NoteTypeOther},
		{"It is PAPER, not a WHITEBOARD", domain.NoteTypeOther},
		{"OTHER", domain.NoteTypeOther},
		{"SCREENSHOT", domain.NoteTypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			completer := new(mocks.MockCompleter)
			completer.On("Complete", mock.Anything, mock.MatchedBy(func(req port.CompletionRequest) bool {
				return req.Image != nil && req.Temperature == 0 &&
					req.Instruction == prompts.MustRender(prompts.DetectNoteType, nil)
			})).Return(tt.reply, nil).Once()

			got, err := notes.NewClassifier(completer, 0, zap.NewNop()).Classify(context.Background(), testImage)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			completer.AssertExpectations(t)
		})
	}
}

func TestClassifier_EmptyReply(t *testing.T) {
	completer := new(mocks.MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return(" `` ", nil).Once()

	_, err := notes.NewClassifier(completer, 0, zap.NewNop()).Classify(context.Background(), testImage)

	assert.ErrorIs(t, err, domain.KindClassificationFailure)
	assert.ErrorIs(t, err, completion.ErrEmptyCompletion)
}

func TestClassifier_CompletionError(t *testing.T) {
	completer := new(mocks.MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("timeout")).Once()

	_, err := notes.NewClassifier(completer, 0, zap.NewNop()).Classify(context.Background(), testImage)

	assert.ErrorIs(t, err, domain.KindClassificationFailure)
	completer.AssertNumberOfCalls(t, "Complete", 1)
}

func TestClassifier_AuthError(t *testing.T) {
	completer := new(mocks.MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).
		Return("", completion.StatusToError("openai", 401, "bad token", "")).Once()

	_, err := notes.NewClassifier(completer, 0, zap.NewNop()).Classify(context.Background(), testImage)

	assert.Equal(t, domain.KindAuthFailure, domain.KindOf(err))
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, "PAPER", notes.NormalizeLabel("  'paper'!\n"))
	assert.Equal(t, "", notes.NormalizeLabel("``"))
}

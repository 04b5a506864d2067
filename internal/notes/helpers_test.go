package notes_test

import (
	"github.com/stretchr/testify/mock"

	"notepipe/internal/domain"
	"notepipe/internal/port"
	"notepipe/internal/prompts"
)

var testImage = domain.Image{Data: []byte("img"), MediaType: "image/jpeg", Ext: "jpg"}

// withInstruction matches a completion request rendered from the named template.
func withInstruction(name prompts.Name) interface{} {
	var data interface{}
	if name == prompts.ExtractMainTitle {
		data = prompts.TitleData{MaxWords: 8}
	}
	want := prompts.MustRender(name, data)
	return mock.MatchedBy(func(req port.CompletionRequest) bool {
		return req.Instruction == want
	})
}

// withText matches a text completion request carrying exactly text.
func withText(name prompts.Name, text string) interface{} {
	want := prompts.MustRender(name, nil)
	return mock.MatchedBy(func(req port.CompletionRequest) bool {
		return req.Instruction == want && req.Text == text && req.Image == nil
	})
}

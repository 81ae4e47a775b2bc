package tokenizer

import (
	"fmt"

	"github.com/temirov/filebundler/internal/utils"
)

// Measurement holds the figures derived from one file's content.
type Measurement struct {
	Tokens int
	Words  int
	// Text is false for binary content, which is never counted.
	Text bool
}

// Measure counts the tokens and words of content. A nil counter counts words only.
func Measure(counter Counter, content []byte) (Measurement, error) {
	if utils.IsBinary(content) {
		return Measurement{}, nil
	}
	text := string(content)
	measurement := Measurement{Words: CountWords(text), Text: true}
	if counter == nil {
		return measurement, nil
	}
	tokens, countError := counter.CountString(text)
	if countError != nil {
		return Measurement{}, fmt.Errorf("count tokens with %s: %w", counter.Name(), countError)
	}
	measurement.Tokens = tokens
	return measurement, nil
}

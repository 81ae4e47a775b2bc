// Package tokenizer estimates LLM token counts for file content.
package tokenizer

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Counter estimates token counts for text content.
type Counter interface {
	Name() string
	CountString(input string) (int, error)
}

// Config captures tokenizer selection parameters provided by the CLI.
type Config struct {
	Model string
}

const (
	// DefaultModel is used when no model is configured.
	DefaultModel        = "gpt-4o"
	defaultEncodingName = "cl100k_base"
	// EstimateCounterName names the offline character-based counter.
	EstimateCounterName    = "estimate"
	charactersPerTokenRate = 4
)

// NewCounter returns a tiktoken Counter for the requested model. Models
// without a dedicated encoding fall back to cl100k_base. The returned string
// is the effective model or encoding name.
func NewCounter(cfg Config) (Counter, string, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	lowerModel := strings.ToLower(model)

	if isOpenAIModel(lowerModel) {
		if encoding, encodingError := tiktoken.EncodingForModel(lowerModel); encodingError == nil {
			if counter, counterError := newTiktokenCounter(encoding, lowerModel); counterError == nil {
				return counter, model, nil
			}
		}
	}
	fallback, fallbackError := tiktoken.GetEncoding(defaultEncodingName)
	if fallbackError != nil {
		return nil, "", fmt.Errorf("load %s encoding: %w", defaultEncodingName, fallbackError)
	}
	counter, counterError := newTiktokenCounter(fallback, defaultEncodingName)
	if counterError != nil {
		return nil, "", counterError
	}
	return counter, defaultEncodingName, nil
}

// EstimateCounter approximates tokens as one per four characters. It needs no
// encoding tables and serves when tiktoken cannot be initialised.
type EstimateCounter struct{}

// Name implements Counter.
func (EstimateCounter) Name() string {
	return EstimateCounterName
}

// CountString implements Counter.
func (EstimateCounter) CountString(input string) (int, error) {
	characterCount := len([]rune(input))
	return (characterCount + charactersPerTokenRate - 1) / charactersPerTokenRate, nil
}

// CountWords returns the number of whitespace-separated words in input.
func CountWords(input string) int {
	return len(strings.Fields(input))
}

func isOpenAIModel(model string) bool {
	prefixes := []string{
		"gpt-",
		"o1",
		"o3",
		"text-embedding",
		"davinci",
		"curie",
		"babbage",
		"ada",
		"code-",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

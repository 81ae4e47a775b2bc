package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// tiktokenCounter counts BPE tokens with one tiktoken encoding.
type tiktokenCounter struct {
	encoding *tiktoken.Tiktoken
	label    string
}

func newTiktokenCounter(encoding *tiktoken.Tiktoken, label string) (Counter, error) {
	if encoding == nil {
		return nil, fmt.Errorf("tiktoken encoding %s is not loaded", label)
	}
	return tiktokenCounter{encoding: encoding, label: label}, nil
}

func (counter tiktokenCounter) Name() string {
	return counter.label
}

func (counter tiktokenCounter) CountString(input string) (int, error) {
	return len(counter.encoding.Encode(input, nil, nil)), nil
}

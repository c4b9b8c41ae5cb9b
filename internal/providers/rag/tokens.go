package rag

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	tk     *tiktoken.Tiktoken
	tkErr  error
	tkOnce sync.Once
)

func getTokenizer() (*tiktoken.Tiktoken, error) {
	tkOnce.Do(func() {
		tk, tkErr = tiktoken.GetEncoding("cl100k_base")
	})
	return tk, tkErr
}

// Truncate cuts text to at most maxTokens cl100k tokens. If the encoding
// cannot be loaded it falls back to a rough four-runes-per-token cut.
// maxTokens <= 0 disables truncation.
func Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 || text == "" {
		return text
	}

	enc, err := getTokenizer()
	if err != nil {
		r := []rune(text)
		if limit := maxTokens * 4; len(r) > limit {
			return string(r[:limit])
		}
		return text
	}

	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return enc.Decode(tokens[:maxTokens])
}

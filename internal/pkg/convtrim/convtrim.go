// Package convtrim cuts a conversation transcript down to a budget, keeping
// the most recent content.
package convtrim

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tiktoken-go/tokenizer"
)

const Separator = "\n"

// Trimmer keeps at most budget units of the tail of conversation.
type Trimmer interface {
	Trim(conversation string, budget int) (string, error)
}

// Join concatenates message texts in order.
func Join(texts []string) string {
	return strings.Join(texts, Separator)
}

// Chars measures the budget in characters (runes). It is an approximation of
// a token budget, not a tokenizer.
type Chars struct{}

func (Chars) Trim(conversation string, budget int) (string, error) {
	if budget <= 0 {
		return "", nil
	}
	n := utf8.RuneCountInString(conversation)
	if n <= budget {
		return conversation, nil
	}
	skip := n - budget
	for i := range conversation {
		if skip == 0 {
			return conversation[i:], nil
		}
		skip--
	}
	return "", nil
}

// Tokens measures the budget with a BPE codec.
type Tokens struct {
	codec tokenizer.Codec
}

// NewTokens picks the codec for model, falling back to cl100k_base for
// model names the tokenizer does not know (deployment aliases and the like).
func NewTokens(model string) (*Tokens, error) {
	if model != "" {
		if codec, err := tokenizer.ForModel(tokenizer.Model(model)); err == nil {
			return &Tokens{codec: codec}, nil
		}
	}
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer failed: %w", err)
	}
	return &Tokens{codec: codec}, nil
}

func (t *Tokens) Trim(conversation string, budget int) (string, error) {
	if budget <= 0 {
		return "", nil
	}
	ids, _, err := t.codec.Encode(conversation)
	if err != nil {
		return "", fmt.Errorf("encode conversation failed: %w", err)
	}
	if len(ids) <= budget {
		return conversation, nil
	}
	tail, err := t.codec.Decode(ids[len(ids)-budget:])
	if err != nil {
		return "", fmt.Errorf("decode conversation failed: %w", err)
	}
	// The cut can fall inside a multibyte character.
	for len(tail) > 0 {
		r, size := utf8.DecodeRuneInString(tail)
		if r != utf8.RuneError || size > 1 {
			break
		}
		tail = tail[1:]
	}
	return tail, nil
}

// Count reports the number of tokens in text.
func (t *Tokens) Count(text string) (int, error) {
	ids, _, err := t.codec.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("encode text failed: %w", err)
	}
	return len(ids), nil
}

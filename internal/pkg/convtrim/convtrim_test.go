package convtrim

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoin(t *testing.T) {
	assert.Equal(t, "a\nb\nc", Join([]string{"a", "b", "c"}))
	assert.Equal(t, "", Join(nil))
}

func TestCharsUnderBudget(t *testing.T) {
	got, err := Chars{}.Trim("hello", 10)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestCharsKeepsTail(t *testing.T) {
	full := Join([]string{"first message", "second message", "third"})
	budget := 12

	got, err := Chars{}.Trim(full, budget)
	require.NoError(t, err)
	assert.Len(t, got, budget)
	assert.Equal(t, full[len(full)-budget:], got)
}

func TestCharsCountsRunes(t *testing.T) {
	got, err := Chars{}.Trim("héllo wörld", 5)
	require.NoError(t, err)
	assert.Equal(t, "wörld", got)
	assert.Equal(t, 5, utf8.RuneCountInString(got))
}

func TestCharsZeroBudget(t *testing.T) {
	got, err := Chars{}.Trim("hello", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTokensKeepsSuffixWithinBudget(t *testing.T) {
	tok, err := NewTokens("gpt-3.5-turbo")
	require.NoError(t, err)

	full := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 40)
	total, err := tok.Count(full)
	require.NoError(t, err)
	require.Greater(t, total, 50)

	got, err := tok.Trim(full, 50)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(full, got))

	n, err := tok.Count(got)
	require.NoError(t, err)
	assert.LessOrEqual(t, n, 50)
}

func TestTokensKeepsValidUTF8(t *testing.T) {
	tok, err := NewTokens("gpt-3.5-turbo")
	require.NoError(t, err)

	full := strings.Repeat("日本語のテキスト、絵文字😀🎉 ", 20)
	for budget := 1; budget < 60; budget++ {
		got, err := tok.Trim(full, budget)
		require.NoError(t, err)
		assert.True(t, utf8.ValidString(got), "budget %d: %q", budget, got)
		assert.True(t, strings.HasSuffix(full, got), "budget %d", budget)
	}
}

func TestTokensUnknownModelFallsBack(t *testing.T) {
	tok, err := NewTokens("my-azure-deployment")
	require.NoError(t, err)

	got, err := tok.Trim("short text", 100)
	require.NoError(t, err)
	assert.Equal(t, "short text", got)
}

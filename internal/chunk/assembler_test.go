package chunk

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ddrelay/internal/domain"
)

func TestSplit_PreservesStreamAndRespectsLimit(t *testing.T) {
	var tokens []domain.Token
	for i := 0; i < 60; i++ {
		switch i % 4 {
		case 0:
			tokens = append(tokens, domain.Text(fmt.Sprintf("paragraph %d %s", i, strings.Repeat("w", i*3))))
		case 1:
			tokens = append(tokens, domain.Blank())
		case 2:
			tokens = append(tokens, domain.Line("> * ", fmt.Sprintf("item %d", i)))
		case 3:
			tokens = append(tokens, domain.Text(strings.Repeat("z", 150)))
		}
	}
	const limit = 120
	a := New(limit)

	chunks := a.Split(tokens)

	require.Greater(t, len(chunks), 1)
	assert.Equal(t, Render(tokens), strings.Join(chunks, ""))

	rendered := make(map[string]bool)
	for _, tok := range tokens {
		rendered[tok.Render()] = true
	}
	for i, c := range chunks {
		assert.NotEmpty(t, c)
		if utf8.RuneCountInString(c) >= limit {
			assert.True(t, rendered[c], "chunk %d is oversized but not a single token", i)
		}
	}
}

func TestSplit_LimitIsStrict(t *testing.T) {
	tokens := []domain.Token{domain.Text("aaaa"), domain.Text("bbbb")}

	assert.Equal(t, []string{"aaaabbbb"}, New(9).Split(tokens))
	assert.Equal(t, []string{"aaaa", "bbbb"}, New(8).Split(tokens))
}

func TestSplit_OversizedTokenGetsOwnChunk(t *testing.T) {
	big := strings.Repeat("x", 12)

	assert.Equal(t, []string{big, "y"}, New(10).Split([]domain.Token{domain.Text(big), domain.Text("y")}))
	assert.Equal(t, []string{"a", big, "b"}, New(10).Split([]domain.Token{
		domain.Text("a"), domain.Text(big), domain.Text("b"),
	}))
}

func TestSplit_CountsRunes(t *testing.T) {
	tokens := []domain.Token{domain.Text("ééé"), domain.Text("éé")}

	assert.Equal(t, []string{"ééééé"}, New(6).Split(tokens))
}

func TestSplit_Empty(t *testing.T) {
	assert.Empty(t, New(10).Split(nil))
}

func TestNew_DefaultLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, New(0).Limit())
}

func TestTidy(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"whitespace-only line", "a\n  \t\nb", "a\n\nb"},
		{"newline run", "a\n\n\n\n\nb", "a\n\nb"},
		{"quote run", "> \n>  \n> text", "> text"},
		{"steps run in order", "x\n \n\n\n> \n > y", "x\n\n> y"},
		{"list prefix untouched", "> * a\n> 1. b", "> * a\n> 1. b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tidy(tt.in))
		})
	}
}

func TestPack_ListAfterParagraph(t *testing.T) {
	tokens := []domain.Token{
		domain.Text("> Hello"),
		domain.Blank(),
		domain.Blank(),
		domain.Line("> * ", "a"),
		domain.Line("> * ", "b"),
		domain.Blank(),
		domain.Text("> end"),
	}

	assert.Equal(t, []string{"> Hello\n\n> * a\n> * b\n\n> end"}, New(DefaultLimit).Pack(tokens))
}

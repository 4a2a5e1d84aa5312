package chunk

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"ddrelay/internal/domain"
)

// DefaultLimit is the platform's maximum comment length.
const DefaultLimit = 10000

var (
	blankLine  = regexp.MustCompile(`\n[ \t]+\n`)
	newlineRun = regexp.MustCompile(`\n{3,}`)
	quoteRun   = regexp.MustCompile(`>[\r\n\t\f >]+`)
)

// Assembler packs tokens into message bodies shorter than a limit.
type Assembler struct {
	limit int
}

func New(limit int) *Assembler {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Assembler{limit: limit}
}

func (a *Assembler) Limit() int {
	return a.limit
}

// Pack splits the token stream into chunks and tidies each chunk. The first
// chunk opens the thread and every following chunk replies to the previous
// one.
func (a *Assembler) Pack(tokens []domain.Token) []string {
	chunks := a.Split(tokens)
	for i, c := range chunks {
		chunks[i] = Tidy(c)
	}
	return chunks
}

// Split greedily fills chunks with whole tokens in order. A token that alone
// reaches the limit becomes its own oversized chunk.
func (a *Assembler) Split(tokens []domain.Token) []string {
	var (
		chunks []string
		buf    strings.Builder
		size   int
	)
	for _, tok := range tokens {
		s := tok.Render()
		n := utf8.RuneCountInString(s)
		if size+n < a.limit {
			buf.WriteString(s)
			size += n
			continue
		}
		if buf.Len() > 0 {
			chunks = append(chunks, buf.String())
			buf.Reset()
		}
		buf.WriteString(s)
		size = n
	}
	if buf.Len() > 0 {
		chunks = append(chunks, buf.String())
	}
	return chunks
}

// Render concatenates the rendered form of every token.
func Render(tokens []domain.Token) string {
	var sb strings.Builder
	for _, tok := range tokens {
		sb.WriteString(tok.Render())
	}
	return sb.String()
}

// Tidy normalises blank lines and quote markers. The steps depend on each
// other and run in this order.
func Tidy(s string) string {
	s = blankLine.ReplaceAllString(s, "\n\n")
	s = newlineRun.ReplaceAllString(s, "\n\n")
	return quoteRun.ReplaceAllString(s, "> ")
}

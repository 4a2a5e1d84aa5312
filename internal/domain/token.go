package domain

type TokenKind int

const (
	TextRun TokenKind = iota
	BlankSeparator
	ListLine
)

func (k TokenKind) String() string {
	switch k {
	case TextRun:
		return "text"
	case BlankSeparator:
		return "blank"
	case ListLine:
		return "list"
	default:
		return "unknown"
	}
}

// Token is one unit of transcoded output. Tokens are never split across
// message chunks.
type Token struct {
	Kind   TokenKind
	Text   string
	Prefix string // ListLine only
}

func Text(s string) Token {
	return Token{Kind: TextRun, Text: s}
}

func Blank() Token {
	return Token{Kind: BlankSeparator}
}

func Line(prefix, body string) Token {
	return Token{Kind: ListLine, Prefix: prefix, Text: body}
}

// Render returns the literal string form of the token.
func (t Token) Render() string {
	switch t.Kind {
	case BlankSeparator:
		return "\n\n"
	case ListLine:
		return "\n" + t.Prefix + t.Text
	default:
		return t.Text
	}
}

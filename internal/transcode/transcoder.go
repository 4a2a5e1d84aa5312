package transcode

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"ddrelay/internal/domain"
)

const (
	// Single marker renders lighter than double in the target dialect; bold
	// and italic are swapped on purpose.
	boldMarker   = "*"
	italicMarker = "**"

	quotePrefix  = "> "
	bulletPrefix = "> * "

	DefaultSmileyClass      = "mceSmilieSprite"
	DefaultAssetHostPattern = "paradoxplaza"
	DefaultSignature        = "^(I am a bot that mirrors developer diaries from the official forum.)"
)

var whitespaceRun = regexp.MustCompile(`[\r\t\f ]+`)

// Rehoster maps an asset URL to a stable rehosted URL.
type Rehoster interface {
	Resolve(ctx context.Context, sourceURL string) (string, error)
}

type Config struct {
	AssetHostPattern string
	SmileyClass      string
	Signature        string
}

// Transcoder turns a post body tree into Markdown tokens.
type Transcoder struct {
	rehoster  Rehoster
	assetHost *regexp.Regexp
	smiley    string
	signature string
	logger    *slog.Logger
}

func New(cfg Config, rehoster Rehoster, logger *slog.Logger) (*Transcoder, error) {
	if cfg.AssetHostPattern == "" {
		cfg.AssetHostPattern = DefaultAssetHostPattern
	}
	if cfg.SmileyClass == "" {
		cfg.SmileyClass = DefaultSmileyClass
	}
	if cfg.Signature == "" {
		cfg.Signature = DefaultSignature
	}

	assetHost, err := regexp.Compile("(?i)" + cfg.AssetHostPattern)
	if err != nil {
		return nil, fmt.Errorf("compile asset host pattern: %w", err)
	}

	return &Transcoder{
		rehoster:  rehoster,
		assetHost: assetHost,
		smiley:    cfg.SmileyClass,
		signature: cfg.Signature,
		logger:    logger.With("component", "transcoder"),
	}, nil
}

// Transcode walks the children of root and returns the token stream followed
// by the attribution byline and the bot signature.
func (t *Transcoder) Transcode(ctx context.Context, root domain.Node, byline string) ([]domain.Token, error) {
	var tokens []domain.Token
	for _, child := range root.Children() {
		inner, err := t.inline(ctx, child)
		if err != nil {
			return nil, err
		}
		for _, tok := range inner {
			tokens = appendToken(tokens, tok)
		}
	}

	tokens = append(tokens, domain.Text("\n\n"+byline+"\n\n"+t.signature))
	return tokens, nil
}

// appendToken applies the paragraph rule: blank separators collapse, and a
// text run opening a paragraph is quoted.
func appendToken(tokens []domain.Token, tok domain.Token) []domain.Token {
	last := len(tokens) - 1
	switch tok.Kind {
	case domain.BlankSeparator:
		if last >= 0 && tokens[last].Kind == domain.BlankSeparator {
			return tokens
		}
	case domain.TextRun:
		if tok.Text == "" {
			return tokens
		}
		if last < 0 || tokens[last].Kind == domain.BlankSeparator {
			tok.Text = quotePrefix + tok.Text
		}
	}
	return append(tokens, tok)
}

func (t *Transcoder) list(ctx context.Context, n domain.Node) ([]domain.Token, error) {
	ordered := n.Kind() == "ol"
	tokens := []domain.Token{domain.Blank()}

	// Numbering counts item elements only, so whitespace between items
	// does not shift it.
	items := 0
	for _, child := range n.Children() {
		if child.Kind() != "li" {
			inner, err := t.inline(ctx, child)
			if err != nil {
				return nil, err
			}
			if s := flatten(inner, "\n\n"); strings.TrimSpace(s) != "" {
				tokens = append(tokens, domain.Line("", s))
			}
			continue
		}

		items++
		prefix := bulletPrefix
		if ordered {
			prefix = quotePrefix + strconv.Itoa(items) + ". "
		}
		body, err := t.children(ctx, child)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, domain.Line(prefix, flatten(body, "\n\n")))
	}

	return append(tokens, domain.Blank()), nil
}

// inline transcodes a node into a fresh token sequence. Adjacent text is
// merged into one run; breaks stay separate so the paragraph rule sees them
// at any depth.
func (t *Transcoder) inline(ctx context.Context, n domain.Node) ([]domain.Token, error) {
	if text, ok := n.Text(); ok {
		return textTokens(normalize(text)), nil
	}

	switch n.Kind() {
	case "br":
		return []domain.Token{domain.Blank()}, nil
	case "span", "font", "u", "s", "strike", "div", "p", "center", "li":
		return t.children(ctx, n)
	case "b", "strong":
		return t.emphasis(ctx, n, boldMarker)
	case "i", "em":
		return t.emphasis(ctx, n, italicMarker)
	case "img":
		s, err := t.image(ctx, n)
		return textTokens(s), err
	case "a":
		return t.link(ctx, n)
	case "ul", "ol":
		return t.list(ctx, n)
	case "iframe", "video", "embed", "object", "script", "style", domain.KindComment:
		return nil, nil
	}

	t.logger.Warn("unexpected node", "kind", n.Kind())
	if text, ok := leafText(n); ok {
		return textTokens(normalize(text)), nil
	}
	return nil, nil
}

func (t *Transcoder) children(ctx context.Context, n domain.Node) ([]domain.Token, error) {
	var tokens []domain.Token
	for _, child := range n.Children() {
		inner, err := t.inline(ctx, child)
		if err != nil {
			return nil, err
		}
		tokens = merge(tokens, inner...)
	}
	return tokens, nil
}

// emphasis wraps every run between breaks in its own pair of markers, so
// no marker spans a paragraph.
func (t *Transcoder) emphasis(ctx context.Context, n domain.Node, marker string) ([]domain.Token, error) {
	inner, err := t.children(ctx, n)
	if err != nil {
		return nil, err
	}

	var out []domain.Token
	var run strings.Builder
	closeRun := func() {
		if s := strings.TrimSpace(run.String()); s != "" {
			out = merge(out, domain.Text(marker+s+marker))
		}
		run.Reset()
	}
	for _, tok := range inner {
		if tok.Kind == domain.BlankSeparator {
			closeRun()
			out = append(out, tok)
			continue
		}
		run.WriteString(tok.Render())
	}
	closeRun()

	if !hasText(out) {
		return nil, nil
	}
	return out, nil
}

func (t *Transcoder) image(ctx context.Context, n domain.Node) (string, error) {
	if class, ok := n.Attr("class"); ok {
		for _, c := range strings.Fields(class) {
			if c == t.smiley {
				return "", nil
			}
		}
	}

	src, _ := n.Attr("src")
	if src == "" {
		return "", nil
	}
	src, err := t.resolve(ctx, src)
	if err != nil {
		return "", err
	}

	alt, _ := n.Attr("alt")
	if alt = normalize(alt); isPlaceholderAlt(alt) {
		return src, nil
	}
	return "[" + alt + "](" + src + ")", nil
}

func (t *Transcoder) link(ctx context.Context, n domain.Node) ([]domain.Token, error) {
	href, _ := n.Attr("href")

	if img, ok := soleImage(n.Children()); ok {
		var s string
		var err error
		if href == "" {
			s, err = t.image(ctx, img)
		} else {
			s, err = t.resolve(ctx, href)
		}
		return textTokens(s), err
	}

	inner, err := t.children(ctx, n)
	if err != nil {
		return nil, err
	}
	// Link text cannot span paragraphs.
	text := flatten(inner, " ")
	if href == "" {
		return textTokens(text), nil
	}
	if strings.TrimSpace(text) == "" {
		return textTokens(href), nil
	}
	return textTokens("[" + text + "](" + href + ")"), nil
}

func (t *Transcoder) resolve(ctx context.Context, src string) (string, error) {
	if t.rehoster == nil || !t.assetHost.MatchString(src) {
		return src, nil
	}
	return t.rehoster.Resolve(ctx, src)
}

// soleImage returns the only image among children, ignoring whitespace text.
func soleImage(children []domain.Node) (domain.Node, bool) {
	var img domain.Node
	for _, child := range children {
		if text, ok := child.Text(); ok {
			if strings.TrimSpace(text) == "" {
				continue
			}
			return nil, false
		}
		if child.Kind() != "img" || img != nil {
			return nil, false
		}
		img = child
	}
	return img, img != nil
}

func textTokens(s string) []domain.Token {
	if s == "" {
		return nil
	}
	return []domain.Token{domain.Text(s)}
}

// merge appends tokens to dst, joining adjacent text runs.
func merge(dst []domain.Token, tokens ...domain.Token) []domain.Token {
	for _, tok := range tokens {
		last := len(dst) - 1
		if tok.Kind == domain.TextRun && last >= 0 && dst[last].Kind == domain.TextRun {
			dst[last].Text += tok.Text
			continue
		}
		dst = append(dst, tok)
	}
	return dst
}

// flatten renders tokens as one string, writing blank for every break.
func flatten(tokens []domain.Token, blank string) string {
	var sb strings.Builder
	for _, tok := range tokens {
		if tok.Kind == domain.BlankSeparator {
			sb.WriteString(blank)
			continue
		}
		sb.WriteString(tok.Render())
	}
	return sb.String()
}

func hasText(tokens []domain.Token) bool {
	for _, tok := range tokens {
		if tok.Kind != domain.BlankSeparator {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return whitespaceRun.ReplaceAllString(s, " ")
}

// leafText returns the text of a text node, or of an element whose only
// child is a text node.
func leafText(n domain.Node) (string, bool) {
	if text, ok := n.Text(); ok {
		return text, true
	}
	children := n.Children()
	if len(children) == 1 {
		return children[0].Text()
	}
	return "", false
}

// isPlaceholderAlt reports whether alt carries no description. The forum
// uses "[IMG]" with a zero-width space for undescribed images.
func isPlaceholderAlt(alt string) bool {
	alt = strings.TrimSpace(strings.ReplaceAll(alt, "\u200b", ""))
	return alt == "" || strings.EqualFold(alt, "[img]")
}

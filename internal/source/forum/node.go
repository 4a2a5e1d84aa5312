package forum

import (
	"golang.org/x/net/html"

	"ddrelay/internal/domain"
)

type htmlNode struct {
	n *html.Node
}

// Wrap exposes a parsed HTML node as a domain.Node.
func Wrap(n *html.Node) domain.Node {
	return htmlNode{n: n}
}

func (h htmlNode) Kind() string {
	switch h.n.Type {
	case html.ElementNode:
		return h.n.Data
	case html.TextNode:
		return domain.KindText
	case html.CommentNode:
		return domain.KindComment
	case html.DocumentNode:
		return "document"
	default:
		return "doctype"
	}
}

func (h htmlNode) Text() (string, bool) {
	if h.n.Type != html.TextNode {
		return "", false
	}
	return h.n.Data, true
}

func (h htmlNode) Children() []domain.Node {
	var out []domain.Node
	for c := h.n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, htmlNode{n: c})
	}
	return out
}

func (h htmlNode) Attr(name string) (string, bool) {
	for _, a := range h.n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

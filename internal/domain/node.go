package domain

// KindText is the kind reported by text leaves.
const KindText = "text"

// KindComment is the kind reported by markup comments.
const KindComment = "comment"

// Node is the minimal view of a markup tree the transcoder walks. Element
// kinds are lower-case tag names.
type Node interface {
	Kind() string
	// Text returns the literal text of a text leaf and false for anything else.
	Text() (string, bool)
	Children() []Node
	Attr(name string) (string, bool)
}

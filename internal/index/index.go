package index

import (
	"regexp"

	"ddrelay/internal/domain"
)

var diaryTitle = regexp.MustCompile(`(?i)(^|\s)(diary|dd)($|\s)`)

// Index remembers every listing entry it has ever evaluated. Entries are
// never removed.
type Index struct {
	checked map[string]struct{}
	order   []string
}

func New() *Index {
	return &Index{checked: make(map[string]struct{})}
}

// Restore seeds the index with previously checked ids.
func (x *Index) Restore(ids []string) {
	for _, id := range ids {
		x.add(id)
	}
}

// IsDiaryTitle reports whether a listing title names a developer diary.
func IsDiaryTitle(title string) bool {
	return diaryTitle.MatchString(title)
}

// DetectNew returns a diary for every unchecked stub whose title matches,
// and marks every unchecked stub as checked whether or not it matched.
func (x *Index) DetectNew(stubs []domain.ArticleStub) []domain.Diary {
	var fresh []domain.Diary
	for _, stub := range stubs {
		if x.Contains(stub.ID) {
			continue
		}
		if IsDiaryTitle(stub.Title) {
			fresh = append(fresh, domain.Diary{ID: stub.ID, URL: stub.DetailURL})
		}
		x.add(stub.ID)
	}
	return fresh
}

func (x *Index) Contains(id string) bool {
	_, ok := x.checked[id]
	return ok
}

// CheckedIDs returns the checked ids in the order they were first seen.
func (x *Index) CheckedIDs() []string {
	out := make([]string, len(x.order))
	copy(out, x.order)
	return out
}

func (x *Index) Len() int {
	return len(x.order)
}

func (x *Index) add(id string) {
	if _, ok := x.checked[id]; ok {
		return
	}
	x.checked[id] = struct{}{}
	x.order = append(x.order, id)
}

package domain

import "time"

// ArticleStub is one entry of the forum front-page listing.
type ArticleStub struct {
	ID        string
	Title     string
	DetailURL string
}

type Diary struct {
	ID            string
	URL           string
	Title         string
	Game          string
	Author        string
	PublishedAt   time.Time
	PublishedText string // as displayed by the forum, used in the byline
	SubmissionID  string
	CommentIDs    []string
	Posted        bool
}

// Byline is the attribution line appended after the transcoded body.
func (d *Diary) Byline() string {
	return "by " + d.Author + ", " + d.PublishedText
}

// Archived converts the diary into its persisted archive form.
func (d *Diary) Archived() ArchivedDiary {
	return ArchivedDiary{
		ID:           d.ID,
		URL:          d.URL,
		SubmissionID: d.SubmissionID,
		CommentIDs:   d.CommentIDs,
		Posted:       d.Posted,
	}
}

// DiaryDetail is what the detail page yields for a diary.
type DiaryDetail struct {
	Title         string
	Game          string
	Author        string
	PublishedAt   time.Time
	PublishedText string
	Body          Node
}

type ArchivedDiary struct {
	ID           string   `json:"id"`
	URL          string   `json:"url"`
	SubmissionID string   `json:"submissionId"`
	CommentIDs   []string `json:"commentIds"`
	Posted       bool     `json:"posted"`
}

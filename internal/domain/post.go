package domain

// PostRequest is what the poster collaborator needs to create one
// submission and its comment thread.
type PostRequest struct {
	Subreddit string            `json:"subreddit"`
	Title     string            `json:"title"`
	URL       string            `json:"url"`
	Messages  []string          `json:"messages"`
	Game      string            `json:"game"`
	Flairs    map[string]string `json:"flairs,omitempty"`
	Resubmit  bool              `json:"resubmit"`
}

type PostResult struct {
	Success      bool     `json:"success"`
	SubmissionID string   `json:"submissionId"`
	CommentIDs   []string `json:"commentIds"`
	Error        string   `json:"error,omitempty"`
}

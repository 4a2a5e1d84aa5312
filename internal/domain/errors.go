package domain

import (
	"errors"
	"fmt"
)

// ErrMalformedPage marks detail markup that lacks an expected element.
var ErrMalformedPage = errors.New("malformed page")

// FetchError reports an unreachable or unusable listing or detail page.
type FetchError struct {
	URL   string
	Cause error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// RehostError reports a failed media upload.
type RehostError struct {
	SourceURL string
	Cause     error
}

func (e *RehostError) Error() string {
	return fmt.Sprintf("rehost %s: %v", e.SourceURL, e.Cause)
}

func (e *RehostError) Unwrap() error {
	return e.Cause
}

// PostError reports a failure signalled by the poster collaborator.
type PostError struct {
	Subreddit string
	Reason    string
	Cause     error
}

func (e *PostError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("post to %s: %s: %v", e.Subreddit, e.Reason, e.Cause)
	}
	return fmt.Sprintf("post to %s: %s", e.Subreddit, e.Reason)
}

func (e *PostError) Unwrap() error {
	return e.Cause
}

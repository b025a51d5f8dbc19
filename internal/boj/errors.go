package boj

import "errors"

var (
	// ErrNotFound means the site answered 404 for the requested page.
	ErrNotFound = errors.New("not found")
	// ErrNotLoggedIn means the session cookie is missing or expired.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrNoCSRFToken means the submit page carried no csrf key.
	ErrNoCSRFToken = errors.New("csrf token not found")
	// ErrNoSubmission means the status page listed no submission after a post.
	ErrNoSubmission = errors.New("submission not found on status page")
)

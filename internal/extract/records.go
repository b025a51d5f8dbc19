// Package extract recovers typed records from Baekjoon pages. Every exported
// entry point builds a fresh scanner per call, so no state is shared across
// documents.
package extract

import (
	"github.com/Nergy-TCGeneric/Zipline/internal/judge"
)

// UnknownCount marks a category whose problem total was never observed.
const UnknownCount = -1

// ProblemCategory is one row of the step (category) table.
type ProblemCategory struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	TotalCount  int    `json:"total_count"`
	SolvedCount int    `json:"solved_count"`
}

// Completed reports whether every problem of the category is solved.
func (c ProblemCategory) Completed() bool {
	return c.TotalCount > 0 && c.SolvedCount == c.TotalCount
}

// ProblemPreview is the summary shown for a problem in a listing.
type ProblemPreview struct {
	ID              int    `json:"id"`
	Title           string `json:"title"`
	Label           string `json:"label"`
	AcceptedSubmits int    `json:"accepted_submits"`
	Submits         int    `json:"submits"`
	Accepted        bool   `json:"accepted"`
}

// Sample is one numbered input/output example. Text is kept verbatim.
type Sample struct {
	Index  int    `json:"index"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

// ProblemDetail is the full problem page.
type ProblemDetail struct {
	Preview     ProblemPreview `json:"preview"`
	TimeLimit   string         `json:"time_limit"`
	MemoryLimit string         `json:"memory_limit"`
	Description string         `json:"description"`
	Input       string         `json:"input"`
	Output      string         `json:"output"`
	Limit       string         `json:"limit,omitempty"`
	Hint        string         `json:"hint,omitempty"`
	Samples     []Sample       `json:"samples,omitempty"`
}

// SubmitRecord is one (solution, status) pair from the status page literal.
type SubmitRecord struct {
	SolutionID int          `json:"solution_id"`
	StatusCode judge.Result `json:"status_code"`
}

package domain

import (
	"time"
)

type RejectReason string

const (
	RejectRateShort  RejectReason = "rate_short"
	RejectRateLong   RejectReason = "rate_long"
	RejectDuplicate  RejectReason = "duplicate"
	RejectTooShort   RejectReason = "too_short"
	RejectMultiLink  RejectReason = "multi_link"
	RejectNoContent  RejectReason = "no_content"
	RejectEmptyInput RejectReason = "empty"
)

// Submission is a comment or suggestion about to be written.
type Submission struct {
	ActorID    string
	TargetType TargetType
	TargetID   string
	Body       string
	At         time.Time
}

// Verdict is the outcome of an accepted submission.
// Rejections are returned as ErrRejected instead.
type Verdict struct {
	ContentHash  string
	ShouldReview bool
	Hidden       bool
	URL          string
}

// SubmissionRecord is one row of the submission log used for rate and duplicate checks.
type SubmissionRecord struct {
	ActorID     string
	TargetType  TargetType
	TargetID    string
	ContentHash string
	CreatedAt   time.Time
}

type Comment struct {
	ID           string    `json:"id"`
	ListID       string    `json:"list_id"`
	AuthorID     string    `json:"author_id"`
	Body         string    `json:"body"`
	ContentHash  string    `json:"-"`
	IsFiltered   bool      `json:"-"`
	ShouldReview bool      `json:"should_review"`
	CreatedAt    time.Time `json:"created_at"`
}

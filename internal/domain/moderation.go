package domain

import (
	"time"
)

type CaseStatus string

const (
	CaseOpen      CaseStatus = "open"
	CaseInReview  CaseStatus = "in_review"
	CaseResolved  CaseStatus = "resolved"
	CaseDismissed CaseStatus = "dismissed"
)

func (s CaseStatus) Valid() bool {
	switch s {
	case CaseOpen, CaseInReview, CaseResolved, CaseDismissed:
		return true
	}
	return false
}

// Terminal statuses count as "resolved" for the ?resolved= filter.
func (s CaseStatus) Terminal() bool { return s == CaseResolved || s == CaseDismissed }

var caseTransitions = map[CaseStatus][]CaseStatus{
	CaseOpen:      {CaseInReview, CaseResolved, CaseDismissed},
	CaseInReview:  {CaseOpen, CaseResolved, CaseDismissed},
	CaseResolved:  {CaseOpen},
	CaseDismissed: {CaseOpen},
}

// CanTransition is the only place the case state machine is defined.
func CanTransition(from, to CaseStatus) bool {
	for _, s := range caseTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type TargetType string

const (
	TargetComment    TargetType = "comment"
	TargetSuggestion TargetType = "suggestion"
	TargetList       TargetType = "list"
	TargetUser       TargetType = "user"

	// TargetCase is only used by audit entries about moderation cases.
	TargetCase TargetType = "moderation_case"
)

// Reportable reports whether a moderation case may be opened against t.
func (t TargetType) Reportable() bool {
	switch t {
	case TargetComment, TargetSuggestion, TargetList, TargetUser:
		return true
	}
	return false
}

// ModerationCase is append-only except Status, AssigneeID and UpdatedAt.
type ModerationCase struct {
	ID         string     `json:"id"`
	TargetType TargetType `json:"target_type"`
	TargetID   string     `json:"target_id"`
	ReporterID string     `json:"reporter_id,omitempty"`
	Reason     string     `json:"reason"`
	Detail     string     `json:"detail,omitempty"`
	Status     CaseStatus `json:"status"`
	AssigneeID *string    `json:"assignee_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type AuditEntry struct {
	ID         string            `json:"id"`
	ActorID    string            `json:"actor_id"`
	Action     string            `json:"action"`
	TargetType TargetType        `json:"target_type"`
	TargetID   string            `json:"target_id"`
	Meta       map[string]string `json:"meta,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

type CaseFilter struct {
	Status   *CaseStatus
	Resolved *bool
	Page     int
	PageSize int
}

func (f *CaseFilter) Normalize() {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = 20
	}
	if f.PageSize > 100 {
		f.PageSize = 100
	}
}

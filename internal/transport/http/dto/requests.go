package dto

type CreateCommentReq struct {
	Body string `json:"body" validate:"notblank"`
}

type TransitionCaseReq struct {
	Status string `json:"status" validate:"required,oneof=open in_review resolved dismissed"`
	Note   string `json:"note" validate:"max=500"`
}

// AssignCaseReq with an empty assignee_id unassigns the case.
type AssignCaseReq struct {
	AssigneeID string `json:"assignee_id" validate:"max=64"`
}

type OpenReportReq struct {
	TargetType string `json:"target_type" validate:"required,oneof=comment suggestion list user"`
	TargetID   string `json:"target_id" validate:"notblank,max=64"`
	Reason     string `json:"reason" validate:"notblank,max=64"`
	Detail     string `json:"detail" validate:"max=1000"`
}

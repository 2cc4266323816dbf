package dto

import "brainstorm-be/pkg/session"

type QuestionInput struct {
	Type   session.QuestionType   `json:"type" validate:"required"`
	Config session.QuestionConfig `json:"config" validate:"required"`
}

type BranchRequest struct {
	Id              string        `json:"id" validate:"required,max=64"`
	Scope           string        `json:"scope" validate:"required"`
	InitialQuestion QuestionInput `json:"initial_question" validate:"required"`
}

type CreateBrainstormRequest struct {
	Request  string          `json:"request" validate:"required"`
	Branches []BranchRequest `json:"branches" validate:"required,min=1,dive"`
}

type BranchAck struct {
	BranchId   string `json:"branch_id"`
	QuestionId string `json:"question_id"`
}

type CreateBrainstormResponse struct {
	SessionId        string      `json:"session_id"`
	BrowserSessionId string      `json:"browser_session_id"`
	Branches         []BranchAck `json:"branches"`
}

type PushBranchQuestionRequest struct {
	Question QuestionInput `json:"question" validate:"required"`
}

type CompleteBranchRequest struct {
	Finding string `json:"finding" validate:"required"`
}

type BranchQuestionResponse struct {
	Id       string               `json:"id"`
	Type     session.QuestionType `json:"type"`
	Text     string               `json:"text"`
	Answered bool                 `json:"answered"`
	Summary  string               `json:"summary,omitempty"`
}

type BranchStatusResponse struct {
	Id        string                   `json:"id"`
	Status    string                   `json:"status"`
	Scope     string                   `json:"scope"`
	Finding   *string                  `json:"finding,omitempty"`
	Questions []BranchQuestionResponse `json:"questions"`
}

type SessionSummaryResponse struct {
	SessionId string                 `json:"session_id"`
	Request   string                 `json:"request"`
	Status    string                 `json:"status"`
	Branches  []BranchStatusResponse `json:"branches"`
}

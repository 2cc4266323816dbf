package dto

import (
	"encoding/json"

	"brainstorm-be/pkg/session"
)

type StartSessionRequest struct {
	Title string `json:"title" validate:"max=200"`
}

type StartSessionResponse struct {
	SessionId string `json:"session_id"`
}

type PushQuestionRequest struct {
	Type   session.QuestionType   `json:"type" validate:"required"`
	Config session.QuestionConfig `json:"config" validate:"required"`
}

type PushQuestionResponse struct {
	QuestionId string `json:"question_id"`
}

// WaitQuery is bound from the query string of the answer endpoints.
type WaitQuery struct {
	Block     bool `query:"block"`
	TimeoutMs int  `query:"timeout_ms" validate:"gte=0"`
}

type AnswerResponse struct {
	Completed    bool                 `json:"completed"`
	Status       session.WaitStatus   `json:"status"`
	QuestionId   string               `json:"question_id,omitempty"`
	QuestionType session.QuestionType `json:"question_type,omitempty"`
	Response     json.RawMessage      `json:"response,omitempty"`
}

type QuestionResponse struct {
	Id       string                 `json:"id"`
	Type     session.QuestionType   `json:"type"`
	Status   session.QuestionStatus `json:"status"`
	Config   session.QuestionConfig `json:"config"`
	Answer   json.RawMessage        `json:"answer,omitempty"`
	Answered bool                   `json:"answered"`
}

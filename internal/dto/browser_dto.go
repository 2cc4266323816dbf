package dto

import (
	"encoding/json"

	"brainstorm-be/pkg/session"
)

const (
	FrameTypeQuestion = "question"
	FrameTypeEnd      = "end"
)

// BrowserFrame is sent to the browser over the websocket.
type BrowserFrame struct {
	Type         string                 `json:"type"`
	Id           string                 `json:"id,omitempty"`
	QuestionType session.QuestionType   `json:"question_type,omitempty"`
	Config       session.QuestionConfig `json:"config,omitempty"`
}

// BrowserEnvelope carries a frame across the event bus to the hub.
type BrowserEnvelope struct {
	SessionId string          `json:"session_id"`
	Frame     json.RawMessage `json:"frame"`
}

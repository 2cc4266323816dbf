package session

import (
	"encoding/json"
	"reflect"

	"brainstorm-be/pkg/apperror"
)

// ValidateQuestion checks the type against the fixed enumeration and the
// presence of options for the choice-style types.
func ValidateQuestion(op string, t QuestionType, config QuestionConfig) error {
	if !t.IsValid() {
		return apperror.InvalidInput(op, string(t), "unknown question type")
	}
	if t.RequiresOptions() && !hasOptions(config) {
		return apperror.InvalidInput(op, string(t), "question type requires a non-empty options list")
	}
	return nil
}

func hasOptions(config QuestionConfig) bool {
	raw, ok := config["options"]
	if !ok || raw == nil {
		return false
	}
	v := reflect.ValueOf(raw)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return false
	}
	return v.Len() > 0
}

// Message is a frame sent by the browser.
type Message struct {
	Type   string          `json:"type"`
	ID     string          `json:"id"`
	Answer json.RawMessage `json:"answer"`
}

const MessageTypeResponse = "response"

// DecodeMessage parses a browser frame. It reports false for anything that is
// not a well-formed response carrying a question id.
func DecodeMessage(raw []byte) (Message, bool) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, false
	}
	if msg.Type != MessageTypeResponse || msg.ID == "" {
		return Message{}, false
	}
	if len(msg.Answer) == 0 {
		msg.Answer = json.RawMessage("null")
	}
	return msg, true
}

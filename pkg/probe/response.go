package probe

import (
	"encoding/json"
	"strings"

	"brainstorm-be/pkg/apperror"
	"brainstorm-be/pkg/session"
)

// ParseResponse decodes a probe reply of the form
//
//	{"done": true, "reason": "..."}
//	{"done": false, "reason": "...", "question": {"type": "...", "config": {...}}}
//
// Surrounding prose or code fences are tolerated. A continue reply without a
// question means the probe is waiting on pending answers.
func ParseResponse(branchID, raw string) (*Result, error) {
	const op = "ParseResponse"

	body := extractJSONObject(raw)
	if body == "" {
		return nil, apperror.ContractViolation(op, branchID, "probe reply contains no JSON object")
	}
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(body), &obj); err != nil {
		return nil, apperror.ContractViolation(op, branchID, "probe reply is not valid JSON: "+err.Error())
	}

	done, ok := obj["done"].(bool)
	if !ok {
		return nil, apperror.ContractViolation(op, branchID, `probe reply has no boolean "done"`)
	}
	reason, ok := obj["reason"].(string)
	if !ok {
		return nil, apperror.ContractViolation(op, branchID, `probe reply has no string "reason"`)
	}
	if done {
		return &Result{Done: true, Finding: reason, Reason: reason}, nil
	}

	rawQ, present := obj["question"]
	if !present || rawQ == nil {
		return &Result{Waiting: true, Reason: reason}, nil
	}
	q, ok := rawQ.(map[string]interface{})
	if !ok {
		return nil, apperror.ContractViolation(op, branchID, "probe question is not an object")
	}
	qType, _ := q["type"].(string)
	if !session.QuestionType(qType).IsValid() {
		return nil, apperror.ContractViolation(op, branchID, "probe question has invalid type "+qType)
	}
	config, ok := q["config"].(map[string]interface{})
	if !ok {
		return nil, apperror.ContractViolation(op, branchID, "probe question config is not an object")
	}
	return &Result{
		Question: &NextQuestion{Type: session.QuestionType(qType), Config: session.QuestionConfig(config)},
		Reason:   reason,
	}, nil
}

func extractJSONObject(raw string) string {
	s := strings.TrimSpace(raw)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

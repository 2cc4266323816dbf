package mapper

import (
	"fmt"
	"strings"

	"brainstorm-be/internal/dto"
	"brainstorm-be/pkg/probe"
	"brainstorm-be/pkg/session"
	"brainstorm-be/pkg/state"
)

const (
	StatusComplete   = "COMPLETE"
	StatusInProgress = "IN PROGRESS"
)

// ToolMapper turns core records into tool DTOs and the text shown to the host model.
type ToolMapper struct{}

func NewToolMapper() *ToolMapper {
	return &ToolMapper{}
}

func (m *ToolMapper) ToBranchStatus(b *state.Branch) dto.BranchStatusResponse {
	out := dto.BranchStatusResponse{
		Id:        b.ID,
		Status:    string(b.Status),
		Scope:     b.Scope,
		Finding:   b.Finding,
		Questions: make([]dto.BranchQuestionResponse, 0, len(b.Questions)),
	}
	for _, q := range b.Questions {
		item := dto.BranchQuestionResponse{Id: q.ID, Type: q.Type, Text: q.Text, Answered: q.Answered()}
		if item.Answered {
			item.Summary = probe.ExtractAnswerSummary(q.Type, q.Answer)
		}
		out.Questions = append(out.Questions, item)
	}
	return out
}

func (m *ToolMapper) ToSummary(s *state.BrainstormSession) dto.SessionSummaryResponse {
	status := StatusInProgress
	if s.Complete() {
		status = StatusComplete
	}
	out := dto.SessionSummaryResponse{SessionId: s.ID, Request: s.Request, Status: status}
	for _, b := range s.OrderedBranches() {
		out.Branches = append(out.Branches, m.ToBranchStatus(b))
	}
	return out
}

func (m *ToolMapper) ToAnswer(r session.AnswerResult) dto.AnswerResponse {
	return dto.AnswerResponse{
		Completed:    r.Completed,
		Status:       r.Status,
		QuestionId:   r.QuestionID,
		QuestionType: r.QuestionType,
		Response:     r.Response,
	}
}

func (m *ToolMapper) ToQuestions(qs []session.Question) []dto.QuestionResponse {
	out := make([]dto.QuestionResponse, 0, len(qs))
	for _, q := range qs {
		out = append(out, dto.QuestionResponse{
			Id:       q.ID,
			Type:     q.Type,
			Status:   q.Status,
			Config:   q.Config,
			Answer:   q.Answer,
			Answered: q.Status == session.StatusAnswered,
		})
	}
	return out
}

func (m *ToolMapper) CreateBrainstormText(req dto.CreateBrainstormRequest, res dto.CreateBrainstormResponse) string {
	var b strings.Builder
	b.WriteString("## Brainstorm Started\n\n")
	fmt.Fprintf(&b, "**Session ID:** %s\n", res.SessionId)
	fmt.Fprintf(&b, "**Browser Session:** %s\n", res.BrowserSessionId)
	fmt.Fprintf(&b, "**Request:** %s\n\n", req.Request)
	b.WriteString("### Branches\n")
	for i, br := range req.Branches {
		qid := ""
		if i < len(res.Branches) {
			qid = res.Branches[i].QuestionId
		}
		fmt.Fprintf(&b, "- **%s**: %s (first question %s)\n", br.Id, br.Scope, qid)
	}
	b.WriteString("\nAnswers are processed as they arrive. Use get_session_summary to check progress.")
	return b.String()
}

func (m *ToolMapper) PushQuestionText(questionID string, t session.QuestionType) string {
	return fmt.Sprintf("Question pushed: %s\nType: %s\nUse get_next_answer(session_id, block=true) to wait for the user's response.", questionID, t)
}

func (m *ToolMapper) PushBranchQuestionText(branchID, questionID string) string {
	return fmt.Sprintf("Question pushed to branch %s: %s", branchID, questionID)
}

func (m *ToolMapper) CompleteBranchText(branchID, finding string) string {
	return fmt.Sprintf("Branch %s completed.\n**Finding:** %s", branchID, finding)
}

func (m *ToolMapper) BranchStatusText(b dto.BranchStatusResponse) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Branch: %s\n\n", b.Id)
	fmt.Fprintf(&sb, "**Status:** %s\n", b.Status)
	fmt.Fprintf(&sb, "**Scope:** %s\n", b.Scope)
	if b.Finding != nil {
		fmt.Fprintf(&sb, "**Finding:** %s\n", *b.Finding)
	}
	sb.WriteString("\n### Questions\n")
	for i, q := range b.Questions {
		answer := "(pending)"
		if q.Answered {
			answer = q.Summary
		}
		fmt.Fprintf(&sb, "%d. [%s] %s -> %s\n", i+1, q.Type, q.Text, answer)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m *ToolMapper) SummaryText(s dto.SessionSummaryResponse) string {
	done := 0
	for _, b := range s.Branches {
		if b.Finding != nil {
			done++
		}
	}

	var sb strings.Builder
	sb.WriteString("## Brainstorm Summary\n\n")
	fmt.Fprintf(&sb, "**Status:** %s (%d/%d branches done)\n", s.Status, done, len(s.Branches))
	fmt.Fprintf(&sb, "**Request:** %s\n", s.Request)
	for _, b := range s.Branches {
		fmt.Fprintf(&sb, "\n### %s\n", b.Id)
		fmt.Fprintf(&sb, "**Scope:** %s\n", b.Scope)
		if b.Finding != nil {
			fmt.Fprintf(&sb, "**Finding:** %s\n", *b.Finding)
		} else {
			fmt.Fprintf(&sb, "_Still exploring (%d questions)_\n", len(b.Questions))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m *ToolMapper) EndBrainstormText(s dto.SessionSummaryResponse) string {
	var sb strings.Builder
	sb.WriteString("## Brainstorm Complete\n\n")
	fmt.Fprintf(&sb, "**Request:** %s\n", s.Request)
	for _, b := range s.Branches {
		fmt.Fprintf(&sb, "\n### %s\n", b.Id)
		if b.Finding != nil {
			sb.WriteString(*b.Finding + "\n")
		} else {
			sb.WriteString("_No finding (branch was still exploring)_\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m *ToolMapper) AnswerText(a dto.AnswerResponse) string {
	switch a.Status {
	case session.WaitCompleted:
		return fmt.Sprintf("## Answer Received\n\n**Question ID:** %s\n**Type:** %s\n**Response:** %s",
			a.QuestionId, a.QuestionType, string(a.Response))
	case session.WaitTimeout:
		return "Timed out waiting for an answer (status: timeout)."
	case session.WaitCancelled:
		return "Session ended while waiting (status: cancelled)."
	}
	return "No answer yet (status: pending)."
}

func (m *ToolMapper) QuestionListText(qs []dto.QuestionResponse) string {
	if len(qs) == 0 {
		return "No questions in this session."
	}
	var sb strings.Builder
	sb.WriteString("## Questions\n")
	for i, q := range qs {
		text, _ := q.Config.Text()
		fmt.Fprintf(&sb, "%d. %s [%s] %s - %s\n", i+1, q.Id, q.Type, text, q.Status)
	}
	return strings.TrimRight(sb.String(), "\n")
}

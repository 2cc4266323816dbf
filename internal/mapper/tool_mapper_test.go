package mapper

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"brainstorm-be/internal/dto"
	"brainstorm-be/internal/model"
	"brainstorm-be/pkg/session"
	"brainstorm-be/pkg/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func strPtr(s string) *string { return &s }

func sampleSession() *state.BrainstormSession {
	return &state.BrainstormSession{
		ID:               "bs_1",
		Request:          "Plan the offsite",
		BrowserSessionID: "ses_1",
		BranchOrder:      []string{"venue", "food"},
		Branches: map[string]*state.Branch{
			"venue": {
				ID: "venue", Scope: "Where", Status: state.BranchDone, Finding: strPtr("Lisbon"),
				Questions: []state.BranchQuestion{{
					ID: "q1", Type: session.TypePickOne, Text: "City?",
					Answer: json.RawMessage(`{"selected":"Lisbon"}`),
				}},
			},
			"food": {
				ID: "food", Scope: "Catering", Status: state.BranchExploring,
				Questions: []state.BranchQuestion{{ID: "q2", Type: session.TypeAskText, Text: "Diet?"}},
			},
		},
	}
}

func TestToolMapper_SummaryInProgress(t *testing.T) {
	m := NewToolMapper()
	sum := m.ToSummary(sampleSession())

	assert.Equal(t, StatusInProgress, sum.Status)
	require.Len(t, sum.Branches, 2)
	assert.Equal(t, "venue", sum.Branches[0].Id)
	assert.Equal(t, "Lisbon", sum.Branches[0].Questions[0].Summary)
	assert.False(t, sum.Branches[1].Questions[0].Answered)

	text := m.SummaryText(sum)
	assert.Contains(t, text, "**Status:** IN PROGRESS (1/2 branches done)")
	assert.Contains(t, text, "**Finding:** Lisbon")
	assert.Contains(t, text, "_Still exploring (1 questions)_")
}

func TestToolMapper_EndTextListsFindings(t *testing.T) {
	m := NewToolMapper()
	s := sampleSession()
	s.Branches["food"].Status = state.BranchDone
	s.Branches["food"].Finding = strPtr("Vegetarian buffet")

	sum := m.ToSummary(s)
	assert.Equal(t, StatusComplete, sum.Status)

	text := m.EndBrainstormText(sum)
	assert.True(t, strings.HasPrefix(text, "## Brainstorm Complete"))
	assert.Contains(t, text, "Lisbon")
	assert.Contains(t, text, "Vegetarian buffet")
}

func TestToolMapper_BranchStatusText(t *testing.T) {
	m := NewToolMapper()
	text := m.BranchStatusText(m.ToBranchStatus(sampleSession().Branches["food"]))

	assert.Contains(t, text, "## Branch: food")
	assert.Contains(t, text, "**Status:** exploring")
	assert.Contains(t, text, "1. [ask_text] Diet? -> (pending)")
	assert.NotContains(t, text, "**Finding:**")
}

func TestToolMapper_CreateBrainstormText(t *testing.T) {
	m := NewToolMapper()
	req := dto.CreateBrainstormRequest{
		Request:  "Plan the offsite",
		Branches: []dto.BranchRequest{{Id: "venue", Scope: "Where"}},
	}
	res := dto.CreateBrainstormResponse{
		SessionId: "bs_1", BrowserSessionId: "ses_1",
		Branches: []dto.BranchAck{{BranchId: "venue", QuestionId: "q1"}},
	}

	text := m.CreateBrainstormText(req, res)
	assert.Contains(t, text, "**Session ID:** bs_1")
	assert.Contains(t, text, "ses_1")
	assert.Contains(t, text, "- **venue**: Where (first question q1)")
}

func TestToolMapper_AnswerText(t *testing.T) {
	m := NewToolMapper()

	done := m.AnswerText(dto.AnswerResponse{
		Completed: true, Status: session.WaitCompleted, QuestionId: "q1",
		QuestionType: session.TypeConfirm, Response: json.RawMessage(`{"choice":"yes"}`),
	})
	assert.Contains(t, done, "**Question ID:** q1")
	assert.Contains(t, done, `{"choice":"yes"}`)

	assert.Contains(t, m.AnswerText(dto.AnswerResponse{Status: session.WaitTimeout}), "timeout")
	assert.Contains(t, m.AnswerText(dto.AnswerResponse{Status: session.WaitCancelled}), "cancelled")
	assert.Contains(t, m.AnswerText(dto.AnswerResponse{Status: session.WaitPending}), "pending")
}

func TestToolMapper_QuestionListText(t *testing.T) {
	m := NewToolMapper()
	assert.Equal(t, "No questions in this session.", m.QuestionListText(nil))

	qs := m.ToQuestions([]session.Question{
		{ID: "q1", Type: session.TypeConfirm, Config: session.QuestionConfig{"question": "Ship?"}, Status: session.StatusAnswered},
	})
	require.Len(t, qs, 1)
	assert.True(t, qs[0].Answered)
	assert.Equal(t, "## Questions\n1. q1 [confirm] Ship? - answered", m.QuestionListText(qs))
}

func TestBrainstormMapper_RecordKeepsBranches(t *testing.T) {
	m := NewBrainstormMapper()
	s := sampleSession()
	s.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	rec, err := m.ToModel(s)
	require.NoError(t, err)
	assert.Equal(t, datatypes.JSONSlice[string]{"venue", "food"}, rec.BranchOrder)

	back, err := m.ToState(rec)
	require.NoError(t, err)
	assert.Equal(t, "Lisbon", *back.Branches["venue"].Finding)
	assert.Equal(t, state.BranchExploring, back.Branches["food"].Status)
	assert.Equal(t, s.CreatedAt, back.CreatedAt)

	_, err = m.ToState(&model.BrainstormRecord{ID: "bad", Branches: datatypes.JSON(`{`)})
	assert.Error(t, err)
}

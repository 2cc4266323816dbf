package session

import (
	"encoding/json"
	"time"
)

type QuestionType string

const (
	TypePickOne       QuestionType = "pick_one"
	TypePickMany      QuestionType = "pick_many"
	TypeConfirm       QuestionType = "confirm"
	TypeAskText       QuestionType = "ask_text"
	TypeSlider        QuestionType = "slider"
	TypeRank          QuestionType = "rank"
	TypeRate          QuestionType = "rate"
	TypeShowOptions   QuestionType = "show_options"
	TypeThumbs        QuestionType = "thumbs"
	TypeEmojiReact    QuestionType = "emoji_react"
	TypeAskCode       QuestionType = "ask_code"
	TypeAskImage      QuestionType = "ask_image"
	TypeAskFile       QuestionType = "ask_file"
	TypeShowDiff      QuestionType = "show_diff"
	TypeShowPlan      QuestionType = "show_plan"
	TypeReviewSection QuestionType = "review_section"
)

var questionTypes = map[QuestionType]struct{}{
	TypePickOne: {}, TypePickMany: {}, TypeConfirm: {}, TypeAskText: {},
	TypeSlider: {}, TypeRank: {}, TypeRate: {}, TypeShowOptions: {},
	TypeThumbs: {}, TypeEmojiReact: {}, TypeAskCode: {}, TypeAskImage: {},
	TypeAskFile: {}, TypeShowDiff: {}, TypeShowPlan: {}, TypeReviewSection: {},
}

func (t QuestionType) IsValid() bool {
	_, ok := questionTypes[t]
	return ok
}

// RequiresOptions reports whether the type is unusable without a non-empty options list.
func (t QuestionType) RequiresOptions() bool {
	switch t {
	case TypePickOne, TypePickMany, TypeRank, TypeRate, TypeShowOptions:
		return true
	}
	return false
}

// QuestionConfig is the type-specific payload: question text plus options, min/max, placeholder...
type QuestionConfig map[string]interface{}

// Text returns config["question"] when it is a non-empty string.
func (c QuestionConfig) Text() (string, bool) {
	s, ok := c["question"].(string)
	return s, ok && s != ""
}

func (c QuestionConfig) Clone() QuestionConfig {
	if c == nil {
		return nil
	}
	out := make(QuestionConfig, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

type QuestionStatus string

const (
	StatusPending  QuestionStatus = "pending"
	StatusAnswered QuestionStatus = "answered"
)

type Question struct {
	ID         string          `json:"id"`
	Type       QuestionType    `json:"type"`
	Config     QuestionConfig  `json:"config"`
	Status     QuestionStatus  `json:"status"`
	Answer     json.RawMessage `json:"answer,omitempty"`
	Retrieved  bool            `json:"retrieved"`
	CreatedAt  time.Time       `json:"created_at"`
	AnsweredAt *time.Time      `json:"answered_at,omitempty"`
}

func (q *Question) clone() Question {
	out := *q
	out.Config = q.Config.Clone()
	if q.Answer != nil {
		out.Answer = append(json.RawMessage(nil), q.Answer...)
	}
	if q.AnsweredAt != nil {
		at := *q.AnsweredAt
		out.AnsweredAt = &at
	}
	return out
}

type Meta struct {
	Title         string
	HostSessionID string
}

type Session struct {
	ID            string
	Title         string
	HostSessionID string
	Questions     []*Question
	CreatedAt     time.Time

	// answered question ids not yet handed to a consumer, in recording order
	answerQueue []string
}

func (s *Session) questionIDs() []string {
	ids := make([]string, 0, len(s.Questions))
	for _, q := range s.Questions {
		ids = append(ids, q.ID)
	}
	return ids
}

func (s *Session) find(questionID string) *Question {
	for _, q := range s.Questions {
		if q.ID == questionID {
			return q
		}
	}
	return nil
}

// WaitStatus is the outcome of an answer wait.
type WaitStatus string

const (
	WaitCompleted WaitStatus = "completed"
	WaitPending   WaitStatus = "pending"
	WaitTimeout   WaitStatus = "timeout"
	WaitCancelled WaitStatus = "cancelled"
)

type WaitOptions struct {
	Block   bool
	Timeout time.Duration
}

type AnswerResult struct {
	Completed    bool            `json:"completed"`
	QuestionID   string          `json:"question_id,omitempty"`
	QuestionType QuestionType    `json:"question_type,omitempty"`
	Response     json.RawMessage `json:"response,omitempty"`
	Status       WaitStatus      `json:"status"`
}

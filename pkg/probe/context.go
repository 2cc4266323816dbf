package probe

import (
	"encoding/json"
	"fmt"
	"strings"

	"brainstorm-be/pkg/session"
	"brainstorm-be/pkg/state"
)

type QAPair struct {
	Number int
	Type   session.QuestionType
	Text   string
	Answer json.RawMessage
	Config session.QuestionConfig
}

type PendingQuestion struct {
	Number int
	Type   session.QuestionType
	Text   string
}

// BuildContext renders the transcript handed to a probe model. The pending
// section is omitted when nothing is pending.
func BuildContext(request string, answered []QAPair, pending []PendingQuestion) string {
	var b strings.Builder
	b.WriteString("ORIGINAL REQUEST:\n")
	b.WriteString(request)
	b.WriteString("\n\nCONVERSATION:\n")
	if len(answered) == 0 {
		b.WriteString("(no answers yet)\n")
	}
	for _, qa := range answered {
		fmt.Fprintf(&b, "Q%d [%s]: %s\n", qa.Number, qa.Type, qa.Text)
		fmt.Fprintf(&b, "A%d: %s\n", qa.Number, FormatAnswer(qa.Type, qa.Answer, qa.Config))
	}
	if len(pending) > 0 {
		b.WriteString("\nPENDING QUESTIONS:\n")
		for _, p := range pending {
			fmt.Fprintf(&b, "Q%d [%s]: %s\n", p.Number, p.Type, p.Text)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// SplitBranch numbers the branch's questions and separates answered from pending.
func SplitBranch(branch state.Branch) ([]QAPair, []PendingQuestion) {
	var answered []QAPair
	var pending []PendingQuestion
	for i, q := range branch.Questions {
		n := i + 1
		if q.Answered() {
			answered = append(answered, QAPair{Number: n, Type: q.Type, Text: q.Text, Answer: q.Answer, Config: q.Config})
		} else {
			pending = append(pending, PendingQuestion{Number: n, Type: q.Type, Text: q.Text})
		}
	}
	return answered, pending
}

// FormatAnswer describes an answer in words, resolving option ids to labels.
func FormatAnswer(t session.QuestionType, answer json.RawMessage, config session.QuestionConfig) string {
	var a map[string]interface{}
	if err := json.Unmarshal(answer, &a); err != nil || a == nil {
		return "User gave no answer"
	}
	labels := optionLabels(config)
	label := func(id string) string {
		if l, ok := labels[id]; ok {
			return l
		}
		return id
	}

	switch t {
	case session.TypePickOne:
		return fmt.Sprintf("User selected %q", label(str(a["selected"])))
	case session.TypePickMany:
		return "User selected: " + quoteAll(strs(a["selected"]), label)
	case session.TypeAskText:
		return fmt.Sprintf("User wrote: %q", str(a["text"]))
	case session.TypeAskCode:
		return fmt.Sprintf("User provided code: %q", str(a["code"]))
	case session.TypeConfirm, session.TypeThumbs:
		return fmt.Sprintf("User answered %q", str(a["choice"]))
	case session.TypeEmojiReact:
		return "User reacted with " + str(a["emoji"])
	case session.TypeSlider:
		return "User chose " + number(a["value"])
	case session.TypeRank:
		return "User ranked: " + quoteAll(rankOrder(a["ranking"]), label)
	case session.TypeRate:
		return "User rated: " + ratingsText(a["ratings"], label)
	case session.TypeAskImage, session.TypeAskFile:
		return "User uploaded file(s)"
	case session.TypeShowOptions:
		return feedbackText(fmt.Sprintf("User chose %q", label(str(a["selected"]))), a["feedback"])
	case session.TypeShowDiff, session.TypeShowPlan, session.TypeReviewSection:
		return feedbackText(fmt.Sprintf("User decided %q", str(a["decision"])), a["feedback"])
	}
	return "User answered: " + ExtractAnswerSummary(t, answer)
}

func optionLabels(config session.QuestionConfig) map[string]string {
	out := map[string]string{}
	items, _ := config["options"].([]interface{})
	for _, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		if id := str(m["id"]); id != "" {
			if l := str(m["label"]); l != "" {
				out[id] = l
			}
		}
	}
	return out
}

func quoteAll(ids []string, label func(string) string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%q", label(id))
	}
	return strings.Join(parts, ", ")
}

func ratingsText(v interface{}, label func(string) string) string {
	m, _ := v.(map[string]interface{})
	summary := topRatings(m, len(m))
	if summary == "no ratings" {
		return summary
	}
	parts := strings.Split(summary, ", ")
	for i, p := range parts {
		id, score, _ := strings.Cut(p, ": ")
		parts[i] = fmt.Sprintf("%q: %s", label(id), score)
	}
	return strings.Join(parts, ", ")
}

func feedbackText(head string, feedback interface{}) string {
	if fb := str(feedback); fb != "" {
		return fmt.Sprintf("%s with feedback: %q", head, fb)
	}
	return head
}

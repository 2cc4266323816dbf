package probe

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"brainstorm-be/pkg/session"
)

const maxSummaryText = 100

// ExtractAnswerSummary renders an answer payload as a short line.
func ExtractAnswerSummary(t session.QuestionType, answer json.RawMessage) string {
	var a map[string]interface{}
	if err := json.Unmarshal(answer, &a); err != nil || a == nil {
		return "no answer"
	}

	switch t {
	case session.TypePickOne:
		return str(a["selected"])
	case session.TypePickMany:
		return strings.Join(strs(a["selected"]), ", ")
	case session.TypeConfirm, session.TypeThumbs:
		return str(a["choice"])
	case session.TypeEmojiReact:
		return str(a["emoji"])
	case session.TypeAskText:
		return truncate(str(a["text"]), maxSummaryText)
	case session.TypeAskCode:
		return truncate(str(a["code"]), maxSummaryText)
	case session.TypeSlider:
		return number(a["value"])
	case session.TypeRank:
		return strings.Join(rankOrder(a["ranking"]), " → ")
	case session.TypeRate:
		return topRatings(a["ratings"], 3)
	case session.TypeAskImage, session.TypeAskFile:
		return "file(s) uploaded"
	case session.TypeShowDiff, session.TypeShowPlan, session.TypeReviewSection:
		return withFeedback(str(a["decision"]), a["feedback"])
	case session.TypeShowOptions:
		return withFeedback(str(a["selected"]), a["feedback"])
	}

	raw, _ := json.Marshal(a)
	return truncate(string(raw), maxSummaryText)
}

func str(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func strs(v interface{}) []string {
	items, _ := v.([]interface{})
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, str(it))
	}
	return out
}

func number(v interface{}) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return str(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func withFeedback(head string, feedback interface{}) string {
	if fb := str(feedback); fb != "" {
		return head + ": " + fb
	}
	return head
}

type rankItem struct {
	id   string
	rank float64
}

func rankOrder(v interface{}) []string {
	items, _ := v.([]interface{})
	ranked := make([]rankItem, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]interface{})
		if !ok {
			continue
		}
		r, _ := m["rank"].(float64)
		ranked = append(ranked, rankItem{id: str(m["id"]), rank: r})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].rank < ranked[j].rank })
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.id
	}
	return out
}

// topRatings lists the n highest rated items, ties broken by id.
func topRatings(v interface{}, n int) string {
	m, _ := v.(map[string]interface{})
	if len(m) == 0 {
		return "no ratings"
	}
	type rated struct {
		id    string
		score float64
	}
	all := make([]rated, 0, len(m))
	for id, s := range m {
		f, _ := s.(float64)
		all = append(all, rated{id: id, score: f})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].id < all[j].id
	})
	if len(all) > n {
		all = all[:n]
	}
	parts := make([]string, len(all))
	for i, r := range all {
		parts[i] = fmt.Sprintf("%s: %s", r.id, strconv.FormatFloat(r.score, 'f', -1, 64))
	}
	return strings.Join(parts, ", ")
}

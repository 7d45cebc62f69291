package grading

import (
	"fmt"
	"sort"
	"strings"
)

// Result is the outcome of scoring one set of replies against a form.
type Result struct {
	// IndividualScores maps question id to awarded points. Every graded
	// question appears, incorrect ones with 0.
	IndividualScores map[string]float64 `json:"individual_scores"`
	TotalScore       float64            `json:"total_score"`
}

// strategy decides whether a single reply answers an element correctly.
type strategy func(el Element, reply any) bool

// Engine scores student replies against a form definition. It is pure:
// no I/O, no state, identical inputs always produce identical results.
type Engine struct {
	strategies map[string]strategy
}

func NewEngine() *Engine {
	return &Engine{
		strategies: map[string]strategy{
			TypeNumber: scalarMatch,
			TypeSelect: scalarMatch,
			TypeChoice: choiceMatch,
			// text has no grading rule; absent types default-deny.
		},
	}
}

// Score walks every graded question on the form, looks up the student's
// reply by question id and awards the element's point value on a correct
// match. Missing or nil replies are incorrect. TotalScore is the sum of
// the per-question scores.
func (e *Engine) Score(form Form, replies map[string]any) Result {
	res := Result{IndividualScores: map[string]float64{}}
	for _, q := range form.Questions() {
		awarded := 0.0
		if reply, ok := replies[q.ID]; ok && reply != nil {
			if s, known := e.strategies[q.Type]; known && s(q, reply) {
				awarded = q.Score
			}
		}
		res.IndividualScores[q.ID] = awarded
		res.TotalScore += awarded
	}
	return res
}

// scalarMatch grades number and select elements: case-insensitive match of
// the stringified reply against the stringified answer.
func scalarMatch(el Element, reply any) bool {
	return stringFold(reply) == stringFold(el.Answer)
}

// choiceMatch grades choice elements. With Multiple set, the reply list and
// the answer list are compared sorted, element for element. This is not set
// equality: duplicate entries count, and the comparison is kept that way
// for compatibility with historically graded responses. Single choice is
// strict equality against the first acceptable value.
func choiceMatch(el Element, reply any) bool {
	answers, ok := toSlice(el.Answer)
	if !ok || len(answers) == 0 {
		return false
	}
	if el.Multiple {
		got, ok := toSlice(reply)
		if !ok {
			return false
		}
		return sortedEqual(got, answers)
	}
	return strictEqual(reply, answers[0])
}

func sortedEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	as := make([]string, len(a))
	bs := make([]string, len(b))
	for i := range a {
		as[i] = fmt.Sprint(a[i])
	}
	for i := range b {
		bs[i] = fmt.Sprint(b[i])
	}
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// strictEqual mirrors strict scalar equality on JSON-decoded values:
// same type and same value, no coercion between numbers and strings.
func strictEqual(a, b any) bool {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case float64:
		bv, ok := toFloat(b)
		return ok && av == bv
	case int:
		bv, ok := toFloat(b)
		return ok && float64(av) == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func toSlice(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

func stringFold(v any) string {
	return strings.ToLower(fmt.Sprint(v))
}

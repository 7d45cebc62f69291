package grading

import (
	"reflect"
	"testing"
)

func formWith(elements ...Element) Form {
	return Form{Slides: []Slide{{ID: "s1", Elements: elements}}}
}

func numberQ(id, answer string, pts float64) Element {
	return Element{ID: id, Type: TypeNumber, Question: true, Answer: answer, Score: pts}
}

func choiceMultiQ(id string, answers []any, pts float64) Element {
	return Element{ID: id, Type: TypeChoice, Question: true, Multiple: true, Answer: answers, Score: pts}
}

func TestScore_WorkedExample(t *testing.T) {
	form := formWith(
		numberQ("q1", "5", 10),
		choiceMultiQ("q2", []any{"a", "b"}, 5),
	)
	replies := map[string]any{
		"q1": float64(5),
		"q2": []any{"b", "a"},
	}

	got := NewEngine().Score(form, replies)

	want := map[string]float64{"q1": 10, "q2": 5}
	if !reflect.DeepEqual(got.IndividualScores, want) {
		t.Fatalf("individual scores = %v, want %v", got.IndividualScores, want)
	}
	if got.TotalScore != 15 {
		t.Fatalf("total = %v, want 15", got.TotalScore)
	}
}

func TestScore_Pure(t *testing.T) {
	form := formWith(numberQ("q1", "42", 3), choiceMultiQ("q2", []any{"x"}, 2))
	replies := map[string]any{"q1": "42", "q2": []any{"x"}}

	e := NewEngine()
	first := e.Score(form, replies)
	second := e.Score(form, replies)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated scoring diverged: %v vs %v", first, second)
	}
}

func TestScore_MissingOrNilReplyIsZero(t *testing.T) {
	for _, typ := range []string{TypeText, TypeNumber, TypeSelect, TypeChoice} {
		form := formWith(Element{ID: "q", Type: typ, Question: true, Answer: "a", Score: 4})

		got := NewEngine().Score(form, map[string]any{})
		if got.IndividualScores["q"] != 0 || got.TotalScore != 0 {
			t.Errorf("type %s: missing reply scored %v", typ, got)
		}

		got = NewEngine().Score(form, map[string]any{"q": nil})
		if got.IndividualScores["q"] != 0 || got.TotalScore != 0 {
			t.Errorf("type %s: nil reply scored %v", typ, got)
		}
	}
}

func TestScore_ScalarTypes(t *testing.T) {
	tests := []struct {
		name   string
		el     Element
		reply  any
		want   float64
	}{
		{"number numeric reply", numberQ("q", "5", 10), float64(5), 10},
		{"number string reply", numberQ("q", "5", 10), "5", 10},
		{"number wrong", numberQ("q", "5", 10), "6", 0},
		{"select case-insensitive", Element{ID: "q", Type: TypeSelect, Question: true, Answer: "Paris", Score: 2}, "paris", 2},
		{"select wrong", Element{ID: "q", Type: TypeSelect, Question: true, Answer: "Paris", Score: 2}, "london", 0},
		{"text never graded", Element{ID: "q", Type: TypeText, Question: true, Answer: "hi", Score: 2}, "hi", 0},
		{"unknown type never graded", Element{ID: "q", Type: "essay", Question: true, Answer: "hi", Score: 2}, "hi", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NewEngine().Score(formWith(tc.el), map[string]any{"q": tc.reply})
			if got.IndividualScores["q"] != tc.want {
				t.Fatalf("awarded %v, want %v", got.IndividualScores["q"], tc.want)
			}
		})
	}
}

func TestScore_ChoiceSingle(t *testing.T) {
	// Single choice only ever matches the first acceptable value.
	el := Element{ID: "q", Type: TypeChoice, Question: true, Answer: []any{"a", "b"}, Score: 3}

	got := NewEngine().Score(formWith(el), map[string]any{"q": "a"})
	if got.IndividualScores["q"] != 3 {
		t.Fatalf("answer[0] reply awarded %v, want 3", got.IndividualScores["q"])
	}
	got = NewEngine().Score(formWith(el), map[string]any{"q": "b"})
	if got.IndividualScores["q"] != 0 {
		t.Fatalf("non-first acceptable value awarded %v, want 0", got.IndividualScores["q"])
	}
	// Strict equality: a numeric reply never matches a string key.
	el.Answer = []any{"5"}
	got = NewEngine().Score(formWith(el), map[string]any{"q": float64(5)})
	if got.IndividualScores["q"] != 0 {
		t.Fatalf("coerced numeric reply awarded %v, want 0", got.IndividualScores["q"])
	}
}

func TestScore_ChoiceMultiOrderIndependent(t *testing.T) {
	el := choiceMultiQ("q", []any{"a", "b"}, 5)

	for _, reply := range [][]any{{"a", "b"}, {"b", "a"}} {
		got := NewEngine().Score(formWith(el), map[string]any{"q": reply})
		if got.IndividualScores["q"] != 5 {
			t.Fatalf("reply %v awarded %v, want 5", reply, got.IndividualScores["q"])
		}
	}
}

func TestScore_ChoiceMultiSortedCompareNotSet(t *testing.T) {
	el := choiceMultiQ("q", []any{"a", "b"}, 5)

	// Duplicates matter: ["a","a","b"] is not ["a","b"].
	got := NewEngine().Score(formWith(el), map[string]any{"q": []any{"a", "a", "b"}})
	if got.IndividualScores["q"] != 0 {
		t.Fatalf("duplicated reply awarded %v, want 0", got.IndividualScores["q"])
	}
	// Subset is wrong.
	got = NewEngine().Score(formWith(el), map[string]any{"q": []any{"a"}})
	if got.IndividualScores["q"] != 0 {
		t.Fatalf("partial reply awarded %v, want 0", got.IndividualScores["q"])
	}
	// Non-list reply to a multi question is wrong.
	got = NewEngine().Score(formWith(el), map[string]any{"q": "a"})
	if got.IndividualScores["q"] != 0 {
		t.Fatalf("scalar reply awarded %v, want 0", got.IndividualScores["q"])
	}
}

func TestScore_TotalIsSum(t *testing.T) {
	form := formWith(
		numberQ("q1", "1", 2),
		numberQ("q2", "2", 3),
		numberQ("q3", "3", 7),
	)
	got := NewEngine().Score(form, map[string]any{"q1": "1", "q2": "wrong", "q3": "3"})

	sum := 0.0
	for _, v := range got.IndividualScores {
		sum += v
	}
	if got.TotalScore != sum {
		t.Fatalf("total %v != sum of individual %v", got.TotalScore, sum)
	}
	if got.TotalScore != 9 {
		t.Fatalf("total %v, want 9", got.TotalScore)
	}
}

func TestScore_MissingScoreTreatedAsZero(t *testing.T) {
	el := Element{ID: "q", Type: TypeNumber, Question: true, Answer: "1"} // no point value
	got := NewEngine().Score(formWith(el), map[string]any{"q": "1"})
	if got.IndividualScores["q"] != 0 {
		t.Fatalf("scoreless question awarded %v, want 0", got.IndividualScores["q"])
	}
}

func TestScore_NonQuestionElementsIgnored(t *testing.T) {
	form := Form{Slides: []Slide{{Elements: []Element{
		{ID: "intro", Type: TypeText},
		numberQ("q1", "5", 10),
	}}}}
	got := NewEngine().Score(form, map[string]any{"intro": "5", "q1": "5"})
	if _, ok := got.IndividualScores["intro"]; ok {
		t.Fatalf("non-question element was graded")
	}
	if got.TotalScore != 10 {
		t.Fatalf("total %v, want 10", got.TotalScore)
	}
}

func TestSanitizedStripsAnswers(t *testing.T) {
	form := Form{
		StartSlide: &Slide{Elements: []Element{{ID: "w", Type: TypeText, Answer: "x"}}},
		Slides:     []Slide{{Elements: []Element{numberQ("q1", "5", 10)}}},
	}
	clean := form.Sanitized()
	if clean.StartSlide.Elements[0].Answer != nil {
		t.Fatalf("start slide answer not stripped")
	}
	if clean.Slides[0].Elements[0].Answer != nil {
		t.Fatalf("slide answer not stripped")
	}
	// the original must be untouched
	if form.Slides[0].Elements[0].Answer == nil {
		t.Fatalf("sanitize mutated the source form")
	}
}

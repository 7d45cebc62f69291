package grading

// Element types that the engine knows how to auto-grade. Anything else
// (including plain text prompts) earns zero until a manager overrides it.
const (
	TypeText   = "text"
	TypeNumber = "number"
	TypeSelect = "select"
	TypeChoice = "choice"
)

// Element is a single block on a slide. Only elements with Question set
// participate in grading; slides may carry non-graded content alongside.
type Element struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Question bool   `json:"question,omitempty"`
	// Answer is the canonical correct value: a scalar for text/number/select,
	// a list of acceptable values for choice.
	Answer   any     `json:"answer,omitempty"`
	Multiple bool    `json:"multiple,omitempty"`
	Score    float64 `json:"score,omitempty"`
}

type Slide struct {
	ID       string    `json:"id,omitempty"`
	Elements []Element `json:"elements"`
}

// Form is the question definition embedded in an assignment.
type Form struct {
	StartSlide *Slide         `json:"start_slide,omitempty"`
	Slides     []Slide        `json:"slides"`
	EndSlide   *Slide         `json:"end_slide,omitempty"`
	Settings   map[string]any `json:"settings,omitempty"`
}

// Questions returns the graded elements across all content slides, in order.
func (f Form) Questions() []Element {
	var out []Element
	for _, s := range f.Slides {
		for _, el := range s.Elements {
			if el.Question {
				out = append(out, el)
			}
		}
	}
	return out
}

// Sanitized returns a deep copy with every answer key removed, safe to hand
// to a student taking the assignment.
func (f Form) Sanitized() Form {
	cp := f
	cp.StartSlide = sanitizeSlide(f.StartSlide)
	cp.EndSlide = sanitizeSlide(f.EndSlide)
	cp.Slides = make([]Slide, len(f.Slides))
	for i, s := range f.Slides {
		sc := *sanitizeSlide(&s)
		cp.Slides[i] = sc
	}
	return cp
}

func sanitizeSlide(s *Slide) *Slide {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Elements = make([]Element, len(s.Elements))
	for i, el := range s.Elements {
		el.Answer = nil
		cp.Elements[i] = el
	}
	return &cp
}

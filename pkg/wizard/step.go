package wizard

// Kind tells a renderer which controls a step needs. The engine itself
// never branches on it.
type Kind string

const (
	KindChoice Kind = "choice"
	KindMulti  Kind = "multi"
	KindText   Kind = "text"
	KindReview Kind = "review"
)

// Predicate is evaluated against the current answers.
type Predicate func(Answers) bool

// Choice is one selectable answer of a choice or multi step.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Hint  string `json:"hint,omitempty"`
	Icon  string `json:"icon,omitempty"`
	Price string `json:"price,omitempty"`
}

type Field struct {
	Key         string   `json:"key"`
	Label       string   `json:"label"`
	Placeholder string   `json:"placeholder,omitempty"`
	Type        string   `json:"type,omitempty"`
	Choices     []string `json:"choices,omitempty"`
}

// Step is one screen of a wizard.
type Step struct {
	ID       string
	Title    string
	Subtitle string
	Kind     Kind

	// Field is the answer key written by choice and multi steps.
	Field   string
	Fields  []Field
	Options []Choice

	// Owns lists the keys this step is the canonical editor for. Review
	// edit actions resolve through it.
	Owns []string

	AutoAdvance   bool
	Skippable     bool
	ContinueLabel string
	Hint          string

	// Visible and Valid default to always-true when nil.
	Visible Predicate
	Valid   Predicate
}

func (s Step) isVisible(a Answers) bool {
	return s.Visible == nil || s.Visible(a)
}

func (s Step) isValid(a Answers) bool {
	return s.Valid == nil || s.Valid(a)
}

// RequireFilled builds a validity predicate that needs every key filled.
func RequireFilled(keys ...string) Predicate {
	return func(a Answers) bool {
		for _, k := range keys {
			if !a.Filled(k) {
				return false
			}
		}
		return true
	}
}

// FieldEquals builds a visibility predicate comparing the text form of key.
func FieldEquals(key, value string) Predicate {
	return func(a Answers) bool { return a.String(key) == value }
}

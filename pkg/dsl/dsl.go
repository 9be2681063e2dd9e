package dsl

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Flow is a wizard definition loaded from YAML.
type Flow struct {
	Flow             string      `yaml:"flow"`
	Description      string      `yaml:"description"`
	AutoAdvanceDelay string      `yaml:"auto_advance_delay"`
	Steps            []Step      `yaml:"steps"`
	Review           []ReviewRow `yaml:"review"`
}

type Step struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Subtitle    string   `yaml:"subtitle"`
	Kind        string   `yaml:"kind"` // choice | multi | text | review
	Field       string   `yaml:"field"`
	Fields      []Field  `yaml:"fields"`
	Options     []Option `yaml:"options"`
	Owns        []string `yaml:"owns"`
	If          string   `yaml:"if"`
	Require     []string `yaml:"require"`
	AutoAdvance bool     `yaml:"auto_advance"`
	Skippable   bool     `yaml:"skippable"`
	Continue    string   `yaml:"continue"`
	Hint        string   `yaml:"hint"`
}

type Field struct {
	Key         string   `yaml:"key"`
	Label       string   `yaml:"label"`
	Placeholder string   `yaml:"placeholder"`
	Type        string   `yaml:"type"` // text | email | tel | secret | select
	Choices     []string `yaml:"choices"`
}

type Option struct {
	Value string `yaml:"value"`
	Label string `yaml:"label"`
	Hint  string `yaml:"hint"`
	Icon  string `yaml:"icon"`
	Price string `yaml:"price"`
}

// ReviewRow is one line of a review summary. Value and Else are templates
// using `{fieldKey}` placeholders; Else is rendered when If evaluates false.
type ReviewRow struct {
	Label string `yaml:"label"`
	Value string `yaml:"value"`
	If    string `yaml:"if"`
	Else  string `yaml:"else"`
	Empty string `yaml:"empty"`
	Edit  string `yaml:"edit"`
}

// Transition describes the scripted loading screen between quiz and recommendation.
type Transition struct {
	Stages  []Stage  `yaml:"stages"`
	Settle  string   `yaml:"settle"`
	Done    string   `yaml:"done"`
	Next    string   `yaml:"next"`
	Rotate  string   `yaml:"rotate"`
	Reviews []Review `yaml:"reviews"`
}

type Stage struct {
	Message  string `yaml:"message"`
	Duration string `yaml:"duration"`
}

type Review struct {
	Name     string `yaml:"name"`
	Location string `yaml:"location"`
	Rating   int    `yaml:"rating"`
	Text     string `yaml:"text"`
	When     string `yaml:"when"`
}

// Owned returns the field keys a step is the canonical editor for.
// An explicit `owns` list wins over the keys derived from field/fields.
func (s Step) Owned() []string {
	if len(s.Owns) > 0 {
		return s.Owns
	}
	var keys []string
	if s.Field != "" {
		keys = append(keys, s.Field)
	}
	for _, f := range s.Fields {
		keys = append(keys, f.Key)
	}
	return keys
}

// Loader parses a document once and caches the result, error included.
// Parse defaults to a strict YAML decode into T.
type Loader[T any] struct {
	Parse func([]byte) (T, error)

	once  sync.Once
	value T
	err   error
}

func (l *Loader[T]) Load(data []byte) (T, error) {
	l.once.Do(func() {
		parse := l.Parse
		if parse == nil {
			parse = decodeStrict[T]
		}
		l.value, l.err = parse(data)
	})
	return l.value, l.err
}

func LoadFlow(data []byte) (Flow, error) {
	flow, err := decodeStrict[Flow](data)
	if err != nil {
		return flow, err
	}
	seen := map[string]bool{}
	for _, step := range flow.Steps {
		if strings.TrimSpace(step.ID) == "" {
			return flow, fmt.Errorf("flow %s: step without id", flow.Flow)
		}
		if seen[step.ID] {
			return flow, fmt.Errorf("flow %s: duplicate step id %q", flow.Flow, step.ID)
		}
		seen[step.ID] = true
	}
	return flow, nil
}

func LoadTransition(data []byte) (Transition, error) {
	return decodeStrict[Transition](data)
}

func decodeStrict[T any](data []byte) (T, error) {
	var out T
	if len(data) == 0 {
		return out, fmt.Errorf("empty DSL data")
	}
	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

// RenderTemplate replaces every `{key}` in input with vars[key].
// Keys are applied longest first so `{postal}` never clobbers `{postalCity}`.
func RenderTemplate(input string, vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	out := input
	for _, key := range keys {
		out = strings.ReplaceAll(out, "{"+key+"}", vars[key])
	}
	return out
}

// EvaluateCondition evaluates `a && !b || c == d` style expressions.
// Bare tokens look up bools; `key == value` and `key != value` compare vars.
// An empty expression is true.
func EvaluateCondition(expr string, bools map[string]bool, vars map[string]string) bool {
	if strings.TrimSpace(expr) == "" {
		return true
	}
	parts := strings.Split(expr, "||")
	for _, part := range parts {
		if evalAnd(strings.TrimSpace(part), bools, vars) {
			return true
		}
	}
	return false
}

func evalAnd(expr string, bools map[string]bool, vars map[string]string) bool {
	parts := strings.Split(expr, "&&")
	for _, part := range parts {
		if !evalToken(strings.TrimSpace(part), bools, vars) {
			return false
		}
	}
	return true
}

func evalToken(token string, bools map[string]bool, vars map[string]string) bool {
	if token == "" {
		return false
	}
	if left, right, ok := strings.Cut(token, "!="); ok {
		return vars[strings.TrimSpace(left)] != unquote(right)
	}
	if left, right, ok := strings.Cut(token, "=="); ok {
		return vars[strings.TrimSpace(left)] == unquote(right)
	}
	negate := false
	if strings.HasPrefix(token, "!") {
		negate = true
		token = strings.TrimSpace(strings.TrimPrefix(token, "!"))
	}
	value := bools[token]
	if negate {
		return !value
	}
	return value
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func ParseDuration(input string) (time.Duration, error) {
	value := strings.TrimSpace(strings.ToLower(input))
	if value == "" {
		return 0, fmt.Errorf("invalid duration")
	}
	if strings.HasSuffix(value, "s") || strings.HasSuffix(value, "m") || strings.HasSuffix(value, "h") {
		return time.ParseDuration(value)
	}
	millis, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %s", input)
	}
	return time.Duration(millis) * time.Millisecond, nil
}

// DurationOr parses input and falls back to def when it is empty or invalid.
func DurationOr(input string, def time.Duration) time.Duration {
	d, err := ParseDuration(input)
	if err != nil || d < 0 {
		return def
	}
	return d
}

// Package flows ships the quiz and checkout wizard definitions and
// compiles them into wizard steps.
package flows

import (
	"embed"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/zdunecki/skymesh/pkg/dsl"
	"github.com/zdunecki/skymesh/pkg/transition"
	"github.com/zdunecki/skymesh/pkg/wizard"
)

//go:embed definitions/*.yaml
var definitions embed.FS

const (
	Quiz     = "quiz"
	Checkout = "checkout"
)

var ErrUnknownFlow = errors.New("unknown flow")

var (
	loadersMu sync.Mutex
	loaders   = map[string]*dsl.Loader[dsl.Flow]{}
)

// Names lists the flows that can be started.
func Names() []string { return []string{Quiz, Checkout} }

// Definition returns the parsed definition of a shipped flow.
func Definition(name string) (dsl.Flow, error) {
	if !slices.Contains(Names(), name) {
		return dsl.Flow{}, fmt.Errorf("%w: %s", ErrUnknownFlow, name)
	}
	data, err := definitions.ReadFile("definitions/" + name + ".yaml")
	if err != nil {
		return dsl.Flow{}, fmt.Errorf("read %s: %w", name, err)
	}

	loadersMu.Lock()
	l, ok := loaders[name]
	if !ok {
		l = &dsl.Loader[dsl.Flow]{Parse: dsl.LoadFlow}
		loaders[name] = l
	}
	loadersMu.Unlock()

	flow, err := l.Load(data)
	if err != nil {
		return dsl.Flow{}, fmt.Errorf("flow %s: %w", name, err)
	}
	return flow, nil
}

// Build compiles a shipped flow into a fresh engine.
func Build(name string, opts ...wizard.Option) (*wizard.Engine, error) {
	flow, err := Definition(name)
	if err != nil {
		return nil, err
	}
	return Compile(flow, time.Now(), opts...)
}

// AutoAdvanceDelay is the flow's configured delay, or the wizard default.
func AutoAdvanceDelay(flow dsl.Flow) time.Duration {
	return dsl.DurationOr(flow.AutoAdvanceDelay, wizard.DefaultAutoAdvanceDelay)
}

// Compile turns a definition into an engine. now feeds the date-of-birth
// year choices.
func Compile(flow dsl.Flow, now time.Time, opts ...wizard.Option) (*wizard.Engine, error) {
	keys := fieldKeys(flow)
	secrets := SecretKeys(flow)

	steps := make([]wizard.Step, 0, len(flow.Steps))
	for _, s := range flow.Steps {
		step, err := compileStep(s, keys, now)
		if err != nil {
			return nil, fmt.Errorf("flow %s: %w", flow.Flow, err)
		}
		steps = append(steps, step)
	}

	rows := make([]wizard.ReviewRow, 0, len(flow.Review))
	for _, r := range flow.Review {
		rows = append(rows, compileRow(r, keys, secrets))
	}

	e, err := wizard.New(steps, append([]wizard.Option{wizard.WithReview(rows...)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("flow %s: %w", flow.Flow, err)
	}
	return e, nil
}

func compileStep(s dsl.Step, keys []string, now time.Time) (wizard.Step, error) {
	kind := wizard.Kind(s.Kind)
	switch kind {
	case wizard.KindChoice, wizard.KindMulti:
		if s.Field == "" {
			return wizard.Step{}, fmt.Errorf("step %s: %s step needs a field", s.ID, kind)
		}
		if len(s.Options) == 0 {
			return wizard.Step{}, fmt.Errorf("step %s: %s step needs options", s.ID, kind)
		}
	case wizard.KindText, wizard.KindReview:
	default:
		return wizard.Step{}, fmt.Errorf("step %s: unknown kind %q", s.ID, s.Kind)
	}

	step := wizard.Step{
		ID:            s.ID,
		Title:         s.Title,
		Subtitle:      s.Subtitle,
		Kind:          kind,
		Field:         s.Field,
		Owns:          s.Owned(),
		AutoAdvance:   s.AutoAdvance,
		Skippable:     s.Skippable,
		ContinueLabel: s.Continue,
		Hint:          s.Hint,
	}
	for _, o := range s.Options {
		step.Options = append(step.Options, wizard.Choice(o))
	}
	for _, f := range s.Fields {
		step.Fields = append(step.Fields, compileField(f, now))
	}
	if strings.TrimSpace(s.If) != "" {
		step.Visible = condition(s.If, keys)
	}
	var emails []string
	for _, f := range s.Fields {
		if f.Type == "email" {
			emails = append(emails, f.Key)
		}
	}
	if len(s.Require) > 0 || len(emails) > 0 {
		filled := wizard.RequireFilled(s.Require...)
		step.Valid = func(a wizard.Answers) bool {
			if !filled(a) {
				return false
			}
			for _, k := range emails {
				if a.Filled(k) && !ValidEmail(a.String(k)) {
					return false
				}
			}
			return true
		}
	}
	return step, nil
}

var emailShape = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidEmail checks that an address has the local@domain.tld shape.
func ValidEmail(s string) bool {
	return emailShape.MatchString(strings.TrimSpace(s))
}

var months = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// Birth years offered run from 18 to 107 years ago.
const (
	minAge    = 18
	yearRange = 90
)

func compileField(f dsl.Field, now time.Time) wizard.Field {
	out := wizard.Field(f)
	switch f.Type {
	case "day":
		out.Choices = make([]string, 0, 31)
		for d := 1; d <= 31; d++ {
			out.Choices = append(out.Choices, strconv.Itoa(d))
		}
	case "month":
		out.Choices = slices.Clone(months)
	case "birthyear":
		out.Choices = make([]string, 0, yearRange)
		for i := 0; i < yearRange; i++ {
			out.Choices = append(out.Choices, strconv.Itoa(now.Year()-minAge-i))
		}
	}
	return out
}

var placeholder = regexp.MustCompile(`\{(\w+)\}`)

// fieldKeys lists every key a flow mentions so templates and conditions
// see blanks instead of raw placeholders for unanswered fields.
func fieldKeys(flow dsl.Flow) []string {
	var keys []string
	for _, s := range flow.Steps {
		keys = append(keys, s.Owned()...)
		keys = append(keys, s.Require...)
	}
	for _, r := range flow.Review {
		for _, m := range placeholder.FindAllStringSubmatch(r.Value+" "+r.Else, -1) {
			keys = append(keys, m[1])
		}
	}
	slices.Sort(keys)
	return slices.Compact(keys)
}

func vars(a wizard.Answers, keys []string) map[string]string {
	out := a.Vars()
	for _, k := range keys {
		if _, ok := out[k]; !ok {
			out[k] = ""
		}
	}
	return out
}

func condition(expr string, keys []string) wizard.Predicate {
	return func(a wizard.Answers) bool {
		return dsl.EvaluateCondition(expr, a.Bools(), vars(a, keys))
	}
}

// SecretKeys lists the keys of fields typed secret.
func SecretKeys(flow dsl.Flow) []string {
	var out []string
	for _, s := range flow.Steps {
		for _, f := range s.Fields {
			if f.Type == "secret" {
				out = append(out, f.Key)
			}
		}
	}
	return out
}

// MaskSecret keeps the last four characters of a secret, ignoring spaces.
func MaskSecret(value string) string {
	compact := strings.Join(strings.Fields(value), "")
	if compact == "" {
		return ""
	}
	if len(compact) <= 4 {
		return "•••• " + compact
	}
	return "•••• " + compact[len(compact)-4:]
}

// Redact copies a with every secret value masked.
func Redact(a wizard.Answers, secrets []string) wizard.Answers {
	out := a.Clone()
	for _, k := range secrets {
		if v := out.String(k); v != "" {
			out[k] = MaskSecret(v)
		}
	}
	return out
}

func compileRow(r dsl.ReviewRow, keys, secrets []string) wizard.ReviewRow {
	return wizard.ReviewRow{
		Label: r.Label,
		Edit:  r.Edit,
		Value: func(a wizard.Answers) string {
			v := vars(Redact(a, secrets), keys)
			tmpl := r.Value
			if r.If != "" && !dsl.EvaluateCondition(r.If, a.Bools(), v) {
				tmpl = r.Else
			}
			out := strings.Join(strings.Fields(dsl.RenderTemplate(tmpl, v)), " ")
			if out == "" {
				return r.Empty
			}
			return out
		},
	}
}

// Analyzing is the scripted loading screen definition.
type Analyzing struct {
	Script  transition.Script
	Done    string
	Rotate  time.Duration
	Reviews []transition.Review
}

var analyzingLoader dsl.Loader[dsl.Transition]

// LoadAnalyzing parses the shipped analyzing definition. Missing or bad
// durations fall back to the transition defaults.
func LoadAnalyzing() (Analyzing, error) {
	data, err := definitions.ReadFile("definitions/analyzing.yaml")
	if err != nil {
		return Analyzing{}, fmt.Errorf("read analyzing: %w", err)
	}
	def, err := analyzingLoader.Load(data)
	if err != nil {
		return Analyzing{}, fmt.Errorf("analyzing: %w", err)
	}

	out := Analyzing{
		Script: transition.Script{
			Settle: dsl.DurationOr(def.Settle, transition.DefaultSettle),
			Next:   def.Next,
		},
		Done:   def.Done,
		Rotate: dsl.DurationOr(def.Rotate, transition.DefaultRotate),
	}
	if out.Script.Next == "" {
		out.Script.Next = transition.DefaultNext
	}
	for _, st := range def.Stages {
		d, err := dsl.ParseDuration(st.Duration)
		if err != nil {
			return Analyzing{}, fmt.Errorf("analyzing stage %q: %w", st.Message, err)
		}
		out.Script.Stages = append(out.Script.Stages, transition.Stage{Message: st.Message, Duration: d})
	}
	if len(out.Script.Stages) == 0 {
		out.Script.Stages = transition.DefaultStages()
	}
	for _, r := range def.Reviews {
		out.Reviews = append(out.Reviews, transition.Review(r))
	}
	return out, nil
}

package cli

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zdunecki/skymesh/pkg/wizard"
)

// control is the interactive body of one step.
type control interface {
	// update handles a message. It reports whether the message was fully
	// consumed; an unconsumed enter submits the step.
	update(msg tea.Msg, s *stepScreen) (tea.Cmd, bool)
	view(s *stepScreen) string
	resize(width, height int)
	// modal reports whether the control holds an overlay that captures
	// every key, esc included.
	modal() bool
	help() []string
}

type controlFactory func(s *stepScreen, v wizard.View) control

// Registry maps steps to the controls that render them. A step id entry
// wins over the kind entry.
type Registry struct {
	byID   map[string]controlFactory
	byKind map[wizard.Kind]controlFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		byID:   make(map[string]controlFactory),
		byKind: make(map[wizard.Kind]controlFactory),
	}
	r.byKind[wizard.KindChoice] = newChoiceControl
	r.byKind[wizard.KindMulti] = newMultiControl
	r.byKind[wizard.KindText] = newFormControl
	r.byKind[wizard.KindReview] = newReviewControl
	r.byID["router"] = newPricedChoiceControl
	return r
}

func (r *Registry) RegisterStep(id string, f controlFactory) { r.byID[id] = f }

func (r *Registry) RegisterKind(k wizard.Kind, f controlFactory) { r.byKind[k] = f }

func (r *Registry) lookup(v wizard.View) controlFactory {
	if f, ok := r.byID[v.ID]; ok {
		return f
	}
	if f, ok := r.byKind[v.Kind]; ok {
		return f
	}
	return newFormControl
}

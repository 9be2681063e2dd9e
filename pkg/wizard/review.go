package wizard

import "slices"

// RowView is a rendered review row.
type RowView struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Edit  string `json:"edit,omitempty"`
	Owner string `json:"owner,omitempty"`
}

// ReviewRows renders the review summary against the current answers.
func (e *Engine) ReviewRows() []RowView {
	out := make([]RowView, 0, len(e.review))
	for _, row := range e.review {
		rv := RowView{Label: row.Label, Edit: row.Edit}
		if row.Value != nil {
			rv.Value = row.Value(e.answers)
		}
		if owner, ok := e.Owner(row.Edit); ok {
			rv.Owner = owner.ID
		}
		out = append(out, rv)
	}
	return out
}

// Draft is a detached copy of some answers, edited in an overlay. Nothing
// reaches the engine until Commit, which applies every draft value in one
// mutation. Cancel drops the copy. Both close the draft; a closed draft
// ignores further calls.
type Draft struct {
	engine *Engine
	keys   []string
	values Answers
	closed bool
}

// OpenDraft copies the given keys into a new draft.
func (e *Engine) OpenDraft(keys ...string) *Draft {
	d := &Draft{engine: e, keys: slices.Clone(keys), values: make(Answers, len(keys))}
	for _, k := range keys {
		if v, ok := e.answers[k]; ok {
			nv, _ := normalize(v)
			d.values[k] = nv
		}
	}
	return d
}

// OpenDraftFor opens a draft over every key owned by the step owning key.
// It returns nil for keys nobody owns.
func (e *Engine) OpenDraftFor(key string) *Draft {
	owner, ok := e.Owner(key)
	if !ok {
		return nil
	}
	return e.OpenDraft(owner.Owns...)
}

// Keys lists the fields the draft covers.
func (d *Draft) Keys() []string { return slices.Clone(d.keys) }

// Set edits the draft copy. Keys outside the draft are ignored.
func (d *Draft) Set(key string, value any) {
	if d.closed || !slices.Contains(d.keys, key) {
		return
	}
	nv, ok := normalize(value)
	if !ok {
		delete(d.values, key)
		return
	}
	d.values[key] = nv
}

func (d *Draft) Values() Answers { return d.values.Clone() }

func (d *Draft) String(key string) string { return d.values.String(key) }

func (d *Draft) Open() bool { return !d.closed }

// Commit copies the draft into the engine's answers. Keys cleared in the
// draft are cleared in the engine too.
func (d *Draft) Commit() bool {
	if d.closed {
		return false
	}
	d.closed = true
	values := make(Answers, len(d.keys))
	for _, k := range d.keys {
		values[k] = d.values[k]
	}
	d.engine.SetFields(values)
	return true
}

func (d *Draft) Cancel() {
	d.closed = true
	d.values = nil
}

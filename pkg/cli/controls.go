package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/zdunecki/skymesh/pkg/wizard"
)

// choiceControl renders a single-choice step. Enter records the
// highlighted option; steps that auto-advance move on through the driver's
// timer, the rest advance straight away.
type choiceControl struct {
	list  list.Model
	field string
	auto  bool
}

func choiceItems(opts []wizard.Choice, desc func(wizard.Choice) string) []list.Item {
	items := make([]list.Item, 0, len(opts))
	for _, o := range opts {
		title := o.Label
		if o.Icon != "" {
			title = o.Icon + "  " + title
		}
		items = append(items, optionItem{title: title, desc: desc(o), value: o.Value})
	}
	return items
}

func buildChoiceControl(s *stepScreen, v wizard.View, desc func(wizard.Choice) string) control {
	c := &choiceControl{
		list:  newList("", choiceItems(v.Options, desc)),
		field: v.Field,
		auto:  v.AutoAdvance,
	}
	current := s.driver.Answers().String(v.Field)
	for i, o := range v.Options {
		if o.Value == current {
			c.list.Select(i)
		}
	}
	c.resize(s.width, s.height)
	return c
}

func newChoiceControl(s *stepScreen, v wizard.View) control {
	return buildChoiceControl(s, v, func(o wizard.Choice) string { return o.Hint })
}

func newPricedChoiceControl(s *stepScreen, v wizard.View) control {
	return buildChoiceControl(s, v, func(o wizard.Choice) string {
		if o.Price == "" {
			return o.Hint
		}
		if o.Hint == "" {
			return o.Price
		}
		return o.Price + " · " + o.Hint
	})
}

func (c *choiceControl) update(msg tea.Msg, s *stepScreen) (tea.Cmd, bool) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEnter {
		item, ok := c.list.SelectedItem().(optionItem)
		if !ok {
			return nil, true
		}
		s.driver.Set(c.field, item.value)
		if !c.auto {
			s.advance()
		}
		return nil, true
	}
	var cmd tea.Cmd
	c.list, cmd = c.list.Update(msg)
	return cmd, false
}

func (c *choiceControl) view(s *stepScreen) string {
	out := c.list.View()
	if picked := s.driver.Answers().String(c.field); picked != "" && c.auto {
		out += "\n" + styleSummary.Render("Selected: "+picked)
	}
	return out
}

func (c *choiceControl) resize(width, height int) { fitList(&c.list, width, height, 8) }

func (c *choiceControl) modal() bool { return false }

func (c *choiceControl) help() []string {
	return []string{"Use ↑/↓ to move", "Enter to select"}
}

// multiControl renders a multi-select step. Space toggles, enter continues.
type multiControl struct {
	list    list.Model
	field   string
	options []wizard.Choice
}

func newMultiControl(s *stepScreen, v wizard.View) control {
	c := &multiControl{field: v.Field, options: v.Options}
	c.list = newList("", c.items(s.driver.Answers()))
	c.resize(s.width, s.height)
	return c
}

func (c *multiControl) items(a wizard.Answers) []list.Item {
	picked := a.List(c.field)
	return choiceItems(c.options, func(o wizard.Choice) string {
		mark := "[ ]"
		if slices.Contains(picked, o.Value) {
			mark = "[x]"
		}
		if o.Hint == "" {
			return mark
		}
		return mark + " " + o.Hint
	})
}

func (c *multiControl) update(msg tea.Msg, s *stepScreen) (tea.Cmd, bool) {
	if key, ok := msg.(tea.KeyMsg); ok && (key.String() == " " || key.String() == "space") {
		item, ok := c.list.SelectedItem().(optionItem)
		if !ok {
			return nil, true
		}
		s.driver.Toggle(c.field, item.value)
		return c.list.SetItems(c.items(s.driver.Answers())), true
	}
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEnter {
		return nil, false
	}
	var cmd tea.Cmd
	c.list, cmd = c.list.Update(msg)
	return cmd, false
}

func (c *multiControl) view(s *stepScreen) string {
	out := c.list.View()
	picked := s.driver.Answers().List(c.field)
	if len(picked) > 0 {
		out += "\n" + styleSummary.Render("Selected: "+strings.Join(picked, ", "))
	}
	return out
}

func (c *multiControl) resize(width, height int) { fitList(&c.list, width, height, 9) }

func (c *multiControl) modal() bool { return false }

func (c *multiControl) help() []string {
	return []string{"Use ↑/↓ to move", "Space to toggle", "Enter to continue"}
}

// form edits a set of fields through setter. Fields with fixed choices are
// cycled with ←/→ instead of typed.
type form struct {
	fields []wizard.Field
	inputs []textinput.Model
	picks  []int
	focus  int
	set    func(key string, value any)
}

func newForm(fields []wizard.Field, values wizard.Answers, width int, set func(string, any)) *form {
	f := &form{
		fields: fields,
		inputs: make([]textinput.Model, len(fields)),
		picks:  make([]int, len(fields)),
		set:    set,
	}
	for i, field := range fields {
		current := values.String(field.Key)
		if len(field.Choices) > 0 {
			f.picks[i] = slices.Index(field.Choices, current)
			continue
		}
		in := newInput(field.Placeholder, width)
		if field.Type == "secret" {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		in.SetValue(current)
		in.CursorEnd()
		f.inputs[i] = in
	}
	f.focusOn(0)
	return f
}

func (f *form) focusOn(i int) {
	if len(f.fields) == 0 {
		return
	}
	if i < 0 {
		i = 0
	}
	if i > len(f.fields)-1 {
		i = len(f.fields) - 1
	}
	f.focus = i
	for j := range f.inputs {
		if len(f.fields[j].Choices) > 0 {
			continue
		}
		if j == i {
			f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
}

func (f *form) onLast() bool { return f.focus >= len(f.fields)-1 }

// update returns true when enter was pressed on the last field.
func (f *form) update(msg tea.Msg) (tea.Cmd, bool) {
	if len(f.fields) == 0 {
		key, ok := msg.(tea.KeyMsg)
		return nil, ok && key.Type == tea.KeyEnter
	}
	field := f.fields[f.focus]
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab", "down":
			f.focusOn(f.focus + 1)
			return nil, false
		case "shift+tab", "up":
			f.focusOn(f.focus - 1)
			return nil, false
		case "enter":
			if f.onLast() {
				return nil, true
			}
			f.focusOn(f.focus + 1)
			return nil, false
		}
		if len(field.Choices) > 0 {
			switch key.String() {
			case "left", "h":
				f.cycle(-1)
			case "right", "l":
				f.cycle(1)
			}
			return nil, false
		}
	}
	if len(field.Choices) > 0 {
		return nil, false
	}
	before := f.inputs[f.focus].Value()
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	if after := f.inputs[f.focus].Value(); after != before {
		if strings.TrimSpace(after) == "" {
			f.set(field.Key, nil)
		} else {
			f.set(field.Key, after)
		}
	}
	return cmd, false
}

func (f *form) cycle(delta int) {
	choices := f.fields[f.focus].Choices
	n := len(choices)
	next := f.picks[f.focus] + delta
	if f.picks[f.focus] < 0 && delta < 0 {
		next = n - 1
	}
	next = ((next % n) + n) % n
	f.picks[f.focus] = next
	f.set(f.fields[f.focus].Key, choices[next])
}

func (f *form) view() string {
	var b strings.Builder
	for i, field := range f.fields {
		label := styleSubtitle.Render(field.Label)
		if i == f.focus {
			label = styleHighlight.Render(field.Label)
		}
		b.WriteString(label + "\n")
		if len(field.Choices) > 0 {
			value := field.Placeholder
			if value == "" {
				value = "Select"
			}
			if p := f.picks[i]; p >= 0 {
				value = field.Choices[p]
			}
			b.WriteString(stylePrompt.Render("‹ ") + value + stylePrompt.Render(" ›") + "\n\n")
			continue
		}
		b.WriteString(f.inputs[i].View() + "\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (f *form) resize(width int) {
	for i := range f.inputs {
		if len(f.fields[i].Choices) == 0 && width > 0 {
			f.inputs[i].Width = width - 4
		}
	}
}

// formControl renders a text step over the engine's answers.
type formControl struct {
	form *form
}

func newFormControl(s *stepScreen, v wizard.View) control {
	fields := v.Fields
	if len(fields) == 0 && v.Field != "" {
		fields = []wizard.Field{{Key: v.Field, Label: v.Title}}
	}
	return &formControl{form: newForm(fields, s.driver.Answers(), s.width, func(k string, val any) {
		s.driver.Set(k, val)
	})}
}

func (c *formControl) update(msg tea.Msg, s *stepScreen) (tea.Cmd, bool) {
	cmd, submit := c.form.update(msg)
	return cmd, !submit
}

func (c *formControl) view(s *stepScreen) string { return c.form.view() }

func (c *formControl) resize(width, height int) { c.form.resize(width) }

func (c *formControl) modal() bool { return false }

func (c *formControl) help() []string {
	return []string{"Tab/↑/↓ to move between fields", "←/→ to pick", "Enter to continue"}
}

// choiceFields turns a choice step into a one-field form so the review
// overlay can edit it.
func choiceFields(step wizard.Step) []wizard.Field {
	if len(step.Fields) > 0 {
		return step.Fields
	}
	if step.Field == "" {
		return nil
	}
	field := wizard.Field{Key: step.Field, Label: step.Title}
	for _, o := range step.Options {
		field.Choices = append(field.Choices, o.Value)
	}
	return []wizard.Field{field}
}

func describeValue(v string) string {
	if v == "" {
		return styleSubtitle.Render("not set")
	}
	return v
}

func rowLine(label, value string, selected bool) string {
	line := fmt.Sprintf("%-16s %s", label+":", describeValue(value))
	if selected {
		return styleHighlight.Render("› ") + line
	}
	return "  " + line
}

package cli

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zdunecki/skymesh/pkg/wizard"
)

// reviewControl lists the review rows. e jumps to the row's owning step;
// m edits it in an overlay without leaving the review.
type reviewControl struct {
	cursor  int
	overlay *draftOverlay
}

type draftOverlay struct {
	title string
	form  *form
}

func newReviewControl(s *stepScreen, v wizard.View) control {
	return &reviewControl{}
}

func (c *reviewControl) rows(s *stepScreen) []wizard.RowView {
	return s.driver.ReviewRows()
}

func (c *reviewControl) update(msg tea.Msg, s *stepScreen) (tea.Cmd, bool) {
	if c.overlay != nil {
		return c.updateOverlay(msg, s), true
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil, true
	}
	rows := c.rows(s)
	switch key.String() {
	case "up", "k":
		if c.cursor > 0 {
			c.cursor--
		}
	case "down", "j":
		if c.cursor < len(rows)-1 {
			c.cursor++
		}
	case "e":
		if row, ok := c.selected(rows); ok {
			s.driver.Edit(row.Edit)
		}
	case "m":
		if row, ok := c.selected(rows); ok {
			c.openOverlay(s, row)
		}
	case "enter":
		return nil, false
	}
	return nil, true
}

func (c *reviewControl) selected(rows []wizard.RowView) (wizard.RowView, bool) {
	if c.cursor < 0 || c.cursor >= len(rows) || rows[c.cursor].Edit == "" {
		return wizard.RowView{}, false
	}
	return rows[c.cursor], true
}

func (c *reviewControl) openOverlay(s *stepScreen, row wizard.RowView) {
	values, ok := s.driver.OpenDraft(row.Edit)
	if !ok {
		return
	}
	step, ok := s.driver.Step(row.Owner)
	if !ok {
		s.driver.CancelDraft()
		return
	}
	c.overlay = &draftOverlay{
		title: "Edit " + row.Label,
		form: newForm(choiceFields(step), values, s.width/2, func(k string, v any) {
			s.driver.SetDraft(k, v)
		}),
	}
}

func (c *reviewControl) updateOverlay(msg tea.Msg, s *stepScreen) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" {
		s.driver.CancelDraft()
		c.overlay = nil
		return nil
	}
	cmd, submit := c.overlay.form.update(msg)
	if submit {
		s.driver.CommitDraft()
		c.overlay = nil
	}
	return cmd
}

func (c *reviewControl) view(s *stepScreen) string {
	rows := c.rows(s)
	lines := make([]string, 0, len(rows))
	for i, row := range rows {
		lines = append(lines, rowLine(row.Label, row.Value, i == c.cursor))
	}
	out := styleSummary.Render(strings.Join(lines, "\n"))
	if c.overlay != nil {
		box := styleTitle.Render(c.overlay.title) + "\n\n" + c.overlay.form.view() + "\n\n" +
			footer("Enter to save", "Esc to cancel")
		out += "\n\n" + styleModal.Render(box)
	}
	return out
}

func (c *reviewControl) resize(width, height int) {
	if c.overlay != nil {
		c.overlay.form.resize(width / 2)
	}
}

func (c *reviewControl) modal() bool { return c.overlay != nil }

func (c *reviewControl) help() []string {
	if c.overlay != nil {
		return nil
	}
	return []string{"Use ↑/↓ to pick a row", "e to go back and edit", "m to edit here", "Enter to confirm"}
}

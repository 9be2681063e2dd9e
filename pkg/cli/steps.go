package cli

import (
	"fmt"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/zdunecki/skymesh/pkg/wizard"
)

// viewChangedMsg tells a step screen the driver moved on its own.
type viewChangedMsg struct{}

// finishFunc turns a completed wizard into the next route.
type finishFunc func(wizard.Answers) (route, error)

// stepScreen hosts one wizard.Driver. Auto-advances arrive from the
// driver's timer goroutine through changes.
type stepScreen struct {
	flow     string
	driver   *wizard.Driver
	registry *Registry
	finish   finishFunc
	back     route

	view    wizard.View
	control control
	notice  string

	changes   chan struct{}
	closed    chan struct{}
	closeOnce sync.Once

	width  int
	height int
	next   route
}

func newStepScreen(flow string, e *wizard.Engine, reg *Registry, opts []wizard.DriverOption, finish finishFunc, back route) *stepScreen {
	s := &stepScreen{
		flow:     flow,
		registry: reg,
		finish:   finish,
		back:     back,
		changes:  make(chan struct{}, 1),
		closed:   make(chan struct{}),
		next:     route{screen: screenExit},
	}
	opts = append(opts, wizard.WithName(flow), wizard.WithOnChange(func(wizard.View) {
		select {
		case s.changes <- struct{}{}:
		default:
		}
	}))
	s.driver = wizard.NewDriver(e, opts...)
	s.sync()
	return s
}

func (s *stepScreen) route() route { return s.next }

func (s *stepScreen) Init() tea.Cmd { return s.listen() }

func (s *stepScreen) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-s.changes:
			return viewChangedMsg{}
		case <-s.closed:
			return nil
		}
	}
}

// sync re-reads the driver and swaps the control when the step changed.
func (s *stepScreen) sync() {
	v := s.driver.View()
	if s.control == nil || v.ID != s.view.ID {
		s.control = s.registry.lookup(v)(s, v)
		s.notice = ""
	}
	s.view = v
}

func (s *stepScreen) advance() {
	before := s.driver.View().ID
	if v := s.driver.Advance(); v.ID == before && !v.IsLast {
		s.notice = "Complete this step to continue."
	}
}

func (s *stepScreen) exit(next route) (tea.Model, tea.Cmd) {
	s.next = next
	s.close()
	return s, tea.Quit
}

func (s *stepScreen) close() {
	s.closeOnce.Do(func() {
		s.driver.Close()
		close(s.closed)
	})
}

func (s *stepScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.control.resize(msg.Width, msg.Height)
		return s, nil
	case viewChangedMsg:
		s.sync()
		return s, s.listen()
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return s.exit(route{screen: screenExit})
		}
		if !s.control.modal() {
			switch msg.String() {
			case "esc":
				if s.view.IsFirst {
					return s.exit(s.back)
				}
				s.driver.Retreat()
				s.sync()
				return s, nil
			case "ctrl+n":
				if s.view.Skippable {
					s.driver.Advance()
					s.sync()
				}
				return s, nil
			}
		}
	}

	cmd, handled := s.control.update(msg, s)
	s.sync()
	if handled {
		return s, cmd
	}
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEnter {
		return s.submit()
	}
	return s, cmd
}

// submit continues past the active step, finishing on the last one.
func (s *stepScreen) submit() (tea.Model, tea.Cmd) {
	if !s.view.IsLast {
		s.advance()
		s.sync()
		return s, nil
	}
	if _, ok := s.driver.CheckFinish(); !ok {
		s.sync()
		s.notice = "Complete this step to continue."
		return s, nil
	}
	next, err := s.finish(s.driver.Answers())
	if err != nil {
		zap.L().Warn("wizard finish failed", zap.String("flow", s.flow), zap.Error(err))
		s.notice = err.Error()
		return s, nil
	}
	zap.L().Info("wizard finished", zap.String("flow", s.flow))
	return s.exit(next)
}

func (s *stepScreen) View() string {
	var b strings.Builder
	mark := "›"
	if s.view.Direction == wizard.Backward {
		mark = "‹"
	}
	b.WriteString(styleSubtitle.Render(fmt.Sprintf("%s Step %d of %d", mark, s.view.Position+1, s.view.Total)))
	b.WriteString("\n" + progressBar(s.view.ProgressPercent) + "\n\n")
	b.WriteString(styleTitle.Render(s.view.Title) + "\n")
	if s.view.Subtitle != "" {
		b.WriteString(styleSubtitle.Render(s.view.Subtitle) + "\n")
	}
	b.WriteString("\n" + s.control.view(s) + "\n")
	if s.view.Hint != "" {
		b.WriteString("\n" + styleSubtitle.Render(s.view.Hint) + "\n")
	}
	if s.notice != "" {
		b.WriteString("\n" + styleError.Render(s.notice) + "\n")
	}
	if s.control.modal() {
		return b.String()
	}

	hints := s.control.help()
	if s.view.ContinueLabel != "" && s.view.Kind != wizard.KindChoice {
		hints = append(hints, fmt.Sprintf("Enter: %s", s.view.ContinueLabel))
	}
	if s.view.Skippable {
		hints = append(hints, "ctrl+n to skip")
	}
	hints = append(hints, "Esc to go back", "ctrl+c to quit")
	b.WriteString("\n" + footer(hints...))
	return b.String()
}

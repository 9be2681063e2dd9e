package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/zdunecki/skymesh/pkg/checkout"
	"github.com/zdunecki/skymesh/pkg/flows"
	"github.com/zdunecki/skymesh/pkg/recommend"
	"github.com/zdunecki/skymesh/pkg/transition"
)

// homeScreen is the landing menu.
type homeScreen struct {
	list   list.Model
	width  int
	height int
	next   route
}

func newHomeScreen() *homeScreen {
	items := []list.Item{
		optionItem{title: "Find my plan", desc: "Three quick questions and we'll match you to a plan", value: "quiz"},
		optionItem{title: "Compare plans", desc: "See every Skymesh plan side by side", value: "plans"},
		optionItem{title: "Quit", desc: "Leave Skymesh", value: "quit"},
	}
	return &homeScreen{list: newList("Skymesh internet", items), next: route{screen: screenExit}}
}

func (m *homeScreen) route() route { return m.next }

func (m *homeScreen) Init() tea.Cmd { return nil }

func (m *homeScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		fitList(&m.list, m.width, m.height, 4)
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "enter":
			item, ok := m.list.SelectedItem().(optionItem)
			if !ok {
				return m, nil
			}
			switch item.value {
			case "quiz":
				m.next = route{screen: screenQuiz}
			case "plans":
				m.next = route{screen: screenPlans}
			}
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *homeScreen) View() string {
	return m.list.View() + "\n\n" + footer("Use ↑/↓ to move", "Enter to select", "q to quit")
}

type stageMsg transition.Event

type rotateMsg int

// analyzingScreen plays the scripted loading sequence and rotates customer
// reviews until the sequence navigates.
type analyzingScreen struct {
	def      flows.Analyzing
	speed    float64
	spinner  spinner.Model
	seq      *transition.Sequence
	carousel *transition.Carousel
	events   chan transition.Event
	rotated  chan int
	closed   chan struct{}
	last     transition.Event
	review   int
	finished bool
	next     route
}

func newAnalyzingScreen(def flows.Analyzing, speed float64) *analyzingScreen {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styleHighlight
	return &analyzingScreen{
		def:     def,
		speed:   speed,
		spinner: sp,
		// Stage events plus the final navigate; emit never blocks.
		events:  make(chan transition.Event, len(def.Script.Stages)+1),
		rotated: make(chan int, 1),
		closed:  make(chan struct{}),
		next:    route{screen: screenExit},
	}
}

func (m *analyzingScreen) route() route { return m.next }

func (m *analyzingScreen) Init() tea.Cmd {
	script := m.def.Script.Scaled(m.speed)
	m.seq = transition.Start(script, func(ev transition.Event) { m.events <- ev })
	m.carousel = transition.NewCarousel(len(m.def.Reviews), m.def.Rotate, func(i int) {
		select {
		case m.rotated <- i:
		default:
		}
	})
	zap.L().Debug("analyzing started", zap.Duration("total", script.Total()))
	return tea.Batch(m.spinner.Tick, m.waitEvent(), m.waitRotate())
}

func (m *analyzingScreen) waitEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-m.events:
			return stageMsg(ev)
		case <-m.closed:
			return nil
		}
	}
}

func (m *analyzingScreen) waitRotate() tea.Cmd {
	return func() tea.Msg {
		select {
		case i := <-m.rotated:
			return rotateMsg(i)
		case <-m.closed:
			return nil
		}
	}
}

func (m *analyzingScreen) close() {
	if m.finished {
		return
	}
	m.finished = true
	if m.seq != nil {
		m.seq.Cancel()
	}
	if m.carousel != nil {
		m.carousel.Cancel()
	}
	close(m.closed)
}

func (m *analyzingScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.close()
			return m, tea.Quit
		case "esc":
			m.close()
			m.next = route{screen: screenQuiz}
			return m, tea.Quit
		}
	case stageMsg:
		m.last = transition.Event(msg)
		if m.last.Kind == transition.EventNavigate {
			m.close()
			m.next = route{screen: screenRecommended}
			return m, tea.Quit
		}
		return m, m.waitEvent()
	case rotateMsg:
		m.review = int(msg)
		return m, m.waitRotate()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *analyzingScreen) View() string {
	var b strings.Builder
	stages := m.def.Script.Stages
	b.WriteString(styleTitle.Render("Finding your plan") + "\n\n")
	for i, st := range stages {
		switch {
		case i < m.last.Stage:
			b.WriteString(stylePrompt.Render("✓ ") + st.Message + "\n")
		case i == m.last.Stage:
			b.WriteString(m.spinner.View() + " " + styleHighlight.Render(st.Message) + "\n")
		default:
			b.WriteString(styleSubtitle.Render("· "+st.Message) + "\n")
		}
	}
	if m.last.Stage >= len(stages) && m.def.Done != "" {
		b.WriteString("\n" + styleSummary.Render(m.def.Done) + "\n")
	}
	b.WriteString("\n" + progressBar(m.last.Progress) + "\n")

	if len(m.def.Reviews) > 0 {
		r := m.def.Reviews[m.review%len(m.def.Reviews)]
		stars := strings.Repeat("★", r.Rating) + strings.Repeat("☆", 5-r.Rating)
		quote := styleHighlight.Render(stars) + "\n" + r.Text + "\n" +
			styleSubtitle.Render(fmt.Sprintf("%s, %s · %s", r.Name, r.Location, r.When))
		b.WriteString("\n" + lipgloss.NewStyle().Width(60).Render(quote) + "\n")
	}
	b.WriteString("\n" + footer("Esc to change your answers", "q to quit"))
	return b.String()
}

// recommendedScreen shows the plan derived from the stored quiz snapshot.
type recommendedScreen struct {
	rec  recommend.Recommendation
	next route
}

func newRecommendedScreen(ctx context.Context, kv recommend.KV, key string) *recommendedScreen {
	snap, err := recommend.Restore(ctx, kv, key)
	if err != nil {
		zap.L().Debug("using default quiz snapshot", zap.Error(err))
	}
	return &recommendedScreen{rec: recommend.Derive(snap), next: route{screen: screenExit}}
}

func (m *recommendedScreen) route() route { return m.next }

func (m *recommendedScreen) Init() tea.Cmd { return nil }

func (m *recommendedScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "enter":
			m.next = route{screen: screenCheckout, plan: m.rec.Plan.Name}
			return m, tea.Quit
		case "p":
			m.next = route{screen: screenPlans, plan: m.rec.Plan.ID}
			return m, tea.Quit
		case "r":
			m.next = route{screen: screenQuiz}
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *recommendedScreen) View() string {
	p := m.rec.Plan
	var b strings.Builder
	b.WriteString(styleSubtitle.Render("We recommend") + "\n")
	b.WriteString(styleTitle.Render(p.Name) + "  " + styleTag.Render(strings.Join(m.rec.Tags, " · ")) + "\n\n")
	b.WriteString(lipgloss.NewStyle().Width(70).Render(m.rec.Sentence) + "\n\n")
	b.WriteString(styleSummary.Render(planDetails(p)) + "\n\n")
	b.WriteString(footer("Enter to choose this plan", "p to compare plans", "r to retake the quiz", "q to quit"))
	return b.String()
}

func planDetails(p recommend.Plan) string {
	lines := []string{
		fmt.Sprintf("Price:       %s/mo for %d months, then %s/mo", p.Intro, p.IntroMonths, p.Ongoing),
		fmt.Sprintf("Speed:       %d/%d Mbps", p.DownloadMbps, p.UploadMbps),
		fmt.Sprintf("Ideal for:   %s", p.Ideal),
	}
	return strings.Join(lines, "\n")
}

// plansScreen lists the catalogue and marks the plan the recommendation
// screen passed along, if any.
type plansScreen struct {
	list   list.Model
	match  string
	width  int
	height int
	next   route
}

func newPlansScreen(match string) *plansScreen {
	if p, ok := recommend.PlanByID(match); ok {
		match = p.ID
	}
	plans := recommend.Catalogue()
	items := make([]list.Item, 0, len(plans))
	for _, p := range plans {
		title := p.Name
		if p.ID == match {
			title += "  " + styleTag.Render("Your match")
		} else if p.Popular {
			title += "  " + styleTag.Render("Popular")
		}
		desc := fmt.Sprintf("%s/mo · %d/%d Mbps · %s", p.Intro, p.DownloadMbps, p.UploadMbps, p.Fit)
		items = append(items, optionItem{title: title, desc: desc, value: p.Name})
	}
	m := &plansScreen{list: newList("Compare plans", items), match: match, next: route{screen: screenExit}}
	for i, p := range plans {
		if p.ID == match {
			m.list.Select(i)
		}
	}
	return m
}

func (m *plansScreen) route() route { return m.next }

func (m *plansScreen) Init() tea.Cmd { return nil }

func (m *plansScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		fitList(&m.list, m.width, m.height, 4)
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "esc":
			m.next = route{screen: screenHome}
			return m, tea.Quit
		case "enter":
			item, ok := m.list.SelectedItem().(optionItem)
			if !ok {
				return m, nil
			}
			m.next = route{screen: screenCheckout, plan: item.value}
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *plansScreen) View() string {
	return m.list.View() + "\n\n" + footer("Use ↑/↓ to move", "Enter to choose a plan", "Esc for home", "q to quit")
}

// confirmationScreen shows a placed order.
type confirmationScreen struct {
	order checkout.Order
	next  route
}

func (m *confirmationScreen) route() route { return m.next }

func (m *confirmationScreen) Init() tea.Cmd { return nil }

func (m *confirmationScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "q", "enter", "esc":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *confirmationScreen) View() string {
	return styleTitle.Render("You're all set!") + "\n\n" +
		styleSummary.Render(confirmSummary(m.order)) + "\n\n" +
		footer("Enter to finish")
}

func confirmSummary(o checkout.Order) string {
	lines := []string{
		fmt.Sprintf("Order:       %s", styleHighlight.Render(o.Number)),
		fmt.Sprintf("Plan:        %s (%s/mo)", o.Plan.Name, o.MonthlyPrice),
		fmt.Sprintf("Router:      %s (%s)", o.Router.Name, o.Router.Price),
		fmt.Sprintf("Name:        %s", o.Name),
		fmt.Sprintf("Email:       %s", o.Email),
		fmt.Sprintf("Address:     %s", o.Address),
		fmt.Sprintf("Postal:      %s", o.PostalAddress),
		fmt.Sprintf("Card:        %s", o.Card.Last4),
		"",
		"What happens next:",
	}
	for i, step := range o.NextSteps {
		lines = append(lines, fmt.Sprintf("  %d. %s: %s", i+1, step.Title, step.Detail))
	}
	return strings.Join(lines, "\n")
}

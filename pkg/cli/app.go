package cli

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/zdunecki/skymesh/pkg/checkout"
	"github.com/zdunecki/skymesh/pkg/flows"
	"github.com/zdunecki/skymesh/pkg/recommend"
	"github.com/zdunecki/skymesh/pkg/store"
	"github.com/zdunecki/skymesh/pkg/wizard"
)

type screenID int

const (
	screenExit screenID = iota
	screenHome
	screenQuiz
	screenAnalyzing
	screenRecommended
	screenPlans
	screenCheckout
	screenConfirmation
)

func (s screenID) String() string {
	return [...]string{"exit", "home", "quiz", "analyzing", "recommended", "plans", "checkout", "confirmation"}[s]
}

// route is a full navigation target. Each screen runs as its own program
// and hands the next route back when it quits.
// route names the next screen. plan is the plan checkout is seeded with,
// or the match the plans screen tags.
type route struct {
	screen screenID
	plan   string
	order  *checkout.Order
}

type screen interface {
	tea.Model
	route() route
}

// Options configures the terminal app.
type Options struct {
	Store store.Store
	// AutoAdvanceDelay overrides the flow's own delay when positive.
	AutoAdvanceDelay time.Duration
	TransitionSpeed  float64
	Registry         *Registry
	Now              func() time.Time
	ProgramOptions   []tea.ProgramOption
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Run drives the app from the home screen until the user quits.
func Run(ctx context.Context, opts Options) error {
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	r := route{screen: screenHome}
	for r.screen != screenExit {
		if err := ctx.Err(); err != nil {
			return nil
		}
		s, err := opts.screen(ctx, r)
		if err != nil {
			return err
		}
		zap.L().Debug("screen", zap.Stringer("screen", r.screen), zap.String("plan", r.plan))

		popts := append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts.ProgramOptions...)
		result, err := tea.NewProgram(s, popts...).Run()
		if closer, ok := s.(interface{ close() }); ok {
			closer.close()
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		final, ok := result.(screen)
		if !ok {
			return fmt.Errorf("screen %s failed to return a route", r.screen)
		}
		r = final.route()
	}
	return nil
}

func (o Options) screen(ctx context.Context, r route) (screen, error) {
	switch r.screen {
	case screenHome:
		return newHomeScreen(), nil
	case screenQuiz:
		return o.quizScreen(ctx)
	case screenAnalyzing:
		def, err := flows.LoadAnalyzing()
		if err != nil {
			return nil, err
		}
		return newAnalyzingScreen(def, o.TransitionSpeed), nil
	case screenRecommended:
		return newRecommendedScreen(ctx, o.Store, recommend.StorageKey), nil
	case screenPlans:
		return newPlansScreen(r.plan), nil
	case screenCheckout:
		return o.checkoutScreen(ctx, r.plan)
	case screenConfirmation:
		if r.order == nil {
			return newHomeScreen(), nil
		}
		return &confirmationScreen{order: *r.order, next: route{screen: screenExit}}, nil
	}
	return nil, fmt.Errorf("unknown screen %d", r.screen)
}

func (o Options) driverOptions(flow string) ([]wizard.DriverOption, error) {
	def, err := flows.Definition(flow)
	if err != nil {
		return nil, err
	}
	delay := flows.AutoAdvanceDelay(def)
	if o.AutoAdvanceDelay > 0 {
		delay = o.AutoAdvanceDelay
	}
	return []wizard.DriverOption{wizard.WithAutoAdvanceDelay(delay)}, nil
}

// quizScreen starts an empty quiz; finishing it writes the snapshot.
func (o Options) quizScreen(ctx context.Context) (screen, error) {
	e, err := flows.Build(flows.Quiz)
	if err != nil {
		return nil, err
	}
	dopts, err := o.driverOptions(flows.Quiz)
	if err != nil {
		return nil, err
	}
	finish := func(a wizard.Answers) (route, error) {
		snap := recommend.FromAnswers(a.String("household"), a.String("devices"), a.List("usage"))
		if err := recommend.Save(ctx, o.Store, recommend.StorageKey, snap); err != nil {
			return route{}, err
		}
		return route{screen: screenAnalyzing}, nil
	}
	return newStepScreen(flows.Quiz, e, o.Registry, dopts, finish, route{screen: screenHome}), nil
}

func (o Options) checkoutScreen(ctx context.Context, plan string) (screen, error) {
	if _, ok := recommend.PlanByID(plan); !ok {
		return nil, fmt.Errorf("%w: %q", checkout.ErrUnknownPlan, plan)
	}
	e, err := flows.Build(flows.Checkout, wizard.WithAnswers(wizard.Answers{"plan": plan}))
	if err != nil {
		return nil, err
	}
	dopts, err := o.driverOptions(flows.Checkout)
	if err != nil {
		return nil, err
	}
	finish := func(a wizard.Answers) (route, error) {
		order, err := checkout.Confirm(ctx, o.Store, a, o.now())
		if err != nil {
			return route{}, err
		}
		zap.L().Info("order placed", zap.String("order", order.Number), zap.String("plan", order.Plan.ID))
		return route{screen: screenConfirmation, order: &order}, nil
	}
	return newStepScreen(flows.Checkout, e, o.Registry, dopts, finish, route{screen: screenRecommended}), nil
}

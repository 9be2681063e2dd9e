// Package checkout turns completed checkout answers into a persisted order.
package checkout

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/zdunecki/skymesh/pkg/flows"
	"github.com/zdunecki/skymesh/pkg/recommend"
	"github.com/zdunecki/skymesh/pkg/store"
	"github.com/zdunecki/skymesh/pkg/wizard"
)

var (
	ErrIncomplete  = errors.New("checkout is incomplete")
	ErrUnknownPlan = errors.New("unknown plan")
)

// OrderPrefix starts every order number.
const OrderPrefix = "SKY-"

// Router is the equipment picked at checkout.
type Router struct {
	Name  string          `json:"name"`
	Price recommend.Price `json:"price"`
}

// Card keeps only what the confirmation shows. The full number never
// leaves the checkout answers.
type Card struct {
	Name   string `json:"name"`
	Last4  string `json:"last4"`
	Expiry string `json:"expiry"`
}

type NextStep struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

type Order struct {
	Number        string          `json:"number"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	DateOfBirth   string          `json:"dateOfBirth"`
	Address       string          `json:"address"`
	PostalAddress string          `json:"postalAddress"`
	AVC           string          `json:"avc,omitempty"`
	Plan          recommend.Plan  `json:"plan"`
	Router        Router          `json:"router"`
	Card          Card            `json:"card"`
	MonthlyPrice  recommend.Price `json:"monthlyPrice"`
	NextSteps     []NextStep      `json:"nextSteps"`
	PlacedAt      time.Time       `json:"placedAt"`
}

// DefaultNextSteps is what the confirmation tells the customer to expect.
func DefaultNextSteps() []NextStep {
	return []NextStep{
		{Title: "We'll process your order", Detail: "This usually takes 1-2 business days."},
		{Title: "Your router ships", Detail: "Expect delivery in 3-5 business days via Australia Post."},
		{Title: "Get connected", Detail: "Plug in your router and you're online. Easy setup guide included."},
	}
}

// NewOrderNumber returns SKY- followed by six upper-case base36 characters.
func NewOrderNumber() string {
	id := uuid.New()
	n := binary.BigEndian.Uint64(id[:8])
	s := strings.ToUpper(strconv.FormatUint(n, 36))
	if len(s) < 6 {
		s = strings.Repeat("0", 6-len(s)) + s
	}
	return OrderPrefix + s[len(s)-6:]
}

// MaskCard keeps the last four digits of a card number.
func MaskCard(number string) string {
	var digits []byte
	for i := 0; i < len(number); i++ {
		if number[i] >= '0' && number[i] <= '9' {
			digits = append(digits, number[i])
		}
	}
	if len(digits) <= 4 {
		return string(digits)
	}
	return string(digits[len(digits)-4:])
}

var required = []string{
	"plan", "firstName", "lastName", "email", "phone",
	"dobDay", "dobMonth", "dobYear", "address", "postalSame", "router",
	"cardName", "cardNumber", "cardExpiry",
}

// requiredPostal applies when the postal address differs from the service address.
var requiredPostal = []string{"postalAddress1", "postalCity", "postalState", "postalPostcode"}

// FromAnswers builds an order from checkout answers.
func FromAnswers(a wizard.Answers, number string, now time.Time) (Order, error) {
	keys := required
	if a.String("postalSame") == "no" {
		keys = append(slices.Clone(required), requiredPostal...)
	}
	var missing []string
	for _, k := range keys {
		if !a.Filled(k) {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return Order{}, fmt.Errorf("%w: missing %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	if !flows.ValidEmail(a.String("email")) {
		return Order{}, fmt.Errorf("%w: invalid email %q", ErrIncomplete, a.String("email"))
	}

	plan, ok := recommend.PlanByID(a.String("plan"))
	if !ok {
		return Order{}, fmt.Errorf("%w: %s", ErrUnknownPlan, a.String("plan"))
	}
	router, err := routerByName(a.String("router"))
	if err != nil {
		return Order{}, err
	}

	postal := "Same as service address"
	if a.String("postalSame") == "no" {
		postal = joinWords(a.String("postalAddress1"), a.String("postalCity"), a.String("postalState"), a.String("postalPostcode"))
	}

	return Order{
		Number:        number,
		Name:          joinWords(a.String("firstName"), a.String("lastName")),
		Email:         strings.TrimSpace(a.String("email")),
		Phone:         strings.TrimSpace(a.String("phone")),
		DateOfBirth:   joinWords(a.String("dobDay"), a.String("dobMonth"), a.String("dobYear")),
		Address:       strings.TrimSpace(a.String("address")),
		PostalAddress: postal,
		AVC:           strings.TrimSpace(a.String("avc")),
		Plan:          plan,
		Router:        router,
		Card: Card{
			Name:   strings.TrimSpace(a.String("cardName")),
			Last4:  MaskCard(a.String("cardNumber")),
			Expiry: strings.TrimSpace(a.String("cardExpiry")),
		},
		MonthlyPrice: plan.Intro,
		NextSteps:    DefaultNextSteps(),
		PlacedAt:     now.UTC(),
	}, nil
}

func joinWords(parts ...string) string {
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// routerByName finds the router option in the checkout definition.
func routerByName(name string) (Router, error) {
	flow, err := flows.Definition(flows.Checkout)
	if err != nil {
		return Router{}, err
	}
	for _, step := range flow.Steps {
		if step.Field != "router" {
			continue
		}
		for _, o := range step.Options {
			if o.Value != name {
				continue
			}
			price, err := recommend.ParsePrice(o.Price)
			if err != nil {
				return Router{}, fmt.Errorf("router %s: %w", name, err)
			}
			return Router{Name: o.Label, Price: price}, nil
		}
	}
	return Router{}, fmt.Errorf("%w: unknown router %q", ErrIncomplete, name)
}

// Confirm builds an order from the answers and saves it.
func Confirm(ctx context.Context, st store.Store, a wizard.Answers, now time.Time) (Order, error) {
	order, err := FromAnswers(a, NewOrderNumber(), now)
	if err != nil {
		return Order{}, err
	}
	payload, err := json.Marshal(order)
	if err != nil {
		return Order{}, eris.Wrap(err, "checkout: marshal order")
	}
	if err := st.SaveOrder(ctx, store.Order{
		Number:    order.Number,
		Email:     order.Email,
		Payload:   payload,
		CreatedAt: order.PlacedAt,
	}); err != nil {
		return Order{}, eris.Wrapf(err, "checkout: save order %s", order.Number)
	}
	return order, nil
}

// Load reads a saved order back.
func Load(ctx context.Context, st store.Store, number string) (Order, error) {
	rec, err := st.GetOrder(ctx, number)
	if err != nil {
		return Order{}, err
	}
	var order Order
	if err := json.Unmarshal(rec.Payload, &order); err != nil {
		return Order{}, eris.Wrapf(err, "checkout: decode order %s", number)
	}
	return order, nil
}

package checkout

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zdunecki/skymesh/pkg/store"
	"github.com/zdunecki/skymesh/pkg/wizard"
)

func answers() wizard.Answers {
	return wizard.Answers{
		"plan":      "Fibre Plus",
		"firstName": "Jane", "lastName": "Citizen",
		"email":  " jane@skymesh.com.au ",
		"phone":  "0400 000 000",
		"dobDay": "4", "dobMonth": "July", "dobYear": "1990",
		"address":    "123 Cloud Street, Brisbane",
		"postalSame": "yes",
		"router":     "Tenda v12",
		"cardName":   "Jane Citizen", "cardNumber": "4242 4242 4242 1234", "cardExpiry": "12/29",
	}
}

func TestNewOrderNumber(t *testing.T) {
	pattern := regexp.MustCompile(`^SKY-[0-9A-Z]{6}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		n := NewOrderNumber()
		assert.Regexp(t, pattern, n)
		seen[n] = true
	}
	assert.Greater(t, len(seen), 45)
}

func TestMaskCard(t *testing.T) {
	assert.Equal(t, "1234", MaskCard("4242 4242 4242 1234"))
	assert.Equal(t, "12", MaskCard("1-2"))
	assert.Equal(t, "", MaskCard(""))
}

func TestFromAnswers(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
	o, err := FromAnswers(answers(), "SKY-ABC123", now)
	require.NoError(t, err)

	assert.Equal(t, "SKY-ABC123", o.Number)
	assert.Equal(t, "Jane Citizen", o.Name)
	assert.Equal(t, "jane@skymesh.com.au", o.Email)
	assert.Equal(t, "4 July 1990", o.DateOfBirth)
	assert.Equal(t, "Same as service address", o.PostalAddress)
	assert.Equal(t, "plus", o.Plan.ID)
	assert.Equal(t, "$74.95", o.MonthlyPrice.String())
	assert.Equal(t, "Tenda v12", o.Router.Name)
	assert.Equal(t, "$139.99", o.Router.Price.String())
	assert.Equal(t, Card{Name: "Jane Citizen", Last4: "1234", Expiry: "12/29"}, o.Card)
	assert.Len(t, o.NextSteps, 3)
	assert.Equal(t, now, o.PlacedAt)
}

func TestFromAnswers_PostalAddress(t *testing.T) {
	a := answers()
	a["postalSame"] = "no"
	a["postalAddress1"] = "PO Box 123"
	a["postalCity"] = "Brisbane"
	a["postalState"] = "QLD"
	a["postalPostcode"] = "4000"

	o, err := FromAnswers(a, "SKY-ABC123", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "PO Box 123 Brisbane QLD 4000", o.PostalAddress)
}

func TestFromAnswers_Rejects(t *testing.T) {
	a := answers()
	delete(a, "email")
	_, err := FromAnswers(a, "SKY-ABC123", time.Now())
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.Contains(t, err.Error(), "email")

	a = answers()
	a["plan"] = "Fibre Ultra"
	_, err = FromAnswers(a, "SKY-ABC123", time.Now())
	assert.ErrorIs(t, err, ErrUnknownPlan)

	a = answers()
	a["dobDay"] = " "
	_, err = FromAnswers(a, "SKY-ABC123", time.Now())
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.Contains(t, err.Error(), "dobDay")

	a = answers()
	a["postalSame"] = "no"
	_, err = FromAnswers(a, "SKY-ABC123", time.Now())
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.Contains(t, err.Error(), "postalAddress1")

	a = answers()
	a["email"] = "jane"
	_, err = FromAnswers(a, "SKY-ABC123", time.Now())
	assert.ErrorIs(t, err, ErrIncomplete)

	a = answers()
	a["router"] = "Carrier pigeon"
	_, err = FromAnswers(a, "SKY-ABC123", time.Now())
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestConfirmAndLoad(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()

	o, err := Confirm(ctx, st, answers(), time.Now())
	require.NoError(t, err)

	got, err := Load(ctx, st, o.Number)
	require.NoError(t, err)
	assert.Equal(t, o.Name, got.Name)
	assert.Equal(t, o.Plan.Intro, got.Plan.Intro)
	assert.Equal(t, o.Router, got.Router)
	assert.Equal(t, "1234", got.Card.Last4)

	rec, err := st.GetOrder(ctx, o.Number)
	require.NoError(t, err)
	assert.NotContains(t, string(rec.Payload), "4242 4242")

	_, err = Load(ctx, st, "SKY-NOPE00")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

package flows

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zdunecki/skymesh/pkg/dsl"
	"github.com/zdunecki/skymesh/pkg/recommend"
	"github.com/zdunecki/skymesh/pkg/wizard"
)

func TestDefinition_Unknown(t *testing.T) {
	_, err := Definition("signup")
	assert.ErrorIs(t, err, ErrUnknownFlow)
}

func TestQuiz(t *testing.T) {
	flow, err := Definition(Quiz)
	require.NoError(t, err)
	assert.Equal(t, 200*time.Millisecond, AutoAdvanceDelay(flow))

	e, err := Build(Quiz)
	require.NoError(t, err)

	v := e.View()
	assert.Equal(t, "household", v.ID)
	assert.Equal(t, 33, v.ProgressPercent)
	assert.False(t, v.CanAdvance)
	assert.Len(t, v.Options, 4)

	assert.True(t, e.SetField("household", recommend.HouseholdDuo))
	e.Advance()
	assert.True(t, e.SetField("devices", recommend.Devices6to10))
	e.Advance()

	v = e.View()
	assert.Equal(t, "usage", v.ID)
	assert.True(t, v.IsLast)
	assert.Equal(t, "Find my plan", v.ContinueLabel)
	assert.False(t, e.SetField("usage", []string{recommend.UsageGaming}))
	assert.True(t, e.CanFinish())

	var labels []string
	for _, o := range v.Options {
		labels = append(labels, o.Value)
	}
	assert.Equal(t, recommend.UsageLabels(), labels, "quiz usage options match the labels the recommendation knows")
}

func TestQuizOptionsMatchSnapshotEnums(t *testing.T) {
	e, err := Build(Quiz)
	require.NoError(t, err)

	values := func(id string) []string {
		for _, s := range e.Steps() {
			if s.ID == id {
				var out []string
				for _, o := range s.Options {
					out = append(out, o.Value)
				}
				return out
			}
		}
		return nil
	}
	assert.Equal(t, recommend.Households(), values("household"))
	assert.Equal(t, recommend.DeviceBuckets(), values("devices"))
}

func fillCheckout(e *wizard.Engine) {
	e.SetFields(wizard.Answers{
		"firstName": "Jane", "lastName": "Citizen",
		"email":  "jane@skymesh.com.au",
		"phone":  "0400 000 000",
		"dobDay": "4", "dobMonth": "July", "dobYear": "1990",
		"address":    "123 Cloud Street, Brisbane",
		"postalSame": "yes",
		"router":     "NF20Mesh",
		"cardName":   "Jane Citizen", "cardNumber": "4242424242424242", "cardExpiry": "12/29",
	})
}

func TestCheckout_PostalSubStep(t *testing.T) {
	e, err := Build(Checkout, wizard.WithAnswers(wizard.Answers{"plan": "Fibre Plus"}))
	require.NoError(t, err)
	fillCheckout(e)

	assert.Equal(t, 10, e.VisibleLen())
	e.SetField("postalSame", "no")
	assert.Equal(t, 11, e.VisibleLen())

	for e.Advance() {
	}
	assert.Equal(t, "postalAddress", e.Current().ID, "postal address fields are required")

	e.SetFields(wizard.Answers{"postalAddress1": "PO Box 123", "postalCity": "Brisbane", "postalState": "QLD", "postalPostcode": "4000"})
	for e.Advance() {
	}
	assert.Equal(t, "review", e.Current().ID)
	assert.Equal(t, "Confirm and Checkout", e.View().ContinueLabel)
	assert.True(t, e.CanFinish())
}

func TestCheckout_AVCIsSkippable(t *testing.T) {
	e, err := Build(Checkout)
	require.NoError(t, err)
	fillCheckout(e)

	e.JumpToFieldOwner("avc")
	v := e.View()
	require.Equal(t, "avc", v.ID)
	assert.True(t, v.Skippable)
	assert.True(t, v.CanAdvance)
}

func TestCheckout_ReviewRows(t *testing.T) {
	e, err := Build(Checkout, wizard.WithAnswers(wizard.Answers{"plan": "Fibre Plus"}))
	require.NoError(t, err)
	fillCheckout(e)

	rows := map[string]wizard.RowView{}
	for _, r := range e.ReviewRows() {
		rows[r.Label] = r
	}

	assert.Equal(t, "Fibre Plus", rows["Plan"].Value)
	assert.Empty(t, rows["Plan"].Edit)
	assert.Equal(t, "Jane Citizen", rows["Name"].Value)
	assert.Equal(t, "name", rows["Name"].Owner)
	assert.Equal(t, "4 July 1990", rows["Date of Birth"].Value)
	assert.Equal(t, "Not provided", rows["AVC"].Value)
	assert.Equal(t, "Same as service address", rows["Postal Address"].Value)
	assert.Equal(t, "postalAddress", rows["Postal Address"].Owner)
	assert.Equal(t, "NF20Mesh", rows["Router"].Value)
	assert.Equal(t, "Jane Citizen •••• 4242", rows["Payment"].Value)

	e.SetFields(wizard.Answers{"postalSame": "no", "postalAddress1": "PO Box 123", "postalCity": "Brisbane", "postalState": "QLD"})
	for _, r := range e.ReviewRows() {
		if r.Label == "Postal Address" {
			assert.Equal(t, "PO Box 123 Brisbane QLD", r.Value)
		}
	}
}

func TestCheckout_EditFromReviewResolvesPostalToItsOwnStep(t *testing.T) {
	e, err := Build(Checkout)
	require.NoError(t, err)
	fillCheckout(e)
	e.GoTo(99)

	e.JumpToFieldOwner("postalAddress1")
	assert.Equal(t, "postal", e.Current().ID, "hidden postal sub-step resolves to the yes/no step")

	e.GoTo(99)
	e.JumpToFieldOwner("address")
	assert.Equal(t, "address", e.Current().ID)
}

func TestCompile_Rejects(t *testing.T) {
	_, err := Compile(dsl.Flow{Flow: "x", Steps: []dsl.Step{{ID: "a", Kind: "slider"}}}, time.Now())
	assert.Error(t, err)

	_, err = Compile(dsl.Flow{Flow: "x", Steps: []dsl.Step{{ID: "a", Kind: "choice", Field: "f"}}}, time.Now())
	assert.Error(t, err)

	_, err = Compile(dsl.Flow{Flow: "x", Steps: []dsl.Step{
		{ID: "a", Kind: "text", Fields: []dsl.Field{{Key: "address"}}},
		{ID: "b", Kind: "text", Fields: []dsl.Field{{Key: "address"}}},
	}}, time.Now())
	assert.ErrorIs(t, err, wizard.ErrAmbiguousOwner)
}

func TestCompile_DateChoices(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	flow, err := Definition(Checkout)
	require.NoError(t, err)
	e, err := Compile(flow, now)
	require.NoError(t, err)

	e.JumpToFieldOwner("dobDay")
	fields := e.View().Fields
	require.Len(t, fields, 3)
	assert.Len(t, fields[0].Choices, 31)
	assert.Equal(t, "January", fields[1].Choices[0])
	assert.Equal(t, "2008", fields[2].Choices[0])
	assert.Len(t, fields[2].Choices, 90)
}

func TestLoadAnalyzing(t *testing.T) {
	a, err := LoadAnalyzing()
	require.NoError(t, err)

	require.Len(t, a.Script.Stages, 4)
	assert.Equal(t, 800*time.Millisecond, a.Script.Stages[0].Duration)
	assert.Equal(t, 1200*time.Millisecond, a.Script.Stages[3].Duration)
	assert.Equal(t, 600*time.Millisecond, a.Script.Settle)
	assert.Equal(t, "/recommended", a.Script.Next)
	assert.Equal(t, 2500*time.Millisecond, a.Rotate)
	assert.Len(t, a.Reviews, 5)
}

func TestRedact(t *testing.T) {
	flow, err := Definition(Checkout)
	require.NoError(t, err)
	secrets := SecretKeys(flow)
	assert.Equal(t, []string{"cardNumber"}, secrets)

	a := wizard.Answers{"cardNumber": "4242 4242 4242 1234", "cardName": "Jane"}
	out := Redact(a, secrets)
	assert.Equal(t, "•••• 1234", out.String("cardNumber"))
	assert.Equal(t, "Jane", out.String("cardName"))
	assert.Equal(t, "4242 4242 4242 1234", a.String("cardNumber"), "input is not modified")

	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "•••• 12", MaskSecret("12"))
}

func TestCheckout_EmailShape(t *testing.T) {
	e, err := Build(Checkout)
	require.NoError(t, err)

	e.JumpToFieldOwner("email")
	e.SetField("email", "jane")
	assert.False(t, e.CanAdvance())
	e.SetField("email", "jane@skymesh")
	assert.False(t, e.CanAdvance())
	e.SetField("email", " jane@skymesh.com.au ")
	assert.True(t, e.CanAdvance())

	assert.True(t, ValidEmail("a.b+c@example.co"))
	assert.False(t, ValidEmail("a b@example.com"))
	assert.False(t, ValidEmail(""))
}

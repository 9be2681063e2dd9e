package recommend

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed plans.yaml
var plansYAML []byte

// Price is an amount in cents.
type Price int64

// ParsePrice accepts "74.95", "$74.95" or "74".
func ParsePrice(s string) (Price, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	whole, frac, hasFrac := strings.Cut(s, ".")
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || w < 0 {
		return 0, fmt.Errorf("invalid price %q", s)
	}
	var cents int64
	if hasFrac {
		if len(frac) == 1 {
			frac += "0"
		}
		if len(frac) != 2 {
			return 0, fmt.Errorf("invalid price %q", s)
		}
		cents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil || cents < 0 {
			return 0, fmt.Errorf("invalid price %q", s)
		}
	}
	return Price(w*100 + cents), nil
}

func (p Price) String() string {
	return fmt.Sprintf("$%d.%02d", int64(p)/100, int64(p)%100)
}

func (p *Price) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParsePrice(node.Value)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(p.String())), nil
}

func (p *Price) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		s = string(data)
	}
	v, err := ParsePrice(s)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Plan is one entry of the fibre catalogue.
type Plan struct {
	ID           string `yaml:"id" json:"id"`
	Name         string `yaml:"name" json:"name"`
	Intro        Price  `yaml:"intro" json:"intro"`
	Ongoing      Price  `yaml:"ongoing" json:"ongoing"`
	DownloadMbps int    `yaml:"download_mbps" json:"downloadMbps"`
	UploadMbps   int    `yaml:"upload_mbps" json:"uploadMbps"`
	Popular      bool   `yaml:"popular" json:"popular,omitempty"`
	Ideal        string `yaml:"ideal" json:"ideal"`
	Fit          string `yaml:"fit" json:"fit"`
	IntroMonths  int    `yaml:"-" json:"introMonths"`
}

type catalogueFile struct {
	IntroMonths int    `yaml:"intro_months"`
	Plans       []Plan `yaml:"plans"`
}

var (
	catalogueOnce sync.Once
	catalogue     []Plan
)

// Catalogue returns the plans in display order. The embedded file is
// part of the binary, so a bad file is a build defect and panics.
func Catalogue() []Plan {
	catalogueOnce.Do(func() {
		plans, err := parseCatalogue(plansYAML)
		if err != nil {
			panic(fmt.Errorf("plan catalogue: %w", err))
		}
		catalogue = plans
	})
	return append([]Plan(nil), catalogue...)
}

func parseCatalogue(data []byte) ([]Plan, error) {
	var f catalogueFile
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if len(f.Plans) == 0 {
		return nil, fmt.Errorf("no plans")
	}
	seen := make(map[string]bool, len(f.Plans))
	for i := range f.Plans {
		p := &f.Plans[i]
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("plan %d has no id or name", i)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("duplicate plan %s", p.ID)
		}
		seen[p.ID] = true
		p.IntroMonths = f.IntroMonths
	}
	return f.Plans, nil
}

// PlanByID looks a plan up by id or display name.
func PlanByID(id string) (Plan, bool) {
	for _, p := range Catalogue() {
		if strings.EqualFold(p.ID, id) || strings.EqualFold(p.Name, id) {
			return p, true
		}
	}
	return Plan{}, false
}

func mustPlan(id string) Plan {
	p, ok := PlanByID(id)
	if !ok {
		panic("plan catalogue has no " + id)
	}
	return p
}

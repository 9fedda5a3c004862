// Package allocation splits portfolio-wide costs across buildings.
package allocation

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Shared-cost field names
const (
	MaxCareExpense               = "maxCareExpense"
	TrafficCareExpense           = "trafficCareExpense"
	ShippingExpense              = "shippingExpense"
	AmenityExpense               = "amenityExpense"
	WaterExpense                 = "waterExpense"
	CookieExpense                = "cookieExpense"
	CoffeeSugarCreamerExpense    = "coffeeSugarCreamerExpense"
	FuelExpense                  = "fuelExpense"
	ParkingExpense               = "parkingExpense"
	MotorcycleMaintenanceExpense = "motorcycleMaintenanceExpense"
	MaidTravelExpense            = "maidTravelExpense"
	CleaningSupplyExpense        = "cleaningSupplyExpense"
	FoodExpense                  = "foodExpense"

	// Pools that are not ledger fields
	SalaryPool         = "salary"
	SocialSecurityPool = "socialSecurity"
)

// DefaultThreeWayCodes are the building codes sharing the three-way group
var DefaultThreeWayCodes = []string{"A1", "A2", "A3"}

// EligibilityKind selects which buildings take part in a split
type EligibilityKind string

const (
	EligibleAll   EligibilityKind = "all"
	EligibleCodes EligibilityKind = "codes"
)

// DivisorKind selects what a pool is divided by
type DivisorKind string

const (
	DivideByBuildings DivisorKind = "buildings"
	DivideByFixed     DivisorKind = "fixed"
)

type Eligibility struct {
	Kind  EligibilityKind `yaml:"kind"`
	Codes []string        `yaml:"codes,omitempty"`
}

type Divisor struct {
	Kind  DivisorKind `yaml:"kind"`
	Value int64       `yaml:"value,omitempty"`
}

// Rule describes how one pool is divided
type Rule struct {
	Field       string      `yaml:"field"`
	Label       string      `yaml:"label"`
	Eligibility Eligibility `yaml:"eligibility"`
	Divisor     Divisor     `yaml:"divisor"`
}

// RuleSet is the complete allocation configuration
type RuleSet struct {
	Shared         []Rule `yaml:"shared"`
	Salary         Rule   `yaml:"salary"`
	SocialSecurity Rule   `yaml:"socialSecurity"`
}

func threeWay(field, label string, codes []string) Rule {
	return Rule{
		Field:       field,
		Label:       label,
		Eligibility: Eligibility{Kind: EligibleCodes, Codes: codes},
		Divisor:     Divisor{Kind: DivideByFixed, Value: 3},
	}
}

func allBuildings(field, label string) Rule {
	return Rule{
		Field:       field,
		Label:       label,
		Eligibility: Eligibility{Kind: EligibleAll},
		Divisor:     Divisor{Kind: DivideByBuildings},
	}
}

// DefaultRules returns the built-in rule set
func DefaultRules() RuleSet {
	codes := append([]string(nil), DefaultThreeWayCodes...)
	return RuleSet{
		Shared: []Rule{
			threeWay(MaxCareExpense, "Max Care", codes),
			threeWay(TrafficCareExpense, "Traffic Care", codes),
			threeWay(ShippingExpense, "Shipping", codes),
			allBuildings(AmenityExpense, "Amenities"),
			allBuildings(WaterExpense, "Drinking Water"),
			allBuildings(CookieExpense, "Cookies"),
			allBuildings(CoffeeSugarCreamerExpense, "Coffee, Sugar & Creamer"),
			allBuildings(FuelExpense, "Fuel"),
			allBuildings(ParkingExpense, "Parking"),
			allBuildings(MotorcycleMaintenanceExpense, "Motorcycle Maintenance"),
			allBuildings(MaidTravelExpense, "Maid Travel"),
			allBuildings(CleaningSupplyExpense, "Cleaning Supplies"),
			allBuildings(FoodExpense, "Food"),
		},
		Salary: allBuildings(SalaryPool, "Employee Salary"),
		SocialSecurity: Rule{
			Field:       SocialSecurityPool,
			Label:       "Social Security",
			Eligibility: Eligibility{Kind: EligibleAll},
			Divisor:     Divisor{Kind: DivideByFixed, Value: 5},
		},
	}
}

// LoadRules decodes a YAML rule set and validates it
func LoadRules(r io.Reader) (RuleSet, error) {
	var rs RuleSet
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&rs); err != nil {
		return RuleSet{}, fmt.Errorf("decode allocation rules: %w", err)
	}
	if err := rs.Validate(); err != nil {
		return RuleSet{}, err
	}
	return rs, nil
}

// LoadRulesFile reads a rule set from path. An empty path yields DefaultRules.
func LoadRulesFile(path string) (RuleSet, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("open allocation rules: %w", err)
	}
	defer f.Close()
	return LoadRules(f)
}

// Validate checks every rule and rejects duplicate shared fields
func (s RuleSet) Validate() error {
	seen := make(map[string]bool, len(s.Shared))
	for _, r := range s.Shared {
		if err := r.validate(); err != nil {
			return err
		}
		if seen[r.Field] {
			return fmt.Errorf("allocation rule %q: duplicate field", r.Field)
		}
		seen[r.Field] = true
	}
	if err := s.Salary.validate(); err != nil {
		return fmt.Errorf("salary: %w", err)
	}
	if err := s.SocialSecurity.validate(); err != nil {
		return fmt.Errorf("social security: %w", err)
	}
	return nil
}

// Rule returns the shared rule for field
func (s RuleSet) Rule(field string) (Rule, bool) {
	for _, r := range s.Shared {
		if r.Field == field {
			return r, true
		}
	}
	return Rule{}, false
}

// Fields lists the shared field names in rule order
func (s RuleSet) Fields() []string {
	out := make([]string, 0, len(s.Shared))
	for _, r := range s.Shared {
		out = append(out, r.Field)
	}
	return out
}

func (r Rule) validate() error {
	if r.Field == "" {
		return errors.New("allocation rule: field is required")
	}
	if r.Label == "" {
		return fmt.Errorf("allocation rule %q: label is required", r.Field)
	}
	switch r.Eligibility.Kind {
	case EligibleAll:
	case EligibleCodes:
		if len(r.Eligibility.Codes) == 0 {
			return fmt.Errorf("allocation rule %q: codes eligibility needs at least one code", r.Field)
		}
	default:
		return fmt.Errorf("allocation rule %q: unknown eligibility %q", r.Field, r.Eligibility.Kind)
	}
	switch r.Divisor.Kind {
	case DivideByBuildings:
	case DivideByFixed:
		if r.Divisor.Value <= 0 {
			return fmt.Errorf("allocation rule %q: fixed divisor must be positive", r.Field)
		}
	default:
		return fmt.Errorf("allocation rule %q: unknown divisor %q", r.Field, r.Divisor.Kind)
	}
	return nil
}

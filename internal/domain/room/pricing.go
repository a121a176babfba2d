package room

import (
	"errors"
	"sort"
	"time"

	"roombook/internal/pkg/dates"

	"github.com/google/uuid"
)

var (
	ErrInvalidRuleKind  = errors.New("invalid pricing rule kind")
	ErrInvalidRuleRange = errors.New("pricing rule end date must be after start date")
	ErrMissingWeekdays  = errors.New("day-of-week rule needs at least one weekday")
)

type RuleKind string

const (
	RuleDateRange RuleKind = "date_range"
	RuleDayOfWeek RuleKind = "day_of_week"
	RuleDefault   RuleKind = "default"
)

func (k RuleKind) IsValid() bool {
	switch k {
	case RuleDateRange, RuleDayOfWeek, RuleDefault:
		return true
	default:
		return false
	}
}

// specificity breaks ties between rules of equal priority.
func (k RuleKind) specificity() int {
	switch k {
	case RuleDateRange:
		return 3
	case RuleDayOfWeek:
		return 2
	default:
		return 1
	}
}

type PricingRule struct {
	ID         uuid.UUID
	RoomID     uuid.UUID
	Kind       RuleKind
	StartDate  *time.Time
	EndDate    *time.Time // exclusive
	DaysOfWeek []time.Weekday
	PriceCents int64
	Priority   int
	IsActive   bool
}

func (r PricingRule) Validate() error {
	if !r.Kind.IsValid() {
		return ErrInvalidRuleKind
	}
	if r.PriceCents < 0 {
		return ErrNegativePrice
	}
	if r.Kind == RuleDateRange && r.StartDate != nil && r.EndDate != nil && !r.EndDate.After(*r.StartDate) {
		return ErrInvalidRuleRange
	}
	if r.Kind == RuleDayOfWeek && len(r.DaysOfWeek) == 0 {
		return ErrMissingWeekdays
	}
	return nil
}

func (r PricingRule) Matches(date time.Time) bool {
	if !r.IsActive {
		return false
	}
	date = dates.Truncate(date)
	if r.StartDate != nil && date.Before(dates.Truncate(*r.StartDate)) {
		return false
	}
	if r.EndDate != nil && !date.Before(dates.Truncate(*r.EndDate)) {
		return false
	}
	switch r.Kind {
	case RuleDateRange, RuleDefault:
		return true
	case RuleDayOfWeek:
		for _, wd := range r.DaysOfWeek {
			if wd == date.Weekday() {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// NightlyPricer resolves the price of a single night: an override price wins,
// then the highest-priority matching rule, then the room default.
type NightlyPricer struct {
	defaultPriceCents int64
	rules             []PricingRule
	overrides         map[string]Override
}

func NewNightlyPricer(defaultPriceCents int64, rules []PricingRule, overrides []Override) *NightlyPricer {
	sorted := make([]PricingRule, 0, len(rules))
	for _, r := range rules {
		if r.IsActive {
			sorted = append(sorted, r)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority > sorted[j].Priority
		}
		return sorted[i].Kind.specificity() > sorted[j].Kind.specificity()
	})
	return &NightlyPricer{
		defaultPriceCents: defaultPriceCents,
		rules:             sorted,
		overrides:         OverridesByDate(overrides),
	}
}

func (p *NightlyPricer) PriceFor(date time.Time) int64 {
	if o, ok := p.overrides[dates.Key(date)]; ok && o.PriceCents != nil {
		return *o.PriceCents
	}
	for _, r := range p.rules {
		if r.Matches(date) {
			return r.PriceCents
		}
	}
	return p.defaultPriceCents
}

// Prices returns the nightly price for every date in [start, end).
func (p *NightlyPricer) Prices(start, end time.Time) []NightPrice {
	days := dates.Range(start, end)
	out := make([]NightPrice, len(days))
	for i, d := range days {
		out[i] = NightPrice{Date: d, PriceCents: p.PriceFor(d)}
	}
	return out
}

type NightPrice struct {
	Date       time.Time
	PriceCents int64
}

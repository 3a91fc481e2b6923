package extract

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"workorder-engine/internal/domain"
)

type PriorityRule struct {
	Level     domain.Priority `yaml:"level"`
	Any       []string        `yaml:"any"`
	DueInDays int             `yaml:"due_in_days"`
}

type TradeRule struct {
	Name string   `yaml:"name"`
	Any  []string `yaml:"any"`
}

// Rules drive keyword classification of incoming requests.
type Rules struct {
	Priorities       []PriorityRule  `yaml:"priorities"`
	DefaultPriority  domain.Priority `yaml:"default_priority"`
	DefaultDueInDays int             `yaml:"default_due_in_days"`
	Trades           []TradeRule     `yaml:"trades"`
	DefaultTrade     string          `yaml:"default_trade"`
	TitlePrefixes    []string        `yaml:"title_prefixes"`
}

func DefaultRules() Rules {
	return Rules{
		Priorities: []PriorityRule{
			{Level: domain.PriorityHigh, DueInDays: 1, Any: []string{
				"urgent", "emergency", "asap", "immediately", "leak", "flood", "no heat", "no power", "gas smell",
			}},
			{Level: domain.PriorityLow, DueInDays: 30, Any: []string{
				"no rush", "low priority", "whenever", "when convenient",
			}},
		},
		DefaultPriority:  domain.PriorityNormal,
		DefaultDueInDays: 7,
		Trades: []TradeRule{
			{Name: "Roofing", Any: []string{"roof", "shingle", "gutter"}},
			{Name: "HVAC", Any: []string{"hvac", "furnace", "air conditioning", "a/c", "thermostat", "heat pump"}},
			{Name: "Plumbing", Any: []string{"plumb", "pipe", "drain", "toilet", "faucet", "water heater"}},
			{Name: "Electrical", Any: []string{"electric", "outlet", "breaker", "wiring", "light fixture"}},
			{Name: "Carpentry", Any: []string{"door", "cabinet", "deck", "trim", "framing"}},
			{Name: "Painting", Any: []string{"paint", "drywall"}},
		},
		DefaultTrade:  "General",
		TitlePrefixes: []string{"re:", "fw:", "fwd:", "work order:", "wo:"},
	}
}

// LoadRules reads a YAML rules file. A missing file yields DefaultRules;
// a present file replaces only the sections it sets.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if strings.TrimSpace(path) == "" {
		return rules, nil
	}

	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return rules, nil
	}
	if err != nil {
		return rules, err
	}

	var file Rules
	if err := yaml.Unmarshal(b, &file); err != nil {
		return rules, fmt.Errorf("parse rules %s: %w", path, err)
	}

	if len(file.Priorities) > 0 {
		rules.Priorities = file.Priorities
	}
	if file.DefaultPriority != "" {
		rules.DefaultPriority = file.DefaultPriority
	}
	if file.DefaultDueInDays > 0 {
		rules.DefaultDueInDays = file.DefaultDueInDays
	}
	if len(file.Trades) > 0 {
		rules.Trades = file.Trades
	}
	if file.DefaultTrade != "" {
		rules.DefaultTrade = file.DefaultTrade
	}
	if len(file.TitlePrefixes) > 0 {
		rules.TitlePrefixes = file.TitlePrefixes
	}
	return rules, rules.validate()
}

func (r Rules) validate() error {
	var errs []string
	for i, p := range r.Priorities {
		switch p.Level {
		case domain.PriorityHigh, domain.PriorityNormal, domain.PriorityLow:
		default:
			errs = append(errs, fmt.Sprintf("priorities[%d].level %q is not HIGH, NORMAL or LOW", i, p.Level))
		}
		if len(p.Any) == 0 {
			errs = append(errs, fmt.Sprintf("priorities[%d].any must have at least 1 term", i))
		}
	}
	for i, t := range r.Trades {
		if t.Name == "" {
			errs = append(errs, fmt.Sprintf("trades[%d].name is required", i))
		}
		if len(t.Any) == 0 {
			errs = append(errs, fmt.Sprintf("trades[%d].any must have at least 1 term", i))
		}
	}
	if len(errs) > 0 {
		return errors.New("rules validation failed:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}

// Classify returns the first matching priority (with its due offset) and trade.
func (r Rules) Classify(text string) (domain.Priority, int, string) {
	text = strings.ToLower(text)

	priority, due := r.DefaultPriority, r.DefaultDueInDays
	for _, p := range r.Priorities {
		if containsAny(text, p.Any) {
			priority = p.Level
			if p.DueInDays > 0 {
				due = p.DueInDays
			}
			break
		}
	}

	trade := r.DefaultTrade
	for _, t := range r.Trades {
		if containsAny(text, t.Any) {
			trade = t.Name
			break
		}
	}
	return priority, due, trade
}

// StripTitlePrefixes removes reply/forward markers, repeatedly.
func (r Rules) StripTitlePrefixes(subject string) string {
	s := strings.TrimSpace(subject)
	for changed := true; changed; {
		changed = false
		for _, p := range r.TitlePrefixes {
			if len(s) >= len(p) && strings.EqualFold(s[:len(p)], p) {
				s = strings.TrimSpace(s[len(p):])
				changed = true
			}
		}
	}
	return s
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		n := strings.ToLower(strings.TrimSpace(needle))
		if n != "" && strings.Contains(text, n) {
			return true
		}
	}
	return false
}

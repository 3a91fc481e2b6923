// Package extract turns inbound emails into work-order fields.
package extract

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"workorder-engine/internal/domain"
)

var ErrEmptyContent = errors.New("email has no readable content")

const (
	maxDescription = 1000
	maxSummary     = 200
	maxTitle       = 80
)

var (
	labelRe  = regexp.MustCompile(`(?im)^\s*(customer|client|name|location|address|site|trade|due(?: date)?)\s*:\s*(.+?)\s*$`)
	dateRe   = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	bulletRe = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+(.+)$`)
)

var defaultActionItems = []string{"Review request", "Schedule site visit", "Follow up with customer"}

type Extractor struct {
	Now func() time.Time
	Log zerolog.Logger

	mu    sync.RWMutex
	rules Rules
}

func New(rules Rules, log zerolog.Logger) *Extractor {
	return &Extractor{rules: rules, Now: time.Now, Log: log}
}

func (e *Extractor) Rules() Rules {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rules
}

func (e *Extractor) SetRules(r Rules) {
	e.mu.Lock()
	e.rules = r
	e.mu.Unlock()
}

// ReloadRules reads path and swaps the rules in. On error the current rules
// stay in place.
func (e *Extractor) ReloadRules(path string) error {
	r, err := LoadRules(path)
	if err != nil {
		return err
	}
	e.SetRules(r)
	return nil
}

// Extract fills in the work-order fields for msg.
func (e *Extractor) Extract(msg *Message) (domain.ExtractedData, error) {
	if msg == nil {
		return domain.ExtractedData{}, ErrEmptyContent
	}

	body := strings.TrimSpace(msg.Text)
	if body == "" && msg.HTML != "" {
		body = HTMLToText(msg.HTML)
	}
	body = normalizeLines(body)
	if body == "" {
		return domain.ExtractedData{}, ErrEmptyContent
	}

	rules := e.Rules()
	labels := parseLabels(body)
	priority, dueIn, trade := rules.Classify(msg.Subject + "\n" + body)
	if t, ok := labels["trade"]; ok {
		trade = t
	}

	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	due := now().AddDate(0, 0, dueIn).Format("2006-01-02")
	if d, ok := labels["due"]; ok {
		if m := dateRe.FindString(d); m != "" {
			due = m
		}
	}

	customer := labels["customer"]
	if customer == "" {
		customer = msg.FromName
	}
	if customer == "" {
		customer = msg.From
	}

	description := truncate(body, maxDescription)

	return domain.ExtractedData{
		Title:       title(rules, msg.Subject, body),
		Priority:    priority,
		Description: description,
		DueDate:     due,
		Customer:    customer,
		Location:    labels["location"],
		Trade:       trade,
		Summary:     truncate(firstSentence(description), maxSummary),
		ActionItems: actionItems(body),
	}, nil
}

// ExtractRaw parses and extracts in one step.
func (e *Extractor) ExtractRaw(raw []byte) (domain.ExtractedData, error) {
	msg, err := ParseContent(raw)
	if err != nil {
		return domain.ExtractedData{}, err
	}
	return e.Extract(msg)
}

// Handle processes one polled item.
func (e *Extractor) Handle(ctx context.Context, item domain.Item) error {
	msg, err := ParseMessage(item.Raw)
	if err != nil {
		return err
	}
	data, err := e.Extract(msg)
	if err != nil {
		return fmt.Errorf("extract %s: %w", item.ID, err)
	}

	e.Log.Info().
		Str("item_id", item.ID).
		Str("title", data.Title).
		Str("priority", string(data.Priority)).
		Str("trade", data.Trade).
		Int("attachments", len(msg.Attachments)).
		Msg("work order extracted")
	return nil
}

func title(rules Rules, subject, body string) string {
	t := rules.StripTitlePrefixes(subject)
	if t == "" {
		first, _, _ := strings.Cut(body, "\n")
		t = strings.TrimSpace(first)
	}
	return truncate(t, maxTitle)
}

func parseLabels(body string) map[string]string {
	out := map[string]string{}
	for _, m := range labelRe.FindAllStringSubmatch(body, -1) {
		key := strings.ToLower(m[1])
		switch key {
		case "client", "name":
			key = "customer"
		case "address", "site":
			key = "location"
		case "due date":
			key = "due"
		}
		if _, seen := out[key]; !seen {
			out[key] = m[2]
		}
	}
	return out
}

func actionItems(body string) string {
	var items []string
	for _, line := range strings.Split(body, "\n") {
		if m := bulletRe.FindStringSubmatch(line); m != nil {
			items = append(items, strings.TrimSpace(m[1]))
		}
	}
	if len(items) == 0 {
		items = defaultActionItems
	}

	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, it)
	}
	return b.String()
}

func firstSentence(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if i := strings.IndexAny(s, ".!?"); i >= 0 {
		return strings.TrimSpace(s[:i+1])
	}
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}

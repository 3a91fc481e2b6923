package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workorder-engine/internal/domain"
)

func newTestExtractor() *Extractor {
	e := New(DefaultRules(), zerolog.Nop())
	e.Now = func() time.Time { return time.Date(2025, 4, 3, 9, 0, 0, 0, time.UTC) }
	return e
}

const plainEmail = "From: Jane Smith <jane@example.com>\r\n" +
	"To: office@example.com\r\n" +
	"Subject: RE: Roof leaking over kitchen\r\n" +
	"Date: Thu, 03 Apr 2025 08:15:00 +0000\r\n" +
	"Message-ID: <abc123@example.com>\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Water is coming through the ceiling after last night's storm. Please send someone.\r\n" +
	"Location: 12 Elm Street\r\n" +
	"- Inspect flashing\r\n" +
	"- Replace damaged shingles\r\n"

func TestExtractPlainEmail(t *testing.T) {
	e := newTestExtractor()

	data, err := e.ExtractRaw([]byte(plainEmail))
	require.NoError(t, err)

	assert.Equal(t, "Roof leaking over kitchen", data.Title)
	assert.Equal(t, domain.PriorityHigh, data.Priority)
	assert.Equal(t, "2025-04-04", data.DueDate)
	assert.Equal(t, "Jane Smith", data.Customer)
	assert.Equal(t, "12 Elm Street", data.Location)
	assert.Equal(t, "Roofing", data.Trade)
	assert.Equal(t, "Water is coming through the ceiling after last night's storm.", data.Summary)
	assert.Equal(t, "1. Inspect flashing\n2. Replace damaged shingles", data.ActionItems)
}

func TestExtractMultipartPrefersPlainAndListsAttachments(t *testing.T) {
	raw := "From: facilities@example.com\r\n" +
		"Subject: Furnace service\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/mixed; boundary=XYZ\r\n" +
		"\r\n" +
		"--XYZ\r\n" +
		"Content-Type: text/plain; charset=iso-8859-1\r\n" +
		"\r\n" +
		"Annual furnace check, no rush.\r\n" +
		"Customer: Acme Corp\r\n" +
		"Due date: 2025-05-01\r\n" +
		"--XYZ\r\n" +
		"Content-Type: application/pdf\r\n" +
		"Content-Disposition: attachment; filename=\"quote.pdf\"\r\n" +
		"\r\n" +
		"%PDF-1.4\r\n" +
		"--XYZ--\r\n"

	msg, err := ParseMessage([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, []string{"quote.pdf"}, msg.Attachments)

	data, err := newTestExtractor().Extract(msg)
	require.NoError(t, err)
	assert.Equal(t, "Furnace service", data.Title)
	assert.Equal(t, domain.PriorityLow, data.Priority)
	assert.Equal(t, "2025-05-01", data.DueDate)
	assert.Equal(t, "Acme Corp", data.Customer)
	assert.Equal(t, "HVAC", data.Trade)
	assert.Equal(t, "1. Review request\n2. Schedule site visit\n3. Follow up with customer", data.ActionItems)
}

func TestExtractHTMLOnly(t *testing.T) {
	raw := "From: Bob <bob@example.com>\r\n" +
		"Subject: Paint hallway\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<html><head><style>p{color:red}</style></head><body>" +
		"<p>Hallway walls need a fresh coat.</p>" +
		"<ul><li>Patch holes</li><li>Two coats eggshell</li></ul>" +
		"<script>alert(1)</script></body></html>\r\n"

	data, err := newTestExtractor().ExtractRaw([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, "Painting", data.Trade)
	assert.Equal(t, domain.PriorityNormal, data.Priority)
	assert.Equal(t, "2025-04-10", data.DueDate)
	assert.NotContains(t, data.Description, "alert")
	assert.NotContains(t, data.Description, "color:red")
	assert.Equal(t, "1. Patch holes\n2. Two coats eggshell", data.ActionItems)
}

func TestExtractBareBodyUsesFirstLineAsTitle(t *testing.T) {
	data, err := newTestExtractor().ExtractRaw([]byte("Kitchen outlet sparks when used\nPlease look at it this week."))
	require.NoError(t, err)

	assert.Equal(t, "Kitchen outlet sparks when used", data.Title)
	assert.Equal(t, "Electrical", data.Trade)
	assert.Empty(t, data.Customer)
}

func TestExtractEmptyContent(t *testing.T) {
	e := newTestExtractor()

	_, err := e.ExtractRaw([]byte("   \n"))
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = e.ExtractRaw([]byte("Subject: nothing here\r\n\r\n"))
	assert.ErrorIs(t, err, ErrEmptyContent)

	err = e.Handle(context.Background(), domain.Item{ID: "email_1_0", Raw: []byte("Subject: x\r\n\r\n")})
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestExtractTruncatesLongFields(t *testing.T) {
	long := strings.Repeat("word ", 400)
	data, err := newTestExtractor().Extract(&Message{Subject: strings.Repeat("x", 200), Text: long})
	require.NoError(t, err)

	assert.LessOrEqual(t, len([]rune(data.Title)), maxTitle)
	assert.LessOrEqual(t, len([]rune(data.Description)), maxDescription)
	assert.LessOrEqual(t, len([]rune(data.Summary)), maxSummary)
}

func TestHandleParsesItem(t *testing.T) {
	err := newTestExtractor().Handle(context.Background(), domain.Item{ID: "email_0_1", Raw: []byte(plainEmail)})
	assert.NoError(t, err)
}

func TestLoadRulesOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
default_trade: Handyman
trades:
  - name: Landscaping
    any: ["lawn", "hedge"]
`), 0o644))

	r, err := LoadRules(path)
	require.NoError(t, err)

	_, _, trade := r.Classify("hedge trimming at the front")
	assert.Equal(t, "Landscaping", trade)
	_, _, trade = r.Classify("roof is fine")
	assert.Equal(t, "Handyman", trade)

	// untouched sections keep defaults
	p, due, _ := r.Classify("urgent")
	assert.Equal(t, domain.PriorityHigh, p)
	assert.Equal(t, 1, due)
}

func TestLoadRulesMissingFileIsDefault(t *testing.T) {
	r, err := LoadRules(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultRules(), r)
}

func TestLoadRulesRejectsBadLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yml")
	require.NoError(t, os.WriteFile(path, []byte("priorities:\n  - level: SOMEDAY\n    any: [later]\n"), 0o644))

	_, err := LoadRules(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SOMEDAY")
}

func TestStripTitlePrefixes(t *testing.T) {
	r := DefaultRules()
	assert.Equal(t, "Leak", r.StripTitlePrefixes("Re: FWD: re: Leak"))
	assert.Equal(t, "Gutter cleaning", r.StripTitlePrefixes("Work Order: Gutter cleaning"))
	assert.Equal(t, "", r.StripTitlePrefixes("RE:"))
}

func TestReloadRulesSwapsClassification(t *testing.T) {
	e := newTestExtractor()
	msg := &Message{Subject: "Hedge", Text: "The hedge is overgrown."}

	data, err := e.Extract(msg)
	require.NoError(t, err)
	assert.Equal(t, DefaultRules().DefaultTrade, data.Trade)

	path := filepath.Join(t.TempDir(), "rules.yml")
	require.NoError(t, os.WriteFile(path, []byte("trades:\n  - name: Landscaping\n    any: [hedge]\n"), 0o644))
	require.NoError(t, e.ReloadRules(path))

	data, err = e.Extract(msg)
	require.NoError(t, err)
	assert.Equal(t, "Landscaping", data.Trade)
}

func TestReloadRulesKeepsCurrentOnError(t *testing.T) {
	e := newTestExtractor()
	custom := DefaultRules()
	custom.DefaultTrade = "Handyman"
	e.SetRules(custom)

	path := filepath.Join(t.TempDir(), "rules.yml")
	require.NoError(t, os.WriteFile(path, []byte("priorities:\n  - level: SOMEDAY\n    any: [later]\n"), 0o644))

	require.Error(t, e.ReloadRules(path))
	assert.Equal(t, "Handyman", e.Rules().DefaultTrade)
}

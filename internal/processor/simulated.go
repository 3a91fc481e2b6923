package processor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"workorder-engine/internal/config"
	"workorder-engine/internal/domain"
)

var simulatedRequests = []struct {
	subject, from, body string
}{
	{"Roof leaking in unit 4B", "Jane Smith <jane@example.com>",
		"Water is dripping from the ceiling in the bedroom. Please send someone ASAP.\nLocation: 12 Elm Street, Unit 4B"},
	{"Annual HVAC maintenance", "Facilities <facilities@example.com>",
		"Time for the yearly furnace and air conditioning check, no rush.\nCustomer: Acme Corp\nLocation: 400 Main St"},
	{"Kitchen faucet drips", "Bob Lee <bob@example.com>",
		"The kitchen faucet keeps dripping overnight.\n- Replace cartridge\n- Check supply lines"},
}

// SimulatedSource stands in for a mailbox. Cycle i yields i%3 emails with ids
// email_<i>_<j>; an email with (i+j)%4 == 0 has an empty body.
type SimulatedSource struct {
	mu        sync.Mutex
	iteration int
	now       func() time.Time
}

func NewSimulatedSource() *SimulatedSource {
	return &SimulatedSource{now: time.Now}
}

func (s *SimulatedSource) Poll(ctx context.Context) ([]domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	i := s.iteration
	s.iteration++
	s.mu.Unlock()

	n := i % 3
	items := make([]domain.Item, 0, n)
	for j := 0; j < n; j++ {
		req := simulatedRequests[(i+j)%len(simulatedRequests)]
		body := req.body
		if (i+j)%4 == 0 {
			body = ""
		}
		id := fmt.Sprintf("email_%d_%d", i, j)
		at := s.now()
		items = append(items, domain.Item{
			ID:         id,
			Source:     config.SourceSimulated,
			Subject:    req.subject,
			From:       req.from,
			ReceivedAt: at,
			Raw:        simulatedRaw(id, req.subject, req.from, body, at),
		})
	}
	return items, nil
}

func simulatedRaw(id, subject, from, body string, at time.Time) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "Message-ID: <%s@simulated.local>\r\n", id)
	fmt.Fprintf(&b, "From: %s\r\n", from)
	b.WriteString("To: workorders@example.com\r\n")
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", at.Format(time.RFC1123Z))
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

package mailbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/rs/zerolog"

	"workorder-engine/internal/config"
	"workorder-engine/internal/domain"
	"workorder-engine/internal/secrets"
)

const pollTimeout = 2 * time.Minute

// IMAPSource is a processor item source backed by one IMAP folder. Every
// Poll opens and closes its own connection.
type IMAPSource struct {
	cfg      config.IMAP
	password string
	max      int
	log      zerolog.Logger
}

// NewIMAPSource checks the account settings and resolves the password from
// the config document or the keychain.
func NewIMAPSource(cfg config.IMAP, maxMessages int, log zerolog.Logger) (*IMAPSource, error) {
	if strings.TrimSpace(cfg.Server) == "" || strings.TrimSpace(cfg.Username) == "" {
		return nil, errors.New("imap source needs imap.server and imap.username")
	}
	pw, err := secrets.ResolveIMAPPassword(cfg)
	if err != nil {
		return nil, err
	}
	return &IMAPSource{cfg: cfg, password: pw, max: maxMessages, log: log}, nil
}

func (s *IMAPSource) Addr() string {
	return address(s.cfg.Server, s.cfg.Port)
}

// Poll fetches unseen messages and marks the returned ones seen.
func (s *IMAPSource) Poll(ctx context.Context) ([]domain.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	c, err := DialAndLogin(ctx, s.Addr(), s.cfg.Username, s.password, nil)
	if err != nil {
		return nil, err
	}
	defer LogoutAndClose(c, s.log)

	if err := SelectFolder(c, s.cfg.Folder); err != nil {
		return nil, err
	}

	msgs, err := FetchUnseen(ctx, c, s.max)
	if err != nil {
		return nil, err
	}

	items := make([]domain.Item, 0, len(msgs))
	uids := make([]imap.UID, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, toItem(m))
		uids = append(uids, m.UID)
	}

	if err := MarkSeen(c, uids); err != nil {
		// the batch is still handed over; it may be fetched again next cycle
		s.log.Warn().Err(err).Int("count", len(uids)).Msg("mark seen failed")
	}

	s.log.Debug().Int("fetched", len(items)).Str("folder", s.cfg.Folder).Msg("imap poll")
	return items, nil
}

func toItem(m Message) domain.Item {
	return domain.Item{
		ID:         fmt.Sprintf("imap_%d", m.UID),
		Source:     config.SourceIMAP,
		Subject:    m.Subject,
		From:       m.From,
		ReceivedAt: m.Date,
		Raw:        m.Raw,
	}
}

func address(server string, port int) string {
	if strings.Contains(server, ":") {
		return server
	}
	if port == 0 {
		port = 993
	}
	return fmt.Sprintf("%s:%d", server, port)
}

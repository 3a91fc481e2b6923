package mailbox

import (
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"workorder-engine/internal/config"
	"workorder-engine/internal/secrets"
)

func TestAddress(t *testing.T) {
	assert.Equal(t, "imap.example.com:993", address("imap.example.com", 0))
	assert.Equal(t, "imap.example.com:143", address("imap.example.com", 143))
	assert.Equal(t, "imap.example.com:1993", address("imap.example.com:1993", 143))
}

func TestNewIMAPSourceRequiresAccount(t *testing.T) {
	_, err := NewIMAPSource(config.IMAP{Server: "imap.example.com"}, 10, zerolog.Nop())
	require.Error(t, err)

	_, err = NewIMAPSource(config.IMAP{Username: "ops"}, 10, zerolog.Nop())
	require.Error(t, err)
}

func TestNewIMAPSourcePasswordFromConfig(t *testing.T) {
	s, err := NewIMAPSource(config.IMAP{Server: "imap.example.com", Port: 993, Username: "ops", Password: "pw"}, 5, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "pw", s.password)
	assert.Equal(t, "imap.example.com:993", s.Addr())
}

func TestNewIMAPSourcePasswordFromKeychain(t *testing.T) {
	keyring.MockInit()

	cfg := config.IMAP{Server: "imap.example.com", Username: "ops"}
	_, err := NewIMAPSource(cfg, 5, zerolog.Nop())
	require.ErrorIs(t, err, secrets.ErrNotFound)

	require.NoError(t, secrets.SetIMAPPassword(secrets.IMAPKeyringAccount(cfg), "from-keychain"))

	s, err := NewIMAPSource(cfg, 5, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "from-keychain", s.password)
}

func TestToItem(t *testing.T) {
	date := time.Date(2025, 4, 3, 8, 0, 0, 0, time.UTC)
	it := toItem(Message{UID: 42, From: "jane@example.com", Subject: "Leak", Date: date, Raw: []byte("x")})

	assert.Equal(t, "imap_42", it.ID)
	assert.Equal(t, config.SourceIMAP, it.Source)
	assert.Equal(t, "Leak", it.Subject)
	assert.Equal(t, date, it.ReceivedAt)
	assert.Equal(t, []byte("x"), it.Raw)
}

func TestJoinAddrs(t *testing.T) {
	got := joinAddrs([]imap.Address{
		{Mailbox: "jane", Host: "example.com"},
		{Name: "No Address"},
		{},
	})
	assert.Equal(t, "jane@example.com, No Address", got)
}

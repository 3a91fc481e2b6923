package processor

import (
	"fmt"

	"github.com/rs/zerolog"

	"workorder-engine/internal/config"
	"workorder-engine/internal/mailbox"
)

// DefaultSourceFactory picks the source named by the processor settings.
func DefaultSourceFactory(log zerolog.Logger) SourceFactory {
	return func(cfg config.Config, s config.ProcessorSettings) (Source, error) {
		switch s.Source {
		case config.SourceSimulated, "":
			return NewSimulatedSource(), nil
		case config.SourceIMAP:
			return mailbox.NewIMAPSource(cfg.IMAP, s.MaxMessages, log.With().Str("component", "mailbox").Logger())
		default:
			return nil, fmt.Errorf("unknown source %q", s.Source)
		}
	}
}

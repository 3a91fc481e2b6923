package httpapi

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"workorder-engine/internal/config"
	"workorder-engine/internal/events"
	"workorder-engine/internal/extract"
	"workorder-engine/internal/processor"
	"workorder-engine/internal/store"
)

// ProcessorControl is the part of the processor the API drives.
type ProcessorControl interface {
	Start() (processor.Result, error)
	Stop() processor.Result
	Status(ctx context.Context) (processor.Status, error)
}

type Deps struct {
	Service string

	Config    *config.Store
	DB        *store.DB
	Logs      *store.LogStore
	Processor ProcessorControl
	Extractor *extract.Extractor
	Hub       *events.Hub

	// Gatherer backs /metrics; nil disables the route.
	Gatherer prometheus.Gatherer

	Log zerolog.Logger

	// ChunkDelay paces the simulated chat stream.
	ChunkDelay time.Duration
}

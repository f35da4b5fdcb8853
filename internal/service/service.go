package service

import (
	"log/slog"

	"github.com/xiaot623/tripchat/internal/config"
	"github.com/xiaot623/tripchat/internal/domain"
	"github.com/xiaot623/tripchat/internal/repository"
)

// EventPublisher fans recorded events out to live subscribers.
type EventPublisher interface {
	PublishEvent(event domain.Event)
}

// Service owns sessions and runs chat turns against them.
type Service struct {
	store         repository.Store
	orchestrator  *Orchestrator
	publisher     EventPublisher
	maxIterations int
	logger        *slog.Logger
	locks         *keyedMutex
}

// New creates a service. publisher may be nil.
func New(store repository.Store, orchestrator *Orchestrator, publisher EventPublisher, cfg *config.Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	maxIterations := 10
	if cfg != nil && cfg.MaxChatIterations > 0 {
		maxIterations = cfg.MaxChatIterations
	}
	return &Service{
		store:         store,
		orchestrator:  orchestrator,
		publisher:     publisher,
		maxIterations: maxIterations,
		logger:        logger,
		locks:         newKeyedMutex(),
	}
}

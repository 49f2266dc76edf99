package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/repairshop-session/internal/events"
	"github.com/spec-kit/repairshop-session/internal/observability"
)

// SessionAuditService records session lifecycle events for operators:
// every transition is logged and counted, rejected secondary-factor
// attempts get their own counter so lockout storms are visible.
type SessionAuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewSessionAuditService creates the service.
func NewSessionAuditService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *SessionAuditService {
	return &SessionAuditService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to session events.
func (s *SessionAuditService) RegisterHandlers() {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.SubscribeAll(s.handleTransition)
	s.dispatcher.Subscribe(events.EventPINRejected, s.handlePINRejected)
}

func (s *SessionAuditService) handleTransition(_ context.Context, event events.Event) error {
	s.logger.Info("session event",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("actor_id", event.ActorID),
		zap.String("actor_kind", string(event.ActorKind)),
		zap.String("from_state", event.FromState),
		zap.String("to_state", event.ToState))
	s.metrics.RecordTransition(string(event.Type), event.FromState, event.ToState)
	return nil
}

func (s *SessionAuditService) handlePINRejected(_ context.Context, event events.Event) error {
	s.metrics.RecordPINRejection()
	if payload, ok := event.Payload.(events.PINRejectedPayload); ok {
		s.logger.Warn("secondary factor rejected",
			zap.String("actor_id", event.ActorID),
			zap.Int("failed_attempts", payload.FailedAttempts),
			zap.Int("max_attempts", payload.MaxAttempts))
	}
	return nil
}

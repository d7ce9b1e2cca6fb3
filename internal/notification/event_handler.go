package notification

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/procurement-management/internal/core/events"
)

// Service turns workflow events into notifications. The current sink is the
// log; the handler boundary is where mail or chat delivery would plug in.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	return &Service{logger: logger}
}

// RegisterEventHandlers subscribes the notification fan-out to the bus.
func (s *Service) RegisterEventHandlers(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeRequestTransitioned, s.handleTransitioned)
	bus.Subscribe(events.EventTypeRequestApproved, s.handleApproved)
	bus.Subscribe(events.EventTypeRequestRejected, s.handleRejected)
	bus.Subscribe(events.EventTypeDocumentUploaded, s.handleDocumentUploaded)
}

func (s *Service) handleTransitioned(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.RequestTransitionedEvent)
	if !ok {
		return nil
	}

	s.logger.Info("notify: request moved",
		"request_number", e.RequestNumber,
		"from", e.FromStatus,
		"to", e.ToStatus,
		"action", e.Action,
		"recipient_user_id", e.CreatedBy)
	return nil
}

func (s *Service) handleApproved(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.RequestApprovedEvent)
	if !ok {
		return nil
	}

	s.logger.Info("notify: request approved",
		"request_number", e.RequestNumber,
		"approved_by", e.ApprovedBy,
		"recipient_user_id", e.CreatedBy)
	return nil
}

func (s *Service) handleRejected(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.RequestRejectedEvent)
	if !ok {
		return nil
	}

	s.logger.Info("notify: request rejected",
		"request_number", e.RequestNumber,
		"rejected_by", e.RejectedBy,
		"recipient_user_id", e.CreatedBy,
		"notes", e.Notes)
	return nil
}

func (s *Service) handleDocumentUploaded(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.DocumentUploadedEvent)
	if !ok {
		return nil
	}

	s.logger.Info("notify: document uploaded",
		"document_id", e.DocumentID,
		"request_id", e.RequestID,
		"document_type", e.DocumentType,
		"uploaded_by", e.UploadedBy)
	return nil
}

package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	internal "github.com/frahmantamala/procurement-management/internal"
	"github.com/frahmantamala/procurement-management/internal/auth"
	"github.com/frahmantamala/procurement-management/internal/core/events"
)

// RepositoryAPI defines the data access methods for audit logs.
type RepositoryAPI interface {
	Append(e *Entry) error
	List(filter ListFilter) ([]*Entry, error)
	Stats() (*Stats, error)
}

// Service appends audit records and serves the admin read side. Writes are
// fed by the event bus so domain services never block on auditing.
type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// Record appends an audit entry directly.
func (s *Service) Record(userID int64, tableName, recordID, action string, oldValues, newValues json.RawMessage) error {
	entry := &Entry{
		UserID:    userID,
		TableName: tableName,
		RecordID:  recordID,
		Action:    action,
		OldValues: oldValues,
		NewValues: newValues,
	}
	if err := s.repo.Append(entry); err != nil {
		s.logger.Error("failed to append audit entry",
			"error", err, "table", tableName, "record_id", recordID, "action", action)
		return err
	}
	return nil
}

func (s *Service) List(actor *auth.User, filter ListFilter) ([]*Entry, error) {
	if actor == nil || !actor.IsSuperuser {
		return nil, internal.ErrUnauthorizedAccess
	}
	filter.Normalize()
	return s.repo.List(filter)
}

func (s *Service) GetStats(actor *auth.User) (*Stats, error) {
	if actor == nil || !actor.IsSuperuser {
		return nil, internal.ErrUnauthorizedAccess
	}
	return s.repo.Stats()
}

// RegisterEventHandlers wires the audit trail to the workflow events.
func (s *Service) RegisterEventHandlers(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeRequestTransitioned, s.handleRequestTransitioned)
	bus.Subscribe(events.EventTypeDocumentUploaded, s.handleDocumentUploaded)
}

func (s *Service) handleRequestTransitioned(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.RequestTransitionedEvent)
	if !ok {
		return nil
	}

	oldValues, _ := json.Marshal(map[string]string{"status": e.FromStatus})
	newValues, _ := json.Marshal(map[string]string{"status": e.ToStatus, "action": e.Action})

	return s.Record(e.ActorID, "requests", strconv.FormatInt(e.RequestID, 10), e.Action, oldValues, newValues)
}

func (s *Service) handleDocumentUploaded(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.DocumentUploadedEvent)
	if !ok {
		return nil
	}

	newValues, _ := json.Marshal(map[string]string{
		"document_type": e.DocumentType,
		"request_id":    strconv.FormatInt(e.RequestID, 10),
	})

	return s.Record(e.UploadedBy, "procurement_documents", e.DocumentID, "uploaded", nil, newValues)
}

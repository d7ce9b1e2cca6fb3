package request

import (
	"context"
	"log/slog"
	"strings"
	"time"

	internal "github.com/frahmantamala/procurement-management/internal"
	"github.com/frahmantamala/procurement-management/internal/authz"
	"github.com/frahmantamala/procurement-management/internal/core/events"
)

// Transition describes one atomic workflow step: the guarded status change
// plus the ledger entry and any column updates that ride along. Storage
// commits all of it in a single transaction or none of it.
type Transition struct {
	RequestID      int64
	ExpectedStatus Status
	NewStatus      Status
	Updates        map[string]interface{}
	Entry          HistoryEntry
}

// RepositoryAPI defines the data access methods for requests.
type RepositoryAPI interface {
	Create(req *Request) error
	GetByID(id int64) (*Request, error)
	Update(req *Request) error
	Delete(id int64) error
	ExistsByNumber(number string) (bool, error)
	ListByCreator(userID int64, filter ListFilter) ([]*Request, error)
	ListAll(filter ListFilter) ([]*Request, error)
	ListByApprover(approverID int64, filter ListFilter) ([]*Request, error)
	ListByStatuses(statuses []Status, filter ListFilter) ([]*Request, error)
	Transition(t Transition) error
	History(requestID int64) ([]*HistoryEntry, error)
}

// Directory resolves users and supervisor chains. Implemented by the user
// package; kept as an interface so the workflow stays testable in isolation.
type Directory interface {
	UserRef(id int64) (*UserRef, error)
	ApprovalChain(userID int64) ([]UserRef, error)
}

// UserRef is the directory's view of a user, enough for approval routing.
type UserRef struct {
	ID          int64
	FullName    string
	IsSuperuser bool
}

// EventPublisher decouples the workflow from notification fan-out.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID          int64
	FullName    string
	IsSuperuser bool
	WorksiteID  *int64
	Permissions []string
}

func (a Actor) subject() authz.Subject {
	return authz.Subject{
		ID:          a.ID,
		IsSuperuser: a.IsSuperuser,
		WorksiteID:  a.WorksiteID,
		Permissions: authz.FromStrings(a.Permissions),
	}
}

// Service handles the procurement request workflow.
type Service struct {
	repo      RepositoryAPI
	directory Directory
	publisher EventPublisher
	logger    *slog.Logger
}

func NewService(repo RepositoryAPI, directory Directory, publisher EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		directory: directory,
		publisher: publisher,
		logger:    logger,
	}
}

const maxNumberAttempts = 5

// CreateRequest creates a new draft owned by the actor.
func (s *Service) CreateRequest(actor Actor, dto CreateRequestDTO) (*Request, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("request validation failed", "error", err, "user_id", actor.ID)
		return nil, err
	}

	number, err := s.uniqueNumber()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	req := &Request{
		RequestNumber:   number,
		Item:            dto.Item,
		Description:     dto.Description,
		CreatedBy:       actor.ID,
		Status:          StatusDraft,
		Quantity:        dto.ParsedQuantity(),
		Unit:            dto.Unit,
		Category:        dto.Category,
		DeliveryAddress: dto.DeliveryAddress,
		Reason:          dto.Reason,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(req); err != nil {
		s.logger.Error("failed to create request", "error", err, "user_id", actor.ID)
		return nil, internal.NewInternalError("failed to create request", err)
	}

	s.logger.Info("request created",
		"request_id", req.ID,
		"request_number", req.RequestNumber,
		"user_id", actor.ID)

	return req, nil
}

func (s *Service) uniqueNumber() (string, error) {
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number := NewRequestNumber(time.Now())
		exists, err := s.repo.ExistsByNumber(number)
		if err != nil {
			return "", internal.NewInternalError("failed to check request number", err)
		}
		if !exists {
			return number, nil
		}
	}
	return "", internal.NewInternalError("could not generate a unique request number", nil)
}

// GetRequest retrieves a request with access control.
func (s *Service) GetRequest(actor Actor, id int64) (*Request, error) {
	req, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !authz.CanView(requestState(req), actor.subject()) {
		s.logger.Warn("unauthorized access to request", "request_id", id, "user_id", actor.ID)
		return nil, internal.ErrUnauthorizedAccess
	}
	return req, nil
}

// UpdateDraft replaces the editable fields of a draft. Only the creator may
// edit, and only while the request has not left draft.
func (s *Service) UpdateDraft(actor Actor, id int64, dto UpdateRequestDTO) (*Request, error) {
	req, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !authz.CanEdit(requestState(req), actor.subject()) {
		if req.Status != StatusDraft {
			return nil, internal.ErrCannotModify
		}
		return nil, internal.ErrUnauthorizedAccess
	}
	if verr := dto.Validate(); verr != nil {
		return nil, verr
	}

	req.Item = dto.Item
	req.Description = dto.Description
	req.Quantity = dto.ParsedQuantity()
	req.Unit = dto.Unit
	req.Category = dto.Category
	req.DeliveryAddress = dto.DeliveryAddress
	req.Reason = dto.Reason
	req.UpdatedAt = time.Now()

	if err := s.repo.Update(req); err != nil {
		s.logger.Error("failed to update draft", "error", err, "request_id", id)
		return nil, internal.NewInternalError("failed to update request", err)
	}
	return req, nil
}

// DeleteDraft removes a draft. Submitted requests are never deleted; they
// are rejected or completed so the ledger keeps its full story.
func (s *Service) DeleteDraft(actor Actor, id int64) error {
	req, err := s.load(id)
	if err != nil {
		return err
	}
	if !authz.CanDelete(requestState(req), actor.subject()) {
		if req.Status != StatusDraft {
			return internal.ErrCannotModify
		}
		return internal.ErrUnauthorizedAccess
	}
	if err := s.repo.Delete(id); err != nil {
		s.logger.Error("failed to delete draft", "error", err, "request_id", id)
		return internal.NewInternalError("failed to delete request", err)
	}
	s.logger.Info("draft deleted", "request_id", id, "user_id", actor.ID)
	return nil
}

// History returns the full ledger for a request, oldest first.
func (s *Service) History(actor Actor, id int64) ([]*HistoryEntry, error) {
	req, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !authz.CanView(requestState(req), actor.subject()) {
		return nil, internal.ErrUnauthorizedAccess
	}
	entries, err := s.repo.History(id)
	if err != nil {
		s.logger.Error("failed to load history", "error", err, "request_id", id)
		return nil, internal.NewInternalError("failed to load approval history", err)
	}
	return entries, nil
}

// ListMine returns the actor's own requests.
func (s *Service) ListMine(actor Actor, filter ListFilter) ([]*Request, error) {
	filter.Normalize()
	return s.repo.ListByCreator(actor.ID, filter)
}

// ListAll returns every request; restricted to admins and view-all holders.
func (s *Service) ListAll(actor Actor, filter ListFilter) ([]*Request, error) {
	if !authz.CanViewAllRequests(actor.subject()) {
		s.logger.Warn("list all requests denied", "user_id", actor.ID)
		return nil, internal.ErrUnauthorizedAccess
	}
	filter.Normalize()
	return s.repo.ListAll(filter)
}

// ListPendingApproval returns the requests waiting on the actor's decision.
// Superusers see everything pending or in review.
func (s *Service) ListPendingApproval(actor Actor, filter ListFilter) ([]*Request, error) {
	filter.Normalize()
	if actor.IsSuperuser {
		return s.repo.ListByStatuses([]Status{StatusPending, StatusInReview}, filter)
	}
	return s.repo.ListByApprover(actor.ID, filter)
}

// ListPurchasingQueue returns the requests a purchasing actor works through.
func (s *Service) ListPurchasingQueue(actor Actor, filter ListFilter) ([]*Request, error) {
	if !authz.CanPurchase(actor.subject()) {
		s.logger.Warn("purchasing queue denied", "user_id", actor.ID)
		return nil, internal.ErrUnauthorizedAccess
	}
	filter.Normalize()
	return s.repo.ListByStatuses([]Status{StatusApproved, StatusPurchasing, StatusOrdered, StatusDelivered}, filter)
}

// Submit moves a draft into the approval flow. The first supervisor in the
// creator's chain becomes the current approver; a creator with no supervisor
// submits straight into an unassigned pending state for admins to pick up.
func (s *Service) Submit(ctx context.Context, actor Actor, id int64, dto TransitionDTO) (*Request, error) {
	return s.transition(ctx, actor, id, ActionSubmit, dto, func(req *Request) *internal.AppError {
		if !req.IsOwnedBy(actor.ID) {
			return internal.ErrUnauthorizedAccess
		}
		return validateForSubmission(req)
	}, func(req *Request, t *Transition) error {
		now := time.Now()
		t.Updates["submitted_at"] = now

		chain, err := s.directory.ApprovalChain(req.CreatedBy)
		if err != nil {
			return err
		}
		if len(chain) > 0 {
			t.Updates["current_approver"] = chain[0].ID
		}
		return nil
	})
}

// MoveToReview marks a pending request as actively under review.
func (s *Service) MoveToReview(ctx context.Context, actor Actor, id int64, dto TransitionDTO) (*Request, error) {
	return s.transition(ctx, actor, id, ActionMoveToReview, dto, func(req *Request) *internal.AppError {
		if !authz.CanApprove(requestState(req), actor.subject()) {
			return internal.ErrUnauthorizedAccess
		}
		return nil
	}, nil)
}

// Approve grants the request. The approver is recorded as final approver and
// the request becomes visible to purchasing.
func (s *Service) Approve(ctx context.Context, actor Actor, id int64, dto TransitionDTO) (*Request, error) {
	return s.transition(ctx, actor, id, ActionApprove, dto, func(req *Request) *internal.AppError {
		if !authz.CanApprove(requestState(req), actor.subject()) {
			return internal.ErrUnauthorizedAccess
		}
		return nil
	}, func(req *Request, t *Transition) error {
		t.Updates["final_approver"] = actor.ID
		t.Updates["current_approver"] = nil
		return nil
	})
}

// Reject terminally refuses a request. Requires notes. Approvers may reject
// while the request awaits approval; purchasing actors may reject during
// purchasing when the item turns out to be unobtainable.
func (s *Service) Reject(ctx context.Context, actor Actor, id int64, dto TransitionDTO) (*Request, error) {
	return s.transition(ctx, actor, id, ActionReject, dto, func(req *Request) *internal.AppError {
		if !s.canDecide(req, actor) {
			return internal.ErrUnauthorizedAccess
		}
		return nil
	}, func(req *Request, t *Transition) error {
		t.Updates["current_approver"] = nil
		return nil
	})
}

// RequestRevision sends the request back to its creator with notes.
func (s *Service) RequestRevision(ctx context.Context, actor Actor, id int64, dto TransitionDTO) (*Request, error) {
	return s.transition(ctx, actor, id, ActionRequestRevision, dto, func(req *Request) *internal.AppError {
		if !s.canDecide(req, actor) {
			return internal.ErrUnauthorizedAccess
		}
		return nil
	}, func(req *Request, t *Transition) error {
		t.Updates["revision_notes"] = dto.Notes
		return nil
	})
}

// Resubmit returns a revised request to the approval flow. The revision
// counter increments only when the transition commits, and the revision notes
// are cleared so stale guidance does not shadow the new round.
func (s *Service) Resubmit(ctx context.Context, actor Actor, id int64, dto TransitionDTO) (*Request, error) {
	return s.transition(ctx, actor, id, ActionResubmit, dto, func(req *Request) *internal.AppError {
		if !req.IsOwnedBy(actor.ID) {
			return internal.ErrUnauthorizedAccess
		}
		return validateForSubmission(req)
	}, func(req *Request, t *Transition) error {
		t.Updates["revision_count"] = req.RevisionCount + 1
		t.Updates["revision_notes"] = ""

		chain, err := s.directory.ApprovalChain(req.CreatedBy)
		if err != nil {
			return err
		}
		if len(chain) > 0 {
			t.Updates["current_approver"] = chain[0].ID
		} else {
			t.Updates["current_approver"] = nil
		}
		return nil
	})
}

// AssignPurchasing pulls an approved request into the purchasing queue.
func (s *Service) AssignPurchasing(ctx context.Context, actor Actor, id int64, dto TransitionDTO) (*Request, error) {
	return s.transition(ctx, actor, id, ActionAssignPurchasing, dto, s.purchasingGuard(actor), nil)
}

// MarkOrdered records that the purchase order went out.
func (s *Service) MarkOrdered(ctx context.Context, actor Actor, id int64, dto TransitionDTO) (*Request, error) {
	return s.transition(ctx, actor, id, ActionMarkOrdered, dto, s.purchasingGuard(actor), nil)
}

// MarkDelivered records that the goods arrived.
func (s *Service) MarkDelivered(ctx context.Context, actor Actor, id int64, dto TransitionDTO) (*Request, error) {
	return s.transition(ctx, actor, id, ActionMarkDelivered, dto, s.purchasingGuard(actor), nil)
}

// MarkCompleted closes out a delivered request. The creator may close their
// own request to confirm receipt; purchasing actors and admins may close any.
func (s *Service) MarkCompleted(ctx context.Context, actor Actor, id int64, dto TransitionDTO) (*Request, error) {
	return s.transition(ctx, actor, id, ActionMarkCompleted, dto, func(req *Request) *internal.AppError {
		if !authz.CanClose(requestState(req), actor.subject()) {
			return internal.ErrUnauthorizedAccess
		}
		return nil
	}, nil)
}

func (s *Service) purchasingGuard(actor Actor) func(*Request) *internal.AppError {
	return func(req *Request) *internal.AppError {
		if !authz.CanPurchase(actor.subject()) {
			return internal.ErrUnauthorizedAccess
		}
		return nil
	}
}

// canDecide covers reject and request_revision, which are legal both during
// approval (approver decides) and during purchasing (purchaser decides).
func (s *Service) canDecide(req *Request, actor Actor) bool {
	switch req.Status {
	case StatusPending, StatusInReview:
		return authz.CanApprove(requestState(req), actor.subject())
	case StatusPurchasing:
		return authz.CanPurchase(actor.subject())
	}
	return false
}

// transition is the single path every workflow action goes through:
// load, precondition check, authorization, notes validation, then the atomic
// guarded commit. Authorization is evaluated before the table lookup error is
// surfaced only for visibility; state is never mutated on any failure.
func (s *Service) transition(
	ctx context.Context,
	actor Actor,
	id int64,
	action Action,
	dto TransitionDTO,
	guard func(req *Request) *internal.AppError,
	mutate func(req *Request, t *Transition) error,
) (*Request, error) {
	req, err := s.load(id)
	if err != nil {
		return nil, err
	}

	if !authz.CanView(requestState(req), actor.subject()) {
		s.logger.Warn("transition denied: no access",
			"request_id", id, "user_id", actor.ID, "action", action)
		return nil, internal.ErrUnauthorizedAccess
	}

	if dto.ExpectedStatus != "" && Status(dto.ExpectedStatus) != req.Status {
		return nil, internal.NewStaleStateError(dto.ExpectedStatus, string(action))
	}

	dest, ok := Destination(action, req.Status)
	if !ok {
		s.logger.Warn("invalid transition",
			"request_id", id, "status", req.Status, "action", action)
		return nil, internal.NewInvalidTransitionError(string(req.Status), string(action))
	}

	if guard != nil {
		if gerr := guard(req); gerr != nil {
			s.logger.Warn("transition denied",
				"request_id", id, "user_id", actor.ID, "action", action, "error", gerr)
			return nil, gerr
		}
	}

	if NotesRequired(action) && strings.TrimSpace(dto.Notes) == "" {
		return nil, internal.ErrMissingReason
	}

	t := Transition{
		RequestID:      req.ID,
		ExpectedStatus: req.Status,
		NewStatus:      dest,
		Updates:        map[string]interface{}{},
		Entry: HistoryEntry{
			RequestID: req.ID,
			UserID:    actor.ID,
			UserName:  actor.FullName,
			Action:    HistoryAction(action),
			Level:     s.approvalLevel(req, actor),
			Notes:     dto.Notes,
		},
	}

	if mutate != nil {
		if merr := mutate(req, &t); merr != nil {
			if appErr, ok := internal.IsAppError(merr); ok {
				return nil, appErr
			}
			s.logger.Error("transition preparation failed",
				"error", merr, "request_id", id, "action", action)
			return nil, internal.NewInternalError("failed to prepare transition", merr)
		}
	}

	if err := s.repo.Transition(t); err != nil {
		if appErr, ok := internal.IsAppError(err); ok {
			return nil, appErr
		}
		s.logger.Error("transition commit failed",
			"error", err, "request_id", id, "action", action)
		return nil, internal.NewInternalError("failed to apply transition", err)
	}

	updated, err := s.load(id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("request transitioned",
		"request_id", id,
		"request_number", updated.RequestNumber,
		"from", req.Status,
		"to", updated.Status,
		"action", action,
		"user_id", actor.ID)

	s.publishTransition(ctx, req, updated, action, actor, dto.Notes)

	return updated, nil
}

func (s *Service) publishTransition(ctx context.Context, before, after *Request, action Action, actor Actor, notes string) {
	if s.publisher == nil {
		return
	}

	event := events.NewRequestTransitionedEvent(
		after.ID, after.RequestNumber,
		string(before.Status), string(after.Status),
		HistoryAction(action), actor.ID, after.CreatedBy)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish transition event", "error", err, "request_id", after.ID)
	}

	switch action {
	case ActionApprove:
		approved := events.NewRequestApprovedEvent(after.ID, after.RequestNumber, actor.ID, after.CreatedBy)
		if err := s.publisher.Publish(ctx, approved); err != nil {
			s.logger.Error("failed to publish approval event", "error", err, "request_id", after.ID)
		}
	case ActionReject:
		rejected := events.NewRequestRejectedEvent(after.ID, after.RequestNumber, actor.ID, after.CreatedBy, notes)
		if err := s.publisher.Publish(ctx, rejected); err != nil {
			s.logger.Error("failed to publish rejection event", "error", err, "request_id", after.ID)
		}
	}
}

// approvalLevel places the actor in the creator's supervisor chain: the
// creator is level 0, their immediate supervisor level 1, and so on. Actors
// outside the chain (admins, purchasing) are recorded at level 0.
func (s *Service) approvalLevel(req *Request, actor Actor) int {
	if actor.ID == req.CreatedBy {
		return 0
	}
	chain, err := s.directory.ApprovalChain(req.CreatedBy)
	if err != nil {
		s.logger.Warn("could not resolve approval chain for level",
			"error", err, "request_id", req.ID, "created_by", req.CreatedBy)
		return 0
	}
	for i, ref := range chain {
		if ref.ID == actor.ID {
			return i + 1
		}
	}
	return 0
}

func (s *Service) load(id int64) (*Request, error) {
	req, err := s.repo.GetByID(id)
	if err != nil {
		if appErr, ok := internal.IsAppError(err); ok {
			return nil, appErr
		}
		s.logger.Error("failed to get request", "error", err, "request_id", id)
		return nil, internal.ErrRequestNotFound
	}
	if req == nil {
		return nil, internal.ErrRequestNotFound
	}
	return req, nil
}

func requestState(r *Request) authz.RequestState {
	return authz.RequestState{
		Status:          string(r.Status),
		CreatedBy:       r.CreatedBy,
		CurrentApprover: r.CurrentApprover,
	}
}

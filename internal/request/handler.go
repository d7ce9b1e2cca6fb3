package request

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/procurement-management/internal/auth"
	"github.com/frahmantamala/procurement-management/internal/transport"
	"github.com/frahmantamala/procurement-management/pkg/logger"
)

type ServiceAPI interface {
	CreateRequest(actor Actor, dto CreateRequestDTO) (*Request, error)
	GetRequest(actor Actor, id int64) (*Request, error)
	UpdateDraft(actor Actor, id int64, dto UpdateRequestDTO) (*Request, error)
	DeleteDraft(actor Actor, id int64) error
	History(actor Actor, id int64) ([]*HistoryEntry, error)
	ListMine(actor Actor, filter ListFilter) ([]*Request, error)
	ListAll(actor Actor, filter ListFilter) ([]*Request, error)
	ListPendingApproval(actor Actor, filter ListFilter) ([]*Request, error)
	ListPurchasingQueue(actor Actor, filter ListFilter) ([]*Request, error)

	Submit(ctx context.Context, actor Actor, id int64, dto TransitionDTO) (*Request, error)
	MoveToReview(ctx context.Context, actor Actor, id int64, dto TransitionDTO) (*Request, error)
	Approve(ctx context.Context, actor Actor, id int64, dto TransitionDTO) (*Request, error)
	Reject(ctx context.Context, actor Actor, id int64, dto TransitionDTO) (*Request, error)
	RequestRevision(ctx context.Context, actor Actor, id int64, dto TransitionDTO) (*Request, error)
	Resubmit(ctx context.Context, actor Actor, id int64, dto TransitionDTO) (*Request, error)
	AssignPurchasing(ctx context.Context, actor Actor, id int64, dto TransitionDTO) (*Request, error)
	MarkOrdered(ctx context.Context, actor Actor, id int64, dto TransitionDTO) (*Request, error)
	MarkDelivered(ctx context.Context, actor Actor, id int64, dto TransitionDTO) (*Request, error)
	MarkCompleted(ctx context.Context, actor Actor, id int64, dto TransitionDTO) (*Request, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

// ActorFromUser converts an authenticated user into a workflow actor.
func ActorFromUser(u *auth.User) Actor {
	return Actor{
		ID:          u.ID,
		FullName:    u.FullName,
		IsSuperuser: u.IsSuperuser,
		WorksiteID:  u.WorksiteID,
		Permissions: u.Permissions,
	}
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (Actor, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return Actor{}, false
	}
	return ActorFromUser(user), true
}

func (h *Handler) requestID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.Logger.Error("invalid request ID", "id", idStr)
		h.WriteError(w, http.StatusBadRequest, "invalid request ID")
		return 0, false
	}
	return id, true
}

func listFilterFromQuery(r *http.Request) ListFilter {
	filter := ListFilter{
		Status: r.URL.Query().Get("status"),
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = o
		}
	}
	filter.Normalize()
	return filter
}

func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var dto CreateRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateRequest: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.Service.CreateRequest(actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, req)
}

func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.requestID(w, r)
	if !ok {
		return
	}

	req, err := h.Service.GetRequest(actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, req)
}

func (h *Handler) UpdateRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.requestID(w, r)
	if !ok {
		return
	}

	var dto UpdateRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("UpdateRequest: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.Service.UpdateDraft(actor, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, req)
}

func (h *Handler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.requestID(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteDraft(actor, id); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.requestID(w, r)
	if !ok {
		return
	}

	entries, err := h.Service.History(actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"history": entries,
	})
}

func (h *Handler) ListMyRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	filter := listFilterFromQuery(r)

	requests, err := h.Service.ListMine(actor, filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.writeList(w, requests, filter)
}

func (h *Handler) ListAllRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	filter := listFilterFromQuery(r)

	requests, err := h.Service.ListAll(actor, filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.writeList(w, requests, filter)
}

func (h *Handler) ListPendingApprovals(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	filter := listFilterFromQuery(r)

	requests, err := h.Service.ListPendingApproval(actor, filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.writeList(w, requests, filter)
}

func (h *Handler) ListPurchasingQueue(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	filter := listFilterFromQuery(r)

	requests, err := h.Service.ListPurchasingQueue(actor, filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.writeList(w, requests, filter)
}

func (h *Handler) writeList(w http.ResponseWriter, requests []*Request, filter ListFilter) {
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"requests": requests,
		"limit":    filter.Limit,
		"offset":   filter.Offset,
	})
}

type transitionFunc func(ctx context.Context, actor Actor, id int64, dto TransitionDTO) (*Request, error)

// transitionHandler wraps one workflow action as an HTTP endpoint. The body
// is optional: actions without notes accept an empty body.
func (h *Handler) transitionHandler(name string, fn transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := h.actor(w, r)
		if !ok {
			return
		}
		id, ok := h.requestID(w, r)
		if !ok {
			return
		}

		var dto TransitionDTO
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
				h.Logger.Error("invalid request body", "action", name, "error", err)
				h.WriteError(w, http.StatusBadRequest, "invalid request body")
				return
			}
		}

		req, err := fn(r.Context(), actor, id, dto)
		if err != nil {
			h.HandleServiceError(w, err)
			return
		}

		h.WriteJSON(w, http.StatusOK, req)
	}
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	h.transitionHandler("submit", h.Service.Submit)(w, r)
}

func (h *Handler) MoveToReview(w http.ResponseWriter, r *http.Request) {
	h.transitionHandler("move_to_review", h.Service.MoveToReview)(w, r)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transitionHandler("approve", h.Service.Approve)(w, r)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transitionHandler("reject", h.Service.Reject)(w, r)
}

func (h *Handler) RequestRevision(w http.ResponseWriter, r *http.Request) {
	h.transitionHandler("request_revision", h.Service.RequestRevision)(w, r)
}

func (h *Handler) Resubmit(w http.ResponseWriter, r *http.Request) {
	h.transitionHandler("resubmit", h.Service.Resubmit)(w, r)
}

func (h *Handler) AssignPurchasing(w http.ResponseWriter, r *http.Request) {
	h.transitionHandler("assign_purchasing", h.Service.AssignPurchasing)(w, r)
}

func (h *Handler) MarkOrdered(w http.ResponseWriter, r *http.Request) {
	h.transitionHandler("mark_ordered", h.Service.MarkOrdered)(w, r)
}

func (h *Handler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	h.transitionHandler("mark_delivered", h.Service.MarkDelivered)(w, r)
}

func (h *Handler) MarkCompleted(w http.ResponseWriter, r *http.Request) {
	h.transitionHandler("mark_completed", h.Service.MarkCompleted)(w, r)
}

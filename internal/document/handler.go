package document

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/google/uuid"

	"github.com/frahmantamala/procurement-management/internal/auth"
	"github.com/frahmantamala/procurement-management/internal/request"
	"github.com/frahmantamala/procurement-management/internal/transport"
	"github.com/frahmantamala/procurement-management/pkg/logger"
)

type ServiceAPI interface {
	CreateDocument(ctx context.Context, actor request.Actor, requestID int64, dto CreateDocumentDTO) (*UploadTicket, error)
	ConfirmUpload(ctx context.Context, actor request.Actor, id uuid.UUID) (*Document, error)
	DownloadURL(ctx context.Context, actor request.Actor, id uuid.UUID) (*DownloadTicket, error)
	ListForRequest(actor request.Actor, requestID int64) ([]*Document, error)
	Delete(ctx context.Context, actor request.Actor, id uuid.UUID) error
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

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (request.Actor, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return request.Actor{}, false
	}
	return request.ActorFromUser(user), true
}

func (h *Handler) documentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "documentID")
	id, err := uuid.Parse(idStr)
	if err != nil {
		h.Logger.Error("invalid document ID", "id", idStr)
		h.WriteError(w, http.StatusBadRequest, "invalid document ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) parentRequestID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.Logger.Error("invalid request ID", "id", idStr)
		h.WriteError(w, http.StatusBadRequest, "invalid request ID")
		return 0, false
	}
	return id, true
}

func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	requestID, ok := h.parentRequestID(w, r)
	if !ok {
		return
	}

	var dto CreateDocumentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateDocument: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ticket, err := h.Service.CreateDocument(r.Context(), actor, requestID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, ticket)
}

func (h *Handler) ConfirmUpload(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}

	doc, err := h.Service.ConfirmUpload(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}

	ticket, err := h.Service.DownloadURL(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ticket)
}

func (h *Handler) ListForRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	requestID, ok := h.parentRequestID(w, r)
	if !ok {
		return
	}

	docs, err := h.Service.ListForRequest(actor, requestID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
	})
}

func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.documentID(w, r)
	if !ok {
		return
	}

	if err := h.Service.Delete(r.Context(), actor, id); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

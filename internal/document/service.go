package document

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	internal "github.com/frahmantamala/procurement-management/internal"
	"github.com/frahmantamala/procurement-management/internal/authz"
	"github.com/frahmantamala/procurement-management/internal/core/events"
	"github.com/frahmantamala/procurement-management/internal/request"
)

// RepositoryAPI defines the data access methods for documents.
type RepositoryAPI interface {
	Create(doc *Document) error
	GetByID(id uuid.UUID) (*Document, error)
	ListByRequest(requestID int64) ([]*Document, error)
	MarkUploaded(id uuid.UUID, uploadedAt time.Time) error
	MarkDeleted(id uuid.UUID) error
}

// RequestGateway is the slice of the request service the document workflow
// needs: access-controlled reads.
type RequestGateway interface {
	GetRequest(actor request.Actor, id int64) (*request.Request, error)
}

// EventPublisher decouples upload confirmation from notification fan-out.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Service handles the three-phase document upload workflow: declare the
// upload, PUT the file to storage directly, then confirm.
type Service struct {
	repo      RepositoryAPI
	storage   ObjectStorage
	requests  RequestGateway
	publisher EventPublisher
	expiry    time.Duration
	logger    *slog.Logger
}

func NewService(repo RepositoryAPI, storage ObjectStorage, requests RequestGateway, publisher EventPublisher, presignedExpiry time.Duration, logger *slog.Logger) *Service {
	if presignedExpiry <= 0 {
		presignedExpiry = 15 * time.Minute
	}
	return &Service{
		repo:      repo,
		storage:   storage,
		requests:  requests,
		publisher: publisher,
		expiry:    presignedExpiry,
		logger:    logger,
	}
}

var errStorageDisabled = internal.NewInternalError("document storage is not configured", nil)

// CreateDocument records a pending document and hands back a presigned PUT
// URL. The record exists before any byte reaches storage; confirmation
// flips it to uploaded, and a failed confirmation soft-deletes it.
func (s *Service) CreateDocument(ctx context.Context, actor request.Actor, requestID int64, dto CreateDocumentDTO) (*UploadTicket, error) {
	if s.storage == nil {
		return nil, errStorageDisabled
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	req, err := s.requests.GetRequest(actor, requestID)
	if err != nil {
		return nil, err
	}

	if !s.canManageDocuments(actor) {
		s.logger.Warn("document upload denied", "request_id", requestID, "user_id", actor.ID)
		return nil, internal.ErrUnauthorizedAccess
	}

	if !CanUploadForStatus(dto.DocumentType, req.Status) {
		s.logger.Warn("document type not uploadable for status",
			"request_id", requestID, "document_type", dto.DocumentType, "status", req.Status)
		return nil, internal.NewValidationError(
			"this document type cannot be attached while the request is in its current status",
			internal.ErrCodeDocumentNotUploadable)
	}

	now := time.Now()
	uploadedBy := actor.ID
	doc := &Document{
		ID:           uuid.New(),
		RequestID:    requestID,
		UploadedBy:   &uploadedBy,
		DocumentType: dto.DocumentType,
		FileName:     dto.FileName,
		FileSize:     dto.FileSize,
		FileType:     dto.FileType,
		ObjectName:   buildObjectName(req.RequestNumber, dto.DocumentType, dto.FileName),
		Status:       StatusPending,
		Description:  dto.Description,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(doc); err != nil {
		s.logger.Error("failed to create document record", "error", err, "request_id", requestID)
		return nil, internal.NewInternalError("failed to create document", err)
	}

	uploadURL, err := s.storage.PresignedPutURL(ctx, doc.ObjectName, s.expiry)
	if err != nil {
		// compensate: the record must not dangle without an upload path
		if derr := s.repo.MarkDeleted(doc.ID); derr != nil {
			s.logger.Error("failed to clean up document after presign failure",
				"error", derr, "document_id", doc.ID)
		}
		s.logger.Error("failed to presign upload", "error", err, "document_id", doc.ID)
		return nil, internal.NewInternalError("failed to prepare upload", err)
	}

	s.logger.Info("document upload prepared",
		"document_id", doc.ID,
		"request_id", requestID,
		"document_type", doc.DocumentType,
		"user_id", actor.ID)

	return &UploadTicket{Document: doc, UploadURL: uploadURL}, nil
}

// ConfirmUpload verifies the object actually landed in storage. If it did
// not, the pending record is soft-deleted and the caller must start over.
func (s *Service) ConfirmUpload(ctx context.Context, actor request.Actor, id uuid.UUID) (*Document, error) {
	if s.storage == nil {
		return nil, errStorageDisabled
	}

	doc, err := s.loadForManage(actor, id)
	if err != nil {
		return nil, err
	}
	if doc.Status == StatusUploaded {
		return doc, nil
	}
	if doc.Status != StatusPending {
		return nil, internal.ErrDocumentNotFound
	}

	exists, err := s.storage.Exists(ctx, doc.ObjectName)
	if err != nil {
		s.logger.Error("failed to check object existence", "error", err, "document_id", id)
		return nil, internal.NewInternalError("failed to verify upload", err)
	}

	if !exists {
		if derr := s.repo.MarkDeleted(id); derr != nil {
			s.logger.Error("failed to soft delete unconfirmed document", "error", derr, "document_id", id)
			return nil, internal.NewInternalError("failed to clean up document", derr)
		}
		s.logger.Warn("upload confirmation failed: object missing",
			"document_id", id, "object_name", doc.ObjectName)
		return nil, internal.ErrUploadNotConfirmed
	}

	now := time.Now()
	if err := s.repo.MarkUploaded(id, now); err != nil {
		s.logger.Error("failed to mark document uploaded", "error", err, "document_id", id)
		return nil, internal.NewInternalError("failed to confirm upload", err)
	}
	doc.Status = StatusUploaded
	doc.UploadedAt = &now

	s.logger.Info("document upload confirmed", "document_id", id, "request_id", doc.RequestID)

	if s.publisher != nil {
		event := events.NewDocumentUploadedEvent(id.String(), doc.RequestID, doc.DocumentType, actor.ID)
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Error("failed to publish upload event", "error", err, "document_id", id)
		}
	}

	return doc, nil
}

// DownloadURL issues a short-lived presigned GET for an uploaded document.
func (s *Service) DownloadURL(ctx context.Context, actor request.Actor, id uuid.UUID) (*DownloadTicket, error) {
	if s.storage == nil {
		return nil, errStorageDisabled
	}

	doc, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.ErrDocumentNotFound
	}
	if doc.Status != StatusUploaded {
		return nil, internal.ErrDocumentNotFound
	}

	// visibility follows the parent request
	if _, err := s.requests.GetRequest(actor, doc.RequestID); err != nil {
		return nil, err
	}

	downloadURL, err := s.storage.PresignedGetURL(ctx, doc.ObjectName, doc.FileName, s.expiry)
	if err != nil {
		s.logger.Error("failed to presign download", "error", err, "document_id", id)
		return nil, internal.NewInternalError("failed to prepare download", err)
	}

	return &DownloadTicket{Document: doc, DownloadURL: downloadURL}, nil
}

// ListForRequest returns the live documents attached to a request.
func (s *Service) ListForRequest(actor request.Actor, requestID int64) ([]*Document, error) {
	if _, err := s.requests.GetRequest(actor, requestID); err != nil {
		return nil, err
	}

	docs, err := s.repo.ListByRequest(requestID)
	if err != nil {
		s.logger.Error("failed to list documents", "error", err, "request_id", requestID)
		return nil, internal.NewInternalError("failed to list documents", err)
	}
	return docs, nil
}

// Delete soft-deletes a document record and removes the stored object on a
// best-effort basis; a failed removal leaves an orphan object, never a
// dangling record.
func (s *Service) Delete(ctx context.Context, actor request.Actor, id uuid.UUID) error {
	doc, err := s.loadForManage(actor, id)
	if err != nil {
		return err
	}

	if err := s.repo.MarkDeleted(id); err != nil {
		s.logger.Error("failed to delete document", "error", err, "document_id", id)
		return internal.NewInternalError("failed to delete document", err)
	}

	if s.storage != nil {
		if err := s.storage.Remove(ctx, doc.ObjectName); err != nil {
			s.logger.Warn("failed to remove stored object",
				"error", err, "document_id", id, "object_name", doc.ObjectName)
		}
	}

	s.logger.Info("document deleted", "document_id", id, "user_id", actor.ID)
	return nil
}

func (s *Service) loadForManage(actor request.Actor, id uuid.UUID) (*Document, error) {
	doc, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.ErrDocumentNotFound
	}
	if doc.Status == StatusDeleted {
		return nil, internal.ErrDocumentNotFound
	}
	if !s.canManageDocuments(actor) {
		return nil, internal.ErrUnauthorizedAccess
	}
	return doc, nil
}

// canManageDocuments: purchasing actors and admins handle the paperwork.
func (s *Service) canManageDocuments(actor request.Actor) bool {
	return actor.IsSuperuser || authz.CanPurchase(authz.Subject{
		ID:          actor.ID,
		IsSuperuser: actor.IsSuperuser,
		Permissions: authz.FromStrings(actor.Permissions),
	})
}

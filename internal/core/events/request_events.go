package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeRequestTransitioned = "request.transitioned"
	EventTypeRequestApproved     = "request.approved"
	EventTypeRequestRejected     = "request.rejected"
	EventTypeDocumentUploaded    = "document.uploaded"
)

type RequestTransitionedEvent struct {
	BaseEvent
	RequestID     int64  `json:"request_id"`
	RequestNumber string `json:"request_number"`
	FromStatus    string `json:"from_status"`
	ToStatus      string `json:"to_status"`
	Action        string `json:"action"`
	ActorID       int64  `json:"actor_id"`
	CreatedBy     int64  `json:"created_by"`
}

func NewRequestTransitionedEvent(requestID int64, requestNumber, fromStatus, toStatus, action string, actorID, createdBy int64) *RequestTransitionedEvent {
	return &RequestTransitionedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeRequestTransitioned,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"request_id":     requestID,
				"request_number": requestNumber,
				"from_status":    fromStatus,
				"to_status":      toStatus,
				"action":         action,
				"actor_id":       actorID,
				"created_by":     createdBy,
			},
		},
		RequestID:     requestID,
		RequestNumber: requestNumber,
		FromStatus:    fromStatus,
		ToStatus:      toStatus,
		Action:        action,
		ActorID:       actorID,
		CreatedBy:     createdBy,
	}
}

type RequestApprovedEvent struct {
	BaseEvent
	RequestID     int64  `json:"request_id"`
	RequestNumber string `json:"request_number"`
	ApprovedBy    int64  `json:"approved_by"`
	CreatedBy     int64  `json:"created_by"`
}

func NewRequestApprovedEvent(requestID int64, requestNumber string, approvedBy, createdBy int64) *RequestApprovedEvent {
	return &RequestApprovedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeRequestApproved,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"request_id":     requestID,
				"request_number": requestNumber,
				"approved_by":    approvedBy,
				"created_by":     createdBy,
			},
		},
		RequestID:     requestID,
		RequestNumber: requestNumber,
		ApprovedBy:    approvedBy,
		CreatedBy:     createdBy,
	}
}

type RequestRejectedEvent struct {
	BaseEvent
	RequestID     int64  `json:"request_id"`
	RequestNumber string `json:"request_number"`
	RejectedBy    int64  `json:"rejected_by"`
	CreatedBy     int64  `json:"created_by"`
	Notes         string `json:"notes"`
}

func NewRequestRejectedEvent(requestID int64, requestNumber string, rejectedBy, createdBy int64, notes string) *RequestRejectedEvent {
	return &RequestRejectedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeRequestRejected,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"request_id":     requestID,
				"request_number": requestNumber,
				"rejected_by":    rejectedBy,
				"created_by":     createdBy,
				"notes":          notes,
			},
		},
		RequestID:     requestID,
		RequestNumber: requestNumber,
		RejectedBy:    rejectedBy,
		CreatedBy:     createdBy,
		Notes:         notes,
	}
}

type DocumentUploadedEvent struct {
	BaseEvent
	DocumentID   string `json:"document_id"`
	RequestID    int64  `json:"request_id"`
	DocumentType string `json:"document_type"`
	UploadedBy   int64  `json:"uploaded_by"`
}

func NewDocumentUploadedEvent(documentID string, requestID int64, documentType string, uploadedBy int64) *DocumentUploadedEvent {
	return &DocumentUploadedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeDocumentUploaded,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"document_id":   documentID,
				"request_id":    requestID,
				"document_type": documentType,
				"uploaded_by":   uploadedBy,
			},
		},
		DocumentID:   documentID,
		RequestID:    requestID,
		DocumentType: documentType,
		UploadedBy:   uploadedBy,
	}
}

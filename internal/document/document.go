package document

import (
	"time"

	"github.com/google/uuid"

	documentDatamodel "github.com/frahmantamala/procurement-management/internal/core/datamodel/document"
	"github.com/frahmantamala/procurement-management/internal/request"
)

// Document types tied to purchasing milestones.
const (
	TypeQuote        = "quote"
	TypeDispatchNote = "dispatch_note"
	TypeReceipt      = "receipt"
)

// Document record statuses. A record is created pending, becomes uploaded
// once the object is confirmed in storage, and is soft-deleted otherwise.
const (
	StatusPending  = "pending"
	StatusUploaded = "uploaded"
	StatusDeleted  = "deleted"
)

var ValidTypes = []string{TypeQuote, TypeDispatchNote, TypeReceipt}

// uploadableStatuses gates each document type to the request statuses where
// that paperwork makes sense: quotes while sourcing, dispatch notes once
// ordered, receipts once delivered.
var uploadableStatuses = map[string][]request.Status{
	TypeQuote:        {request.StatusApproved, request.StatusPurchasing},
	TypeDispatchNote: {request.StatusOrdered},
	TypeReceipt:      {request.StatusDelivered},
}

// CanUploadForStatus reports whether a document of the given type may be
// attached to a request in the given status.
func CanUploadForStatus(docType string, status request.Status) bool {
	allowed, ok := uploadableStatuses[docType]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == status {
			return true
		}
	}
	return false
}

var allowedFileTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
}

func AllowedFileType(fileType string) bool {
	return allowedFileTypes[fileType]
}

type Document struct {
	ID           uuid.UUID  `json:"id"`
	RequestID    int64      `json:"request_id"`
	UploadedBy   *int64     `json:"uploaded_by,omitempty"`
	DocumentType string     `json:"document_type"`
	FileName     string     `json:"file_name"`
	FileSize     int64      `json:"file_size"`
	FileType     string     `json:"file_type"`
	ObjectName   string     `json:"-"`
	Status       string     `json:"status"`
	Description  string     `json:"description,omitempty"`
	UploadedAt   *time.Time `json:"uploaded_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func FromDataModel(m *documentDatamodel.ProcurementDocument) *Document {
	return &Document{
		ID:           m.ID,
		RequestID:    m.RequestID,
		UploadedBy:   m.UploadedBy,
		DocumentType: m.DocumentType,
		FileName:     m.FileName,
		FileSize:     m.FileSize,
		FileType:     m.FileType,
		ObjectName:   m.ObjectName,
		Status:       m.Status,
		Description:  m.Description,
		UploadedAt:   m.UploadedAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func ToDataModel(d *Document) *documentDatamodel.ProcurementDocument {
	return &documentDatamodel.ProcurementDocument{
		ID:           d.ID,
		RequestID:    d.RequestID,
		UploadedBy:   d.UploadedBy,
		DocumentType: d.DocumentType,
		FileName:     d.FileName,
		FileSize:     d.FileSize,
		FileType:     d.FileType,
		ObjectName:   d.ObjectName,
		Status:       d.Status,
		Description:  d.Description,
		UploadedAt:   d.UploadedAt,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func FromDataModelSlice(models []*documentDatamodel.ProcurementDocument) []*Document {
	result := make([]*Document, len(models))
	for i, m := range models {
		result[i] = FromDataModel(m)
	}
	return result
}

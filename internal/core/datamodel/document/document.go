package document

import (
	"time"

	"github.com/google/uuid"
)

type ProcurementDocument struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	RequestID    int64      `gorm:"column:request_id;not null;index:idx_documents_request_type"`
	UploadedBy   *int64     `gorm:"column:uploaded_by"`
	DocumentType string     `gorm:"column:document_type;not null;index:idx_documents_request_type"`
	FileName     string     `gorm:"column:file_name;not null"`
	FileSize     int64      `gorm:"column:file_size;not null"`
	FileType     string     `gorm:"column:file_type;not null"`
	ObjectName   string     `gorm:"column:object_name;uniqueIndex;not null"`
	Status       string     `gorm:"column:status;default:pending"`
	Description  string     `gorm:"column:description"`
	UploadedAt   *time.Time `gorm:"column:uploaded_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (ProcurementDocument) TableName() string {
	return "procurement_documents"
}

package postgres

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	internal "github.com/frahmantamala/procurement-management/internal"
	documentDatamodel "github.com/frahmantamala/procurement-management/internal/core/datamodel/document"
	"github.com/frahmantamala/procurement-management/internal/document"
)

// DocumentRepository implements document.RepositoryAPI using GORM.
type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(doc *document.Document) error {
	return r.db.Create(document.ToDataModel(doc)).Error
}

func (r *DocumentRepository) GetByID(id uuid.UUID) (*document.Document, error) {
	var model documentDatamodel.ProcurementDocument
	err := r.db.Where("id = ?", id).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrDocumentNotFound
		}
		return nil, err
	}
	return document.FromDataModel(&model), nil
}

func (r *DocumentRepository) ListByRequest(requestID int64) ([]*document.Document, error) {
	var models []*documentDatamodel.ProcurementDocument
	err := r.db.Where("request_id = ? AND status <> ?", requestID, document.StatusDeleted).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return document.FromDataModelSlice(models), nil
}

func (r *DocumentRepository) MarkUploaded(id uuid.UUID, uploadedAt time.Time) error {
	return r.db.Model(&documentDatamodel.ProcurementDocument{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      document.StatusUploaded,
			"uploaded_at": uploadedAt,
			"updated_at":  time.Now(),
		}).Error
}

func (r *DocumentRepository) MarkDeleted(id uuid.UUID) error {
	return r.db.Model(&documentDatamodel.ProcurementDocument{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     document.StatusDeleted,
			"updated_at": time.Now(),
		}).Error
}

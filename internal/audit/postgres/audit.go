package postgres

import (
	"gorm.io/gorm"

	"github.com/frahmantamala/procurement-management/internal/audit"
	auditDatamodel "github.com/frahmantamala/procurement-management/internal/core/datamodel/audit"
)

// AuditRepository implements audit.RepositoryAPI using GORM.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(e *audit.Entry) error {
	model := audit.ToDataModel(e)
	if err := r.db.Create(model).Error; err != nil {
		return err
	}
	e.ID = model.ID
	e.CreatedAt = model.CreatedAt
	return nil
}

func (r *AuditRepository) List(filter audit.ListFilter) ([]*audit.Entry, error) {
	q := r.db.Model(&auditDatamodel.AuditLog{})
	if filter.TableName != "" {
		q = q.Where("table_name = ?", filter.TableName)
	}
	if filter.UserID != 0 {
		q = q.Where("user_id = ?", filter.UserID)
	}

	var models []*auditDatamodel.AuditLog
	err := q.Order("created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	entries := make([]*audit.Entry, len(models))
	for i, m := range models {
		entries[i] = audit.FromDataModel(m)
	}
	return entries, nil
}

func (r *AuditRepository) Stats() (*audit.Stats, error) {
	stats := &audit.Stats{
		ByTable:  make(map[string]int64),
		ByAction: make(map[string]int64),
	}

	if err := r.db.Model(&auditDatamodel.AuditLog{}).Count(&stats.TotalEntries).Error; err != nil {
		return nil, err
	}

	type countRow struct {
		Key   string
		Count int64
	}

	var byTable []countRow
	err := r.db.Model(&auditDatamodel.AuditLog{}).
		Select("table_name AS key, COUNT(*) AS count").
		Group("table_name").
		Scan(&byTable).Error
	if err != nil {
		return nil, err
	}
	for _, row := range byTable {
		stats.ByTable[row.Key] = row.Count
	}

	var byAction []countRow
	err = r.db.Model(&auditDatamodel.AuditLog{}).
		Select("action AS key, COUNT(*) AS count").
		Group("action").
		Scan(&byAction).Error
	if err != nil {
		return nil, err
	}
	for _, row := range byAction {
		stats.ByAction[row.Key] = row.Count
	}

	return stats, nil
}

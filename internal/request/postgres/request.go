package postgres

import (
	"time"

	"gorm.io/gorm"

	internal "github.com/frahmantamala/procurement-management/internal"
	requestDatamodel "github.com/frahmantamala/procurement-management/internal/core/datamodel/request"
	"github.com/frahmantamala/procurement-management/internal/request"
)

// RequestRepository implements request.RepositoryAPI using GORM.
type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

func (r *RequestRepository) Create(req *request.Request) error {
	model := request.ToDataModel(req)
	if err := r.db.Create(model).Error; err != nil {
		return err
	}
	req.ID = model.ID
	req.CreatedAt = model.CreatedAt
	req.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *RequestRepository) GetByID(id int64) (*request.Request, error) {
	var model requestDatamodel.Request
	err := r.db.Where("id = ?", id).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrRequestNotFound
		}
		return nil, err
	}
	return request.FromDataModel(&model), nil
}

func (r *RequestRepository) Update(req *request.Request) error {
	req.UpdatedAt = time.Now()
	return r.db.Save(request.ToDataModel(req)).Error
}

func (r *RequestRepository) Delete(id int64) error {
	return r.db.Delete(&requestDatamodel.Request{}, id).Error
}

func (r *RequestRepository) ExistsByNumber(number string) (bool, error) {
	var count int64
	err := r.db.Model(&requestDatamodel.Request{}).
		Where("request_number = ?", number).
		Count(&count).Error
	return count > 0, err
}

func (r *RequestRepository) ListByCreator(userID int64, filter request.ListFilter) ([]*request.Request, error) {
	q := r.db.Where("created_by = ?", userID)
	return r.list(q, filter, "created_at DESC")
}

func (r *RequestRepository) ListAll(filter request.ListFilter) ([]*request.Request, error) {
	return r.list(r.db, filter, "created_at DESC")
}

func (r *RequestRepository) ListByApprover(approverID int64, filter request.ListFilter) ([]*request.Request, error) {
	q := r.db.Where("current_approver = ? AND status IN ?", approverID,
		[]string{string(request.StatusPending), string(request.StatusInReview)})
	// FIFO for approvals
	return r.list(q, filter, "submitted_at ASC")
}

func (r *RequestRepository) ListByStatuses(statuses []request.Status, filter request.ListFilter) ([]*request.Request, error) {
	raw := make([]string, len(statuses))
	for i, s := range statuses {
		raw[i] = string(s)
	}
	q := r.db.Where("status IN ?", raw)
	return r.list(q, filter, "submitted_at ASC")
}

func (r *RequestRepository) list(q *gorm.DB, filter request.ListFilter, order string) ([]*request.Request, error) {
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	var models []*requestDatamodel.Request
	err := q.Order(order).
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return request.FromDataModelSlice(models), nil
}

// Transition applies a workflow step atomically: the status update is guarded
// by the expected status, and the history entry commits in the same
// transaction. Zero rows updated means another actor got there first; the
// whole transaction rolls back and nothing is written.
func (r *RequestRepository) Transition(t request.Transition) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":     string(t.NewStatus),
			"updated_at": time.Now(),
		}
		for col, val := range t.Updates {
			updates[col] = val
		}

		res := tx.Model(&requestDatamodel.Request{}).
			Where("id = ? AND status = ?", t.RequestID, string(t.ExpectedStatus)).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return internal.NewStaleStateError(string(t.ExpectedStatus), t.Entry.Action)
		}

		entry := request.HistoryToDataModel(&t.Entry)
		entry.CreatedAt = time.Now()
		return tx.Create(entry).Error
	})
}

func (r *RequestRepository) History(requestID int64) ([]*request.HistoryEntry, error) {
	var models []*requestDatamodel.ApprovalHistory
	err := r.db.Where("request_id = ?", requestID).
		Order("created_at ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	entries := make([]*request.HistoryEntry, len(models))
	for i, m := range models {
		entries[i] = request.HistoryFromDataModel(m)
	}
	return entries, nil
}

// ArchiveTerminal stamps archived_at on rejected and completed requests older
// than the cutoff. Used by the archive command; archived rows stay readable.
func (r *RequestRepository) ArchiveTerminal(cutoff time.Time) (int64, error) {
	res := r.db.Model(&requestDatamodel.Request{}).
		Where("status IN ? AND updated_at < ? AND archived_at IS NULL",
			[]string{string(request.StatusRejected), string(request.StatusCompleted)}, cutoff).
		Update("archived_at", time.Now())
	return res.RowsAffected, res.Error
}

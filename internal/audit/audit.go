package audit

import (
	"encoding/json"
	"time"

	auditDatamodel "github.com/frahmantamala/procurement-management/internal/core/datamodel/audit"
)

// Entry is one append-only audit record. Old and new values are stored as
// raw JSON snapshots.
type Entry struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	TableName string          `json:"table_name"`
	RecordID  string          `json:"record_id"`
	Action    string          `json:"action"`
	OldValues json.RawMessage `json:"old_values,omitempty"`
	NewValues json.RawMessage `json:"new_values,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Stats summarizes audit volume per table and action for the admin view.
type Stats struct {
	TotalEntries int64            `json:"total_entries"`
	ByTable      map[string]int64 `json:"by_table"`
	ByAction     map[string]int64 `json:"by_action"`
}

// ListFilter narrows audit listings.
type ListFilter struct {
	TableName string
	UserID    int64
	Limit     int
	Offset    int
}

func (f *ListFilter) Normalize() {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

func FromDataModel(m *auditDatamodel.AuditLog) *Entry {
	return &Entry{
		ID:        m.ID,
		UserID:    m.UserID,
		TableName: m.TableName,
		RecordID:  m.RecordID,
		Action:    m.Action,
		OldValues: m.OldValues,
		NewValues: m.NewValues,
		CreatedAt: m.CreatedAt,
	}
}

func ToDataModel(e *Entry) *auditDatamodel.AuditLog {
	return &auditDatamodel.AuditLog{
		ID:        e.ID,
		UserID:    e.UserID,
		TableName: e.TableName,
		RecordID:  e.RecordID,
		Action:    e.Action,
		OldValues: e.OldValues,
		NewValues: e.NewValues,
		CreatedAt: e.CreatedAt,
	}
}

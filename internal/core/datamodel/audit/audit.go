package audit

import (
	"encoding/json"
	"time"
)

type AuditLog struct {
	ID        int64           `gorm:"primaryKey"`
	UserID    int64           `gorm:"column:user_id;not null;index"`
	TableName string          `gorm:"column:table_name;not null"`
	RecordID  string          `gorm:"column:record_id;not null"`
	Action    string          `gorm:"column:action;not null"`
	OldValues json.RawMessage `gorm:"column:old_values;type:jsonb"`
	NewValues json.RawMessage `gorm:"column:new_values;type:jsonb"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

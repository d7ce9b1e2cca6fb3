package request

import (
	"time"

	"github.com/shopspring/decimal"
)

type Request struct {
	ID              int64           `gorm:"primaryKey"`
	RequestNumber   string          `gorm:"column:request_number;uniqueIndex;not null"`
	Item            string          `gorm:"column:item;not null"`
	Description     string          `gorm:"column:description"`
	CreatedBy       int64           `gorm:"column:created_by;not null;index"`
	CurrentApprover *int64          `gorm:"column:current_approver;index"`
	FinalApprover   *int64          `gorm:"column:final_approver"`
	Status          string          `gorm:"column:status;default:draft;index"`
	Quantity        decimal.Decimal `gorm:"column:quantity;type:numeric(10,2);not null"`
	Unit            string          `gorm:"column:unit;not null"`
	Category        string          `gorm:"column:category"`
	DeliveryAddress string          `gorm:"column:delivery_address"`
	Reason          string          `gorm:"column:reason"`
	RevisionCount   int             `gorm:"column:revision_count;default:0"`
	RevisionNotes   string          `gorm:"column:revision_notes"`
	SubmittedAt     *time.Time      `gorm:"column:submitted_at"`
	ArchivedAt      *time.Time      `gorm:"column:archived_at"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Request) TableName() string {
	return "requests"
}

// ApprovalHistory rows are append-only; nothing in the codebase updates or
// deletes them once written.
type ApprovalHistory struct {
	ID          int64     `gorm:"primaryKey"`
	RequestID   int64     `gorm:"column:request_id;not null;index"`
	UserID      int64     `gorm:"column:user_id;not null"`
	UserName    string    `gorm:"column:user_name;not null"`
	Action      string    `gorm:"column:action;not null"`
	Level       int       `gorm:"column:level;default:0"`
	Notes       string    `gorm:"column:notes"`
	ReviewNotes string    `gorm:"column:review_notes"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (ApprovalHistory) TableName() string {
	return "approval_history"
}

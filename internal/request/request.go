package request

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	requestDatamodel "github.com/frahmantamala/procurement-management/internal/core/datamodel/request"
)

type Status string

const (
	StatusDraft             Status = "draft"
	StatusPending           Status = "pending"
	StatusInReview          Status = "in_review"
	StatusRevisionRequested Status = "revision_requested"
	StatusApproved          Status = "approved"
	StatusRejected          Status = "rejected"
	StatusPurchasing        Status = "purchasing"
	StatusOrdered           Status = "ordered"
	StatusDelivered         Status = "delivered"
	StatusCompleted         Status = "completed"
)

type Action string

const (
	ActionSubmit           Action = "submit"
	ActionMoveToReview     Action = "move_to_review"
	ActionApprove          Action = "approve"
	ActionReject           Action = "reject"
	ActionRequestRevision  Action = "request_revision"
	ActionResubmit         Action = "resubmit"
	ActionAssignPurchasing Action = "assign_purchasing"
	ActionMarkOrdered      Action = "mark_ordered"
	ActionMarkDelivered    Action = "mark_delivered"
	ActionMarkCompleted    Action = "mark_completed"
)

// Units accepted for request quantities. Unknown values are rejected, never
// coerced.
var ValidUnits = []string{"pieces", "kg", "ton", "meter", "m2", "m3", "liter"}

// MaxQuantity is the upper bound for request quantities.
var MaxQuantity = decimal.NewFromInt(999999)

type transitionRule struct {
	from []Status
	to   Status
}

// transitionTable is the single source of truth for the state machine. A
// status/action pair absent from it is an invalid transition, full stop.
var transitionTable = map[Action]transitionRule{
	ActionSubmit:           {from: []Status{StatusDraft}, to: StatusPending},
	ActionMoveToReview:     {from: []Status{StatusPending}, to: StatusInReview},
	ActionApprove:          {from: []Status{StatusPending, StatusInReview}, to: StatusApproved},
	ActionReject:           {from: []Status{StatusPending, StatusInReview, StatusPurchasing}, to: StatusRejected},
	ActionRequestRevision:  {from: []Status{StatusPending, StatusInReview, StatusPurchasing}, to: StatusRevisionRequested},
	ActionResubmit:         {from: []Status{StatusRevisionRequested}, to: StatusPending},
	ActionAssignPurchasing: {from: []Status{StatusApproved}, to: StatusPurchasing},
	ActionMarkOrdered:      {from: []Status{StatusPurchasing}, to: StatusOrdered},
	ActionMarkDelivered:    {from: []Status{StatusOrdered}, to: StatusDelivered},
	ActionMarkCompleted:    {from: []Status{StatusDelivered}, to: StatusCompleted},
}

// historyActions maps each workflow action to the name recorded on the ledger.
var historyActions = map[Action]string{
	ActionSubmit:           "submitted",
	ActionMoveToReview:     "moved_to_review",
	ActionApprove:          "approved",
	ActionReject:           "rejected",
	ActionRequestRevision:  "revision_requested",
	ActionResubmit:         "revised",
	ActionAssignPurchasing: "assigned_purchasing",
	ActionMarkOrdered:      "ordered",
	ActionMarkDelivered:    "delivered",
	ActionMarkCompleted:    "completed",
}

// Destination resolves the target status for an action applied from a given
// status. The second return is false when the pair is not in the table.
func Destination(action Action, from Status) (Status, bool) {
	rule, ok := transitionTable[action]
	if !ok {
		return "", false
	}
	for _, s := range rule.from {
		if s == from {
			return rule.to, true
		}
	}
	return "", false
}

// HistoryAction returns the ledger name for an action.
func HistoryAction(action Action) string {
	if name, ok := historyActions[action]; ok {
		return name
	}
	return string(action)
}

// IsTerminal reports whether the status admits no outgoing transitions.
func IsTerminal(s Status) bool {
	return s == StatusRejected || s == StatusCompleted
}

// NotesRequired reports whether the action demands a non-empty notes field.
func NotesRequired(action Action) bool {
	return action == ActionReject || action == ActionRequestRevision
}

type Request struct {
	ID              int64           `json:"id"`
	RequestNumber   string          `json:"request_number"`
	Item            string          `json:"item"`
	Description     string          `json:"description"`
	CreatedBy       int64           `json:"created_by"`
	CurrentApprover *int64          `json:"current_approver,omitempty"`
	FinalApprover   *int64          `json:"final_approver,omitempty"`
	Status          Status          `json:"status"`
	Quantity        decimal.Decimal `json:"quantity"`
	Unit            string          `json:"unit"`
	Category        string          `json:"category"`
	DeliveryAddress string          `json:"delivery_address"`
	Reason          string          `json:"reason"`
	RevisionCount   int             `json:"revision_count"`
	RevisionNotes   string          `json:"revision_notes,omitempty"`
	SubmittedAt     *time.Time      `json:"submitted_at,omitempty"`
	ArchivedAt      *time.Time      `json:"archived_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (r *Request) CanApply(action Action) bool {
	_, ok := Destination(action, r.Status)
	return ok
}

func (r *Request) IsOwnedBy(userID int64) bool {
	return r.CreatedBy == userID
}

// HistoryEntry is one immutable ledger record; appended atomically with the
// status change it documents.
type HistoryEntry struct {
	ID          int64     `json:"id"`
	RequestID   int64     `json:"request_id"`
	UserID      int64     `json:"user_id"`
	UserName    string    `json:"user_name"`
	Action      string    `json:"action"`
	Level       int       `json:"level"`
	Notes       string    `json:"notes,omitempty"`
	ReviewNotes string    `json:"review_notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewRequestNumber generates a request number in the REQ-YYYY-XXXXXX format.
// Uniqueness is verified by the caller against storage.
func NewRequestNumber(now time.Time) string {
	entropy := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return fmt.Sprintf("REQ-%d-%s", now.Year(), entropy)
}

func ToDataModel(r *Request) *requestDatamodel.Request {
	return &requestDatamodel.Request{
		ID:              r.ID,
		RequestNumber:   r.RequestNumber,
		Item:            r.Item,
		Description:     r.Description,
		CreatedBy:       r.CreatedBy,
		CurrentApprover: r.CurrentApprover,
		FinalApprover:   r.FinalApprover,
		Status:          string(r.Status),
		Quantity:        r.Quantity,
		Unit:            r.Unit,
		Category:        r.Category,
		DeliveryAddress: r.DeliveryAddress,
		Reason:          r.Reason,
		RevisionCount:   r.RevisionCount,
		RevisionNotes:   r.RevisionNotes,
		SubmittedAt:     r.SubmittedAt,
		ArchivedAt:      r.ArchivedAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func FromDataModel(m *requestDatamodel.Request) *Request {
	return &Request{
		ID:              m.ID,
		RequestNumber:   m.RequestNumber,
		Item:            m.Item,
		Description:     m.Description,
		CreatedBy:       m.CreatedBy,
		CurrentApprover: m.CurrentApprover,
		FinalApprover:   m.FinalApprover,
		Status:          Status(m.Status),
		Quantity:        m.Quantity,
		Unit:            m.Unit,
		Category:        m.Category,
		DeliveryAddress: m.DeliveryAddress,
		Reason:          m.Reason,
		RevisionCount:   m.RevisionCount,
		RevisionNotes:   m.RevisionNotes,
		SubmittedAt:     m.SubmittedAt,
		ArchivedAt:      m.ArchivedAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func FromDataModelSlice(models []*requestDatamodel.Request) []*Request {
	result := make([]*Request, len(models))
	for i, m := range models {
		result[i] = FromDataModel(m)
	}
	return result
}

func HistoryFromDataModel(m *requestDatamodel.ApprovalHistory) *HistoryEntry {
	return &HistoryEntry{
		ID:          m.ID,
		RequestID:   m.RequestID,
		UserID:      m.UserID,
		UserName:    m.UserName,
		Action:      m.Action,
		Level:       m.Level,
		Notes:       m.Notes,
		ReviewNotes: m.ReviewNotes,
		CreatedAt:   m.CreatedAt,
	}
}

func HistoryToDataModel(e *HistoryEntry) *requestDatamodel.ApprovalHistory {
	return &requestDatamodel.ApprovalHistory{
		ID:          e.ID,
		RequestID:   e.RequestID,
		UserID:      e.UserID,
		UserName:    e.UserName,
		Action:      e.Action,
		Level:       e.Level,
		Notes:       e.Notes,
		ReviewNotes: e.ReviewNotes,
		CreatedAt:   e.CreatedAt,
	}
}

package request

import (
	"github.com/shopspring/decimal"

	internal "github.com/frahmantamala/procurement-management/internal"
	"github.com/frahmantamala/procurement-management/internal/core/common/validation"
)

// CreateRequestDTO is the payload for creating a draft request.
type CreateRequestDTO struct {
	Item            string `json:"item"`
	Description     string `json:"description"`
	Quantity        string `json:"quantity"`
	Unit            string `json:"unit"`
	Category        string `json:"category"`
	DeliveryAddress string `json:"delivery_address"`
	Reason          string `json:"reason"`
}

// Validate enforces the draft-level rules: item, quantity and unit are
// always required; reason may stay empty until submission.
func (dto CreateRequestDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("item", dto.Item).RequiredCode(internal.ErrCodeMissingItem).MaxLength(255)
	v.Field("quantity", dto.Quantity).RequiredCode(internal.ErrCodeInvalidQuantity).PositiveDecimal(MaxQuantity)
	v.Field("unit", dto.Unit).RequiredCode(internal.ErrCodeInvalidUnit).OneOf(ValidUnits, internal.ErrCodeInvalidUnit)
	v.Field("description", dto.Description).MaxLength(2000)
	v.Field("reason", dto.Reason).MaxLength(2000)
	return v.Validate()
}

// ParsedQuantity returns the quantity as a decimal. Call only after Validate.
func (dto CreateRequestDTO) ParsedQuantity() decimal.Decimal {
	q, _ := decimal.NewFromString(dto.Quantity)
	return q
}

// UpdateRequestDTO is the payload for editing a draft. Semantics match
// CreateRequestDTO; drafts are replaced wholesale, not patched.
type UpdateRequestDTO struct {
	Item            string `json:"item"`
	Description     string `json:"description"`
	Quantity        string `json:"quantity"`
	Unit            string `json:"unit"`
	Category        string `json:"category"`
	DeliveryAddress string `json:"delivery_address"`
	Reason          string `json:"reason"`
}

func (dto UpdateRequestDTO) Validate() *internal.AppError {
	return CreateRequestDTO(dto).Validate()
}

// ParsedQuantity returns the quantity as a decimal. Call only after Validate.
func (dto UpdateRequestDTO) ParsedQuantity() decimal.Decimal {
	return CreateRequestDTO(dto).ParsedQuantity()
}

// TransitionDTO carries the optional notes for a workflow action, plus an
// optional expected status for optimistic concurrency: when set, the action
// only commits if the request is still in that status.
type TransitionDTO struct {
	Notes          string `json:"notes"`
	ExpectedStatus string `json:"expected_status,omitempty"`
}

// ListFilter narrows request listings.
type ListFilter struct {
	Status string
	Limit  int
	Offset int
}

func (f *ListFilter) Normalize() {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// validateForSubmission checks the fields that must be present before a
// request may leave draft: everything a draft needs, plus reason. Reason is
// only enforced at the draft boundary so half-finished drafts stay saveable.
func validateForSubmission(r *Request) *internal.AppError {
	v := validation.NewValidator()
	v.Field("item", r.Item).RequiredCode(internal.ErrCodeMissingItem)
	v.Field("unit", r.Unit).OneOf(ValidUnits, internal.ErrCodeInvalidUnit)
	v.Field("reason", r.Reason).RequiredCode(internal.ErrCodeMissingReason)
	v.Field("quantity", r.Quantity.String()).PositiveDecimal(MaxQuantity)
	return v.Validate()
}

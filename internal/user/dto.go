package user

import (
	internal "github.com/frahmantamala/procurement-management/internal"
	"github.com/frahmantamala/procurement-management/internal/core/common/validation"
)

// CreateUserDTO is the admin payload for provisioning an account. Username is
// derived from the name; the caller never picks one.
type CreateUserDTO struct {
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	Password     string  `json:"password"`
	PhoneNumber  string  `json:"phone_number"`
	IsSuperuser  bool    `json:"is_superuser"`
	SupervisorID *int64  `json:"supervisor_id"`
	WorksiteID   *int64  `json:"worksite_id"`
	DivisionID   *int64  `json:"division_id"`
	GroupIDs     []int64 `json:"group_ids"`
}

func (dto CreateUserDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("first_name", dto.FirstName).Required().MaxLength(100)
	v.Field("last_name", dto.LastName).Required().MaxLength(100)
	v.Field("password", dto.Password).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	if len(dto.Password) < 8 {
		return internal.NewValidationFieldError("password",
			"password must be at least 8 characters", internal.ErrCodeValidationFailed)
	}
	return nil
}

// UpdateUserDTO updates profile fields; identity and hierarchy move through
// their own endpoints.
type UpdateUserDTO struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	WorksiteID  *int64 `json:"worksite_id"`
	DivisionID  *int64 `json:"division_id"`
	IsActive    *bool  `json:"is_active"`
}

func (dto UpdateUserDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("first_name", dto.FirstName).Required().MaxLength(100)
	v.Field("last_name", dto.LastName).Required().MaxLength(100)
	return v.Validate()
}

// ChangeSupervisorDTO reassigns a user's supervisor. A nil supervisor clears
// the edge, making the user a hierarchy root.
type ChangeSupervisorDTO struct {
	SupervisorID *int64 `json:"supervisor_id"`
}

// ChangePasswordDTO sets a new password for a user.
type ChangePasswordDTO struct {
	Password string `json:"password"`
}

func (dto ChangePasswordDTO) Validate() *internal.AppError {
	if len(dto.Password) < 8 {
		return internal.NewValidationFieldError("password",
			"password must be at least 8 characters", internal.ErrCodeValidationFailed)
	}
	return nil
}

package organization

import (
	"time"

	internal "github.com/frahmantamala/procurement-management/internal"
	"github.com/frahmantamala/procurement-management/internal/core/common/validation"
	orgDatamodel "github.com/frahmantamala/procurement-management/internal/core/datamodel/organization"
)

type Worksite struct {
	ID        int64     `json:"id"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	Country   string    `json:"country"`
	ChiefID   *int64    `json:"chief_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Division struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedBy int64     `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Group is a named permission bundle; members inherit its permissions.
type Group struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	MemberCount int64    `json:"member_count"`
	Permissions []string `json:"permissions,omitempty"`
}

type WorksiteDTO struct {
	Address string `json:"address"`
	City    string `json:"city"`
	Country string `json:"country"`
	ChiefID *int64 `json:"chief_id"`
}

func (dto WorksiteDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("address", dto.Address).Required().MaxLength(255)
	v.Field("city", dto.City).Required().MaxLength(100)
	return v.Validate()
}

type DivisionDTO struct {
	Name        string  `json:"name"`
	WorksiteIDs []int64 `json:"worksite_ids"`
}

func (dto DivisionDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("name", dto.Name).Required().MaxLength(100)
	return v.Validate()
}

type GroupDTO struct {
	Name          string  `json:"name"`
	PermissionIDs []int64 `json:"permission_ids"`
}

func (dto GroupDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("name", dto.Name).Required().MaxLength(100)
	return v.Validate()
}

type MembershipDTO struct {
	UserID int64 `json:"user_id"`
}

func WorksiteFromDataModel(m *orgDatamodel.Worksite) *Worksite {
	return &Worksite{
		ID:        m.ID,
		Address:   m.Address,
		City:      m.City,
		Country:   m.Country,
		ChiefID:   m.ChiefID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func DivisionFromDataModel(m *orgDatamodel.Division) *Division {
	return &Division{
		ID:        m.ID,
		Name:      m.Name,
		CreatedBy: m.CreatedBy,
		CreatedAt: m.CreatedAt,
	}
}

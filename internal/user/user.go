package user

import (
	"strings"
	"time"
	"unicode"

	userDatamodel "github.com/frahmantamala/procurement-management/internal/core/datamodel/user"
)

// User is the directory's domain view of an account. Password material never
// leaves the package.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	PhoneNumber  string     `json:"phone_number,omitempty"`
	IsActive     bool       `json:"is_active"`
	IsSuperuser  bool       `json:"is_superuser"`
	SupervisorID *int64     `json:"supervisor_id,omitempty"`
	WorksiteID   *int64     `json:"worksite_id,omitempty"`
	DivisionID   *int64     `json:"division_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"-"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func FromDataModel(m *userDatamodel.User) *User {
	return &User{
		ID:           m.ID,
		Username:     m.Username,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		PhoneNumber:  m.PhoneNumber,
		IsActive:     m.IsActive,
		IsSuperuser:  m.IsSuperuser,
		SupervisorID: m.SupervisorID,
		WorksiteID:   m.WorksiteID,
		DivisionID:   m.DivisionID,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
		DeletedAt:    m.DeletedAt,
	}
}

func FromDataModelSlice(models []*userDatamodel.User) []*User {
	result := make([]*User, len(models))
	for i, m := range models {
		result[i] = FromDataModel(m)
	}
	return result
}

// BaseUsername derives the canonical username stem from a person's name:
// first initial plus last name, lowercased and stripped to ascii letters and
// digits. Collisions get a numeric suffix appended by the service.
func BaseUsername(firstName, lastName string) string {
	first := normalizeNamePart(firstName)
	last := normalizeNamePart(lastName)
	if first == "" && last == "" {
		return "user"
	}
	if first == "" {
		return last
	}
	if last == "" {
		return first
	}
	return first[:1] + last
}

func normalizeNamePart(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			// drop spaces inside compound names
		}
	}
	return b.String()
}

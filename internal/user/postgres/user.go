package postgres

import (
	"time"

	"gorm.io/gorm"

	internal "github.com/frahmantamala/procurement-management/internal"
	userDatamodel "github.com/frahmantamala/procurement-management/internal/core/datamodel/user"
	"github.com/frahmantamala/procurement-management/internal/user"
)

// UserRepository implements user.RepositoryAPI using GORM.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(u *user.User, passwordHash string) error {
	model := &userDatamodel.User{
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		PasswordHash: passwordHash,
		PhoneNumber:  u.PhoneNumber,
		IsActive:     u.IsActive,
		IsSuperuser:  u.IsSuperuser,
		SupervisorID: u.SupervisorID,
		WorksiteID:   u.WorksiteID,
		DivisionID:   u.DivisionID,
	}
	if err := r.db.Create(model).Error; err != nil {
		return err
	}
	u.ID = model.ID
	u.CreatedAt = model.CreatedAt
	u.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *UserRepository) GetByID(id int64) (*user.User, error) {
	var model userDatamodel.User
	err := r.db.Where("id = ? AND deleted_at IS NULL", id).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return user.FromDataModel(&model), nil
}

func (r *UserRepository) GetByUsername(username string) (*user.User, error) {
	var model userDatamodel.User
	err := r.db.Where("username = ? AND deleted_at IS NULL", username).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return user.FromDataModel(&model), nil
}

func (r *UserRepository) List(limit, offset int) ([]*user.User, error) {
	var models []*userDatamodel.User
	err := r.db.Where("deleted_at IS NULL").
		Order("username ASC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return user.FromDataModelSlice(models), nil
}

func (r *UserRepository) Update(u *user.User) error {
	return r.db.Model(&userDatamodel.User{}).
		Where("id = ?", u.ID).
		Updates(map[string]interface{}{
			"first_name":   u.FirstName,
			"last_name":    u.LastName,
			"phone_number": u.PhoneNumber,
			"worksite_id":  u.WorksiteID,
			"division_id":  u.DivisionID,
			"is_active":    u.IsActive,
			"updated_at":   time.Now(),
		}).Error
}

func (r *UserRepository) SetPassword(id int64, passwordHash string) error {
	return r.db.Model(&userDatamodel.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"password_hash": passwordHash,
			"updated_at":    time.Now(),
		}).Error
}

func (r *UserRepository) SetSupervisor(id int64, supervisorID *int64) error {
	return r.db.Model(&userDatamodel.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"supervisor_id": supervisorID,
			"updated_at":    time.Now(),
		}).Error
}

func (r *UserRepository) SoftDelete(id int64) error {
	return r.db.Model(&userDatamodel.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"deleted_at": time.Now(),
			"is_active":  false,
			"updated_at": time.Now(),
		}).Error
}

func (r *UserRepository) UsernameExists(username string) (bool, error) {
	var count int64
	err := r.db.Model(&userDatamodel.User{}).
		Where("username = ?", username).
		Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) DirectSubordinateIDs(userID int64) ([]int64, error) {
	var ids []int64
	err := r.db.Model(&userDatamodel.User{}).
		Where("supervisor_id = ? AND deleted_at IS NULL", userID).
		Pluck("id", &ids).Error
	return ids, err
}

// AssignGroups replaces a user's group memberships in one transaction.
func (r *UserRepository) AssignGroups(userID int64, groupIDs []int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&userDatamodel.UserGroup{}).Error; err != nil {
			return err
		}
		for _, groupID := range groupIDs {
			if err := tx.Create(&userDatamodel.UserGroup{UserID: userID, GroupID: groupID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

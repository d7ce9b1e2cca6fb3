package postgres

import (
	"time"

	"gorm.io/gorm"

	orgDatamodel "github.com/frahmantamala/procurement-management/internal/core/datamodel/organization"
	userDatamodel "github.com/frahmantamala/procurement-management/internal/core/datamodel/user"
	"github.com/frahmantamala/procurement-management/internal/organization"
)

// OrganizationRepository implements organization.RepositoryAPI using GORM.
type OrganizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

func (r *OrganizationRepository) CreateWorksite(w *organization.Worksite) error {
	model := &orgDatamodel.Worksite{
		Address: w.Address,
		City:    w.City,
		Country: w.Country,
		ChiefID: w.ChiefID,
	}
	if err := r.db.Create(model).Error; err != nil {
		return err
	}
	w.ID = model.ID
	w.CreatedAt = model.CreatedAt
	w.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *OrganizationRepository) GetWorksite(id int64) (*organization.Worksite, error) {
	var model orgDatamodel.Worksite
	if err := r.db.Where("id = ?", id).First(&model).Error; err != nil {
		return nil, err
	}
	return organization.WorksiteFromDataModel(&model), nil
}

func (r *OrganizationRepository) ListWorksites() ([]*organization.Worksite, error) {
	var models []*orgDatamodel.Worksite
	if err := r.db.Order("city ASC, address ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	worksites := make([]*organization.Worksite, len(models))
	for i, m := range models {
		worksites[i] = organization.WorksiteFromDataModel(m)
	}
	return worksites, nil
}

func (r *OrganizationRepository) UpdateWorksite(w *organization.Worksite) error {
	return r.db.Model(&orgDatamodel.Worksite{}).
		Where("id = ?", w.ID).
		Updates(map[string]interface{}{
			"address":    w.Address,
			"city":       w.City,
			"country":    w.Country,
			"chief_id":   w.ChiefID,
			"updated_at": time.Now(),
		}).Error
}

func (r *OrganizationRepository) DeleteWorksite(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("worksite_id = ?", id).Delete(&orgDatamodel.DivisionWorksite{}).Error; err != nil {
			return err
		}
		return tx.Delete(&orgDatamodel.Worksite{}, id).Error
	})
}

func (r *OrganizationRepository) CreateDivision(d *organization.Division, worksiteIDs []int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		model := &orgDatamodel.Division{
			Name:      d.Name,
			CreatedBy: d.CreatedBy,
		}
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		d.ID = model.ID
		d.CreatedAt = model.CreatedAt

		for _, worksiteID := range worksiteIDs {
			link := &orgDatamodel.DivisionWorksite{
				DivisionID: model.ID,
				WorksiteID: worksiteID,
			}
			if err := tx.Create(link).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *OrganizationRepository) ListDivisions() ([]*organization.Division, error) {
	var models []*orgDatamodel.Division
	if err := r.db.Order("name ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	divisions := make([]*organization.Division, len(models))
	for i, m := range models {
		divisions[i] = organization.DivisionFromDataModel(m)
	}
	return divisions, nil
}

func (r *OrganizationRepository) DeleteDivision(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("division_id = ?", id).Delete(&orgDatamodel.DivisionWorksite{}).Error; err != nil {
			return err
		}
		return tx.Delete(&orgDatamodel.Division{}, id).Error
	})
}

func (r *OrganizationRepository) CreateGroup(name string, permissionIDs []int64) (*organization.Group, error) {
	var group *organization.Group
	err := r.db.Transaction(func(tx *gorm.DB) error {
		model := &userDatamodel.Group{Name: name}
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		for _, permID := range permissionIDs {
			link := &userDatamodel.GroupPermission{
				GroupID:      model.ID,
				PermissionID: permID,
			}
			if err := tx.Create(link).Error; err != nil {
				return err
			}
		}
		group = &organization.Group{ID: model.ID, Name: model.Name}
		return nil
	})
	return group, err
}

func (r *OrganizationRepository) GetGroup(id int64) (*organization.Group, error) {
	var model userDatamodel.Group
	if err := r.db.Where("id = ?", id).First(&model).Error; err != nil {
		return nil, err
	}

	count, err := r.GroupMemberCount(id)
	if err != nil {
		return nil, err
	}

	var permissions []string
	err = r.db.Model(&userDatamodel.Permission{}).
		Joins("JOIN group_permissions gp ON gp.permission_id = permissions.id").
		Where("gp.group_id = ?", id).
		Pluck("permissions.codename", &permissions).Error
	if err != nil {
		return nil, err
	}

	return &organization.Group{
		ID:          model.ID,
		Name:        model.Name,
		MemberCount: count,
		Permissions: permissions,
	}, nil
}

func (r *OrganizationRepository) ListGroups() ([]*organization.Group, error) {
	var models []*userDatamodel.Group
	if err := r.db.Order("name ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	groups := make([]*organization.Group, 0, len(models))
	for _, m := range models {
		g, err := r.GetGroup(m.ID)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func (r *OrganizationRepository) DeleteGroup(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", id).Delete(&userDatamodel.GroupPermission{}).Error; err != nil {
			return err
		}
		return tx.Delete(&userDatamodel.Group{}, id).Error
	})
}

func (r *OrganizationRepository) GroupMemberCount(id int64) (int64, error) {
	var count int64
	err := r.db.Model(&userDatamodel.UserGroup{}).
		Where("group_id = ?", id).
		Count(&count).Error
	return count, err
}

func (r *OrganizationRepository) AddMember(groupID, userID int64) error {
	var existing int64
	err := r.db.Model(&userDatamodel.UserGroup{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&existing).Error
	if err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}
	return r.db.Create(&userDatamodel.UserGroup{GroupID: groupID, UserID: userID}).Error
}

func (r *OrganizationRepository) RemoveMember(groupID, userID int64) error {
	return r.db.Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&userDatamodel.UserGroup{}).Error
}

package organization

import (
	"log/slog"

	internal "github.com/frahmantamala/procurement-management/internal"
	"github.com/frahmantamala/procurement-management/internal/auth"
	"github.com/frahmantamala/procurement-management/internal/authz"
)

// RepositoryAPI defines the data access methods for organization structures.
type RepositoryAPI interface {
	CreateWorksite(w *Worksite) error
	GetWorksite(id int64) (*Worksite, error)
	ListWorksites() ([]*Worksite, error)
	UpdateWorksite(w *Worksite) error
	DeleteWorksite(id int64) error

	CreateDivision(d *Division, worksiteIDs []int64) error
	ListDivisions() ([]*Division, error)
	DeleteDivision(id int64) error

	CreateGroup(name string, permissionIDs []int64) (*Group, error)
	GetGroup(id int64) (*Group, error)
	ListGroups() ([]*Group, error)
	DeleteGroup(id int64) error
	GroupMemberCount(id int64) (int64, error)
	AddMember(groupID, userID int64) error
	RemoveMember(groupID, userID int64) error
}

// Service handles worksite, division and group administration. All
// operations are admin-only.
type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func subject(u *auth.User) authz.Subject {
	return authz.Subject{
		ID:          u.ID,
		IsSuperuser: u.IsSuperuser,
		WorksiteID:  u.WorksiteID,
		Permissions: authz.FromStrings(u.Permissions),
	}
}

func (s *Service) requireAdmin(actor *auth.User) *internal.AppError {
	if actor == nil || !authz.IsAdmin(subject(actor)) {
		return internal.ErrUnauthorizedAccess
	}
	return nil
}

func (s *Service) CreateWorksite(actor *auth.User, dto WorksiteDTO) (*Worksite, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	w := &Worksite{
		Address: dto.Address,
		City:    dto.City,
		Country: dto.Country,
		ChiefID: dto.ChiefID,
	}
	if w.Country == "" {
		w.Country = "Turkey"
	}

	if err := s.repo.CreateWorksite(w); err != nil {
		s.logger.Error("failed to create worksite", "error", err)
		return nil, internal.NewInternalError("failed to create worksite", err)
	}

	s.logger.Info("worksite created", "worksite_id", w.ID, "created_by", actor.ID)
	return w, nil
}

func (s *Service) ListWorksites(actor *auth.User) ([]*Worksite, error) {
	if actor == nil {
		return nil, internal.ErrUnauthorizedAccess
	}
	return s.repo.ListWorksites()
}

func (s *Service) UpdateWorksite(actor *auth.User, id int64, dto WorksiteDTO) (*Worksite, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	w, err := s.repo.GetWorksite(id)
	if err != nil {
		return nil, internal.NewNotFoundError("Worksite not found", internal.ErrCodeWorksiteMissing)
	}

	w.Address = dto.Address
	w.City = dto.City
	if dto.Country != "" {
		w.Country = dto.Country
	}
	w.ChiefID = dto.ChiefID

	if err := s.repo.UpdateWorksite(w); err != nil {
		s.logger.Error("failed to update worksite", "error", err, "worksite_id", id)
		return nil, internal.NewInternalError("failed to update worksite", err)
	}
	return w, nil
}

// DeleteWorksite refuses to delete the worksite the actor belongs to;
// restructuring your own site is a two-admin operation by design of the rule.
func (s *Service) DeleteWorksite(actor *auth.User, id int64) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}

	w, err := s.repo.GetWorksite(id)
	if err != nil {
		return internal.NewNotFoundError("Worksite not found", internal.ErrCodeWorksiteMissing)
	}

	if !authz.CanDeleteWorksite(authz.WorksiteState{ID: w.ID}, subject(actor)) {
		s.logger.Warn("worksite deletion denied: own worksite", "worksite_id", id, "user_id", actor.ID)
		return internal.ErrOwnWorksite
	}

	if err := s.repo.DeleteWorksite(id); err != nil {
		s.logger.Error("failed to delete worksite", "error", err, "worksite_id", id)
		return internal.NewInternalError("failed to delete worksite", err)
	}

	s.logger.Info("worksite deleted", "worksite_id", id, "deleted_by", actor.ID)
	return nil
}

func (s *Service) CreateDivision(actor *auth.User, dto DivisionDTO) (*Division, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	d := &Division{
		Name:      dto.Name,
		CreatedBy: actor.ID,
	}
	if err := s.repo.CreateDivision(d, dto.WorksiteIDs); err != nil {
		s.logger.Error("failed to create division", "error", err)
		return nil, internal.NewInternalError("failed to create division", err)
	}

	s.logger.Info("division created", "division_id", d.ID, "created_by", actor.ID)
	return d, nil
}

func (s *Service) ListDivisions(actor *auth.User) ([]*Division, error) {
	if actor == nil {
		return nil, internal.ErrUnauthorizedAccess
	}
	return s.repo.ListDivisions()
}

func (s *Service) DeleteDivision(actor *auth.User, id int64) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}
	if err := s.repo.DeleteDivision(id); err != nil {
		s.logger.Error("failed to delete division", "error", err, "division_id", id)
		return internal.NewInternalError("failed to delete division", err)
	}
	return nil
}

func (s *Service) CreateGroup(actor *auth.User, dto GroupDTO) (*Group, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	g, err := s.repo.CreateGroup(dto.Name, dto.PermissionIDs)
	if err != nil {
		s.logger.Error("failed to create group", "error", err)
		return nil, internal.NewInternalError("failed to create group", err)
	}

	s.logger.Info("group created", "group_id", g.ID, "created_by", actor.ID)
	return g, nil
}

func (s *Service) ListGroups(actor *auth.User) ([]*Group, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.repo.ListGroups()
}

// DeleteGroup only removes empty groups: members must be moved out first so
// nobody silently loses permissions.
func (s *Service) DeleteGroup(actor *auth.User, id int64) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}

	count, err := s.repo.GroupMemberCount(id)
	if err != nil {
		return internal.NewInternalError("failed to check group members", err)
	}
	if !authz.CanDeleteGroup(count) {
		s.logger.Warn("group deletion denied: not empty", "group_id", id, "members", count)
		return internal.ErrGroupNotEmpty
	}

	if err := s.repo.DeleteGroup(id); err != nil {
		s.logger.Error("failed to delete group", "error", err, "group_id", id)
		return internal.NewInternalError("failed to delete group", err)
	}

	s.logger.Info("group deleted", "group_id", id, "deleted_by", actor.ID)
	return nil
}

func (s *Service) AddMember(actor *auth.User, groupID int64, dto MembershipDTO) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}
	if _, err := s.repo.GetGroup(groupID); err != nil {
		return internal.NewNotFoundError("Group not found", internal.ErrCodeGroupNotFound)
	}
	if err := s.repo.AddMember(groupID, dto.UserID); err != nil {
		s.logger.Error("failed to add group member", "error", err, "group_id", groupID, "user_id", dto.UserID)
		return internal.NewInternalError("failed to add group member", err)
	}
	return nil
}

func (s *Service) RemoveMember(actor *auth.User, groupID, userID int64) error {
	if err := s.requireAdmin(actor); err != nil {
		return err
	}
	if err := s.repo.RemoveMember(groupID, userID); err != nil {
		s.logger.Error("failed to remove group member", "error", err, "group_id", groupID, "user_id", userID)
		return internal.NewInternalError("failed to remove group member", err)
	}
	return nil
}

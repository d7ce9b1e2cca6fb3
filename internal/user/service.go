package user

import (
	"fmt"
	"log/slog"
	"time"

	internal "github.com/frahmantamala/procurement-management/internal"
	"github.com/frahmantamala/procurement-management/internal/authz"
	"github.com/frahmantamala/procurement-management/internal/request"
)

// RepositoryAPI defines the data access methods for users.
type RepositoryAPI interface {
	Create(u *User, passwordHash string) error
	GetByID(id int64) (*User, error)
	GetByUsername(username string) (*User, error)
	List(limit, offset int) ([]*User, error)
	Update(u *User) error
	SetPassword(id int64, passwordHash string) error
	SetSupervisor(id int64, supervisorID *int64) error
	SoftDelete(id int64) error
	UsernameExists(username string) (bool, error)
	DirectSubordinateIDs(userID int64) ([]int64, error)
	AssignGroups(userID int64, groupIDs []int64) error
}

// PasswordHasher is satisfied by the auth service.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

// Service handles user administration and the supervisor hierarchy. It also
// implements the directory the request workflow routes approvals through.
type Service struct {
	repo   RepositoryAPI
	hasher PasswordHasher
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, hasher PasswordHasher, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		hasher: hasher,
		logger: logger,
	}
}

const maxUsernameSuffix = 1000

// canManage routes the admin gate through the shared resolver.
func canManage(actor *User) bool {
	if actor == nil {
		return false
	}
	return authz.CanManageUsers(authz.Subject{
		ID:          actor.ID,
		IsSuperuser: actor.IsSuperuser,
		WorksiteID:  actor.WorksiteID,
	})
}

// CreateUser provisions an account with a generated username. Supervisor
// edges are cycle-checked before the row is written.
func (s *Service) CreateUser(actor *User, dto CreateUserDTO) (*User, error) {
	if !canManage(actor) {
		return nil, internal.ErrUnauthorizedAccess
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	username, err := s.uniqueUsername(dto.FirstName, dto.LastName)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.HashPassword(dto.Password)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		return nil, internal.NewInternalError("failed to create user", err)
	}

	now := time.Now()
	u := &User{
		Username:     username,
		FirstName:    dto.FirstName,
		LastName:     dto.LastName,
		PhoneNumber:  dto.PhoneNumber,
		IsActive:     true,
		IsSuperuser:  dto.IsSuperuser,
		SupervisorID: dto.SupervisorID,
		WorksiteID:   dto.WorksiteID,
		DivisionID:   dto.DivisionID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(u, hash); err != nil {
		s.logger.Error("failed to create user", "error", err, "username", username)
		return nil, internal.NewInternalError("failed to create user", err)
	}

	// a new account cannot close a cycle: nobody points at it yet, so only
	// self-supervision would, and the id did not exist when dto was built

	if len(dto.GroupIDs) > 0 {
		if err := s.repo.AssignGroups(u.ID, dto.GroupIDs); err != nil {
			s.logger.Error("failed to assign groups", "error", err, "user_id", u.ID)
			return nil, internal.NewInternalError("failed to assign groups", err)
		}
	}

	s.logger.Info("user created", "user_id", u.ID, "username", username, "created_by", actor.ID)
	return u, nil
}

func (s *Service) uniqueUsername(firstName, lastName string) (string, error) {
	base := BaseUsername(firstName, lastName)

	exists, err := s.repo.UsernameExists(base)
	if err != nil {
		return "", internal.NewInternalError("failed to check username", err)
	}
	if !exists {
		return base, nil
	}

	for i := 2; i < maxUsernameSuffix; i++ {
		candidate := fmt.Sprintf("%s%d", base, i)
		exists, err := s.repo.UsernameExists(candidate)
		if err != nil {
			return "", internal.NewInternalError("failed to check username", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", internal.NewInternalError("could not generate a unique username", nil)
}

func (s *Service) GetUser(actor *User, id int64) (*User, error) {
	if actor == nil {
		return nil, internal.ErrUnauthorizedAccess
	}
	// everyone may look up directory entries; only admins manage them
	u, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.ErrUserNotFound
	}
	return u, nil
}

func (s *Service) ListUsers(actor *User, limit, offset int) ([]*User, error) {
	if !canManage(actor) {
		return nil, internal.ErrUnauthorizedAccess
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(limit, offset)
}

func (s *Service) UpdateUser(actor *User, id int64, dto UpdateUserDTO) (*User, error) {
	if !canManage(actor) {
		return nil, internal.ErrUnauthorizedAccess
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.ErrUserNotFound
	}

	u.FirstName = dto.FirstName
	u.LastName = dto.LastName
	u.PhoneNumber = dto.PhoneNumber
	u.WorksiteID = dto.WorksiteID
	u.DivisionID = dto.DivisionID
	if dto.IsActive != nil {
		u.IsActive = *dto.IsActive
	}
	u.UpdatedAt = time.Now()

	if err := s.repo.Update(u); err != nil {
		s.logger.Error("failed to update user", "error", err, "user_id", id)
		return nil, internal.NewInternalError("failed to update user", err)
	}
	return u, nil
}

// ChangeSupervisor rewires the hierarchy edge for a user. Assignments that
// would create a cycle, including self-supervision, are rejected before any
// write happens.
func (s *Service) ChangeSupervisor(actor *User, id int64, dto ChangeSupervisorDTO) (*User, error) {
	if !canManage(actor) {
		return nil, internal.ErrUnauthorizedAccess
	}

	u, err := s.repo.GetByID(id)
	if err != nil {
		return nil, internal.ErrUserNotFound
	}

	if dto.SupervisorID != nil {
		if _, err := s.repo.GetByID(*dto.SupervisorID); err != nil {
			return nil, internal.ErrUserNotFound
		}

		cycle, err := authz.WouldCycle(s.supervisorLookup(), id, *dto.SupervisorID)
		if err != nil {
			s.logger.Error("cycle check failed", "error", err, "user_id", id)
			return nil, internal.NewInternalError("failed to verify supervisor assignment", err)
		}
		if cycle {
			s.logger.Warn("supervisor assignment rejected: cycle",
				"user_id", id, "supervisor_id", *dto.SupervisorID)
			return nil, internal.ErrSupervisorCycle
		}
	}

	if err := s.repo.SetSupervisor(id, dto.SupervisorID); err != nil {
		s.logger.Error("failed to set supervisor", "error", err, "user_id", id)
		return nil, internal.NewInternalError("failed to set supervisor", err)
	}

	u.SupervisorID = dto.SupervisorID
	s.logger.Info("supervisor changed", "user_id", id, "supervisor_id", dto.SupervisorID, "changed_by", actor.ID)
	return u, nil
}

func (s *Service) ChangePassword(actor *User, id int64, dto ChangePasswordDTO) error {
	if actor == nil {
		return internal.ErrUnauthorizedAccess
	}
	if !canManage(actor) && actor.ID != id {
		return internal.ErrUnauthorizedAccess
	}
	if err := dto.Validate(); err != nil {
		return err
	}

	hash, err := s.hasher.HashPassword(dto.Password)
	if err != nil {
		return internal.NewInternalError("failed to change password", err)
	}
	if err := s.repo.SetPassword(id, hash); err != nil {
		s.logger.Error("failed to change password", "error", err, "user_id", id)
		return internal.NewInternalError("failed to change password", err)
	}
	s.logger.Info("password changed", "user_id", id, "changed_by", actor.ID)
	return nil
}

// DeactivateUser soft-deletes an account. Historical records keep pointing at
// the row; the account just cannot log in or appear in active listings.
func (s *Service) DeactivateUser(actor *User, id int64) error {
	if !canManage(actor) {
		return internal.ErrUnauthorizedAccess
	}
	if actor.ID == id {
		return internal.NewConflictError("cannot deactivate your own account", internal.ErrCodeUserNotFound)
	}
	if _, err := s.repo.GetByID(id); err != nil {
		return internal.ErrUserNotFound
	}
	if err := s.repo.SoftDelete(id); err != nil {
		s.logger.Error("failed to deactivate user", "error", err, "user_id", id)
		return internal.NewInternalError("failed to deactivate user", err)
	}
	s.logger.Info("user deactivated", "user_id", id, "deactivated_by", actor.ID)
	return nil
}

// Subordinates returns all transitive reports of a user, walking the
// supervisor edges downward breadth-first with a visited set.
func (s *Service) Subordinates(actor *User, userID int64) ([]*User, error) {
	if actor == nil {
		return nil, internal.ErrUnauthorizedAccess
	}
	if !canManage(actor) && actor.ID != userID {
		return nil, internal.ErrUnauthorizedAccess
	}

	visited := map[int64]bool{userID: true}
	queue := []int64{userID}
	var result []*User

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		ids, err := s.repo.DirectSubordinateIDs(current)
		if err != nil {
			return nil, internal.NewInternalError("failed to list subordinates", err)
		}
		for _, id := range ids {
			if visited[id] {
				continue
			}
			visited[id] = true
			sub, err := s.repo.GetByID(id)
			if err != nil {
				continue
			}
			result = append(result, sub)
			queue = append(queue, id)
		}
	}

	return result, nil
}

// --- request.Directory ---

// UserRef resolves a user id for the workflow.
func (s *Service) UserRef(id int64) (*request.UserRef, error) {
	u, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	return &request.UserRef{
		ID:          u.ID,
		FullName:    u.FullName(),
		IsSuperuser: u.IsSuperuser,
	}, nil
}

// ApprovalChain walks the supervisor chain upward from a user, excluding the
// user themselves. Inactive supervisors are skipped so requests never route
// to accounts that cannot act.
func (s *Service) ApprovalChain(userID int64) ([]request.UserRef, error) {
	subjects, err := authz.Chain(s.supervisorLookup(), userID)
	if err != nil {
		return nil, err
	}

	refs := make([]request.UserRef, 0, len(subjects))
	for _, subj := range subjects {
		u, err := s.repo.GetByID(subj.ID)
		if err != nil {
			continue
		}
		if !u.IsActive {
			continue
		}
		refs = append(refs, request.UserRef{
			ID:          u.ID,
			FullName:    u.FullName(),
			IsSuperuser: u.IsSuperuser,
		})
	}
	return refs, nil
}

func (s *Service) supervisorLookup() authz.SupervisorLookup {
	return func(userID int64) (*authz.Subject, error) {
		u, err := s.repo.GetByID(userID)
		if err != nil {
			// missing users end the walk instead of failing it
			return nil, nil
		}
		return &authz.Subject{
			ID:           u.ID,
			IsSuperuser:  u.IsSuperuser,
			SupervisorID: u.SupervisorID,
			WorksiteID:   u.WorksiteID,
		}, nil
	}
}

package authz

// The resolver is a pure predicate layer: every function derives a decision
// from the snapshots it is handed and nothing else. Callers re-evaluate on
// every request; results must never be cached across decisions.

// Subject is the minimal view of a user the resolver needs.
type Subject struct {
	ID           int64
	IsSuperuser  bool
	SupervisorID *int64
	WorksiteID   *int64
	Permissions  []Permission
}

// RequestState is the minimal view of a procurement request.
type RequestState struct {
	Status          string
	CreatedBy       int64
	CurrentApprover *int64
}

// WorksiteState is the minimal view of a worksite.
type WorksiteState struct {
	ID int64
}

const (
	statusDraft     = "draft"
	statusPending   = "pending"
	statusInReview  = "in_review"
	statusApproved  = "approved"
	statusRejected  = "rejected"
	statusCompleted = "completed"
)

// maxChainDepth bounds supervisor chain walks so a corrupt hierarchy cannot
// loop authorization decisions.
const maxChainDepth = 32

func (s Subject) HasPermission(p Permission) bool {
	for _, owned := range s.Permissions {
		if owned == p {
			return true
		}
	}
	return false
}

func (s Subject) HasAnyPermission(perms ...Permission) bool {
	for _, p := range perms {
		if s.HasPermission(p) {
			return true
		}
	}
	return false
}

// IsAdmin covers both the superuser flag and the explicit admin codename, so
// group-granted administrators pass the same gates.
func IsAdmin(u Subject) bool {
	return u.IsSuperuser || u.HasPermission(PermAdmin)
}

func CanManageUsers(u Subject) bool {
	return IsAdmin(u)
}

// IsSupervisorOf reports direct supervision only. Indirect reports are a
// derived query over the supervisor reference; see Subordinates.
func IsSupervisorOf(u Subject, other Subject) bool {
	return other.SupervisorID != nil && *other.SupervisorID == u.ID
}

func CanEdit(r RequestState, u Subject) bool {
	return r.Status == statusDraft && r.CreatedBy == u.ID
}

func CanDelete(r RequestState, u Subject) bool {
	return r.Status == statusDraft && r.CreatedBy == u.ID
}

func CanApprove(r RequestState, u Subject) bool {
	if r.Status != statusPending && r.Status != statusInReview {
		return false
	}
	if u.IsSuperuser {
		return true
	}
	return r.CurrentApprover != nil && *r.CurrentApprover == u.ID
}

func CanPurchase(u Subject) bool {
	return u.IsSuperuser || u.HasPermission(PermPurchase)
}

func CanViewAllRequests(u Subject) bool {
	return u.IsSuperuser || u.HasAnyPermission(PermViewAllRequests, PermAdmin)
}

// CanView allows the creator, the current approver, purchasing actors and
// admins to read a request.
func CanView(r RequestState, u Subject) bool {
	if u.IsSuperuser || CanViewAllRequests(u) {
		return true
	}
	if r.CreatedBy == u.ID {
		return true
	}
	if r.CurrentApprover != nil && *r.CurrentApprover == u.ID {
		return true
	}
	return CanPurchase(u) && r.Status != statusDraft
}

// CanClose gates mark-completed: purchasing actors, the creator and admins.
func CanClose(r RequestState, u Subject) bool {
	return u.IsSuperuser || CanPurchase(u) || r.CreatedBy == u.ID
}

func CanDeleteGroup(memberCount int64) bool {
	return memberCount == 0
}

// CanDeleteWorksite forbids admins from deleting the worksite they themselves
// belong to.
func CanDeleteWorksite(w WorksiteState, u Subject) bool {
	if !IsAdmin(u) {
		return false
	}
	return u.WorksiteID == nil || *u.WorksiteID != w.ID
}

// SupervisorLookup resolves a user id to its subject snapshot. A nil result
// with nil error means the user does not exist (treated as end of chain).
type SupervisorLookup func(userID int64) (*Subject, error)

// Chain walks the supervisor references upward from (but not including) the
// given user. The walk is cycle-guarded and depth-bounded; a cycle simply
// truncates the chain rather than failing, since the hierarchy itself is
// repaired elsewhere.
func Chain(lookup SupervisorLookup, userID int64) ([]Subject, error) {
	start, err := lookup(userID)
	if err != nil {
		return nil, err
	}
	if start == nil || start.SupervisorID == nil {
		return nil, nil
	}

	var chain []Subject
	visited := map[int64]bool{userID: true}
	nextID := *start.SupervisorID

	for depth := 0; depth < maxChainDepth; depth++ {
		if visited[nextID] {
			break
		}
		visited[nextID] = true

		sup, err := lookup(nextID)
		if err != nil {
			return nil, err
		}
		if sup == nil {
			break
		}
		chain = append(chain, *sup)
		if sup.SupervisorID == nil {
			break
		}
		nextID = *sup.SupervisorID
	}

	return chain, nil
}

// WouldCycle reports whether assigning newSupervisorID as the supervisor of
// userID creates a cycle (including self-supervision).
func WouldCycle(lookup SupervisorLookup, userID, newSupervisorID int64) (bool, error) {
	if userID == newSupervisorID {
		return true, nil
	}

	visited := map[int64]bool{}
	currentID := newSupervisorID

	for depth := 0; depth < maxChainDepth; depth++ {
		if currentID == userID {
			return true, nil
		}
		if visited[currentID] {
			// existing cycle upstream; the new edge does not reach userID
			return false, nil
		}
		visited[currentID] = true

		current, err := lookup(currentID)
		if err != nil {
			return false, err
		}
		if current == nil || current.SupervisorID == nil {
			return false, nil
		}
		currentID = *current.SupervisorID
	}

	return false, nil
}

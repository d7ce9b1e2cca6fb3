package authz

// Permission is a tagged enumeration of the capability kinds the workflow
// understands. Unknown backend codenames pass through Custom instead of being
// parsed out of free-form strings.
type Permission string

const (
	PermAdmin           Permission = "admin"
	PermApproveRequests Permission = "approve_requests"
	PermRejectRequests  Permission = "reject_requests"
	PermPurchase        Permission = "can_purchase"
	PermViewAllRequests Permission = "view_all_requests"
	PermManageUsers     Permission = "manage_users"
)

// Custom converts a backend-defined codename. Known codenames map onto their
// built-in kinds; anything else passes through untouched.
func Custom(codename string) Permission {
	return Permission(codename)
}

// Known reports whether p is one of the built-in permission kinds.
func Known(p Permission) bool {
	switch p {
	case PermAdmin, PermApproveRequests, PermRejectRequests, PermPurchase, PermViewAllRequests, PermManageUsers:
		return true
	}
	return false
}

// FromStrings converts raw codenames as stored in the database.
func FromStrings(codenames []string) []Permission {
	perms := make([]Permission, len(codenames))
	for i, c := range codenames {
		perms[i] = Custom(c)
	}
	return perms
}

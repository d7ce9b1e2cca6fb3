package user

import "time"

type User struct {
	ID           int64      `gorm:"primaryKey"`
	Username     string     `gorm:"column:username;uniqueIndex;not null"`
	FirstName    string     `gorm:"column:first_name;not null"`
	LastName     string     `gorm:"column:last_name;not null"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	PhoneNumber  string     `gorm:"column:phone_number"`
	IsActive     bool       `gorm:"column:is_active;default:true"`
	IsSuperuser  bool       `gorm:"column:is_superuser;default:false"`
	SupervisorID *int64     `gorm:"column:supervisor_id;index"`
	WorksiteID   *int64     `gorm:"column:worksite_id"`
	DivisionID   *int64     `gorm:"column:division_id"`
	DeletedAt    *time.Time `gorm:"column:deleted_at;index"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

type Permission struct {
	ID          int64     `gorm:"primaryKey"`
	Codename    string    `gorm:"column:codename;uniqueIndex;not null"`
	Description string    `gorm:"column:description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Permission) TableName() string {
	return "permissions"
}

type Group struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"column:name;uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Group) TableName() string {
	return "groups"
}

type GroupPermission struct {
	ID           int64 `gorm:"primaryKey"`
	GroupID      int64 `gorm:"column:group_id;not null;index"`
	PermissionID int64 `gorm:"column:permission_id;not null"`
}

func (GroupPermission) TableName() string {
	return "group_permissions"
}

type UserGroup struct {
	ID      int64 `gorm:"primaryKey"`
	UserID  int64 `gorm:"column:user_id;not null;index"`
	GroupID int64 `gorm:"column:group_id;not null;index"`
}

func (UserGroup) TableName() string {
	return "user_groups"
}

// UserPermission is an individual grant layered on top of group permissions.
type UserPermission struct {
	ID           int64     `gorm:"primaryKey"`
	UserID       int64     `gorm:"column:user_id;not null;index"`
	PermissionID int64     `gorm:"column:permission_id;not null"`
	GrantedBy    *int64    `gorm:"column:granted_by"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (UserPermission) TableName() string {
	return "user_permissions"
}

package organization

import "time"

type Worksite struct {
	ID        int64     `gorm:"primaryKey"`
	Address   string    `gorm:"column:address;not null"`
	City      string    `gorm:"column:city;not null"`
	Country   string    `gorm:"column:country;default:Turkey"`
	ChiefID   *int64    `gorm:"column:chief_id"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Worksite) TableName() string {
	return "worksites"
}

type Division struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	CreatedBy int64     `gorm:"column:created_by;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Division) TableName() string {
	return "divisions"
}

type DivisionWorksite struct {
	ID         int64 `gorm:"primaryKey"`
	DivisionID int64 `gorm:"column:division_id;not null;index"`
	WorksiteID int64 `gorm:"column:worksite_id;not null"`
}

func (DivisionWorksite) TableName() string {
	return "division_worksites"
}

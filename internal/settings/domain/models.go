package domain

import "time"

// Option is one row of the host settings store.
type Option struct {
	Name      string    `gorm:"primaryKey;type:varchar(191)" json:"name"`
	Value     string    `gorm:"type:text;not null;default:''" json:"value"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Option) TableName() string { return "options" }

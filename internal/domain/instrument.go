package domain

import "time"

// Instrument represents metadata for a tradable instrument
type Instrument struct {
	Symbol       string    `gorm:"primaryKey" json:"symbol"`
	Name         string    `json:"name"`
	IconPath     string    `json:"icon_path"`
	IsActive     bool      `json:"is_active" gorm:"index"` // Active trading status
	LastSyncedAt time.Time `json:"last_synced_at"`         // Last icon sync time
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Setting represents app-level configuration (Key-Value)
type Setting struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

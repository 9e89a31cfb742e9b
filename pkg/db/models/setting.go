package models

import "time"

// Setting is a keyed installation-wide value: connect credentials per
// environment, the stored signing keypair, and similar one-off state.
type Setting struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

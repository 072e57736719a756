package models

import (
	"time"

	"gorm.io/datatypes"
)

// KVEntry is one key of the relational key-value backend.
// The draft list lives under a single key as a JSON array.
type KVEntry struct {
	Key       string         `gorm:"type:varchar(255);primaryKey" json:"key"`
	Value     datatypes.JSON `gorm:"type:jsonb;not null" json:"value"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName override
func (KVEntry) TableName() string {
	return "kv_entries"
}

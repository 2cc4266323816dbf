package model

import (
	"time"

	"gorm.io/datatypes"
)

// BrainstormRecord is one persisted brainstorm session. Branches hold the
// full branch map as JSON so the record stays self-contained.
type BrainstormRecord struct {
	ID               string                      `gorm:"type:varchar(32);primaryKey" json:"id"`
	Request          string                      `gorm:"type:text;not null" json:"request"`
	BrowserSessionID string                      `gorm:"type:varchar(32);index" json:"browser_session_id"`
	BranchOrder      datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"branch_order"`
	Branches         datatypes.JSON              `gorm:"type:jsonb;not null" json:"branches"`
	Version          int64                       `gorm:"not null;default:0" json:"version"`
	CreatedAt        time.Time                   `json:"created_at"`
	UpdatedAt        time.Time                   `json:"updated_at"`
}

func (BrainstormRecord) TableName() string {
	return "brainstorm_sessions"
}

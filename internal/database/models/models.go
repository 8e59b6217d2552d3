// Package models contains the database model definitions.
package models

import (
	"time"
)

// Setting is a key/value system setting, such as the last serial port.
// Table: settings
type Setting struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Key       string    `gorm:"column:key;uniqueIndex"`
	Value     string    `gorm:"column:value"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Setting) TableName() string { return "settings" }

// TagBinding maps an RFID tag to the sequence it starts.
// Table: tag_bindings
type TagBinding struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	Tag       string    `gorm:"column:tag;uniqueIndex" json:"tag"`
	Sequence  string    `gorm:"column:sequence" json:"sequence"`
	Label     *string   `gorm:"column:label" json:"label,omitempty"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (TagBinding) TableName() string { return "tag_bindings" }

// Fragment records a trivia question a visitor answered correctly.
// Table: fragments
type Fragment struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	Sequence  string    `gorm:"column:sequence;index" json:"sequence"`
	Tag       *string   `gorm:"column:tag;index" json:"tag,omitempty"`
	Question  string    `gorm:"column:question" json:"question"`
	Answer    string    `gorm:"column:answer" json:"answer"`
	Attempts  int       `gorm:"column:attempts;default:1" json:"attempts"`
	FoundAt   time.Time `gorm:"column:found_at" json:"foundAt"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (Fragment) TableName() string { return "fragments" }

// All returns every model for migration.
func All() []interface{} {
	return []interface{}{
		&Setting{},
		&TagBinding{},
		&Fragment{},
	}
}

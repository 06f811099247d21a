package models

import "time"

// Fragment is a unit of original text, stored once per (content hash,
// source language) and shared across all objects that contain it. The
// original content is immutable after creation.
type Fragment struct {
	ID              uint   `gorm:"primaryKey;autoIncrement"`
	Hash            string `gorm:"size:64;not null;uniqueIndex:idx_fragment_key"`
	SourceLanguage  string `gorm:"size:16;not null;uniqueIndex:idx_fragment_key"`
	Content         string `gorm:"type:text"`
	FieldIdentifier string `gorm:"size:64"`
	HTML            bool
	Ignored         bool `gorm:"default:false;index"`
	CreatedAt       time.Time

	Simplifications []Simplification `gorm:"foreignKey:FragmentID"`
	Links           []ObjectLink     `gorm:"foreignKey:FragmentID"`
}

// Simplification is one fragment's result in one target language. At most
// one row exists per (fragment, target language); a new result overwrites.
type Simplification struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	FragmentID     uint   `gorm:"not null;uniqueIndex:idx_simplification_key"`
	TargetLanguage string `gorm:"size:16;not null;uniqueIndex:idx_simplification_key;index:idx_simplification_reverse"`
	Content        string `gorm:"type:text"`
	Hash           string `gorm:"size:64;index:idx_simplification_reverse"`
	APIName        string `gorm:"size:32"`
	UserID         uint
	JobID          string `gorm:"size:64"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Fragment Fragment `gorm:"foreignKey:FragmentID"`
}

// ObjectLink associates a fragment with one content object that contains
// it. Many-to-many: shared text yields one fragment with several links.
type ObjectLink struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	FragmentID uint   `gorm:"not null;uniqueIndex:idx_link_key"`
	ObjectID   uint   `gorm:"not null;uniqueIndex:idx_link_key;index:idx_link_object"`
	ObjectType string `gorm:"size:16;not null;uniqueIndex:idx_link_key;index:idx_link_object"`
	BlogID     uint   `gorm:"default:0;uniqueIndex:idx_link_key;index:idx_link_object"`
	CreatedAt  time.Time

	Fragment Fragment `gorm:"foreignKey:FragmentID"`
}

package models

import "time"

// ContentObject tracks simplification-relevant state for one CMS content
// entity (post, term). The entity itself lives in the CMS; this row only
// carries the flags the engine needs.
type ContentObject struct {
	ID               uint   `gorm:"primaryKey;autoIncrement"`
	ObjectID         uint   `gorm:"not null;uniqueIndex:idx_object_key"`
	ObjectType       string `gorm:"size:16;not null;uniqueIndex:idx_object_key"`
	BlogID           uint   `gorm:"default:0;uniqueIndex:idx_object_key"`
	SourceLanguage   string `gorm:"size:16"`
	PreventAutomatic bool   `gorm:"default:false"`
	Trashed          bool   `gorm:"default:false;index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time

	Copies []ObjectCopy `gorm:"foreignKey:ObjectID,ObjectType,BlogID;references:ObjectID,ObjectType,BlogID"`
}

// ObjectCopy records the simplified copy of an object in one target
// language. The copy always carries a back-reference to its origin; the
// origin never has more than one copy per target language.
type ObjectCopy struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	ObjectID       uint   `gorm:"not null;uniqueIndex:idx_copy_key"`
	ObjectType     string `gorm:"size:16;not null;uniqueIndex:idx_copy_key"`
	BlogID         uint   `gorm:"default:0;uniqueIndex:idx_copy_key"`
	TargetLanguage string `gorm:"size:16;not null;uniqueIndex:idx_copy_key"`
	CopyObjectID   uint   `gorm:"not null;index"`
	Changed        bool   `gorm:"default:false"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

package store

import (
	"errors"
	"fmt"

	"github.com/klartext/klartext/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertObject registers a content object (or refreshes its source
// language) and returns the tracked row.
func UpsertObject(db *gorm.DB, ref ObjectRef, sourceLanguage string) (*models.ContentObject, error) {
	object := models.ContentObject{
		ObjectID:       ref.ObjectID,
		ObjectType:     ref.ObjectType,
		BlogID:         ref.BlogID,
		SourceLanguage: sourceLanguage,
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "object_id"}, {Name: "object_type"}, {Name: "blog_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"source_language", "updated_at"}),
	}).Create(&object)
	if result.Error != nil {
		return nil, storageErr("upsert object", result.Error)
	}
	return GetObject(db, ref)
}

// GetObject retrieves the tracked state for one content object.
func GetObject(db *gorm.DB, ref ObjectRef) (*models.ContentObject, error) {
	var object models.ContentObject
	err := db.Where("object_id = ? AND object_type = ? AND blog_id = ?", ref.ObjectID, ref.ObjectType, ref.BlogID).
		First(&object).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr("get object", err)
	}
	return &object, nil
}

// SetPreventAutomatic toggles the automatic-simplification-prevented flag.
// Prevented objects are skipped by the background scheduler but still
// processable through explicit runs.
func SetPreventAutomatic(db *gorm.DB, ref ObjectRef, prevent bool) error {
	return updateObjectFlag(db, ref, "prevent_automatic", prevent)
}

// SetTrashed marks an object as trashed or restored. Trashed objects drop
// out of to_simplify queries.
func SetTrashed(db *gorm.DB, ref ObjectRef, trashed bool) error {
	return updateObjectFlag(db, ref, "trashed", trashed)
}

func updateObjectFlag(db *gorm.DB, ref ObjectRef, column string, value bool) error {
	result := db.Model(&models.ContentObject{}).
		Where("object_id = ? AND object_type = ? AND blog_id = ?", ref.ObjectID, ref.ObjectType, ref.BlogID).
		Update(column, value)
	if result.Error != nil {
		return storageErr(fmt.Sprintf("set %s", column), result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsureCopy records the simplified copy of an object in one target
// language, creating the row on first use. The unique index guarantees at
// most one copy per (object, target language); a repeated call with a
// different copy ID fails rather than silently rebinding.
func EnsureCopy(db *gorm.DB, ref ObjectRef, targetLanguage string, copyObjectID uint) (*models.ObjectCopy, error) {
	copy := models.ObjectCopy{
		ObjectID:       ref.ObjectID,
		ObjectType:     ref.ObjectType,
		BlogID:         ref.BlogID,
		TargetLanguage: targetLanguage,
		CopyObjectID:   copyObjectID,
	}
	result := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "object_id"}, {Name: "object_type"}, {Name: "blog_id"}, {Name: "target_language"},
		},
		DoNothing: true,
	}).Create(&copy)
	if result.Error != nil {
		return nil, storageErr("ensure copy", result.Error)
	}

	existing, err := GetCopy(db, ref, targetLanguage)
	if err != nil {
		return nil, err
	}
	if copyObjectID != 0 && existing.CopyObjectID != copyObjectID {
		return nil, storageErr("ensure copy",
			fmt.Errorf("object %d already has copy %d for %s", ref.ObjectID, existing.CopyObjectID, targetLanguage))
	}
	return existing, nil
}

// GetCopy retrieves the copy record for (object, target language).
func GetCopy(db *gorm.DB, ref ObjectRef, targetLanguage string) (*models.ObjectCopy, error) {
	var copy models.ObjectCopy
	err := db.Where("object_id = ? AND object_type = ? AND blog_id = ? AND target_language = ?",
		ref.ObjectID, ref.ObjectType, ref.BlogID, targetLanguage).
		First(&copy).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr("get copy", err)
	}
	return &copy, nil
}

// SetCopyChanged sets or clears the changed-since-last-simplification
// marker on a copy.
func SetCopyChanged(db *gorm.DB, ref ObjectRef, targetLanguage string, changed bool) error {
	result := db.Model(&models.ObjectCopy{}).
		Where("object_id = ? AND object_type = ? AND blog_id = ? AND target_language = ?",
			ref.ObjectID, ref.ObjectType, ref.BlogID, targetLanguage).
		Update("changed", changed)
	if result.Error != nil {
		return storageErr("set copy changed", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// PendingFragments returns the fragments of one object that still need a
// simplification in the target language: linked, not ignored, no result
// yet. Ordered oldest first so run progress is stable across ticks.
func PendingFragments(db *gorm.DB, ref ObjectRef, targetLanguage string) ([]models.Fragment, error) {
	var fragments []models.Fragment
	err := db.Joins("JOIN object_links l ON l.fragment_id = fragments.id").
		Where("l.object_id = ? AND l.object_type = ? AND l.blog_id = ?", ref.ObjectID, ref.ObjectType, ref.BlogID).
		Where("fragments.ignored = ?", false).
		Where("NOT EXISTS (SELECT 1 FROM simplifications s WHERE s.fragment_id = fragments.id AND s.target_language = ?)", targetLanguage).
		Order("fragments.created_at ASC, fragments.id ASC").
		Find(&fragments).Error
	if err != nil {
		return nil, storageErr("pending fragments", err)
	}
	return fragments, nil
}

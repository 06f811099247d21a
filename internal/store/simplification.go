package store

import (
	"errors"
	"fmt"

	"github.com/klartext/klartext/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SetSimplificationOpts holds parameters for storing a simplification.
type SetSimplificationOpts struct {
	FragmentID     uint
	TargetLanguage string
	Content        string
	APIName        string
	UserID         uint
	JobID          string
}

// SetSimplification upserts the simplification for (fragment, target
// language). A second call for the same key overwrites; there is never
// more than one active simplification per key. Fails if the fragment
// does not exist.
func SetSimplification(db *gorm.DB, opts SetSimplificationOpts) (*models.Simplification, error) {
	if _, err := GetFragment(db, opts.FragmentID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, storageErr("set simplification", fmt.Errorf("fragment %d does not exist", opts.FragmentID))
		}
		return nil, err
	}

	simplification := models.Simplification{
		FragmentID:     opts.FragmentID,
		TargetLanguage: opts.TargetLanguage,
		Content:        opts.Content,
		Hash:           Hash(opts.Content),
		APIName:        opts.APIName,
		UserID:         opts.UserID,
		JobID:          opts.JobID,
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "fragment_id"}, {Name: "target_language"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "hash", "api_name", "user_id", "job_id", "updated_at"}),
	}).Create(&simplification)
	if result.Error != nil {
		return nil, storageErr("set simplification", result.Error)
	}

	// Re-read so the overwrite path returns the canonical row.
	var saved models.Simplification
	err := db.Where("fragment_id = ? AND target_language = ?", opts.FragmentID, opts.TargetLanguage).
		First(&saved).Error
	if err != nil {
		return nil, storageErr("set simplification", err)
	}
	return &saved, nil
}

// GetSimplification retrieves the simplification for (fragment, target
// language).
func GetSimplification(db *gorm.DB, fragmentID uint, targetLanguage string) (*models.Simplification, error) {
	var simplification models.Simplification
	err := db.Where("fragment_id = ? AND target_language = ?", fragmentID, targetLanguage).
		First(&simplification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr("get simplification", err)
	}
	return &simplification, nil
}

// DeleteSimplification removes the simplification for (fragment, target
// language). The fragment and its object links stay untouched.
func DeleteSimplification(db *gorm.DB, fragmentID uint, targetLanguage string) error {
	result := db.Where("fragment_id = ? AND target_language = ?", fragmentID, targetLanguage).
		Delete(&models.Simplification{})
	if result.Error != nil {
		return storageErr("delete simplification", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteObjectSimplifications removes all simplifications in one target
// language for every fragment linked to the given object. Used by run
// reset to re-queue an object from scratch.
func DeleteObjectSimplifications(db *gorm.DB, objectID uint, objectType string, blogID uint, targetLanguage string) (int64, error) {
	subquery := db.Model(&models.ObjectLink{}).
		Select("fragment_id").
		Where("object_id = ? AND object_type = ? AND blog_id = ?", objectID, objectType, blogID)
	result := db.Where("target_language = ? AND fragment_id IN (?)", targetLanguage, subquery).
		Delete(&models.Simplification{})
	if result.Error != nil {
		return 0, storageErr("delete object simplifications", result.Error)
	}
	return result.RowsAffected, nil
}

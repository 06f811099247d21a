package store

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/klartext/klartext/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Hash returns the content-address of a text: the hex SHA-256 of its
// bytes. Fragments and simplifications are keyed by this hash plus a
// language tag.
func Hash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// AddFragmentOpts holds parameters for storing a fragment.
type AddFragmentOpts struct {
	Content         string
	SourceLanguage  string
	FieldIdentifier string
	HTML            bool
}

// AddFragment stores a fragment, returning the existing row when the
// (content, source language) pair is already present. The insert uses a
// do-nothing upsert on the unique (hash, source_language) index, so
// concurrent calls for the same content produce exactly one row.
//
// If the text is itself a stored simplification for this language, the
// owning fragment is returned instead of creating a duplicate; this keeps
// already-simplified copies from being re-registered as originals.
func AddFragment(db *gorm.DB, opts AddFragmentOpts) (*models.Fragment, error) {
	if opts.Content == "" {
		return nil, fmt.Errorf("store: add fragment: content is required")
	}

	if owner, err := GetFragmentBySimplification(db, opts.Content, opts.SourceLanguage); err == nil {
		return owner, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	fragment := models.Fragment{
		Hash:            Hash(opts.Content),
		SourceLanguage:  opts.SourceLanguage,
		Content:         opts.Content,
		FieldIdentifier: opts.FieldIdentifier,
		HTML:            opts.HTML,
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "hash"}, {Name: "source_language"}},
		DoNothing: true,
	}).Create(&fragment)
	if result.Error != nil {
		return nil, storageErr("add fragment", result.Error)
	}
	if result.RowsAffected > 0 {
		return &fragment, nil
	}

	// Conflict: another caller won the insert. Fetch the existing row.
	return GetFragmentByOriginal(db, opts.Content, opts.SourceLanguage)
}

// GetFragment retrieves a fragment by ID.
func GetFragment(db *gorm.DB, id uint) (*models.Fragment, error) {
	var fragment models.Fragment
	if err := db.Where("id = ?", id).First(&fragment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr(fmt.Sprintf("get fragment %d", id), err)
	}
	return &fragment, nil
}

// GetFragmentByOriginal retrieves a fragment by its original content and
// source language.
func GetFragmentByOriginal(db *gorm.DB, content, sourceLanguage string) (*models.Fragment, error) {
	var fragment models.Fragment
	err := db.Where("hash = ? AND source_language = ?", Hash(content), sourceLanguage).First(&fragment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr("get fragment by original", err)
	}
	return &fragment, nil
}

// GetFragmentBySimplification resolves simplified content in a target
// language back to the owning fragment (reverse index, used for
// round-trip detection).
func GetFragmentBySimplification(db *gorm.DB, content, targetLanguage string) (*models.Fragment, error) {
	var simplification models.Simplification
	err := db.Where("hash = ? AND target_language = ?", Hash(content), targetLanguage).
		First(&simplification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageErr("get fragment by simplification", err)
	}
	return GetFragment(db, simplification.FragmentID)
}

// Fragment query states.
const (
	StateInUse      = "in_use"      // has object links and at least one simplification
	StateToSimplify = "to_simplify" // has object links, no simplification, not ignored, object not trashed
)

// Filter selects fragments for QueryFragments.
type Filter struct {
	State          string // StateInUse, StateToSimplify or empty for all
	Language       string // source language, empty for all
	TargetLanguage string // scopes the simplification checks, empty = any
	OrderDesc      bool   // order by creation date descending instead of ascending
	Limit          int    // 0 = no limit
}

// QueryFragments returns fragments matching the filter, ordered by
// creation date.
func QueryFragments(db *gorm.DB, filter Filter) ([]models.Fragment, error) {
	q := db.Model(&models.Fragment{})

	if filter.Language != "" {
		q = q.Where("source_language = ?", filter.Language)
	}

	simplified := "EXISTS (SELECT 1 FROM simplifications s WHERE s.fragment_id = fragments.id)"
	args := []interface{}{}
	if filter.TargetLanguage != "" {
		simplified = "EXISTS (SELECT 1 FROM simplifications s WHERE s.fragment_id = fragments.id AND s.target_language = ?)"
		args = append(args, filter.TargetLanguage)
	}
	linked := "EXISTS (SELECT 1 FROM object_links l WHERE l.fragment_id = fragments.id)"
	untrashed := `EXISTS (
		SELECT 1 FROM object_links l
		JOIN content_objects o ON o.object_id = l.object_id AND o.object_type = l.object_type AND o.blog_id = l.blog_id
		WHERE l.fragment_id = fragments.id AND o.trashed = ?
	)`

	switch filter.State {
	case StateInUse:
		q = q.Where(linked).Where(simplified, args...)
	case StateToSimplify:
		q = q.Where(linked).Where("NOT "+simplified, args...).
			Where("ignored = ?", false).
			Where(untrashed, false)
	case "":
	default:
		return nil, fmt.Errorf("store: query fragments: unknown state %q", filter.State)
	}

	order := "created_at ASC, id ASC"
	if filter.OrderDesc {
		order = "created_at DESC, id DESC"
	}
	q = q.Order(order)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var fragments []models.Fragment
	if err := q.Find(&fragments).Error; err != nil {
		return nil, storageErr("query fragments", err)
	}
	return fragments, nil
}

// SetIgnored marks or unmarks a fragment as permanently skipped. Ignored
// fragments never appear in pending queries but keep their row and links.
func SetIgnored(db *gorm.DB, fragmentID uint, ignored bool) error {
	result := db.Model(&models.Fragment{}).Where("id = ?", fragmentID).Update("ignored", ignored)
	if result.Error != nil {
		return storageErr(fmt.Sprintf("set ignored on fragment %d", fragmentID), result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteFragment removes a fragment together with its simplifications and
// object links.
func DeleteFragment(db *gorm.DB, id uint) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("fragment_id = ?", id).Delete(&models.Simplification{}).Error; err != nil {
			return err
		}
		if err := tx.Where("fragment_id = ?", id).Delete(&models.ObjectLink{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.Fragment{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return storageErr(fmt.Sprintf("delete fragment %d", id), err)
	}
	return nil
}

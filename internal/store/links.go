package store

import (
	"github.com/klartext/klartext/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ObjectRef identifies one content object within one site.
type ObjectRef struct {
	ObjectID   uint
	ObjectType string
	BlogID     uint
}

// LinkObject associates a fragment with an object. Linking the same pair
// twice is a no-op.
func LinkObject(db *gorm.DB, fragmentID uint, ref ObjectRef) error {
	link := models.ObjectLink{
		FragmentID: fragmentID,
		ObjectID:   ref.ObjectID,
		ObjectType: ref.ObjectType,
		BlogID:     ref.BlogID,
	}
	result := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "fragment_id"}, {Name: "object_id"}, {Name: "object_type"}, {Name: "blog_id"},
		},
		DoNothing: true,
	}).Create(&link)
	if result.Error != nil {
		return storageErr("link object", result.Error)
	}
	return nil
}

// LinkedFragments returns the fragments linked to an object, oldest first.
func LinkedFragments(db *gorm.DB, ref ObjectRef) ([]models.Fragment, error) {
	var fragments []models.Fragment
	err := db.Joins("JOIN object_links l ON l.fragment_id = fragments.id").
		Where("l.object_id = ? AND l.object_type = ? AND l.blog_id = ?", ref.ObjectID, ref.ObjectType, ref.BlogID).
		Order("fragments.created_at ASC, fragments.id ASC").
		Find(&fragments).Error
	if err != nil {
		return nil, storageErr("linked fragments", err)
	}
	return fragments, nil
}

// CleanupLinks removes links from an object to any fragment not in keep.
// Called after re-decomposing an object so stale links from edited
// content disappear.
func CleanupLinks(db *gorm.DB, ref ObjectRef, keep []uint) (int64, error) {
	q := db.Where("object_id = ? AND object_type = ? AND blog_id = ?", ref.ObjectID, ref.ObjectType, ref.BlogID)
	if len(keep) > 0 {
		q = q.Where("fragment_id NOT IN ?", keep)
	}
	result := q.Delete(&models.ObjectLink{})
	if result.Error != nil {
		return 0, storageErr("cleanup links", result.Error)
	}
	return result.RowsAffected, nil
}

// UnlinkObject removes every link the object holds. Called when the
// object is deleted from the CMS.
func UnlinkObject(db *gorm.DB, ref ObjectRef) (int64, error) {
	result := db.Where("object_id = ? AND object_type = ? AND blog_id = ?", ref.ObjectID, ref.ObjectType, ref.BlogID).
		Delete(&models.ObjectLink{})
	if result.Error != nil {
		return 0, storageErr("unlink object", result.Error)
	}
	return result.RowsAffected, nil
}

// SweepOrphans deletes fragments that no longer have any object link,
// together with their simplifications. Returns the number of fragments
// removed.
func SweepOrphans(db *gorm.DB) (int64, error) {
	var removed int64
	err := db.Transaction(func(tx *gorm.DB) error {
		orphans := tx.Model(&models.Fragment{}).
			Select("id").
			Where("NOT EXISTS (SELECT 1 FROM object_links l WHERE l.fragment_id = fragments.id)")
		if err := tx.Where("fragment_id IN (?)", orphans).Delete(&models.Simplification{}).Error; err != nil {
			return err
		}
		result := tx.Where("NOT EXISTS (SELECT 1 FROM object_links l WHERE l.fragment_id = fragments.id)").
			Delete(&models.Fragment{})
		if result.Error != nil {
			return result.Error
		}
		removed = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, storageErr("sweep orphans", err)
	}
	return removed, nil
}

package run

import (
	"errors"

	"github.com/klartext/klartext/internal/decompose"
	"github.com/klartext/klartext/internal/models"
	"github.com/klartext/klartext/internal/store"
)

// IngestOpts holds parameters for registering an object's content.
type IngestOpts struct {
	Object         store.ObjectRef
	SourceLanguage string
	Content        decompose.Object
}

// Ingest decomposes an object into fragments, persists and links them,
// and removes links left over from edited content. Re-ingesting
// unchanged content is a no-op thanks to content addressing.
func (o *Orchestrator) Ingest(dec *decompose.Decomposer, opts IngestOpts) ([]models.Fragment, error) {
	if _, err := store.UpsertObject(o.db, opts.Object, opts.SourceLanguage); err != nil {
		return nil, err
	}

	parts, err := dec.Decompose(opts.Content)
	if err != nil {
		return nil, err
	}

	existing, err := store.LinkedFragments(o.db, opts.Object)
	if err != nil {
		return nil, err
	}
	known := make(map[uint]bool, len(existing))
	for _, fragment := range existing {
		known[fragment.ID] = true
	}

	changed := false
	fragments := make([]models.Fragment, 0, len(parts))
	keep := make([]uint, 0, len(parts))
	for _, part := range parts {
		fragment, err := store.AddFragment(o.db, store.AddFragmentOpts{
			Content:         part.Text,
			SourceLanguage:  opts.SourceLanguage,
			FieldIdentifier: part.Identifier,
			HTML:            part.HTML,
		})
		if err != nil {
			return nil, err
		}
		if err := store.LinkObject(o.db, fragment.ID, opts.Object); err != nil {
			return nil, err
		}
		if !known[fragment.ID] {
			changed = true
		}
		fragments = append(fragments, *fragment)
		keep = append(keep, fragment.ID)
	}

	removed, err := store.CleanupLinks(o.db, opts.Object, keep)
	if err != nil {
		return nil, err
	}

	// Flag the copies only when the fragment set actually changed, so an
	// unchanged re-ingest stays a no-op.
	if changed || removed > 0 {
		o.markCopiesChanged(opts.Object)
	}

	return fragments, nil
}

// markCopiesChanged sets the changed marker on every copy of the object.
func (o *Orchestrator) markCopiesChanged(ref store.ObjectRef) {
	var copies []models.ObjectCopy
	err := o.db.Where("object_id = ? AND object_type = ? AND blog_id = ?", ref.ObjectID, ref.ObjectType, ref.BlogID).
		Find(&copies).Error
	if err != nil {
		return
	}
	for _, copy := range copies {
		_ = store.SetCopyChanged(o.db, ref, copy.TargetLanguage, true)
	}
}

// Compose rebuilds the object's content with simplified text substituted
// wherever a simplification in the target language exists. Parts without
// a result keep their original text; all non-text structure is preserved
// exactly.
func (o *Orchestrator) Compose(dec *decompose.Decomposer, content decompose.Object, sourceLanguage, targetLanguage string) (decompose.Object, error) {
	parts, err := dec.Decompose(content)
	if err != nil {
		return decompose.Object{}, err
	}

	replacements := map[string]string{}
	for _, part := range parts {
		fragment, err := store.GetFragmentByOriginal(o.db, part.Text, sourceLanguage)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return decompose.Object{}, err
		}
		simplification, err := store.GetSimplification(o.db, fragment.ID, targetLanguage)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return decompose.Object{}, err
		}
		replacements[part.Identifier] = simplification.Content
	}

	return dec.Reassemble(content, replacements)
}

package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/klartext/klartext/internal/config"
	"github.com/klartext/klartext/internal/decompose"
	"github.com/klartext/klartext/internal/models"
	"github.com/klartext/klartext/internal/provider"
	"github.com/klartext/klartext/internal/quota"
	"github.com/klartext/klartext/internal/run"
	"github.com/klartext/klartext/internal/store"
)

type handlers struct {
	db         *gorm.DB
	orch       *run.Orchestrator
	decomposer *decompose.Decomposer
	tracker    *quota.Tracker
	cfg        *config.Config
}

// objectRef is the request shape identifying one content object.
type objectRef struct {
	ObjectID   uint   `json:"object_id" binding:"required"`
	ObjectType string `json:"object_type" binding:"required"`
	BlogID     uint   `json:"blog_id"`
}

func (r objectRef) ref() store.ObjectRef {
	return store.ObjectRef{ObjectID: r.ObjectID, ObjectType: r.ObjectType, BlogID: r.BlogID}
}

// respondError maps internal failures onto the two user-facing error
// categories: transport (provider/network trouble, likely a hosting
// timeout) and internal (check the server logs). Locking and missing
// rows keep their specific statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, run.ErrAlreadyLocked):
		c.JSON(http.StatusConflict, gin.H{"category": "locked", "error": err.Error()})
	case errors.Is(err, run.ErrRunNotFound), errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"category": "not_found", "error": err.Error()})
	case errors.Is(err, provider.ErrTransport):
		c.JSON(http.StatusBadGateway, gin.H{"category": "transport", "error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"category": "internal", "error": err.Error()})
	}
}

func (h *handlers) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type ingestRequest struct {
	objectRef
	SourceLanguage string `json:"source_language"`
	Fields         []struct {
		Identifier string `json:"identifier"`
		Raw        string `json:"raw"`
		HTML       bool   `json:"html"`
		Builder    string `json:"builder"`
	} `json:"fields"`
}

func (r ingestRequest) content() decompose.Object {
	obj := decompose.Object{}
	for _, f := range r.Fields {
		obj.Fields = append(obj.Fields, decompose.Field{
			Identifier: f.Identifier,
			Raw:        f.Raw,
			HTML:       f.HTML,
			Builder:    f.Builder,
		})
	}
	return obj
}

func (h *handlers) handleIngest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.SourceLanguage == "" {
		req.SourceLanguage = h.cfg.Languages.Source
	}
	fragments, err := h.orch.Ingest(h.decomposer, run.IngestOpts{
		Object:         req.ref(),
		SourceLanguage: req.SourceLanguage,
		Content:        req.content(),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	ids := make([]uint, len(fragments))
	for i, fragment := range fragments {
		ids[i] = fragment.ID
	}
	c.JSON(http.StatusOK, gin.H{"fragments": len(fragments), "fragment_ids": ids})
}

type composeRequest struct {
	ingestRequest
	TargetLanguage string `json:"target_language" binding:"required"`
}

func (h *handlers) handleCompose(c *gin.Context) {
	var req composeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.SourceLanguage == "" {
		req.SourceLanguage = h.cfg.Languages.Source
	}
	composed, err := h.orch.Compose(h.decomposer, req.content(), req.SourceLanguage, req.TargetLanguage)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fields": composed.Fields})
}

type preventRequest struct {
	objectRef
	Prevent bool `json:"prevent"`
}

func (h *handlers) handlePrevent(c *gin.Context) {
	var req preventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := store.SetPreventAutomatic(h.db, req.ref(), req.Prevent); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prevent_automatic": req.Prevent})
}

// handleObjectDeleted reacts to an object being deleted in the CMS: its
// links are removed and fragments no other object uses are swept away
// together with their simplifications.
func (h *handlers) handleObjectDeleted(c *gin.Context) {
	var req objectRef
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	unlinked, err := store.UnlinkObject(h.db, req.ref())
	if err != nil {
		respondError(c, err)
		return
	}
	swept, err := store.SweepOrphans(h.db)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unlinked": unlinked, "swept": swept})
}

type startRunRequest struct {
	objectRef
	TargetLanguage  string `json:"target_language" binding:"required"`
	APIName         string `json:"api"`
	MaxItemsPerTick int    `json:"max_items_per_tick"`
	Queued          bool   `json:"queued"`
	Kind            string `json:"kind"`
	UserID          uint   `json:"user_id"`
}

func (h *handlers) handleStartRun(c *gin.Context) {
	var req startRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.APIName == "" {
		req.APIName = config.APINoOp
	}
	outcome, err := h.orch.Start(run.StartOpts{
		Object:          req.ref(),
		TargetLanguage:  req.TargetLanguage,
		APIName:         req.APIName,
		MaxItemsPerTick: req.MaxItemsPerTick,
		Queued:          req.Queued,
		Kind:            req.Kind,
		UserID:          req.UserID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if outcome.Run == nil {
		// Deferred by the quota check; the caller decides whether to
		// retry with queued set.
		c.JSON(http.StatusAccepted, gin.H{"status": outcome.Status.String()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id": outcome.Run.ID,
		"max":    outcome.Run.Max,
		"status": outcome.Run.Status,
	})
}

func (h *handlers) handleTick(c *gin.Context) {
	current, err := h.orch.Tick(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	h.writeProgress(c, current.ID)
}

func (h *handlers) handleRunProgress(c *gin.Context) {
	h.writeProgress(c, c.Param("id"))
}

func (h *handlers) writeProgress(c *gin.Context, runID string) {
	progress, err := h.orch.Progress(runID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}

type pollRequest struct {
	objectRef
	TargetLanguage string `json:"target_language"`
	Initialization bool   `json:"initialization"`
}

// handlePoll is the UI polling contract: each poll advances the active
// run by one tick and answers with the [count, max, running, results]
// tuple. Initialization polls report state without ticking.
func (h *handlers) handlePoll(c *gin.Context) {
	var req pollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	current, err := h.latestRun(req)
	if err != nil {
		respondError(c, err)
		return
	}
	if current == nil {
		c.JSON(http.StatusOK, run.Progress{})
		return
	}
	if current.Running() && !req.Initialization {
		if current, err = h.orch.Tick(c.Request.Context(), current.ID); err != nil {
			respondError(c, err)
			return
		}
	}
	h.writeProgress(c, current.ID)
}

// latestRun finds the most recent run for the polled object, scoped to
// the target language when given.
func (h *handlers) latestRun(req pollRequest) (*models.Run, error) {
	q := h.db.Where("object_id = ? AND object_type = ? AND blog_id = ?",
		req.ObjectID, req.ObjectType, req.BlogID)
	if req.TargetLanguage != "" {
		q = q.Where("target_language = ?", req.TargetLanguage)
	}
	var latest models.Run
	err := q.Order("created_at DESC").First(&latest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &latest, nil
}

type resetRequest struct {
	objectRef
	TargetLanguage string `json:"target_language" binding:"required"`
}

func (h *handlers) handleReset(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.orch.Reset(req.ref(), req.TargetLanguage); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

func (h *handlers) handleListFragments(c *gin.Context) {
	filter := store.Filter{
		State:          c.Query("state"),
		Language:       c.Query("language"),
		TargetLanguage: c.Query("target_language"),
		OrderDesc:      c.Query("order") == "desc",
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		filter.Limit = n
	}
	fragments, err := store.QueryFragments(h.db, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fragments": fragments})
}

func (h *handlers) fragmentID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fragment id must be an integer"})
		return 0, false
	}
	return uint(id), true
}

func (h *handlers) handleDeleteFragment(c *gin.Context) {
	id, ok := h.fragmentID(c)
	if !ok {
		return
	}
	if err := store.DeleteFragment(h.db, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (h *handlers) handleIgnoreFragment(c *gin.Context) {
	id, ok := h.fragmentID(c)
	if !ok {
		return
	}
	if err := h.orch.IgnoreFailed(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ignored": id})
}

func (h *handlers) handleDeleteSimplification(c *gin.Context) {
	id, ok := h.fragmentID(c)
	if !ok {
		return
	}
	if err := store.DeleteSimplification(h.db, id, c.Param("lang")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id, "target_language": c.Param("lang")})
}

func (h *handlers) handleQuota(c *gin.Context) {
	usage, err := h.tracker.Usage(c.Param("api"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"spent": usage.Spent, "limit": usage.Limit})
}

func (h *handlers) handleQuotaReset(c *gin.Context) {
	if err := h.tracker.Reset(c.Param("api")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

func (h *handlers) handleLogs(c *gin.Context) {
	filter := store.LogFilter{APIName: c.Query("api")}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		filter.Limit = n
	}
	entries, err := store.APILogs(h.db, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": entries})
}

package provider

import (
	"context"

	"github.com/klartext/klartext/internal/config"
	"gorm.io/gorm"
)

// NoOp is the placeholder provider: it returns the input text unchanged,
// counts nothing against any quota and needs no credentials. Useful for
// wiring up the pipeline before an API account exists.
type NoOp struct {
	audit auditor
}

// NewNoOp creates a no-op client. db may be nil to skip audit logging.
func NewNoOp(db *gorm.DB, blogID uint) *NoOp {
	return &NoOp{audit: auditor{db: db, apiName: config.APINoOp, blogID: blogID}}
}

// Name implements Client.
func (n *NoOp) Name() string { return config.APINoOp }

// Call implements Client.
func (n *NoOp) Call(_ context.Context, req Request) (Result, error) {
	logged := marshalLoggedRequest("", "", map[string]string{"input_text": req.Text})
	n.audit.append(200, logged, "passthrough", 0, 0)
	return Result{SimplifiedText: req.Text}, nil
}

package provider

import (
	"github.com/klartext/klartext/internal/config"
	"github.com/klartext/klartext/internal/quota"
	"gorm.io/gorm"
)

// BuildRegistry constructs the provider registry from configuration. The
// noop provider is always registered; the HTTP providers are registered
// when their config section exists, even without a token, so that calls
// against them fail with the configuration error instead of an unknown
// name.
func BuildRegistry(db *gorm.DB, tracker *quota.Tracker, cfg *config.Config, blogID uint) *Registry {
	registry := NewRegistry()
	registry.Register(NewNoOp(db, blogID))
	for _, name := range cfg.APINames() {
		api := cfg.API(name)
		switch name {
		case config.APISummAi:
			registry.Register(NewSummAi(SummAiOpts{Config: api, DB: db, Tracker: tracker, BlogID: blogID}))
		case config.APICapito:
			registry.Register(NewCapito(CapitoOpts{Config: api, DB: db, Tracker: tracker, BlogID: blogID}))
		case config.APIChatGpt:
			registry.Register(NewChatGpt(ChatGptOpts{Config: api, DB: db, Tracker: tracker, BlogID: blogID}))
		}
	}
	return registry
}

package pipeline

import (
	"imgcap/pkg/caption"
	"imgcap/pkg/config"
	"imgcap/pkg/ocr"
	"imgcap/pkg/store"
)

// NewDescriber builds the configured captioning backend and wraps it in a caption.Describer.
func NewDescriber(cfg *config.Config) (*caption.Describer, error) {
	c, err := caption.NewCaptioner(caption.BackendOptions{
		Kind:      cfg.Backend,
		URL:       cfg.BackendURL,
		Command:   cfg.BackendCommand,
		Model:     cfg.BackendModel,
		Projector: cfg.BackendProjector,
		Timeout:   cfg.BackendTimeout,
	})
	if err != nil {
		return nil, err
	}
	d := caption.NewDescriber(c, cfg.MaxImageSide)
	if cfg.EnableOCR && cfg.Backend != "ocr" {
		d.VisibleText = ocr.VisibleText
	}
	return d, nil
}

// OpenStore opens the configured database, or returns nil when no DSN is set.
func OpenStore(cfg *config.Config) (*store.Store, error) {
	if cfg.DBDSN == "" {
		return nil, nil
	}
	return store.Open(cfg.DBDriver, cfg.DBDSN, cfg.DBAutoMigrate)
}

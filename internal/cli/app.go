package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/ppiankov/intralign/internal/annotation"
	"github.com/ppiankov/intralign/internal/embedding"
	"github.com/ppiankov/intralign/internal/logging"
	"github.com/ppiankov/intralign/internal/model"
	"github.com/ppiankov/intralign/internal/pipeline"
	"github.com/ppiankov/intralign/internal/storage"
)

// app holds what one command invocation needs
type app struct {
	cfg     *model.Config
	logger  *zap.Logger
	backend *storage.Backend
	store   *annotation.Store
}

// newApp loads configuration and the logger. The store is opened on demand.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return &app{cfg: cfg, logger: logger}, nil
}

// openStore opens the configured backend
func (a *app) openStore() (*annotation.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	backend, err := storage.Open(a.cfg.Storage, a.logger)
	if err != nil {
		return nil, err
	}
	a.backend = backend
	a.store = annotation.NewStore(backend, annotation.WithLogger(a.logger))
	return a.store, nil
}

// analyzer builds the analysis pipeline, seeding into the store when one is open
func (a *app) analyzer() (*pipeline.Analyzer, error) {
	provider, err := embedding.NewProvider(a.cfg.Embedding, a.cfg.Cache, a.logger)
	if err != nil {
		return nil, err
	}
	var opts []pipeline.Option
	if a.store != nil {
		opts = append(opts, pipeline.WithStore(a.store))
	}
	return pipeline.New(a.cfg, provider, a.logger, opts...)
}

func (a *app) Close() {
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.logger.Warn("close storage", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// writeJSON prints v indented
func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

package run

import (
	"log/slog"

	"github.com/John-Robertt/avscrape/internal/app"
	"github.com/John-Robertt/avscrape/internal/artwork"
	"github.com/John-Robertt/avscrape/internal/config"
	"github.com/John-Robertt/avscrape/internal/logging"
)

// NewPipeline 用配置装配完整的单文件流程。
func NewPipeline(cfg config.Config, logger *slog.Logger) (Pipeline, error) {
	reg, err := app.BuildRegistry(cfg)
	if err != nil {
		return Pipeline{}, err
	}
	env, err := app.BuildEnv(cfg)
	if err != nil {
		return Pipeline{}, err
	}
	return Pipeline{
		Orchestrator: app.NewOrchestrator(cfg, reg, env, logger),
		Enricher:     app.NewEnricher(cfg, reg, env, logger),
		Artwork: artwork.Pipeline{
			Downloader: artwork.Downloader{Renderer: env.Browser},
			Logger:     logging.NewComponentLogger(logger, "artwork"),
		},
		Dump:   cfg.Debug.Dump,
		Logger: logging.NewComponentLogger(logger, "pipeline"),
	}, nil
}

// NewRunnerFromConfig 装配 Pipeline 并构造 Runner。
func NewRunnerFromConfig(cfg config.Config, logger *slog.Logger, obs Observer) (*Runner, error) {
	p, err := NewPipeline(cfg, logger)
	if err != nil {
		return nil, err
	}
	return NewRunner(p, Options{
		VideoExts:   cfg.Scraper.VideoExtensions,
		ExcludeDirs: cfg.Run.ExcludeDirs,
		Observer:    obs,
		Logger:      logger,
	}), nil
}

// SettingsFromConfig 返回配置中的默认开关。
func SettingsFromConfig(cfg config.Config) Settings {
	return Settings{
		CreateNFO:     cfg.Run.CreateNFO,
		DownloadCover: cfg.Run.DownloadCover,
		OrganizeFiles: cfg.Run.OrganizeFiles,
	}
}

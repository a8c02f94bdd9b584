// Package server 提供 HTTP 控制面：启动/停止 run、查询状态、扫描目录、查看配置。
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/John-Robertt/avscrape/internal/app"
	"github.com/John-Robertt/avscrape/internal/app/run"
	"github.com/John-Robertt/avscrape/internal/config"
	"github.com/John-Robertt/avscrape/internal/logging"
	"github.com/John-Robertt/avscrape/internal/scan"
)

// Server 把 Runner 暴露为 JSON API。
type Server struct {
	runner *run.Runner
	cfg    config.Config
	logger *slog.Logger
}

func New(runner *run.Runner, cfg config.Config, logger *slog.Logger) *Server {
	return &Server{
		runner: runner,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "server"),
	}
}

// Handler 返回注册好路由的 gin engine。
func (s *Server) Handler() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/scan-folder", s.scanFolder)
		api.POST("/start-scraping", s.startScraping)
		api.POST("/stop-scraping", s.stopScraping)
		api.GET("/job-status", s.jobStatus)
		api.GET("/config", s.showConfig)
	}
	return r
}

// Run 监听 addr，直到 ctx 结束后优雅关闭。
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP 服务已启动", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.runner.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("HTTP 服务已关闭")
	return nil
}

type folderRequest struct {
	FolderPath string `json:"folder_path"`
}

// startRequest 的开关缺省为 true。
type startRequest struct {
	FolderPath    string `json:"folder_path"`
	CreateNFO     *bool  `json:"create_nfo"`
	DownloadCover *bool  `json:"download_cover"`
	OrganizeFiles *bool  `json:"organize_files"`
}

type scannedFile struct {
	FilePath string `json:"file_path"`
	Filename string `json:"filename"`
	Code     string `json:"jav_code"`
	Folder   string `json:"folder"`
}

func (s *Server) scanFolder(c *gin.Context) {
	var req folderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	dir, msg := resolveFolder(req.FolderPath)
	if msg != "" {
		fail(c, http.StatusBadRequest, msg)
		return
	}

	files, err := scan.ScanVideos(dir, s.cfg.Scraper.VideoExtensions, s.cfg.Run.ExcludeDirs)
	if err != nil {
		s.logger.Error("扫描目录失败", slog.String("root", dir), logging.Error(err))
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	targets, _, err := app.ResolveTargets(files)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]scannedFile, 0, len(targets))
	for _, t := range targets {
		out = append(out, scannedFile{
			FilePath: t.File.AbsPath,
			Filename: filepath.Base(t.File.AbsPath),
			Code:     string(t.Code),
			Folder:   t.File.Dir,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"files":         out,
		"count":         len(out),
		"resolved_path": dir,
	})
}

func (s *Server) startScraping(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if s.runner.Status().Running {
		fail(c, http.StatusBadRequest, "Job already running")
		return
	}
	dir, msg := resolveFolder(req.FolderPath)
	if msg != "" {
		fail(c, http.StatusBadRequest, msg)
		return
	}

	runID, err := s.runner.Start(c.Request.Context(), run.Request{
		Root: dir,
		Settings: run.Settings{
			CreateNFO:     boolOr(req.CreateNFO, true),
			DownloadCover: boolOr(req.DownloadCover, true),
			OrganizeFiles: boolOr(req.OrganizeFiles, true),
		},
	})
	if errors.Is(err, run.ErrAlreadyRunning) {
		fail(c, http.StatusBadRequest, "Job already running")
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("run 已启动", slog.String(logging.FieldRunID, runID), slog.String("root", dir))
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Scraping started", "run_id": runID})
}

func (s *Server) stopScraping(c *gin.Context) {
	stopped := s.runner.Stop()
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Job stopped", "stopped": stopped})
}

func (s *Server) jobStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.runner.Status())
}

func (s *Server) showConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.cfg.Redacted())
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
}

// resolveFolder 返回绝对路径；不可用时返回面向前端的错误信息。
func resolveFolder(p string) (string, string) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", "No folder path provided"
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", "Invalid folder path provided"
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return "", "Folder does not exist: " + abs
	}
	if !fi.IsDir() {
		return "", "Path is not a directory: " + abs
	}
	return abs, ""
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

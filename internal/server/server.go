package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appconfig "github.com/verdantiq/esgcopilot/config"
	"github.com/verdantiq/esgcopilot/internal/assistant"
	"github.com/verdantiq/esgcopilot/internal/chunker"
	"github.com/verdantiq/esgcopilot/internal/embedder"
	"github.com/verdantiq/esgcopilot/internal/extractor"
	"github.com/verdantiq/esgcopilot/internal/history"
	"github.com/verdantiq/esgcopilot/internal/store"
	"github.com/verdantiq/esgcopilot/provider/cohere"
)

// Run wires the full service and blocks serving HTTP on addr (or the
// configured listen address when addr is empty).
func Run(addr, cfgPath string) error {
	cfg := appconfig.LoadConfig(cfgPath)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if err := Migrate("file://migrations", cfg.Storage.Postgres.DSN(), "up", 0); err != nil {
		baseLogger.Printf("migrate: %v", err)
	}

	ctx := context.Background()
	st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
	if err != nil {
		return err
	}

	rdb, err := history.Conn(ctx, cfg.Storage.Redis.Host, cfg.Storage.Redis.Port,
		cfg.Storage.Redis.Password, cfg.Storage.Redis.DB, cfg.Storage.Redis.Timeout)
	if err != nil {
		return err
	}
	hist := history.NewRedisStore(rdb, cfg.Ingest.HistoryKeyPrefix, nil)

	if cfg.Providers.Cohere.APIKey == "" {
		return fmt.Errorf("cohere api key not configured (providers.cohere.api_key)")
	}
	llm := cohere.NewClient(cfg.Providers.Cohere.APIKey, cfg.Providers.Cohere.BaseURL,
		cfg.Providers.Cohere.ChatModel, cfg.Providers.Cohere.EmbedModel,
		cfg.Providers.Cohere.Temperature, cfg.Providers.Cohere.Timeout)

	if cfg.Providers.PDF.APIKey == "" {
		return fmt.Errorf("pdf api key not configured (providers.pdf.api_key)")
	}
	pdf := extractor.NewClient(cfg.Providers.PDF.APIKey, cfg.Providers.PDF.BaseURL, cfg.Providers.PDF.Timeout)

	asst := assistant.New(hist, st, llm,
		embedder.New(llm, cfg.Ingest.EmbedBatchSize),
		pdf,
		chunker.New(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap, cfg.Ingest.SentenceLookahead),
		assistant.Config{SearchTopK: cfg.Ingest.SearchTopK},
		nil)

	api := e.Group("/api")
	ch := &ChatHandler{Assistant: asst}
	ch.Register(api)
	co := &CompaniesHandler{Store: st}
	co.Register(api.Group("/companies"))
	th := &TasksHandler{Store: st, Autofill: asst}
	th.Register(api)

	if addr == "" {
		addr = cfg.Server.Listen
		if addr != "" && addr[0] != ':' {
			addr = ":" + addr
		}
		if addr == "" {
			addr = ":8080"
		}
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}

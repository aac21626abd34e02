package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/previewlab/restyle/internal/api/middleware"
	"github.com/previewlab/restyle/internal/config"
	httpapi "github.com/previewlab/restyle/internal/http"
	"github.com/previewlab/restyle/internal/infrastructure/monitoring"
	"github.com/previewlab/restyle/internal/infrastructure/tracing"
	"github.com/previewlab/restyle/internal/logging"
	"github.com/previewlab/restyle/internal/preview/engine"
	"github.com/previewlab/restyle/internal/preview/surface"
	"github.com/previewlab/restyle/internal/proxy"
	"github.com/previewlab/restyle/internal/shared/frame"
	"github.com/previewlab/restyle/internal/storage"
	"github.com/previewlab/restyle/internal/ws"
)

// Server wraps the HTTP server and its collaborators.
type Server struct {
	router  *gin.Engine
	httpSrv *http.Server
	engine  *engine.Engine
	sched   *frame.Loop
	store   storage.Store
	tracer  *tracing.Tracer
	metrics *monitoring.Metrics
	log     *logging.Logger
	cfg     *config.Config
}

// fetcherAdapter lets the engine pull pages through the proxy client
// without the proxy package depending on engine types.
type fetcherAdapter struct {
	client  *proxy.Client
	metrics *monitoring.Metrics
}

func (f *fetcherAdapter) Render(ctx context.Context, rawURL string) (engine.Page, error) {
	timer := monitoring.NewFetchTimer(f.metrics, "page")
	res, err := f.client.Render(ctx, rawURL)
	timer.Done(err)
	if err != nil {
		return engine.Page{}, err
	}
	return engine.Page{HTML: res.HTML, URL: res.URL}, nil
}

// New assembles the service from configuration.
func New(cfg *config.Config) (*Server, error) {
	log, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	metrics := monitoring.NewMetrics()

	store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	sched := frame.NewLoop(cfg.Preview.FrameInterval)

	client := proxy.NewClient(cfg.Proxy, log)

	surfaceCfg := surface.DefaultConfig(cfg.Proxy.Base)
	surfaceCfg.RepairDebounce = cfg.Preview.RepairDebounce

	eng, err := engine.New(engine.Options{
		Scheduler:     sched,
		Fetcher:       &fetcherAdapter{client: client, metrics: metrics},
		Store:         store,
		Logger:        log,
		SurfaceConfig: surfaceCfg,
		ExtractDelay:  cfg.Preview.ExtractDelay,
		Observer:      metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	tracer := tracing.New("restyle", log)
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitFromConfig(cfg.RateLimit)))
	}

	handlers := httpapi.NewHandlers(eng, client, metrics, cfg.Proxy.Base, log)
	relay := ws.NewRelay(eng, metrics, log)

	registerRoutes(router, handlers, relay, metrics)

	srv := &Server{
		router:  router,
		engine:  eng,
		sched:   sched,
		store:   store,
		tracer:  tracer,
		metrics: metrics,
		log:     log.Component("server"),
		cfg:     cfg,
	}
	return srv, nil
}

func registerRoutes(router *gin.Engine, h *httpapi.Handlers, relay *ws.Relay, metrics *monitoring.Metrics) {
	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/render", h.Render)
		api.GET("/proxy-resource", h.ProxyResource)
		api.GET("/proxy-path/*target", h.ProxyPath)

		api.GET("/state", h.State)
		api.GET("/stats", h.Stats)

		api.POST("/view/zoom", h.Zoom)
		api.POST("/view/zoom/set", h.SetZoom)
		api.POST("/view/pan", h.Pan)
		api.POST("/view/reset", h.ResetView)

		api.GET("/devices", h.ListDevices)
		api.POST("/devices", h.AddDevice)
		api.DELETE("/devices/:id", h.RemoveDevice)
		api.POST("/devices/select", h.SelectDevice)
		api.POST("/devices/multi", h.SetMultiDevice)

		api.POST("/style/css", h.SetCustomCSS)
		api.POST("/style/typography", h.SetTypography)
		api.POST("/style/effects", h.SetEffects)
		api.GET("/effects", h.ListEffects)

		api.POST("/extract", h.Extract)
		api.GET("/extract/last", h.LastReport)

		api.POST("/remap", h.ApplyRemap)
		api.GET("/remap", h.GetMapping)
		api.DELETE("/remap", h.ResetMapping)

		api.POST("/comparison", h.ToggleComparison)
		api.POST("/comparison/split", h.SetSplit)
		api.POST("/comparison/sync", h.SetScrollSync)
	}

	router.GET("/stream", relay.HandleConnection)
}

// Run starts the server and blocks until the context is canceled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := s.cfg.Server.Host + ":" + s.cfg.Server.Port
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("shutdown incomplete", zap.Error(err))
	}
	return s.Close()
}

// Close releases the engine, scheduler, tracer, and storage.
func (s *Server) Close() error {
	s.engine.Close()
	s.sched.Close()
	s.tracer.Close()
	if err := s.store.Close(); err != nil {
		s.log.Warn("storage close failed", zap.Error(err))
	}
	return nil
}

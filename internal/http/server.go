package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"boq/internal/core"
	"boq/internal/log"
	"boq/internal/middleware/ratelimit"
	"boq/internal/middleware/security"
	"boq/internal/middleware/trace"
	"boq/internal/services"
	appweb "boq/web"
)

// LedgerAPI is the part of the ledger service the handlers drive.
type LedgerAPI interface {
	AddItem(ctx context.Context, req services.AddItemRequest) (core.ItemID, error)
	EditItem(ctx context.Context, id core.ItemID, edit core.ItemEdit) error
	DeleteItem(ctx context.Context, id core.ItemID) error
	MoveItem(ctx context.Context, id core.ItemID, index int) error
	View() core.LedgerView
	ExportCSV() ([]byte, error)
	ExportXLSX(sheet string) ([]byte, error)
}

// Options configures a Server. Zero values fall back to defaults.
type Options struct {
	ExportBaseName     string
	RateLimitPerMinute int
	Logger             *log.Logger
	// Ready reports whether backing dependencies are reachable.
	Ready func(ctx context.Context) error
}

// Server serves the ledger page, its JSON/form API and the exports.
type Server struct {
	http.Server

	templates  *template.Template
	ledger     LedgerAPI
	exportBase string
	logger     *log.Logger
	limiter    *ratelimit.Limiter
	detector   *security.Detector
	tracer     *trace.Middleware
	ready      func(ctx context.Context) error
	started    time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, ledger LedgerAPI, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	exportBase := opts.ExportBaseName
	if exportBase == "" {
		exportBase = "boq_export"
	}

	limitCfg := ratelimit.DefaultConfig()
	if opts.RateLimitPerMinute > 0 {
		limitCfg.RequestsPerMinute = opts.RateLimitPerMinute
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		ledger:     ledger,
		exportBase: exportBase,
		logger:     logger,
		limiter:    ratelimit.NewLimiter(limitCfg),
		detector:   security.NewDetector(),
		ready:      opts.Ready,
		started:    time.Now(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ClientIP, logger)

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates",
			log.FieldErrorType, log.ErrorTypeConfiguration,
			log.FieldError, err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /print", s.handlePrint)
	mux.HandleFunc("GET /ledger", s.handleLedger)
	mux.HandleFunc("POST /items", s.handleAddItem)
	mux.HandleFunc("POST /items/{id}", s.handleEditItem)
	mux.HandleFunc("DELETE /items/{id}", s.handleDeleteItem)
	mux.HandleFunc("POST /items/{id}/move", s.handleMoveItem)
	mux.HandleFunc("GET /export.csv", s.handleExportCSV)
	mux.HandleFunc("GET /export.xlsx", s.handleExportXLSX)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ClientIP, nil)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(logger.WithComponent(log.ComponentSecurity))(h)
	h = log.RequestIDMiddleware(trace.RequestID)(h)
	h = log.Middleware(logger)(h)
	h = s.tracer.Middleware(h)
	s.Handler = h

	return s
}

var templateFuncs = template.FuncMap{
	"add": func(a, b int) int { return a + b },
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	// Ensure shutdown logic runs only once
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

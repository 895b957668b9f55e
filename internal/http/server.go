package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"expenses/internal/cache"
	"expenses/internal/core"
	applog "expenses/internal/log"
	"expenses/internal/middleware/security"
	"expenses/internal/middleware/trace"
	appweb "expenses/web"
)

// ExpenseService is what the handlers need from the application layer.
// Implemented by *services.ExpenseService.
type ExpenseService interface {
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	GetExpense(ctx context.Context, id int64) (core.Expense, error)
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	UpdateExpense(ctx context.Context, id int64, p core.Patch) error
	DeleteExpense(ctx context.Context, id int64) error
	EraseAll(ctx context.Context) (int64, error)
}

const (
	listCacheKey         = "expenses"
	cacheCleanupInterval = 10 * time.Minute
	readyTimeout         = 2 * time.Second
	listLoadTimeout      = 10 * time.Second
	staticMaxAge         = time.Hour
)

// Options tunes the server. The zero value serves without a list cache,
// with a 5 MiB receipt limit and the light theme.
type Options struct {
	Logger          *applog.Logger
	CacheTTL        time.Duration
	ReceiptMaxBytes int64
	DarkMode        bool
	// Now is used for the capture form date default. Defaults to time.Now.
	Now func() time.Time
}

type Server struct {
	http.Server
	templates *template.Template
	svc       ExpenseService
	logger    *applog.Logger
	opts      Options
	trace     *trace.Middleware
	started   time.Time

	// listCache holds the full table between mutations; nil when disabled.
	listCache *cache.LRUCache[[]core.Expense]
	loads     singleflight.Group
	// cacheMu orders invalidations against cache fills. generation is
	// bumped on every invalidation so a load that raced a mutation does not
	// repopulate the cache with stale rows.
	cacheMu      sync.Mutex
	generation   uint64
	cacheManager *cache.Manager
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, svc ExpenseService, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.ReceiptMaxBytes <= 0 {
		opts.ReceiptMaxBytes = 5 << 20
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		svc:          svc,
		logger:       opts.Logger.WithComponent(applog.ComponentHTTP),
		opts:         opts,
		started:      time.Now(),
		trace:        trace.NewMiddleware(security.ClientIP),
		cacheManager: cache.NewManager(opts.Logger.WithComponent(applog.ComponentCache)),
	}

	if opts.CacheTTL > 0 {
		s.listCache = cache.NewLRUCache[[]core.Expense](1, opts.CacheTTL)
		s.cacheManager.Register(s.listCache)
		s.cacheManager.StartCleanup(cacheCleanupInterval)
	}

	s.templates = template.Must(
		template.New("").Funcs(template.FuncMap{
			"amount":    formatAmount,
			"typeLabel": typeLabel,
		}).ParseFS(appweb.TemplatesFS, "templates/*.html"),
	)

	staticFS, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		panic(err)
	}
	static := security.CacheStatic(staticMaxAge)(
		http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))),
	)

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("GET /static/", static)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /expenses", s.handleCreateExpense)
	mux.HandleFunc("POST /expenses/erase", s.handleEraseAll)
	mux.HandleFunc("GET /expenses/{id}", s.handleGetExpense)
	mux.HandleFunc("GET /expenses/{id}/receipt", s.handleReceipt)
	mux.HandleFunc("PATCH /expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /expenses/{id}", s.handleDeleteExpense)

	var handler http.Handler = mux
	handler = security.Headers(security.DefaultPolicy())(handler)
	handler = applog.RequestIDMiddleware(trace.RequestID)(handler)
	handler = s.trace.Middleware(handler)
	handler = applog.Middleware(opts.Logger)(handler)
	s.Handler = handler

	return s
}

// listExpenses serves the table from the cache, collapsing concurrent
// misses into one store read. The shared read is detached from the caller
// that started it, so one client going away does not fail the others.
func (s *Server) listExpenses(ctx context.Context) ([]core.Expense, error) {
	if s.listCache != nil {
		if items, ok := s.listCache.Get(listCacheKey); ok {
			return items, nil
		}
	}

	ch := s.loads.DoChan(listCacheKey, func() (any, error) {
		gen := s.currentGeneration()

		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), listLoadTimeout)
		defer cancel()

		items, err := s.svc.ListExpenses(loadCtx)
		if err != nil {
			return nil, err
		}
		s.storeList(gen, items)
		return items, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]core.Expense), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Server) currentGeneration() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.generation
}

// storeList caches items unless a mutation happened since gen was read.
func (s *Server) storeList(gen uint64, items []core.Expense) {
	if s.listCache == nil {
		return
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.generation == gen {
		s.listCache.Set(listCacheKey, items)
	}
}

// invalidate drops the cached table after a mutation.
func (s *Server) invalidate() {
	s.cacheMu.Lock()
	s.generation++
	if s.listCache != nil {
		s.listCache.Purge()
	}
	s.cacheMu.Unlock()
	s.loads.Forget(listCacheKey)
}

// Metrics exposes request counters collected by the trace middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.trace.GetMetrics()
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

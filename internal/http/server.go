package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"nutrilog/internal/cache"
	"nutrilog/internal/core"
	"nutrilog/internal/goals"
	"nutrilog/internal/ledger"
	"nutrilog/internal/log"
	"nutrilog/internal/middleware/ratelimit"
	"nutrilog/internal/middleware/security"
	"nutrilog/internal/middleware/trace"
	appweb "nutrilog/web"
)

// appMetrics tracks application-level counters exposed on /metrics.
type appMetrics struct {
	totalEntries int64
	cacheHits    int64
	cacheMisses  int64
	uptime       time.Time
}

type Server struct {
	http.Server
	templates *template.Template
	store     ledger.Store
	goals     *goals.Store
	logger    *log.Logger

	traceMiddleware  *trace.Middleware
	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector

	// Rendered summaries are cached per request shape. Every key embeds
	// cacheGen, so a single atomic bump on any write invalidates all of
	// them without tracking which dates a mutation touched.
	summaryCache *cache.LRUCache[core.DailySummary]
	historyCache *cache.LRUCache[[]core.DailySummary]
	cacheGen     int64
	cacheManager *cache.Manager

	appMetrics   appMetrics
	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run http.Server.
func NewServer(addr string, store ledger.Store, goalsStore *goals.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Config{Component: log.ComponentHTTP})
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		store:            store,
		goals:            goalsStore,
		logger:           logger,
		securityDetector: security.NewDetector(),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		summaryCache:     cache.NewLRUCache[core.DailySummary](200, 5*time.Minute),
		historyCache:     cache.NewLRUCache[[]core.DailySummary](100, 5*time.Minute),
		cacheManager:     cache.NewManager(),
		appMetrics:       appMetrics{uptime: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP)

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.Register(s.historyCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	mux := http.NewServeMux()

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/entries", s.handleCreateEntry)
	mux.HandleFunc("/entries/update", s.handleUpdateEntry)
	mux.HandleFunc("/entries/delete", s.handleDeleteEntry)
	mux.HandleFunc("/goals", s.handleGoals)
	mux.HandleFunc("/export", s.handleExport)
	// UI partials
	mux.HandleFunc("/ui/daily-progress", s.handleDailyProgress)
	mux.HandleFunc("/ui/history", s.handleHistory)
	mux.HandleFunc("/ui/trend", s.handleTrend)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, nil)

	var handler http.Handler = mux
	handler = postOnly(limit)(handler)
	handler = s.detectSuspicious(handler)
	handler = log.Middleware(logger)(handler)
	handler = s.traceMiddleware.Middleware(handler)
	handler = headers.Middleware(handler)
	s.Server.Handler = handler

	return s
}

// postOnly applies mw to mutating requests and passes reads through.
func postOnly(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				limited.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) detectSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.securityDetector.DetectSuspiciousRequest(r) {
			s.logger.WarnContext(r.Context(), "Suspicious request detected",
				"method", r.Method,
				"url", r.URL.Path,
				"client_ip", s.securityDetector.ExtractClientIP(r),
				"user_agent", r.Header.Get("User-Agent"))
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) invalidateCaches() {
	atomic.AddInt64(&s.cacheGen, 1)
}

func (s *Server) summaryKey(day core.Date) string {
	return day.String() + "#" + strconv.FormatInt(atomic.LoadInt64(&s.cacheGen), 10)
}

func (s *Server) historyKey(start, end core.Date) string {
	return start.String() + "|" + end.String() + "#" + strconv.FormatInt(atomic.LoadInt64(&s.cacheGen), 10)
}

// getDailySummary computes (or returns a cached) summary for one day.
func (s *Server) getDailySummary(ctx context.Context, day core.Date) (core.DailySummary, error) {
	key := s.summaryKey(day)
	if sum, found := s.summaryCache.Get(key); found {
		atomic.AddInt64(&s.appMetrics.cacheHits, 1)
		return sum, nil
	}
	atomic.AddInt64(&s.appMetrics.cacheMisses, 1)

	cctx, cancel := context.WithTimeout(ctx, 7*time.Second)
	defer cancel()
	entries, err := s.store.ListRange(cctx, day, day)
	if err != nil {
		return core.DailySummary{}, err
	}
	sum, err := core.Summarize(day, entries, s.goals.Get())
	if err != nil {
		return core.DailySummary{}, err
	}
	s.summaryCache.Set(key, sum)
	return sum, nil
}

// getHistory computes (or returns cached) per-day summaries for a range.
func (s *Server) getHistory(ctx context.Context, start, end core.Date) ([]core.DailySummary, error) {
	key := s.historyKey(start, end)
	if sums, found := s.historyCache.Get(key); found {
		atomic.AddInt64(&s.appMetrics.cacheHits, 1)
		out := make([]core.DailySummary, len(sums))
		copy(out, sums)
		return out, nil
	}
	atomic.AddInt64(&s.appMetrics.cacheMisses, 1)

	cctx, cancel := context.WithTimeout(ctx, 7*time.Second)
	defer cancel()
	entries, err := s.store.ListRange(cctx, start, end)
	if err != nil {
		return nil, err
	}
	sums, err := core.SummarizeRange(start, end, entries, s.goals.Get())
	if err != nil {
		return nil, err
	}
	s.historyCache.Set(key, sums)
	return sums, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

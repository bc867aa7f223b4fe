package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"imprimecheque/internal/core"
	"imprimecheque/internal/log"
	"imprimecheque/internal/metrics"
	"imprimecheque/internal/middleware/ratelimit"
	"imprimecheque/internal/middleware/security"
	"imprimecheque/internal/middleware/trace"
	"imprimecheque/internal/services"
	"imprimecheque/internal/spell"
)

// CheckService is what the API needs from services.CheckService.
type CheckService interface {
	ListBanks(ctx context.Context) ([]core.Bank, error)
	GetBank(ctx context.Context, bankID int64) (core.Bank, error)
	ListCheckbooks(ctx context.Context, bankID int64, availableOnly bool) ([]core.Checkbook, error)

	SuggestReference(ctx context.Context, checkbookID int64) (string, error)
	NextAvailableReference(ctx context.Context, checkbookID int64) (string, error)
	ValidateReference(ctx context.Context, reference string, checkbookID int64) error
	ReferenceExists(ctx context.Context, reference string) (bool, error)
	IssueCheck(ctx context.Context, req services.IssueRequest) (core.CheckRecord, error)
	GetCheck(ctx context.Context, reference string) (core.CheckRecord, error)

	SpellString(amount string) (string, error)
	Currency() spell.Currency

	ResolveLayout(ctx context.Context, bankID, userID int64) (core.FieldLayout, error)
	UpdateBankPositions(ctx context.Context, bankID int64, positions core.FieldLayout) error
	SaveCalibration(ctx context.Context, userID, bankID int64, override core.FieldLayout) error

	PreviewCheck(ctx context.Context, bankID, userID int64, fields core.FieldValues) (services.Document, error)
	RenderCheck(ctx context.Context, reference string) (services.Document, core.CheckRecord, core.Bank, error)
}

type Config struct {
	Addr           string
	RateLimitRPM   int           // Budget per client for POST and PUT requests
	RequestTimeout time.Duration // Deadline put on every request context
	Logger         *log.Logger
}

type Server struct {
	http.Server
	svc      CheckService
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	timeout  time.Duration

	startedAt    time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. Call Shutdown to stop it and its background goroutines.
func NewServer(cfg Config, svc CheckService) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default(log.ComponentHTTP)
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	s := &Server{
		svc:       svc,
		logger:    logger.WithComponent(log.ComponentHTTP),
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitRPM}),
		detector:  security.NewDetector(),
		timeout:   timeout,
		startedAt: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/banks", s.handleListBanks)
	mux.HandleFunc("GET /api/banks/{id}", s.handleGetBank)
	mux.HandleFunc("GET /api/banks/{id}/layout", s.handleGetLayout)
	mux.HandleFunc("PUT /api/banks/{id}/layout", s.handleUpdateLayout)
	mux.HandleFunc("PUT /api/calibrations", s.handleSaveCalibration)

	mux.HandleFunc("GET /api/checkbooks", s.handleListCheckbooks)
	mux.HandleFunc("GET /api/checkbooks/{id}/next", s.handleNextReference)
	mux.HandleFunc("GET /api/checkbooks/{id}/validate", s.handleValidateReference)

	mux.HandleFunc("POST /api/checks", s.handleIssueCheck)
	mux.HandleFunc("GET /api/checks/check-reference", s.handleCheckReference)
	mux.HandleFunc("GET /api/checks/{ref}", s.handleGetCheck)
	mux.HandleFunc("GET /api/checks/{ref}/document", s.handleCheckDocument)

	mux.HandleFunc("POST /api/spell", s.handleSpell)
	mux.HandleFunc("POST /api/render", s.handleRenderPreview)

	// Innermost first: the last wrapper sees the request first.
	var h http.Handler = mux
	h = s.withTimeout(h)
	h = s.limiter.Middleware(s.detector.ClientIP, s.onRateLimited, http.MethodPost, http.MethodPut)(h)
	h = s.withDetection(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = trace.New(s.logger, s.detector.ClientIP).Handler(h)
	h = metrics.InstrumentHandler(h)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      timeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) withTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withDetection logs and counts probing requests. They are still served.
func (s *Server) withDetection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.IsSuspicious(r) {
			metrics.RecordSuspicious()
			log.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				log.FieldMethod, r.Method, log.FieldPath, r.URL.Path, log.FieldUserAgent, r.Header.Get("User-Agent"))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	metrics.RecordRateLimited()
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, try again later").Write(w)
}

// fail writes the response for a service error, logging the ones that are
// not the caller's fault.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := DomainError(err)
	if resp.statusCode >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldOperation, op, log.FieldPath, r.URL.Path, log.FieldError, err)
	}
	resp.Write(w)
}

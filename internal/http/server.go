// Package http is the Telegram webhook front-end: it decodes updates,
// dispatches them to the chat core and answers with an inline sendMessage.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"spesebot/internal/bot"
	"spesebot/internal/cache"
	applog "spesebot/internal/log"
)

const (
	WebhookPath      = "/telegram/webhook"
	DefaultRateLimit = 120
	DefaultDedupSize = 10000
	DefaultDedupTTL  = 24 * time.Hour

	// DefaultReplyTimeout bounds one chat turn, however many store calls it makes.
	DefaultReplyTimeout = 25 * time.Second

	maxUpdateBytes = 1 << 20
	readyTimeout   = 2 * time.Second

	// replyWriteSlack is what remains of WriteTimeout for sending the reply
	// once the chat turn's deadline has passed.
	replyWriteSlack = 5 * time.Second
)

// ChatHandler is the chat core as seen by the webhook.
type ChatHandler interface {
	OnText(ctx context.Context, conversationID, text string) bot.Reply
	OnReportCommand(ctx context.Context, conversationID, token string) bot.Reply
	OnStartCommand(ctx context.Context, conversationID string) bot.Reply
}

type Options struct {
	WebhookSecret      string
	RateLimitPerMinute int // per client IP; zero means DefaultRateLimit
	DedupSize          int
	DedupTTL           time.Duration
	ReplyTimeout       time.Duration // zero means DefaultReplyTimeout
	Logger             *applog.Logger
	Ready              func(ctx context.Context) error
}

// Stats is a snapshot of the webhook's security counters.
type Stats struct {
	RateLimitHits      int64
	RejectedSecrets    int64
	SuspiciousRequests int64
	DuplicateUpdates   int64
}

type Server struct {
	http.Server
	chat         ChatHandler
	secret       string
	replyTimeout time.Duration
	ready        func(ctx context.Context) error
	logger       *applog.Logger
	rateLimiter  *rateLimiter
	updates      *cache.LRUCache[struct{}]
	caches       *cache.Manager
	metrics      securityMetrics

	shutdownOnce sync.Once
}

func NewServer(addr string, chat ChatHandler, opts Options) *Server {
	if opts.RateLimitPerMinute <= 0 {
		opts.RateLimitPerMinute = DefaultRateLimit
	}
	if opts.DedupSize <= 0 {
		opts.DedupSize = DefaultDedupSize
	}
	if opts.DedupTTL <= 0 {
		opts.DedupTTL = DefaultDedupTTL
	}
	if opts.ReplyTimeout <= 0 {
		opts.ReplyTimeout = DefaultReplyTimeout
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	logger := opts.Logger.WithComponent(applog.ComponentWebhook)

	s := &Server{
		chat:         chat,
		secret:       opts.WebhookSecret,
		replyTimeout: opts.ReplyTimeout,
		ready:        opts.Ready,
		logger:       logger,
		rateLimiter:  newRateLimiter(opts.RateLimitPerMinute, logger),
		updates:      cache.NewLRUCache[struct{}](opts.DedupSize, opts.DedupTTL),
		caches:       cache.NewManager(opts.Logger.Logger),
	}
	s.caches.Register("updates", s.updates)
	s.caches.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc(WebhookPath, s.handleWebhook)
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	var h http.Handler = s.withSecurityHeaders(mux)
	h = applog.RequestIDMiddleware(requestID)(h)
	h = applog.Middleware(logger)(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      opts.ReplyTimeout + replyWriteSlack,
	}
	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.InfoContext(ctx, "Stopping webhook server", "duplicate_updates", s.Stats().DuplicateUpdates)
		s.caches.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) Stats() Stats {
	return Stats{
		RateLimitHits:      atomic.LoadInt64(&s.metrics.rateLimitHits),
		RejectedSecrets:    atomic.LoadInt64(&s.metrics.rejectedSecrets),
		SuspiciousRequests: atomic.LoadInt64(&s.metrics.suspiciousRequests),
		DuplicateUpdates:   atomic.LoadInt64(&s.metrics.duplicateUpdates),
	}
}

// withSecurityHeaders adds security headers, rate limiting, panic recovery
// and request logging.
func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		logger := applog.FromContext(ctx)
		clientIP := extractClientIP(r)

		if detectSuspiciousRequest(r, &s.metrics) {
			logger.WarnContext(ctx, "Suspicious request", applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method, applog.FieldPath, r.URL.Path)
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(ctx, "Panic while handling request", "panic", rec, applog.FieldPath, r.URL.Path)
				http.Error(rw, "internal error", http.StatusInternalServerError)
			}
			applog.NewStructuredLogger(logger).LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
		}()

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP, &s.metrics) {
			rw.Header().Set("Retry-After", "60")
			http.Error(rw, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(rw, r)
	})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !secretMatches(r, s.secret, &s.metrics) {
		logger.WarnContext(ctx, "Rejected webhook call with wrong secret", applog.FieldClientIP, extractClientIP(r))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBytes)).Decode(&update); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "update too large", http.StatusRequestEntityTooLarge)
			return
		}
		logger.WarnContext(ctx, "Failed to decode update", applog.FieldError, err)
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}

	if s.updates.Add(strconv.Itoa(update.UpdateID), struct{}{}) {
		atomic.AddInt64(&s.metrics.duplicateUpdates, 1)
		logger.DebugContext(ctx, "Skipping redelivered update", applog.FieldUpdateID, update.UpdateID)
		w.WriteHeader(http.StatusOK)
		return
	}

	msg := update.Message
	conv, hasChat := conversationID(msg)
	if !hasChat || msg.Text == "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	turnCtx, cancel := context.WithTimeout(ctx, s.replyTimeout)
	defer cancel()
	reply, cmdToken, ok := s.dispatch(turnCtx, conv, msg)
	if !ok {
		logger.DebugContext(ctx, "Ignoring unknown command", applog.FieldCommand, cmdToken)
		w.WriteHeader(http.StatusOK)
		return
	}
	applog.NewStructuredLogger(logger).LogUpdateHandled(ctx, int64(update.UpdateID), conv, cmdToken, string(reply.Status))

	if err := writeJSON(w, http.StatusOK, newSendMessage(msg.Chat.ID, reply.Text, reply.Keyboard)); err != nil {
		logger.ErrorContext(ctx, "Failed to write reply", applog.FieldError, err)
	}
}

// dispatch routes a message to the chat core. ok is false for commands the
// bot does not know.
func (s *Server) dispatch(ctx context.Context, conv string, msg *tgbotapi.Message) (reply bot.Reply, cmdToken string, ok bool) {
	cmd, isCommand := command(msg)
	if !isCommand {
		return s.chat.OnText(ctx, conv, sanitizeInput(msg.Text)), "text", true
	}

	token := bot.NormalizeToken(cmd)
	switch {
	case token == "start":
		return s.chat.OnStartCommand(ctx, conv), token, true
	case bot.IsReportToken(token):
		return s.chat.OnReportCommand(ctx, conv, token), token, true
	default:
		return bot.Reply{}, token, false
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady pings the record store when a readiness probe is configured.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

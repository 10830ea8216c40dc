package admission

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultDenyMessage = "you have reached the maximum number of requests allowed within this time frame"

// LimitHandler customizes what happens when a request is denied, replacing
// the default 429 response. Rate-limit headers and Retry-After are already
// set when it runs.
type LimitHandler interface {
	Handle(w http.ResponseWriter, r *http.Request, dec Decision)
}

// LimitHandlerFunc adapts a plain function to the LimitHandler interface.
type LimitHandlerFunc func(w http.ResponseWriter, r *http.Request, dec Decision)

func (f LimitHandlerFunc) Handle(w http.ResponseWriter, r *http.Request, dec Decision) {
	f(w, r, dec)
}

// MiddlewareOptions configures the HTTP adapter around an Engine.
type MiddlewareOptions struct {
	Engine *Engine

	// CallerID extracts the authenticated caller from the request, e.g. from
	// a verified session. Optional; anonymous traffic is keyed by address.
	CallerID func(r *http.Request) string

	// TrustForwardedFor uses the first hop of X-Forwarded-For as the client
	// address. Enable only behind a proxy you control.
	TrustForwardedFor bool

	// StandardHeaders writes RateLimit-Limit/-Remaining/-Reset;
	// LegacyHeaders writes the X-RateLimit-* variants. Independent toggles,
	// identical semantics, reset as epoch seconds.
	StandardHeaders bool
	LegacyHeaders   bool

	// Message is the human-readable denial text (a sensible default is used
	// when empty). Internal store errors are never exposed here.
	Message string

	// SkipSuccessful / SkipFailed uncount the request after the response,
	// based on its status class. Only effective when the engine's limiter
	// supports compensating decrements.
	SkipSuccessful bool
	SkipFailed     bool

	// OnLimitReached replaces the default deny response.
	OnLimitReached LimitHandler

	Logger *zap.Logger
}

// Middleware returns a net/http middleware that runs every request through
// the engine, decorates responses with rate-limit headers and turns denials
// into 429s.
func Middleware(opts MiddlewareOptions) func(next http.Handler) http.Handler {
	if opts.Message == "" {
		opts.Message = defaultDenyMessage
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if opts.Engine == nil {
				next.ServeHTTP(w, r)
				return
			}

			id := requestIdentity(r, opts)
			dec := opts.Engine.Admit(r.Context(), id)
			writeRateHeaders(w, dec, opts)

			if !dec.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(dec)))
				if opts.OnLimitReached != nil {
					opts.OnLimitReached.Handle(w, r, dec)
					return
				}
				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(opts.Message))
				return
			}

			if !opts.SkipSuccessful && !opts.SkipFailed {
				next.ServeHTTP(w, r)
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			failed := rec.status >= http.StatusBadRequest
			if (opts.SkipSuccessful && !failed) || (opts.SkipFailed && failed) {
				opts.Engine.Uncount(r.Context(), id)
			}
		})
	}
}

func requestIdentity(r *http.Request, opts MiddlewareOptions) Identity {
	addr := r.RemoteAddr
	if opts.TrustForwardedFor {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// first hop is the original client
			if first := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0]); first != "" {
				addr = first
			}
		}
	}

	var caller string
	if opts.CallerID != nil {
		caller = strings.TrimSpace(opts.CallerID(r))
	}

	return Identity{
		RemoteAddr: addr,
		CallerID:   caller,
		Method:     r.Method,
		Path:       r.URL.Path,
	}
}

func writeRateHeaders(w http.ResponseWriter, dec Decision, opts MiddlewareOptions) {
	if dec.Limit <= 0 {
		return
	}
	limit := strconv.FormatInt(dec.Limit, 10)
	remaining := strconv.FormatInt(dec.Remaining, 10)
	reset := strconv.FormatInt(dec.ResetAt.Unix(), 10)

	if opts.StandardHeaders {
		h := w.Header()
		h.Set("RateLimit-Limit", limit)
		h.Set("RateLimit-Remaining", remaining)
		h.Set("RateLimit-Reset", reset)
	}
	if opts.LegacyHeaders {
		h := w.Header()
		h.Set("X-RateLimit-Limit", limit)
		h.Set("X-RateLimit-Remaining", remaining)
		h.Set("X-RateLimit-Reset", reset)
	}
}

func retryAfterSeconds(dec Decision) int {
	secs := int(dec.RetryAfter / time.Second)
	if dec.RetryAfter%time.Second != 0 {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return secs
}

// statusRecorder captures the response status so skip policies can classify
// the outcome after the handler ran.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Package lockertest provides an in-memory locker service speaking the same
// HTTP resource model as the real one. It is meant for tests and local
// development; nothing is persisted.
package lockertest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/avivl/locker/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DefaultUsername = "test-username"
	DefaultPassword = "test-password"
	DefaultBasePath = "/locks"
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// Options configures a Handler.
type Options struct {
	Username string
	Password string
	BasePath string
	// Now is the clock used for lease expiry.
	Now    func() time.Time
	Logger *observability.SLogger
}

type entry struct {
	token     string
	ttl       int
	message   string
	expiresAt time.Time
}

type injected struct {
	status int
	body   gin.H
}

// Handler is the fake locker service.
type Handler struct {
	opts     Options
	engine   *gin.Engine
	registry *prometheus.Registry
	metrics  *serverMetrics

	mu       sync.Mutex
	locks    map[string]*entry
	requests map[string]int
	inject   []injected
}

// NewHandler builds a fake locker service.
func NewHandler(opts Options) *Handler {
	if opts.Username == "" {
		opts.Username = DefaultUsername
	}
	if opts.Password == "" {
		opts.Password = DefaultPassword
	}
	if opts.BasePath == "" {
		opts.BasePath = DefaultBasePath
	}
	opts.BasePath = "/" + strings.Trim(opts.BasePath, "/")
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = observability.NewNopLogger()
	}

	h := &Handler{
		opts:     opts,
		registry: prometheus.NewRegistry(),
		locks:    make(map[string]*entry),
		requests: make(map[string]int),
	}
	h.metrics = newServerMetrics(h.registry)

	engine := gin.New()
	// Lock ids may contain escaped slashes.
	engine.UseRawPath = true
	engine.UnescapePathValues = true
	engine.Use(gin.Recovery(), h.logRequests())
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{})))

	locks := engine.Group(opts.BasePath, gin.BasicAuth(gin.Accounts{opts.Username: opts.Password}), h.countRequests(), h.injectFailures())
	locks.GET("/:file", h.getLock)
	locks.POST("/:file", h.acquireLock)
	locks.PUT("/:file", h.renewLock)
	locks.DELETE("/:file", h.releaseLock)

	h.engine = engine
	return h
}

// NewServer starts an httptest server around a new Handler. Close the server when done.
func NewServer(opts Options) (*httptest.Server, *Handler) {
	h := NewHandler(opts)
	return httptest.NewServer(h), h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.engine.ServeHTTP(w, r)
}

// Registry exposes the server-side metrics.
func (h *Handler) Registry() *prometheus.Registry { return h.registry }

// Requests returns how many authenticated requests were received for method.
func (h *Handler) Requests(method string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.requests[method]
}

// Inject makes the next n lock requests answer with status instead of being served.
func (h *Handler) Inject(status, n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := 0; i < n; i++ {
		h.inject = append(h.inject, injected{
			status: status,
			body:   gin.H{"status": "error", "data": gin.H{"message": http.StatusText(status)}},
		})
	}
}

// Hold places lockID under an owner that is not any client, for ttl.
// It returns the owner's token.
func (h *Handler) Hold(lockID string, ttl time.Duration) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	token := newToken(lockID)
	h.locks[lockID] = &entry{
		token:     token,
		ttl:       int(ttl.Seconds()),
		message:   "held by lockertest",
		expiresAt: h.opts.Now().Add(ttl),
	}
	h.metrics.locksHeld.Set(float64(h.countLive()))
	return token
}

// Token returns the current owner's token for lockID, or "" if it is free.
func (h *Handler) Token(lockID string) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if e := h.live(lockID); e != nil {
		return e.token
	}
	return ""
}

func (h *Handler) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.opts.Logger.Debugw("lockertest request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}

func (h *Handler) countRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.mu.Lock()
		h.requests[c.Request.Method]++
		h.mu.Unlock()
		c.Next()
	}
}

func (h *Handler) injectFailures() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.mu.Lock()
		if len(h.inject) == 0 {
			h.mu.Unlock()
			c.Next()
			return
		}
		next := h.inject[0]
		h.inject = h.inject[1:]
		h.mu.Unlock()

		c.AbortWithStatusJSON(next.status, next.body)
	}
}

// lockID extracts the id from the ":file" parameter, which must end in ".json".
func lockID(c *gin.Context) (string, bool) {
	file := c.Param("file")
	id, ok := strings.CutSuffix(file, ".json")
	if !ok || id == "" {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "data": gin.H{"message": "Unknown resource."}})
		return "", false
	}
	return id, true
}

func newToken(lockID string) string {
	return lockID + "-" + uuid.NewString()
}

package lockertest

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type acquireBody struct {
	TTL     int    `json:"ttl"`
	Message string `json:"message"`
}

type renewBody struct {
	UUID string `json:"uuid"`
	TTL  int    `json:"ttl"`
}

type releaseBody struct {
	UUID  *string `json:"uuid"`
	Force bool    `json:"force"`
}

// live returns the unexpired entry for lockID, dropping it if it has expired.
// h.mu must be held.
func (h *Handler) live(lockID string) *entry {
	e, ok := h.locks[lockID]
	if !ok {
		return nil
	}
	if !h.opts.Now().Before(e.expiresAt) {
		delete(h.locks, lockID)
		h.metrics.expiredTotal.Inc()
		return nil
	}
	return e
}

// countLive returns the number of unexpired locks. h.mu must be held.
func (h *Handler) countLive() int {
	n := 0
	for id := range h.locks {
		if h.live(id) != nil {
			n++
		}
	}
	return n
}

// remaining is the whole seconds left on e's lease, rounded up.
func (h *Handler) remaining(e *entry) int {
	return int(math.Ceil(e.expiresAt.Sub(h.opts.Now()).Seconds()))
}

func (h *Handler) lockResponse(lockID string, e *entry) gin.H {
	return gin.H{
		"lock_id": lockID,
		"status":  "ok",
		"data": gin.H{
			"uuid":    e.token,
			"ttl":     e.ttl,
			"message": e.message,
			"timeout": h.remaining(e),
		},
	}
}

func errorResponse(lockID, message string) gin.H {
	return gin.H{
		"lock_id": lockID,
		"status":  "error",
		"data":    gin.H{"message": message},
	}
}

func (h *Handler) getLock(c *gin.Context) {
	id, ok := lockID(c)
	if !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	e := h.live(id)
	if e == nil {
		c.JSON(http.StatusNotFound, errorResponse(id, fmt.Sprintf("Lock '%s' not found.", id)))
		return
	}
	c.JSON(http.StatusOK, h.lockResponse(id, e))
}

func (h *Handler) acquireLock(c *gin.Context) {
	id, ok := lockID(c)
	if !ok {
		return
	}

	var body acquireBody
	if err := c.ShouldBindJSON(&body); err != nil || body.TTL <= 0 {
		h.metrics.acquireTotal.WithLabelValues("bad_request").Inc()
		c.JSON(http.StatusBadRequest, errorResponse(id, "A positive ttl is required."))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if e := h.live(id); e != nil {
		h.metrics.acquireTotal.WithLabelValues("held").Inc()
		resp := errorResponse(id, "Lock is held.")
		resp["data"].(gin.H)["timeout"] = h.remaining(e)
		c.JSON(http.StatusConflict, resp)
		return
	}

	e := &entry{
		token:     newToken(id),
		ttl:       body.TTL,
		message:   body.Message,
		expiresAt: h.opts.Now().Add(seconds(body.TTL)),
	}
	h.locks[id] = e
	h.metrics.acquireTotal.WithLabelValues("success").Inc()
	h.metrics.locksHeld.Set(float64(h.countLive()))

	h.opts.Logger.Debugw("lock acquired", "lock_id", id, "ttl", body.TTL)
	c.JSON(http.StatusOK, h.lockResponse(id, e))
}

func (h *Handler) renewLock(c *gin.Context) {
	id, ok := lockID(c)
	if !ok {
		return
	}

	var body renewBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.metrics.renewTotal.WithLabelValues("bad_request").Inc()
		c.JSON(http.StatusBadRequest, errorResponse(id, "Malformed request body."))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	e := h.live(id)
	if e == nil || body.UUID == "" || e.token != body.UUID {
		h.metrics.renewTotal.WithLabelValues("mismatch").Inc()
		c.JSON(http.StatusConflict, errorResponse(id, "Lock UUID mismatch."))
		return
	}

	if body.TTL > 0 {
		e.ttl = body.TTL
	}
	e.expiresAt = h.opts.Now().Add(seconds(e.ttl))
	h.metrics.renewTotal.WithLabelValues("success").Inc()

	c.JSON(http.StatusOK, h.lockResponse(id, e))
}

func (h *Handler) releaseLock(c *gin.Context) {
	id, ok := lockID(c)
	if !ok {
		return
	}

	var body releaseBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.metrics.releaseTotal.WithLabelValues("bad_request").Inc()
		c.JSON(http.StatusBadRequest, errorResponse(id, "Malformed request body."))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	e := h.live(id)
	matches := e != nil && body.UUID != nil && *body.UUID == e.token
	if e == nil || (!body.Force && !matches) {
		h.metrics.releaseTotal.WithLabelValues("mismatch").Inc()
		c.JSON(http.StatusConflict, errorResponse(id, "Lock UUID mismatch or Lock not found."))
		return
	}

	delete(h.locks, id)
	result := "success"
	if !matches {
		result = "forced"
	}
	h.metrics.releaseTotal.WithLabelValues(result).Inc()
	h.metrics.locksHeld.Set(float64(h.countLive()))

	c.JSON(http.StatusOK, gin.H{
		"lock_id": id,
		"status":  "ok",
		"data": gin.H{
			"uuid":    e.token,
			"ttl":     e.ttl,
			"message": "Lock released.",
		},
	})
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

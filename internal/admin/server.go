// Package admin exposes the operator HTTP surface: broadcast, manual run
// trigger, scheduler status, and a debug view of today's campaign candidates.
package admin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/shepherd/internal/campaign"
	"github.com/zulandar/shepherd/internal/directory"
)

// Default server values. The broadcast limit mirrors the legacy operator
// panel: 10 sends per 5-minute window per IP.
const (
	DefaultPort            = 3001
	DefaultBroadcastLimit  = 10
	DefaultBroadcastWindow = 5 * time.Minute
	DefaultVisitorLookback = 7
	DefaultEventLookahead  = 7
)

// ServerOpts holds configuration for the admin server.
type ServerOpts struct {
	Gateway    directory.Gateway
	Dispatcher *campaign.Dispatcher
	Scheduler  *campaign.Scheduler
	Port       int
	// Broadcast rate limit; zero values use the defaults.
	BroadcastLimit  int
	BroadcastWindow time.Duration

	VisitorLookbackDays int
	EventLookaheadDays  int
	Now                 func() time.Time // defaults to time.Now
	Out                 io.Writer
}

// NewRouter builds the gin router without binding a listener, so tests can
// drive it through httptest.
func NewRouter(opts ServerOpts) (*gin.Engine, error) {
	if opts.Gateway == nil {
		return nil, fmt.Errorf("admin: gateway is required")
	}
	if opts.Dispatcher == nil {
		return nil, fmt.Errorf("admin: dispatcher is required")
	}
	if opts.Scheduler == nil {
		return nil, fmt.Errorf("admin: scheduler is required")
	}
	limit := opts.BroadcastLimit
	if limit <= 0 {
		limit = DefaultBroadcastLimit
	}
	window := opts.BroadcastWindow
	if window <= 0 {
		window = DefaultBroadcastWindow
	}
	lookback := opts.VisitorLookbackDays
	if lookback <= 0 {
		lookback = DefaultVisitorLookback
	}
	lookahead := opts.EventLookaheadDays
	if lookahead <= 0 {
		lookahead = DefaultEventLookahead
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	limiter := newRateLimiter(limit, window, opts.Now)
	router.POST("/broadcast", limiter.middleware(), handleBroadcast(opts.Gateway, opts.Dispatcher))
	router.POST("/run-now", handleRunNow(opts.Scheduler))
	router.GET("/status", handleStatus(opts.Scheduler))
	router.GET("/debug/candidates", handleDebugCandidates(opts.Gateway, lookback, lookahead))

	return router, nil
}

// Start launches the admin HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts ServerOpts) error {
	router, err := NewRouter(opts)
	if err != nil {
		return err
	}
	port := opts.Port
	if port <= 0 {
		port = DefaultPort
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "admin: listening on :%d\n", port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("admin: %w", err)
	}
	return nil
}

type broadcastRequest struct {
	TenantID string `json:"tenantId"`
	Message  string `json:"message"`
}

// handleBroadcast dispatches one message to every member of a tenant and
// returns the dispatch summary.
func handleBroadcast(gateway directory.Gateway, dispatcher *campaign.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req broadcastRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "corpo inválido"})
			return
		}
		req.TenantID = strings.TrimSpace(req.TenantID)
		req.Message = strings.TrimSpace(req.Message)
		if req.TenantID == "" || req.Message == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "tenantId e message são obrigatórios"})
			return
		}

		tenant, err := gateway.GetTenantProfile(req.TenantID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
			return
		}
		if tenant == nil {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "igreja não encontrada"})
			return
		}

		members, err := gateway.ListMembers(tenant.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
			return
		}

		_, summary := dispatcher.Dispatch(c.Request.Context(), members, func(directory.Person) string {
			return req.Message
		})
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"tenant":  tenant.ID,
			"summary": gin.H{
				"total":   summary.Total,
				"sent":    summary.Sent,
				"failed":  summary.Failed,
				"skipped": summary.Skipped,
			},
		})
	}
}

func handleRunNow(scheduler *campaign.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := scheduler.RunNow(c.Request.Context()); err != nil {
			c.JSON(http.StatusConflict, gin.H{"success": false, "message": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "status": scheduler.Status()})
	}
}

func handleStatus(scheduler *campaign.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, scheduler.Status())
	}
}

// handleDebugCandidates returns today's campaign candidate lists. This is an
// operator surface: raw error detail is allowed here.
func handleDebugCandidates(gateway directory.Gateway, lookback, lookahead int) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := gin.H{}

		if birthdays, err := gateway.ListAllBirthdaysToday(); err != nil {
			resp["birthdaysError"] = err.Error()
		} else {
			resp["birthdays"] = birthdays
		}
		if visitors, err := gateway.ListRecentVisitors(lookback); err != nil {
			resp["visitorsError"] = err.Error()
		} else {
			resp["visitors"] = visitors
		}
		if events, err := gateway.ListUpcomingEvents(lookahead); err != nil {
			resp["eventsError"] = err.Error()
		} else {
			resp["events"] = events
		}

		c.JSON(http.StatusOK, resp)
	}
}

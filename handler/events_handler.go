package handler

import (
	"io"
	"time"

	"tracker/model"
	"tracker/usecase"

	"github.com/gin-gonic/gin"
)

// keepAliveInterval spaces comment frames on an idle stream so proxies keep
// the connection open.
const keepAliveInterval = 30 * time.Second

// Events streams snapshot and reminder events as server-sent events until the
// client disconnects or the session ends. The current dashboard is sent first.
func (h *EntityHandler) Events(c *gin.Context) {
	active, ok := activeSession(c)
	if !ok {
		return
	}

	events, detach := active.Hub.Subscribe()
	defer detach()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("ready", usecase.Event{
		Type: "ready",
		Data: active.Cache.Dashboard(model.DashboardFilter{}),
		At:   time.Now(),
	})
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, open := <-events:
			if !open {
				return false
			}
			c.SSEvent(ev.Type, ev)
			return true
		case <-keepAlive.C:
			_, _ = io.WriteString(w, ": keep-alive\n\n")
			return true
		}
	})
}

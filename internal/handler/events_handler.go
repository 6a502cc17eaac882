package handler

import (
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campus-insight/student-records-api/internal/notify"
	appErrors "github.com/campus-insight/student-records-api/pkg/errors"
	"github.com/campus-insight/student-records-api/pkg/response"
)

// EventsHandler streams change notifications to clients over SSE. Events
// carry only the topic name; clients re-query the REST surface for data.
type EventsHandler struct {
	notifier *notify.Notifier
}

// NewEventsHandler creates a new handler.
func NewEventsHandler(notifier *notify.Notifier) *EventsHandler {
	return &EventsHandler{notifier: notifier}
}

// Stream godoc
// @Summary Subscribe to change notifications
// @Description Server-sent events, one event per changed topic
// @Tags Events
// @Produce text/event-stream
// @Param topics query string false "Comma-separated topics, defaults to all"
// @Success 200 {string} string "event stream"
// @Router /events [get]
func (h *EventsHandler) Stream(c *gin.Context) {
	if h.notifier == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "change notifications are disabled"))
		return
	}

	topics := notify.AllTopics()
	if raw := c.Query("topics"); raw != "" {
		topics = topics[:0]
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				topics = append(topics, t)
			}
		}
	}

	events := make(chan string, 8)
	subs := make([]*notify.Subscription, 0, len(topics))
	for _, topic := range topics {
		sub, err := h.notifier.Subscribe(c.Request.Context(), topic, func(topic string) {
			select {
			case events <- topic:
			default:
			}
		})
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to subscribe"))
			return
		}
		subs = append(subs, sub)
	}
	defer func() {
		for _, sub := range subs {
			_ = sub.Close()
		}
	}()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case topic := <-events:
			c.SSEvent("change", topic)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/nannyhub/internal/auth/domain"
	profiledomain "github.com/smallbiznis/nannyhub/internal/profile/domain"
	"github.com/smallbiznis/nannyhub/internal/realtime"
)

const streamHeartbeat = 15 * time.Second

// streamTopics lists the row-change topics a user may follow: their own
// notifications plus the bookings they are a party to.
func streamTopics(id authdomain.Identity) []string {
	topics := []string{realtime.Topic("notifications", "user_id", id.UserID)}
	switch id.Role {
	case profiledomain.RoleClient:
		topics = append(topics, realtime.Topic("bookings", "client_id", id.UserID))
	case profiledomain.RoleNanny:
		topics = append(topics, realtime.Topic("bookings", "nanny_id", id.UserID))
	}
	return topics
}

// selectTopics narrows the allowed topics to the requested one. An empty
// request follows every allowed topic.
func selectTopics(allowed []string, requested string) ([]string, bool) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return allowed, true
	}
	for _, topic := range allowed {
		if topic == requested {
			return []string{topic}, true
		}
	}
	return nil, false
}

// Stream pushes the caller's notifications and booking changes as
// server-sent events.
func (s *Server) Stream(c *gin.Context) {
	if s.hub == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	id, ok := mustIdentity(c)
	if !ok {
		return
	}

	topics, ok := selectTopics(streamTopics(id), c.Query("topic"))
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}
	merged := make(chan realtime.Event, realtime.DefaultSubscriberBuffer)
	var backlog []realtime.Event
	for _, topic := range topics {
		sub, events, err := s.hub.Subscribe(topic)
		if err != nil {
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		defer sub.Close()
		backlog = append(backlog, events...)
		go forward(c.Request.Context().Done(), sub.Events(), merged)
	}

	writer := c.Writer
	headers := writer.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	flusher, ok := writer.(http.Flusher)
	if !ok {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	if _, err := io.WriteString(writer, "retry: 2000\n\n"); err != nil {
		return
	}
	for _, event := range backlog {
		if err := writeStreamEvent(writer, event); err != nil {
			return
		}
	}
	flusher.Flush()

	ctx := c.Request.Context()
	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-merged:
			if err := writeStreamEvent(writer, event); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := io.WriteString(writer, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func forward(done <-chan struct{}, in <-chan realtime.Event, out chan<- realtime.Event) {
	for {
		select {
		case <-done:
			return
		case event, ok := <-in:
			if !ok {
				return
			}
			select {
			case out <- event:
			case <-done:
				return
			}
		}
	}
}

func writeStreamEvent(w io.Writer, event realtime.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Topic, data)
	return err
}

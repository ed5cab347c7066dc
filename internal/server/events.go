package server

import (
	"context"
	"log/slog"
	"sort"

	"postboard/internal/middleware"
	"postboard/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// publishPostEvent is best effort: failures are logged and never reach the client.
// Without Redis the event goes straight to this instance's stream clients;
// with Redis every instance receives it through relayPostEvents.
func (s *Server) publishPostEvent(ctx context.Context, eventType string, payload map[string]any) {
	if !s.notifier.Enabled() {
		if s.stream != nil {
			s.stream.Broadcast(notifications.NewPostEvent(eventType, payload))
		}
		return
	}
	if err := s.notifier.PublishPostEvent(ctx, eventType, payload); err != nil {
		middleware.Logger.WarnContext(ctx, "Failed to publish post event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()),
		)
	}
}

// relayPostEvents forwards events from Redis to the stream hub until Shutdown.
func (s *Server) relayPostEvents() {
	if !s.notifier.Enabled() || s.stream == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := s.notifier.Subscribe(ctx, s.stream.Broadcast); err != nil {
		cancel()
		middleware.Logger.Warn("Post event relay unavailable", slog.String("error", err.Error()))
		return
	}
	s.stopEvents = cancel
}

func (s *Server) requireUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return c.Next()
}

// PostEventStream streams post lifecycle events to a websocket client.
func (s *Server) PostEventStream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		client, err := s.stream.Register(conn)
		if err != nil {
			middleware.Logger.Warn("Rejected event stream client", slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()))
			_ = conn.Close()
			return
		}
		client.Serve()
	})
}

func columnNames(fields map[string]any) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Package server exposes the WhatsApp webhook over HTTP. Twilio retries
// webhooks that do not return 200, so the handler answers 200 with valid
// TwiML on every path and lets the reply text carry any bad news.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ledgerpal/ledgerpal/internal/model"
	"github.com/ledgerpal/ledgerpal/internal/whatsapp"
)

// MessageHandler processes one inbound message into reply text.
// Satisfied by the router.
type MessageHandler interface {
	Handle(ctx context.Context, msg model.InboundMessage) string
}

// MediaFetcher downloads a message's attachments into local files.
type MediaFetcher interface {
	Fetch(ctx context.Context, msg *model.InboundMessage) error
}

// Config holds the HTTP server settings.
type Config struct {
	Addr           string
	RequestTimeout time.Duration
}

// Server is the webhook HTTP server.
type Server struct {
	httpServer *http.Server
	handler    MessageHandler
	media      MediaFetcher
	logger     *slog.Logger
	timeout    time.Duration
}

// New creates the webhook server. media may be nil when media download is
// disabled; attachments then reach the gateway with no LocalPath and are
// skipped there.
func New(cfg Config, handler MessageHandler, media MediaFetcher, logger *slog.Logger) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}

	s := &Server{
		handler: handler,
		media:   media,
		logger:  logger,
		timeout: cfg.RequestTimeout,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /whatsapp", s.handleWebhook)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}

	return s
}

// ListenAndServe runs the server until the listener fails or Shutdown is
// called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("webhook server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("webhook server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	msg, err := whatsapp.ParseWebhook(r)
	if err != nil {
		s.logger.Warn("unparseable webhook payload", "error", err)
		s.writeTwiML(w, mustEmptyTwiML())
		return
	}

	if s.media != nil && msg.HasMedia() {
		if err := s.media.Fetch(ctx, msg); err != nil {
			s.logger.Warn("media fetch failed",
				"message_sid", msg.MessageSID,
				"error", err)
		}
	}

	reply := s.handler.Handle(ctx, *msg)

	doc, err := whatsapp.ReplyTwiML(reply)
	if err != nil {
		s.logger.Error("twiml render failed", "error", err)
		doc = mustEmptyTwiML()
	}
	s.writeTwiML(w, doc)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) writeTwiML(w http.ResponseWriter, doc string) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(doc)); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}

func mustEmptyTwiML() string {
	doc, err := whatsapp.EmptyTwiML()
	if err != nil {
		// Rendering an empty document cannot fail in practice.
		return `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`
	}
	return doc
}

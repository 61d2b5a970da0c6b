package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pumpcam/pumpcam/service/events"
	"github.com/pumpcam/pumpcam/service/metrics"
)

const sseKeepaliveInterval = 10 * time.Second

// handleStreamReferrals handles SSE streaming of referral credits for one
// referrer wallet. Each connection gets its own ephemeral consumer; only
// events published after the connection opens are delivered.
// GET /api/v1/stream/referrals/{address}
func handleStreamReferrals(subscriber *events.Subscriber, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := r.PathValue("address")

		if err := validateAddress(address); err != nil {
			logger.Debug("invalid address", "address", address, "error", err)
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		// Set SSE headers
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		flusher.Flush()

		logger.DebugContext(r.Context(), "SSE client connected",
			"wallet", address,
			"remote_addr", r.RemoteAddr,
		)

		eventChan := make(chan *events.ReferralEvent, 10)
		sub, err := subscriber.Subscribe(r.Context(), address, func(event *events.ReferralEvent) {
			select {
			case eventChan <- event:
			case <-r.Context().Done():
			}
		})
		if err != nil {
			logger.ErrorContext(r.Context(), "failed to subscribe",
				"wallet", address,
				"error", err,
			)
			fmt.Fprintf(w, "event: error\ndata: {\"error\": \"failed to subscribe\"}\n\n")
			return
		}
		defer sub.Stop()

		if m != nil {
			m.SSEConnectionOpened("referrals")
			defer m.SSEConnectionClosed("referrals")
		}

		// Send initial connection event
		fmt.Fprintf(w, "event: connected\ndata: {\"wallet\":\"%s\"}\n\n", address)
		flusher.Flush()

		keepalive := time.NewTicker(sseKeepaliveInterval)
		defer keepalive.Stop()

		for {
			select {
			case <-keepalive.C:
				// Keepalive comment to prevent proxy timeouts
				fmt.Fprintf(w, ": keepalive\n\n")
				flusher.Flush()

			case event := <-eventChan:
				data, err := json.Marshal(event)
				if err != nil {
					logger.WarnContext(r.Context(), "failed to marshal event", "error", err)
					continue
				}

				fmt.Fprintf(w, "event: referral\ndata: %s\n\n", string(data))
				flusher.Flush()

				logger.DebugContext(r.Context(), "sent referral event",
					"wallet", address,
					"signature", event.Signature,
				)

			case <-r.Context().Done():
				logger.DebugContext(r.Context(), "SSE client disconnected",
					"wallet", address,
					"remote_addr", r.RemoteAddr,
				)
				return
			}
		}
	})
}

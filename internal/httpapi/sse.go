package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/opsgate/slb-mcp-gateway/internal/audit"
)

// sseHandler streams audit events as Server-Sent Events, backed by
// Publisher.Subscribe's best-effort drop-oldest fan-out (§4.8). A slow or
// disconnected browser can never block command execution since the
// publish side never waits on this channel.
func sseHandler(publisher *audit.Publisher, authToken string) http.HandlerFunc {
	handler := func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		sub, cancel := publisher.Subscribe(64)
		defer cancel()

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-sub:
				if !ok {
					return
				}
				if err := writeSSE(w, event); err != nil {
					log.Debug("sse: write failed, closing stream", "err", err)
					return
				}
				flusher.Flush()
			}
		}
	}

	return requireAuthToken(authToken)(http.HandlerFunc(handler)).ServeHTTP
}

func writeSSE(w http.ResponseWriter, event audit.Event) error {
	b, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\ndata: %s\n\n", event.Seq, b)
	return err
}

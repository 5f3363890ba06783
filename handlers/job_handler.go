package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/serisow/docpilot/progress"
)

// heartbeatInterval is how long the stream waits for a progress message
// before emitting a keep-alive comment frame.
const heartbeatInterval = time.Second

// JobHandler streams pipeline progress to clients over Server-Sent
// Events. It is a pure observer: it never mutates documents or drives
// stages.
type JobHandler struct {
	broker progress.Broker
	logger *slog.Logger
}

func NewJobHandler(broker progress.Broker, logger *slog.Logger) *JobHandler {
	return &JobHandler{broker: broker, logger: logger}
}

// StreamStatus subscribes to one job's channel and forwards each
// message as a `data:` frame. Idle seconds produce `: heartbeat`
// comment frames so proxies do not reclaim the connection. The stream
// ends on a terminal message (progress 100 or -1) or client disconnect.
func (h *JobHandler) StreamStatus(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["job_id"]

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	sub, err := h.broker.Subscribe(ctx, jobID)
	if err != nil {
		h.logger.Error("subscribe failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()))
		http.Error(w, "Could not subscribe to job status", http.StatusInternalServerError)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		payload, received, err := sub.Receive(ctx, heartbeatInterval)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			h.logger.Warn("progress receive failed",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()))
			return
		}

		if !received {
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
			continue
		}

		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()

		msg, err := progress.Decode(payload)
		if err != nil {
			h.logger.Warn("undecodable progress payload",
				slog.String("job_id", jobID),
				slog.String("payload", payload))
			continue
		}
		if msg.Terminal() {
			return
		}
	}
}

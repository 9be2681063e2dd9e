package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/zdunecki/skymesh/pkg/flows"
	"github.com/zdunecki/skymesh/pkg/transition"
)

const keepAliveEvery = 15 * time.Second

// handleAnalyzing streams the analyzing sequence as server-sent events:
// one "stage" event per completed stage, then a single "navigate" event.
// A client disconnect cancels the sequence.
func (s *Server) handleAnalyzing(w http.ResponseWriter, r *http.Request) {
	def, err := flows.LoadAnalyzing()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming not supported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	script := def.Script.Scaled(s.opts.TransitionSpeed)
	events := make(chan transition.Event, len(script.Stages)+1)
	seq := transition.Start(script, func(ev transition.Event) { events <- ev })
	defer seq.Cancel()

	ctx := r.Context()
	write := func(name string, v any) bool {
		data, err := json.Marshal(v)
		if err != nil {
			zap.L().Warn("encode sse event", zap.Error(err))
			return false
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
			zap.L().Debug("sse write failed, client likely gone", zap.Error(err))
			return false
		}
		flusher.Flush()
		return true
	}

	if !write("start", map[string]any{"stages": script.Stages, "reviews": def.Reviews, "rotateMs": def.Rotate.Milliseconds()}) {
		return
	}

	keepAlive := time.NewTicker(keepAliveEvery)
	defer keepAlive.Stop()
	for {
		select {
		case <-ctx.Done():
			zap.L().Debug("analyzing stream closed by client", zap.Int("stage", seq.Stage()))
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev := <-events:
			if !write(string(ev.Kind), ev) {
				return
			}
			if ev.Kind == transition.EventNavigate {
				return
			}
		}
	}
}

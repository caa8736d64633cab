package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/agentic-research/lina/internal/document"
	"github.com/agentic-research/lina/internal/engine"
	"github.com/agentic-research/lina/internal/ingest"
)

const (
	defaultDeliveries = 20
	maxDeliveries     = 500
)

// handleEvent resolves one host event. 202 means a payload was queued,
// 204 that the package or screen is unknown.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxEventBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		jsonError(w, "failed to read body", http.StatusRequestEntityTooLarge)
		return
	}
	ev, err := ingest.ParseEvent(body)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if s.opts.Recorder != nil {
		if err := s.opts.Recorder.Record(ev); err != nil {
			s.log.Warn("record event", "package", ev.PackageName, "error", err)
		}
	}

	data, err := s.resolver.Resolve(ev)
	if errors.Is(err, engine.ErrNoProfile) {
		s.log.Debug("no profile", "package", ev.PackageName)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		s.log.Error("resolve event", "package", ev.PackageName, "error", err)
		jsonError(w, "resolve failed", http.StatusInternalServerError)
		return
	}
	if data == nil {
		s.log.Debug("unknown screen", "package", ev.PackageName)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	s.out.Push(r.Context(), engine.Envelope(ev, data))

	screen := ""
	if v, ok := data.Get("screen"); ok {
		screen, _ = document.AsString(v)
	}
	jsonResponse(w, http.StatusAccepted, map[string]string{"screen": screen})
}

type delivery struct {
	ID          int64           `json:"id"`
	DeliveredAt int64           `json:"deliveredAt"`
	Payload     json.RawMessage `json:"payload"`
}

func (s *Server) handleDeliveries(w http.ResponseWriter, r *http.Request) {
	limit := defaultDeliveries
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxDeliveries)
	}
	recent, err := s.opts.Deliveries.Recent(r.Context(), limit)
	if err != nil {
		s.log.Error("list deliveries", "error", err)
		jsonError(w, "failed to list deliveries", http.StatusInternalServerError)
		return
	}
	out := make([]delivery, 0, len(recent))
	for _, d := range recent {
		out = append(out, delivery{ID: d.ID, DeliveredAt: d.DeliveredAt.UnixMilli(), Payload: d.Body})
	}
	jsonResponse(w, http.StatusOK, out)
}

func jsonResponse(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	jsonResponse(w, code, map[string]string{"error": msg})
}

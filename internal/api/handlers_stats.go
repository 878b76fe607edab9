package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.gateway == nil || s.gateway.Stats == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}

	body := map[string]any{
		"model":       s.gateway.Model(),
		"stats":       s.gateway.Stats.Snapshot(),
		"queue_depth": s.orchestrator.QueueDepth(),
	}
	if s.limiter != nil {
		body["rate_limit"] = s.limiter.Stats()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

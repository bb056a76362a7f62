package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/f5devcentral/llm-inference-lb/internal/pool"
	"github.com/f5devcentral/llm-inference-lb/internal/selector"
)

// defaultAnalyzeIterations is used when ?iterations= is absent or invalid.
const defaultAnalyzeIterations = 10000

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeSelectRequest reads and validates the shared request body of
// /scheduler/select, /simulate, and /analyze.
func decodeSelectRequest(r *http.Request) (SelectRequest, bool) {
	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return SelectRequest{}, false
	}
	if req.PoolName == "" || req.Partition == "" {
		return SelectRequest{}, false
	}
	return req, true
}

// handleSelect serves POST /scheduler/select. A well-formed request always
// gets 200 with a plain-text body of "ip:port", "none", or "fallback" —
// never a 5xx for upstream data issues; a malformed body gets 400.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSelectRequest(r)
	if !ok {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	key := req.Partition + "/" + req.PoolName
	result := s.Selector.Select(key, req.Members)

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(result))

	if s.Hub != nil {
		s.Hub.Broadcast(TopicSelections, SelectionEvent{
			TraceID: uuid.NewString(),
			Pool:    key,
			Result:  result,
		})
	}
}

// handleSimulate serves POST /pools/{name}/{partition}/simulate.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	partition := chi.URLParam(r, "partition")
	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	iterations := parseIterations(r)
	key := partition + "/" + name
	result, ok := s.Selector.Simulate(key, req.Members, iterations)
	if !ok {
		writeJSON(w, http.StatusOK, selector.SimulateResult{Results: map[string]int{}, Iterations: iterations})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleAnalyze serves POST /pools/{name}/{partition}/analyze.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	partition := chi.URLParam(r, "partition")
	var req SelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	iterations := parseIterations(r)
	key := partition + "/" + name
	result, ok := s.Selector.Analyze(key, req.Members, iterations)
	if !ok {
		writeJSON(w, http.StatusOK, selector.AnalyzeResult{})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func parseIterations(r *http.Request) int {
	raw := r.URL.Query().Get("iterations")
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultAnalyzeIterations
	}
	return n
}

// handlePoolStatus serves GET /pools/{name}/{partition}/status.
func (s *Server) handlePoolStatus(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	partition := chi.URLParam(r, "partition")
	key := partition + "/" + name

	p, ok := s.Store.Get(key)
	if !ok {
		http.Error(w, "pool not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, poolStatusOf(p))
}

// handlePoolsStatus serves GET /pools/status.
func (s *Server) handlePoolsStatus(w http.ResponseWriter, r *http.Request) {
	pools := s.Store.All()
	statuses := make([]PoolStatus, 0, len(pools))
	for _, p := range pools {
		statuses = append(statuses, poolStatusOf(p))
	}
	writeJSON(w, http.StatusOK, PoolsStatus{Pools: statuses})
}

// handleHealth serves GET /health.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Message: "ok"})
}

// poolStatusOf builds the status response shape from a live *pool.Pool.
func poolStatusOf(p *pool.Pool) PoolStatus {
	cfg := p.Config()
	members := p.Members()

	out := PoolStatus{
		Name:       cfg.Name,
		Partition:  cfg.Partition,
		EngineType: string(cfg.EngineKind),
		Members:    make([]MemberStatus, 0, len(members)),
	}
	for _, ms := range members {
		metrics := make(map[string]float64, len(ms.Metrics))
		for sem, v := range ms.Metrics {
			metrics[string(sem)] = v
		}
		lastUpdate := ms.LastMetricsUpdate
		if ms.LastScoreUpdate.After(lastUpdate) {
			lastUpdate = ms.LastScoreUpdate
		}
		out.Members = append(out.Members, MemberStatus{
			IP:         ms.Member.IP,
			Port:       ms.Member.Port,
			Score:      ms.Score,
			Metrics:    metrics,
			Status:     string(ms.Status),
			LastUpdate: formatTimestamp(lastUpdate),
		})
	}
	return out
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"home_scout/index"
	"home_scout/insights"
	"home_scout/models"
	"home_scout/storage"
)

// CollectorStatus is the slice of the orchestrator the API needs.
type CollectorStatus interface {
	IsPaused() bool
}

// Server exposes the daemon over HTTP. Collection requests go through the
// command queue, so the response is an acknowledgement, not a result; search
// and insights are answered inline.
type Server struct {
	store     *storage.SQLiteStore
	archive   *storage.PostgresStore
	sink      *index.Client
	provider  insights.Provider
	collector CollectorStatus
	router    *mux.Router
	server    *http.Server
}

func NewServer(store *storage.SQLiteStore, archive *storage.PostgresStore, sink *index.Client, provider insights.Provider, collector CollectorStatus) *Server {
	s := &Server{
		store:     store,
		archive:   archive,
		sink:      sink,
		provider:  provider,
		collector: collector,
		router:    mux.NewRouter(),
	}

	s.router.HandleFunc("/api/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/api/runs", s.handleRuns).Methods("GET")
	s.router.HandleFunc("/api/collect", s.handleCollect).Methods("POST")
	s.router.HandleFunc("/api/search", s.handleSearch).Methods("GET")
	s.router.HandleFunc("/api/insights", s.handleInsights).Methods("POST")

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks until the server fails or Shutdown is called.
func (s *Server) ListenAndServe(addr string) error {
	log.Printf("API listening on %s", addr)
	s.server.Addr = addr
	return s.server.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests
// until the context expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status": "ok",
		"paused": false,
	}
	if s.collector != nil {
		status["paused"] = s.collector.IsPaused()
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	runs, err := s.store.RecentRuns(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

type collectRequest struct {
	Site     string `json:"site"`
	City     string `json:"city"`
	State    string `json:"state"`
	MaxCount int    `json:"maxCount"`
}

// handleCollect enqueues a collection command for the scheduler to pick up.
func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	var req collectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.City != "" && req.Site == "" {
		writeError(w, http.StatusBadRequest, "city requires a site")
		return
	}
	if req.City != "" && req.State == "" {
		writeError(w, http.StatusBadRequest, "city requires a state")
		return
	}

	cmd := models.CmdCollectNow
	var params *models.CommandParams
	if req.Site != "" {
		cmd = models.CmdCollectSite
		params = &models.CommandParams{
			Site:     req.Site,
			City:     req.City,
			State:    req.State,
			MaxCount: req.MaxCount,
		}
	}

	if err := s.store.EnqueueCommand(cmd, params); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "queued"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.sink == nil || !s.sink.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "search index not configured")
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	hitsPerPage, _ := strconv.Atoi(q.Get("hitsPerPage"))

	result, err := s.sink.Search(r.Context(), index.SearchParams{
		Query:       q.Get("q"),
		PriceRange:  q.Get("priceRange"),
		City:        q.Get("city"),
		Page:        page,
		HitsPerPage: hitsPerPage,
	})
	if err != nil {
		var statusErr *index.StatusError
		if errors.As(err, &statusErr) {
			writeError(w, http.StatusBadGateway, statusErr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type insightsRequest struct {
	ObjectID string `json:"objectID"`
	City     string `json:"city"`
	State    string `json:"state"`
	Question string `json:"question"`
	Prompt   string `json:"prompt"`
}

// handleInsights builds a prompt from an archived record or a market slice
// and forwards it to the configured provider.
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	var req insightsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	prompt := req.Prompt
	switch {
	case prompt != "":
	case req.ObjectID != "":
		if s.archive == nil {
			writeError(w, http.StatusServiceUnavailable, "record archive not configured")
			return
		}
		record, err := s.archive.GetRecord(r.Context(), req.ObjectID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if record == nil {
			writeError(w, http.StatusNotFound, "no record with that objectID")
			return
		}
		prompt = insights.BuildRecordPrompt(record, req.Question)
	case req.City != "" && req.State != "":
		if s.archive == nil {
			writeError(w, http.StatusServiceUnavailable, "record archive not configured")
			return
		}
		records, err := s.archive.RecordsForMarket(r.Context(), req.City, req.State, 25)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if len(records) == 0 {
			writeError(w, http.StatusNotFound, "no records for that market")
			return
		}
		prompt = insights.BuildMarketPrompt(records, req.City, req.State, req.Question)
	default:
		writeError(w, http.StatusBadRequest, "need prompt, objectID, or city and state")
		return
	}

	answer, err := s.provider.Complete(r.Context(), prompt)
	if err != nil {
		if errors.Is(err, insights.ErrDisabled) {
			writeError(w, http.StatusServiceUnavailable, "insights provider not configured")
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"provider": s.provider.Name(),
		"answer":   answer,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("API: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

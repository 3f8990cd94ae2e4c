package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/astroshed/starcapture/internal/config"
	"github.com/astroshed/starcapture/internal/logger"
	"github.com/astroshed/starcapture/internal/recorder"
)

// Server exposes recorder status and the event stream over HTTP
type Server struct {
	router    *mux.Router
	recorder  *recorder.Controller
	configMgr *config.Manager
	upgrader  websocket.Upgrader
}

// NewServer creates a new API server
func NewServer(rec *recorder.Controller, configMgr *config.Manager) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		recorder:  rec,
		configMgr: configMgr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // local observability surface
			},
		},
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/recording/stop", s.handleStopRecording).Methods("POST")
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")
	api.HandleFunc("/config/observer", s.handleSetObserver).Methods("POST")
	api.HandleFunc("/config/telescope", s.handleSetTelescope).Methods("POST")
	api.HandleFunc("/events", s.handleEvents)
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start starts the HTTP server
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logger.WithComponent("api").Info().
		Str("addr", addr).
		Msg("API server starting")
	return http.ListenAndServe(addr, s.enableCORS(s.router))
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.recorder.GetStatus())
}

func (s *Server) handleStopRecording(w http.ResponseWriter, r *http.Request) {
	s.recorder.EndRecording()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "stopping"})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.configMgr.Get())
}

func (s *Server) handleSetObserver(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.configMgr.SetObserver(req.Name); err != nil {
		http.Error(w, "Failed to save config", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"observer": req.Name})
}

func (s *Server) handleSetTelescope(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.configMgr.SetTelescope(req.Name); err != nil {
		http.Error(w, "Failed to save config", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"telescope": req.Name})
}

// handleEvents streams recorder events to the client over a websocket
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithComponent("api").Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	events, cancel := s.recorder.Subscribe()
	defer cancel()

	// Drain client reads so close frames are processed
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for ev := range events {
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

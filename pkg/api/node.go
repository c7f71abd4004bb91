package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"relaymesh/pkg/addr"
	"relaymesh/pkg/directory"
	"relaymesh/pkg/model"
	"relaymesh/pkg/worker"
)

// NodeServer is the HTTP surface of one node daemon: relay management,
// the local directory, and the peer transport endpoint.
type NodeServer struct {
	Registry  *worker.Registry
	Hub       *worker.Hub
	Directory directory.Directory
	Refresher directory.Refresher
	NodeID    string
	Authority addr.Address
}

// RegisterRoutes wires the node handlers on the provided mux.
func (s *NodeServer) RegisterRoutes(mux *http.ServeMux, token string) {
	auth := authFunc(token)

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("relaymesh node " + s.NodeID))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/ws/transport", s.Hub.HandleTransport)

	mux.HandleFunc("/api/v1/relays", func(w http.ResponseWriter, r *http.Request) {
		if !auth(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		switch r.Method {
		case http.MethodPost:
			s.handleCreateRelay(w, r)
		case http.MethodGet:
			writeJSON(w, http.StatusOK, s.Registry.Addresses())
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/directory", func(w http.ResponseWriter, r *http.Request) {
		if !auth(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, DirectoryResponse{
			Nodes:    s.Directory.Nodes(),
			Projects: s.Directory.Projects(),
		})
	})

	mux.HandleFunc("/api/v1/directory/refresh", func(w http.ResponseWriter, r *http.Request) {
		if !auth(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.Refresher == nil {
			http.Error(w, "no authority configured", http.StatusServiceUnavailable)
			return
		}
		if err := s.Refresher.RefreshProjects(r.Context(), s.NodeID, s.Authority); err != nil {
			log.Printf("directory refresh failed: %v", err)
			http.Error(w, "refresh failed", http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"projects": len(s.Directory.Projects())})
	})
}

func (s *NodeServer) handleCreateRelay(w http.ResponseWriter, r *http.Request) {
	var req model.RelayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.Alias == "" {
		http.Error(w, "alias is required", http.StatusBadRequest)
		return
	}
	info, err := s.Registry.CreateRelay(req, s.Hub)
	if err != nil {
		log.Printf("relay create %q failed: %v", req.Alias, err)
		http.Error(w, "relay not created: "+err.Error(), http.StatusConflict)
		return
	}
	log.Printf("relay created alias=%s route=%s local=%v", info.RemoteAddress, info.Route, info.AtLocalNode)
	writeJSON(w, http.StatusCreated, info)
}

func authFunc(token string) func(r *http.Request) bool {
	if token == "" {
		return func(_ *http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		h := r.Header.Get("X-Auth-Token")
		if h == "" {
			authz := r.Header.Get("Authorization")
			if strings.HasPrefix(authz, "Bearer ") {
				h = strings.TrimPrefix(authz, "Bearer ")
			}
		}
		return h == token
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}

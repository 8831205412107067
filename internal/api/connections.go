package api

import (
	"encoding/json"
	"net/http"
)

// ConnectionRequest names a hub, a peripheral and optionally a pin.
type ConnectionRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Pin  int    `json:"pin,omitempty"`
}

// handleConnect wires a peripheral to a hub. A missing pin takes the
// lowest free one.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req ConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.From == "" || req.To == "" {
		writeBadRequest(w, "from and to are required")
		return
	}

	var assigned int
	if err := s.do(r, func() (err error) {
		assigned, err = s.space.ConnectDevices(req.From, req.To, req.Pin)
		return err
	}); err != nil {
		writeSpaceError(w, err)
		return
	}

	req.Pin = assigned
	writeJSON(w, http.StatusCreated, req)
}

// handleDisconnect unwires a peripheral from its hub.
func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	var req ConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.From == "" || req.To == "" {
		writeBadRequest(w, "from and to are required")
		return
	}

	if err := s.do(r, func() error {
		return s.space.DisconnectDevices(req.From, req.To)
	}); err != nil {
		writeSpaceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

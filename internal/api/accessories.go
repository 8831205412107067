package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/devspace-core/internal/output"
)

// ProvisionRequest is the body of POST /accessories.
type ProvisionRequest struct {
	Kind string `json:"kind"`
	Pin  int    `json:"pin"`
}

// handleListAccessories returns the pin table used to decode board output.
func (s *Server) handleListAccessories(w http.ResponseWriter, _ *http.Request) {
	entries := s.provisioner.Table().Entries()
	if entries == nil {
		entries = []output.Accessory{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"accessories": entries, "count": len(entries)})
}

// handleProvisionAccessory creates the device for a board accessory, wires
// it to the first hub at its pin and persists the table.
func (s *Server) handleProvisionAccessory(w http.ResponseWriter, r *http.Request) {
	var req ProvisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var a output.Accessory
	if err := s.do(r, func() (err error) {
		a, err = s.provisioner.Provision(req.Kind, req.Pin)
		return err
	}); err != nil {
		writeSpaceError(w, err)
		return
	}

	if err := s.provisioner.Save(r.Context()); err != nil {
		s.logger.Error("saving accessories failed", "error", err)
		writeInternalError(w, "accessory added but not saved")
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// handleRemoveAccessory removes an accessory and its device.
func (s *Server) handleRemoveAccessory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.do(r, func() error {
		return s.provisioner.Unprovision(id)
	}); err != nil {
		writeSpaceError(w, err)
		return
	}

	if err := s.provisioner.Save(r.Context()); err != nil {
		s.logger.Error("saving accessories failed", "error", err)
		writeInternalError(w, "accessory removed but not saved")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package api

import (
	"encoding/json"
	"net/http"
)

// resetConfirmation must be sent verbatim in ResetRequest.Confirm.
const resetConfirmation = "RESET SPACE"

// ResetRequest selects what a reset clears.
type ResetRequest struct {
	ClearDevices     bool   `json:"clear_devices"`
	ClearAccessories bool   `json:"clear_accessories"`
	ClearHistory     bool   `json:"clear_history"`
	Confirm          string `json:"confirm"`
}

// ResetResponse reports what was deleted.
type ResetResponse struct {
	Status  string         `json:"status"`
	Deleted map[string]int `json:"deleted"`
}

// handleReset clears the selected parts of the space. Clearing devices
// also clears accessories, since every accessory points at a device.
//
// The request must include the exact confirmation string.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Confirm != resetConfirmation {
		writeBadRequest(w, `confirm field must be exactly "`+resetConfirmation+`"`)
		return
	}
	if !req.ClearDevices && !req.ClearAccessories && !req.ClearHistory {
		writeBadRequest(w, "at least one clear_* option must be true")
		return
	}
	if req.ClearHistory && s.db == nil {
		writeError(w, http.StatusServiceUnavailable, serviceUnavailableKey, "database unavailable")
		return
	}

	ctx := r.Context()
	deleted := make(map[string]int)

	if req.ClearDevices || req.ClearAccessories {
		if err := s.do(r, func() error {
			n := 0
			for _, a := range s.provisioner.Table().Entries() {
				if err := s.provisioner.Unprovision(a.AccessoryID); err != nil {
					return err
				}
				n++
			}
			deleted["accessories"] = n

			if !req.ClearDevices {
				return nil
			}
			n = 0
			for _, d := range s.space.Devices() {
				if err := s.space.DeleteDevice(d.ID); err != nil {
					return err
				}
				n++
			}
			deleted["devices"] = n + deleted["accessories"]
			return nil
		}); err != nil {
			s.logger.Error("reset: clearing space failed", "error", err)
			writeSpaceError(w, err)
			return
		}

		if err := s.provisioner.Save(ctx); err != nil {
			s.logger.Error("reset: saving accessories failed", "error", err)
			writeInternalError(w, "failed to save accessory table")
			return
		}
	}

	if req.ClearHistory {
		result, err := s.db.ExecContext(ctx, "DELETE FROM status_history")
		if err != nil {
			s.logger.Error("reset: clearing history failed", "error", err)
			writeInternalError(w, "failed to clear status history")
			return
		}
		n, _ := result.RowsAffected() //nolint:errcheck // sqlite always reports rows affected
		deleted["status_history"] = int(n)
	}

	s.logger.Info("space reset", "deleted", deleted)
	writeJSON(w, http.StatusOK, ResetResponse{Status: "ok", Deleted: deleted})
}

package api

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/devspace-core/internal/layout"
	"github.com/nerrad567/devspace-core/internal/output"
	"github.com/nerrad567/devspace-core/internal/space"
)

// SpaceView is the full state a browser needs to draw the space.
type SpaceView struct {
	Container   space.Size         `json:"container"`
	Devices     []DeviceView       `json:"devices"`
	Overlay     layout.Overlay     `json:"overlay"`
	Accessories []output.Accessory `json:"accessories"`
}

// deviceViews snapshots every device. It must run on the space loop.
func (s *Server) deviceViews(kind space.Kind) []DeviceView {
	views := make([]DeviceView, 0, s.space.Len())
	for i, d := range s.space.Devices() {
		if kind != "" && d.Kind != kind {
			continue
		}
		views = append(views, newDeviceView(d, i))
	}
	return views
}

// deviceView snapshots device id. It must run on the space loop.
func (s *Server) deviceView(id string) (DeviceView, error) {
	d, err := s.space.Device(id)
	if err != nil {
		return DeviceView{}, err
	}
	return newDeviceView(d, s.space.IndexOf(id)), nil
}

// handleGetSpace returns devices, container size, connector overlay and
// the accessory table in one response.
func (s *Server) handleGetSpace(w http.ResponseWriter, r *http.Request) {
	var view SpaceView
	err := s.do(r, func() error {
		view = SpaceView{
			Container: s.layout.Container(),
			Devices:   s.deviceViews(""),
			Overlay:   s.layout.Overlay(),
		}
		return nil
	})
	if err != nil {
		writeSpaceError(w, err)
		return
	}
	view.Accessories = s.provisioner.Table().Entries()
	writeJSON(w, http.StatusOK, view)
}

// handleListDevices returns all devices in collection order.
//
// Query parameters:
//   - kind: only devices of this kind (case-insensitive)
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	var kind space.Kind
	if q := r.URL.Query().Get("kind"); q != "" {
		k, err := space.ParseKind(q)
		if err != nil {
			writeSpaceError(w, err)
			return
		}
		kind = k
	}

	var devices []DeviceView
	if err := s.do(r, func() error {
		devices = s.deviceViews(kind)
		return nil
	}); err != nil {
		writeSpaceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var view DeviceView
	if err := s.do(r, func() (err error) {
		view, err = s.deviceView(id)
		return err
	}); err != nil {
		writeSpaceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// AddDeviceRequest is the body of POST /space/devices.
type AddDeviceRequest struct {
	Kind string `json:"kind"`
}

// handleAddDevice creates a device of the requested kind.
func (s *Server) handleAddDevice(w http.ResponseWriter, r *http.Request) {
	var req AddDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	kind, err := space.ParseKind(req.Kind)
	if err != nil {
		writeSpaceError(w, err)
		return
	}

	var view DeviceView
	if err := s.do(r, func() error {
		d, err := s.space.AddDevice(kind)
		if err != nil {
			return err
		}
		view = newDeviceView(d, s.space.IndexOf(d.ID))
		return nil
	}); err != nil {
		writeSpaceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// handleEditLabel applies label field edits. Fields are applied in name
// order and the first failure stops the rest.
func (s *Server) handleEditLabel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var fields map[string]string
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(fields) == 0 {
		writeBadRequest(w, "no label fields provided")
		return
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)

	var view DeviceView
	if err := s.do(r, func() (err error) {
		for _, name := range names {
			if err := s.space.EditLabel(id, name, fields[name]); err != nil {
				return err
			}
		}
		view, err = s.deviceView(id)
		return err
	}); err != nil {
		writeSpaceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleDeleteDevice removes a device and any accessory entry pointing at it.
// Accessory indexes behind the deleted device shift, so the table is saved
// whenever it has entries.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var removed bool
	if err := s.do(r, func() error {
		if err := s.space.DeleteDevice(id); err != nil {
			return err
		}
		removed = s.provisioner.DeviceDeleted(id)
		return nil
	}); err != nil {
		writeSpaceError(w, err)
		return
	}

	if removed || s.provisioner.Table().Len() > 0 {
		if err := s.provisioner.Save(r.Context()); err != nil {
			s.logger.Warn("saving accessories after delete failed", "id", id, "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// StatusRequest is the body of PUT /space/devices/{id}/status.
type StatusRequest struct {
	Status  string   `json:"status"`
	Reading *float64 `json:"reading,omitempty"`
}

// handleChangeStatus switches a device ON or OFF.
func (s *Server) handleChangeStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var view DeviceView
	if err := s.do(r, func() (err error) {
		if err := s.space.ChangeStatus(id, space.Status(req.Status), req.Reading); err != nil {
			return err
		}
		view, err = s.deviceView(id)
		return err
	}); err != nil {
		writeSpaceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ZoomRequest is the body of PUT /space/devices/{id}/zoom.
type ZoomRequest struct {
	Level float64 `json:"level"`
}

// handleSetZoom forwards a zoom level to connected browsers.
func (s *Server) handleSetZoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ZoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.do(r, func() error {
		return s.space.SetZoom(id, req.Level)
	}); err != nil {
		writeSpaceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ZoomView{DeviceID: id, Level: req.Level})
}

// handleToggleLabel shows or hides a device's label panel.
func (s *Server) handleToggleLabel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var visible bool
	if err := s.do(r, func() (err error) {
		visible, err = s.space.ToggleLabel(id)
		return err
	}); err != nil {
		writeSpaceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "visible": visible})
}

// DragRequest is the body of POST /space/devices/{id}/drag.
type DragRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// handleDragMove shifts a device by a pointer delta.
func (s *Server) handleDragMove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req DragRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var view DeviceView
	if err := s.do(r, func() (err error) {
		if err := s.layout.DragMove(id, req.DX, req.DY); err != nil {
			return err
		}
		view, err = s.deviceView(id)
		return err
	}); err != nil {
		writeSpaceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleDragEnd commits the dragged offset as the device's position.
func (s *Server) handleDragEnd(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var view DeviceView
	if err := s.do(r, func() (err error) {
		if err := s.layout.DragEnd(id); err != nil {
			return err
		}
		view, err = s.deviceView(id)
		return err
	}); err != nil {
		writeSpaceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ContainerRequest is the body of PUT /space/container.
type ContainerRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// handleResizeContainer schedules a debounced relayout. The new size is
// applied asynchronously, so the response is 202.
func (s *Server) handleResizeContainer(w http.ResponseWriter, r *http.Request) {
	var req ContainerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Width < 0 || req.Height < 0 {
		writeBadRequest(w, "width and height must not be negative")
		return
	}

	s.layout.Resize(req.Width, req.Height)
	writeJSON(w, http.StatusAccepted, req)
}

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/tuya-ce-core/internal/device"
	"github.com/nerrad567/tuya-ce-core/internal/platform"
)

// handleListDevices returns all known devices, with optional query filters.
//
// Query parameters:
//   - category: filter by Tuya category code (kg, wsdcg, etc.)
//   - online: filter by connectivity (true, false)
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")

	var online *bool
	if v := r.URL.Query().Get("online"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeBadRequest(w, "online must be true or false")
			return
		}
		online = &b
	}

	all := s.registry.ListDevices()
	devices := make([]device.Device, 0, len(all))
	for _, d := range all {
		if category != "" && d.Category != category {
			continue
		}
		if online != nil && d.Online != *online {
			continue
		}
		devices = append(devices, d)
	}

	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleDeviceStats returns registry statistics.
func (s *Server) handleDeviceStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.GetStats())
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	dev, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

// handleDeviceEntities returns the entities the current catalog maps the
// device onto, next to the entity ids already published for it.
func (s *Server) handleDeviceEntities(w http.ResponseWriter, r *http.Request) {
	dev, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}

	entities := []platform.Entity{}
	if category, found := s.catalog.Snapshot().Devices.Category(dev.Category); found {
		if mapped := s.mapper.Entities(&dev.DeviceDescriptor, category); mapped != nil {
			entities = mapped
		}
	}

	published, err := s.registry.Entities(r.Context(), dev.ID)
	if err != nil {
		s.logger.Error("listing published entities failed", "device_id", dev.ID, "error", err)
		writeInternalError(w, "failed to list entities")
		return
	}
	if published == nil {
		published = []device.Entity{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": dev.ID,
		"category":  dev.Category,
		"entities":  entities,
		"published": published,
	})
}

func (s *Server) lookupDevice(w http.ResponseWriter, r *http.Request) (*device.Device, bool) {
	id := chi.URLParam(r, "id")

	dev, err := s.registry.GetDevice(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return nil, false
		}
		writeInternalError(w, "failed to get device")
		return nil, false
	}
	return dev, true
}

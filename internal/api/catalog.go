package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/tuya-ce-core/internal/activity"
	"github.com/nerrad567/tuya-ce-core/internal/catalog"
)

// handleGetCatalog summarises the loaded catalog.
func (s *Server) handleGetCatalog(w http.ResponseWriter, _ *http.Request) {
	snap := s.catalog.Snapshot()

	writeJSON(w, http.StatusOK, map[string]any{
		"loaded":         snap.Loaded(),
		"loaded_at":      snap.LoadedAt,
		"sources":        snap.Sources,
		"categories":     snap.Devices.Categories(),
		"countries":      len(snap.Countries),
		"device_classes": snap.Units.DeviceClasses(),
	})
}

// handleListCountries returns the Tuya cloud regions.
//
// Query parameters:
//   - code: return only the country with this calling code
func (s *Server) handleListCountries(w http.ResponseWriter, r *http.Request) {
	snap := s.catalog.Snapshot()

	if code := r.URL.Query().Get("code"); code != "" {
		country, ok := snap.CountryByCode(code)
		if !ok {
			writeNotFound(w, "country not found")
			return
		}
		writeJSON(w, http.StatusOK, country)
		return
	}

	countries := snap.Countries
	if countries == nil {
		countries = []catalog.Country{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"countries": countries, "count": len(countries)})
}

// handleGetCategory returns the capability table entry of one category.
func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(chi.URLParam(r, "category"))

	entry, ok := s.catalog.Snapshot().Devices.Category(name)
	if !ok {
		writeNotFound(w, "category not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"category": name, "domains": entry})
}

// handleRefreshCatalog forces a remote fetch of every catalog document.
// A failed refresh leaves the previous catalog in place.
func (s *Server) handleRefreshCatalog(w http.ResponseWriter, r *http.Request) {
	var err error
	if s.bridge != nil {
		err = s.bridge.RefreshCatalog(r.Context())
	} else {
		err = s.catalog.Load(r.Context(), true)
	}

	snap := s.catalog.Snapshot()
	s.activity.Record(r.Context(), activity.CatalogRefresh(activity.SourceAPI, actor(r), len(snap.Devices), len(snap.Countries), err))

	if err != nil {
		s.logger.Warn("catalog refresh failed", "error", err, "request_id", r.Context().Value(ctxKeyRequestID))
		switch {
		case errors.Is(err, catalog.ErrFetchFailed), errors.Is(err, catalog.ErrInvalidDocument):
			writeError(w, http.StatusBadGateway, ErrCodeCatalogRefresh, err.Error())
		default:
			writeInternalError(w, "failed to refresh catalog")
		}
		return
	}

	s.logger.Info("catalog refreshed", "subject", actor(r), "categories", len(snap.Devices))
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"loaded_at":  snap.LoadedAt,
		"sources":    snap.Sources,
		"categories": len(snap.Devices),
	})
}

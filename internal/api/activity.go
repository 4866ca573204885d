package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/tuya-ce-core/internal/activity"
)

// handleListActivity returns the activity trail, newest first.
//
// Query parameters:
//   - action: catalog_refresh, analysis, device_registered, device_removed
//   - subject, subject_id: restrict to one catalog, report or device
//   - limit (1-200, default 50), offset
func (s *Server) handleListActivity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := activity.Filter{
		Action:    q.Get("action"),
		Subject:   q.Get("subject"),
		SubjectID: q.Get("subject_id"),
	}

	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, name+" must be a non-negative integer")
			return
		}
		*dst = n
	}

	page, err := s.activity.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing activity failed", "error", err)
		writeInternalError(w, "failed to list activity")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

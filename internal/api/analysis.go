package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/tuya-ce-core/internal/activity"
	"github.com/nerrad567/tuya-ce-core/internal/gapanalysis"
	"github.com/nerrad567/tuya-ce-core/internal/tuya"
)

// maxReportListLimit caps the limit query parameter.
const maxReportListLimit = 500

// handleListReports returns stored gap report summaries, newest first.
//
// Query parameters:
//   - limit: maximum number of reports (default 50, max 500)
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxReportListLimit {
			writeBadRequest(w, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	reports := []gapanalysis.Summary{}
	if s.reports != nil {
		list, err := s.reports.List(r.Context(), limit)
		if err != nil {
			s.logger.Error("listing reports failed", "error", err)
			writeInternalError(w, "failed to list reports")
			return
		}
		if list != nil {
			reports = list
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"reports": reports, "count": len(reports)})
}

// handleGetReport returns one stored gap report.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		writeNotFound(w, "report not found")
		return
	}

	report, err := s.reports.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, gapanalysis.ErrReportNotFound) {
			writeNotFound(w, "report not found")
			return
		}
		writeInternalError(w, "failed to get report")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleAnalyze classifies the devices of a diagnostics dump and reports
// what the capability table lacks.
//
// Query parameters:
//   - match_components: annotate gaps with table capabilities sharing their key
//   - save: store the report (default true when a report store is configured)
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	analyzer := s.analyzer
	if v := r.URL.Query().Get("match_components"); v != "" {
		match, err := strconv.ParseBool(v)
		if err != nil {
			writeBadRequest(w, "match_components must be true or false")
			return
		}
		analyzer = analyzer.WithMatchComponents(match)
	}

	save := s.reports != nil
	if v := r.URL.Query().Get("save"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeBadRequest(w, "save must be true or false")
			return
		}
		save = save && b
	}

	diag, err := tuya.ParseDiagnostics(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeInvalidDiagnostics, "diagnostics document too large")
		case errors.Is(err, tuya.ErrInvalidDiagnostics):
			writeError(w, http.StatusBadRequest, ErrCodeInvalidDiagnostics, err.Error())
		default:
			writeBadRequest(w, "failed to read diagnostics document")
		}
		return
	}

	source := activity.SourceAPI
	if subject := actor(r); subject != "" {
		source += ":" + subject
	}

	report := analyzer.AnalyzeDiagnostics(diag, s.catalog.Snapshot().Devices, source)

	if save {
		if err := s.reports.Save(r.Context(), report); err != nil {
			s.logger.Error("saving report failed", "report_id", report.ID, "error", err)
			writeInternalError(w, "failed to save report")
			return
		}
	}

	s.activity.Record(r.Context(), activity.Entry{
		Action:    activity.ActionAnalysis,
		Subject:   activity.SubjectReport,
		SubjectID: report.ID,
		Actor:     actor(r),
		Source:    activity.SourceAPI,
		Details: map[string]any{
			"devices": report.DeviceCount,
			"gaps":    report.GapCount(),
			"saved":   save,
		},
	})

	writeJSON(w, http.StatusCreated, report)
}

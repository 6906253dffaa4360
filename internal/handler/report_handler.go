package handler

import (
	"net/http"

	"orderdesk/internal/models"
	"orderdesk/internal/service"
	"orderdesk/pkg/logger"
)

type ReportHandler struct {
	reportService service.ReportService
	logger        *logger.Logger
}

func NewReportHandler(reportService service.ReportService, log *logger.Logger) *ReportHandler {
	return &ReportHandler{reportService: reportService, logger: log.WithComponent("report_handler")}
}

// GetSummary handles GET /api/v1/restaurants/{slug}/reports/summary
func (h *ReportHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	startDate, endDate, err := parseDateRange(r)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.reportService.Summary(r.Context(), r.PathValue("slug"), models.ReportFilters{
		StartDate: startDate,
		EndDate:   endDate,
		Limit:     limit,
	})
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, report)
}

package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"quality-backend/internal/email"
	"quality-backend/internal/service"
	"quality-backend/pkg/validator"
)

// EmailReportRequest represents the request body for mailing a report
type EmailReportRequest struct {
	From       string   `json:"from"` // YYYY-MM-DD
	To         string   `json:"to"`   // YYYY-MM-DD
	Recipients []string `json:"recipients"`
}

// ReportHandler handles period report and dashboard requests
type ReportHandler struct {
	reportService *service.ReportService
	emailService  *email.Service
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportService *service.ReportService, emailService *email.Service) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		emailService:  emailService,
	}
}

// parsePeriod reads the from/to dates. The to date is inclusive and
// extended to the end of its day.
func parsePeriod(fromStr, toStr string) (time.Time, time.Time, error) {
	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to.Add(24*time.Hour - time.Second), nil
}

// GetPeriodReport aggregates revisions created in a date range
// @Summary Get period report
// @Description Aggregate totals, approval rate, work time and groupings over a period
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param from query string true "Start date (YYYY-MM-DD)"
// @Param to query string true "End date, inclusive (YYYY-MM-DD)"
// @Success 200 {object} models.PeriodReport
// @Failure 400 {object} map[string]string "Invalid date range"
// @Router /quality/reports [get]
func (h *ReportHandler) GetPeriodReport(w http.ResponseWriter, r *http.Request) {
	from, to, err := parsePeriod(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		http.Error(w, "Invalid date range (expected YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	report, err := h.reportService.BuildPeriodReport(from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	JSONResponse(w, report)
}

// EmailPeriodReport builds a period report and mails it
// @Summary Email period report
// @Tags Reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body EmailReportRequest true "Period and recipients"
// @Success 200 {object} map[string]string "Report sent"
// @Failure 400 {object} map[string]string "Invalid input"
// @Router /quality/reports/email [post]
func (h *ReportHandler) EmailPeriodReport(w http.ResponseWriter, r *http.Request) {
	var req EmailReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Recipients) == 0 {
		http.Error(w, "At least one recipient is required", http.StatusBadRequest)
		return
	}
	for i, recipient := range req.Recipients {
		req.Recipients[i] = validator.SanitizeEmail(recipient)
		if err := validator.ValidateEmail(req.Recipients[i]); err != nil {
			http.Error(w, "Invalid recipient: "+recipient, http.StatusBadRequest)
			return
		}
	}

	from, to, err := parsePeriod(req.From, req.To)
	if err != nil {
		http.Error(w, "Invalid date range (expected YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	report, err := h.reportService.BuildPeriodReport(from, to)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.emailService.SendPeriodReport(req.Recipients, report); err != nil {
		http.Error(w, "Failed to send report email", http.StatusInternalServerError)
		return
	}

	JSONResponse(w, map[string]string{"message": "Report sent"})
}

// GetDashboard returns the live quality overview
// @Summary Get dashboard stats
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.DashboardStats
// @Router /quality/dashboard [get]
func (h *ReportHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reportService.DashboardStats()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	JSONResponse(w, stats)
}

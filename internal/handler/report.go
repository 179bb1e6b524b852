package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/streetwatch/patrol-log/internal/aggregate"
	"github.com/streetwatch/patrol-log/internal/report"
	"github.com/streetwatch/patrol-log/internal/service"
)

// ReportHandler serves date-range report summaries and the CSV/HTML
// exports. It fetches the caller's full patrol history once per request
// and hands it to the pure aggregation and formatting code.
type ReportHandler struct {
	Svc *service.PatrolService
}

func NewReportHandler(svc *service.PatrolService) *ReportHandler {
	if svc == nil {
		panic("nil service passed to NewReportHandler")
	}
	return &ReportHandler{Svc: svc}
}

// Summary handles GET /v1/reports?period=...
func (h *ReportHandler) Summary(c echo.Context) error {
	sess, err := sessionFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	periodName := c.QueryParam("period")
	if periodName == "" {
		periodName = report.PeriodLastMonth
	}
	period, err := report.ResolvePeriod(periodName, time.Now().UTC())
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid report period"})
	}
	ctx, cancel := opCtx(c)
	defer cancel()
	patrols, err := h.Svc.List(ctx, sess)
	if err != nil {
		return writeServiceError(c, err)
	}
	res := aggregate.Aggregate(patrols, period.Range)
	return c.JSON(http.StatusOK, echo.Map{
		"title":              period.Title,
		"date_range":         period.DateRangeLabel,
		"total_patrols":      res.Patrols,
		"statistics":         res.Totals,
		"contact_statistics": res.Contacts,
		"no_data":            res.NoData,
	})
}

// Export handles GET /v1/reports/export?period=...&format=csv|html. The
// response is a download with the filename derived from the report title.
func (h *ReportHandler) Export(c echo.Context) error {
	sess, err := sessionFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	periodName := c.QueryParam("period")
	if periodName == "" {
		periodName = report.PeriodLastMonth
	}
	period, err := report.ResolvePeriod(periodName, time.Now().UTC())
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid report period"})
	}
	format := c.QueryParam("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "html" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "format must be csv or html"})
	}

	ctx, cancel := opCtx(c)
	defer cancel()
	patrols, err := h.Svc.List(ctx, sess)
	if err != nil {
		return writeServiceError(c, err)
	}
	res := aggregate.Aggregate(patrols, period.Range)
	filtered := aggregate.Filter(patrols, period.Range)

	switch format {
	case "html":
		doc, err := report.BuildHTML(res, filtered, period.Title, period.DateRangeLabel)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "render report failed"})
		}
		c.Response().Header().Set(echo.HeaderContentDisposition,
			`attachment; filename="`+report.ExportFilename(period.Title, "html")+`"`)
		return c.Blob(http.StatusOK, "text/html; charset=utf-8", []byte(doc))
	default:
		doc := report.BuildCSV(res, filtered, period.Title, period.DateRangeLabel)
		c.Response().Header().Set(echo.HeaderContentDisposition,
			`attachment; filename="`+report.ExportFilename(period.Title, "csv")+`"`)
		return c.Blob(http.StatusOK, "text/csv; charset=utf-8", []byte(doc))
	}
}

package main

import (
	"net/http"
	"strconv"
	"time"

	"camrent/internal/domain/reports"
)

const dashboardCacheKey = "reports:dashboard"
const dashboardCacheTTL = time.Minute

// dashboardHandler godoc
//
//	@Summary		Back-office dashboard
//	@Description	Headline numbers: customers, bookings by status, revenue, outstanding amounts and items currently out. Cached for one minute.
//	@Tags			staff
//	@Produce		json
//	@Success		200	{object}	reports.Dashboard
//	@Failure		500	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/staff/dashboard [get]
func (app *application) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	var cached reports.Dashboard
	if hit, err := app.cache.Get(r.Context(), dashboardCacheKey, &cached); err == nil && hit {
		if err := app.jsonResponse(w, http.StatusOK, cached); err != nil {
			app.internalServerError(w, r, err)
		}
		return
	}

	dashboard, err := app.store.Reports.GetDashboard(r.Context())
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.cache.Set(r.Context(), dashboardCacheKey, dashboard, dashboardCacheTTL); err != nil {
		app.logger.Warnw("dashboard cache write failed", "error", err)
	}

	if err := app.jsonResponse(w, http.StatusOK, dashboard); err != nil {
		app.internalServerError(w, r, err)
	}
}

// revenueReportHandler godoc
//
//	@Summary		Revenue by month
//	@Tags			staff
//	@Produce		json
//	@Param			months	query		int	false	"Number of months back (default 12, max 36)"
//	@Success		200		{array}		reports.MonthlyRevenue
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/staff/reports/revenue [get]
func (app *application) revenueReportHandler(w http.ResponseWriter, r *http.Request) {
	months, _ := strconv.Atoi(r.URL.Query().Get("months"))

	rows, err := app.store.Reports.RevenueByMonth(r.Context(), months)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, rows); err != nil {
		app.internalServerError(w, r, err)
	}
}

// lowStockReportHandler godoc
//
//	@Summary		Items running low
//	@Tags			staff
//	@Produce		json
//	@Param			threshold	query		int	false	"Available-quantity threshold (default 2)"
//	@Success		200			{array}		reports.LowStockItem
//	@Failure		500			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/staff/reports/low-stock [get]
func (app *application) lowStockReportHandler(w http.ResponseWriter, r *http.Request) {
	threshold := 2
	if v, err := strconv.Atoi(r.URL.Query().Get("threshold")); err == nil && v >= 0 {
		threshold = v
	}

	rows, err := app.store.Reports.LowStockItems(r.Context(), threshold)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, rows); err != nil {
		app.internalServerError(w, r, err)
	}
}

// topItemsReportHandler godoc
//
//	@Summary		Most booked items
//	@Tags			staff
//	@Produce		json
//	@Param			days	query		int	false	"Window in days (default 90)"
//	@Param			limit	query		int	false	"Number of items (default 10, max 50)"
//	@Success		200		{array}		reports.TopItem
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/staff/reports/top-items [get]
func (app *application) topItemsReportHandler(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	if days <= 0 {
		days = 90
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	since := time.Now().AddDate(0, 0, -days)
	rows, err := app.store.Reports.TopItems(r.Context(), since, limit)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, rows); err != nil {
		app.internalServerError(w, r, err)
	}
}

package handlers

import (
	"net/http"
	"time"

	"sales-ops-api/internal/clock"
	"sales-ops-api/internal/database"
	"sales-ops-api/internal/middleware"
	"sales-ops-api/internal/models"
	"sales-ops-api/internal/scope"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// monthTotals sums net sales and net returns for one representative in
// one calendar month.
func monthTotals(db *gorm.DB, repID uint, year, month int) (float64, float64, error) {
	first := models.NewDate(year, time.Month(month), 1)
	last := models.DateOf(first.AddDate(0, 1, -1))

	var sales, returns float64
	err := db.Model(&models.Sale{}).
		Where("representative_id = ? AND date >= ? AND date <= ?", repID, first, last).
		Select("COALESCE(SUM(net_price), 0)").Scan(&sales).Error
	if err != nil {
		return 0, 0, err
	}
	err = db.Model(&models.Return{}).
		Where("representative_id = ? AND date >= ? AND date <= ?", repID, first, last).
		Select("COALESCE(SUM(net_price), 0)").Scan(&returns).Error
	if err != nil {
		return 0, 0, err
	}
	return sales, returns, nil
}

// ReportSummary handles GET /api/reports/summary — the caller's (or, for
// managers, their scope's) current-month picture: task counts by status,
// net sales, net returns and target completion.
func ReportSummary(c *gin.Context) {
	user := middleware.CurrentUser(c)
	db := database.GetDB()

	sc, err := scope.Resolve(db, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to resolve scope"})
		return
	}

	today := clock.Today()
	year := today.Year()
	month := int(today.Month())
	first := models.NewDate(year, time.Month(month), 1)
	last := models.DateOf(first.AddDate(0, 1, -1))

	taskCounts := gin.H{}
	for _, status := range []models.TaskStatus{
		models.StatusPending, models.StatusRequested, models.StatusInProgress,
		models.StatusCompleted, models.StatusCancelled,
	} {
		var n int64
		q := sc.Filter(db.Model(&models.Task{}), "assigned_to_id").Where("status = ?", status)
		if err := q.Count(&n).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to count tasks"})
			return
		}
		taskCounts[string(status)] = n
	}

	var salesTotal, returnsTotal float64
	err = sc.Filter(db.Model(&models.Sale{}), "representative_id").
		Where("date >= ? AND date <= ?", first, last).
		Select("COALESCE(SUM(net_price), 0)").Scan(&salesTotal).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to sum sales"})
		return
	}
	err = sc.Filter(db.Model(&models.Return{}), "representative_id").
		Where("date >= ? AND date <= ?", first, last).
		Select("COALESCE(SUM(net_price), 0)").Scan(&returnsTotal).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to sum returns"})
		return
	}

	var targetTotal float64
	err = sc.Filter(db.Model(&models.Target{}), "user_id").
		Where("year = ? AND month = ?", year, month).
		Select("COALESCE(SUM(target_amount), 0)").Scan(&targetTotal).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to sum targets"})
		return
	}

	net := salesTotal - returnsTotal
	var completion float64
	if targetTotal > 0 {
		completion = net / targetTotal * 100
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"year":    year,
		"month":   month,
		"tasks":   taskCounts,
		"sales": gin.H{
			"sales_total":   salesTotal,
			"returns_total": returnsTotal,
			"net_total":     net,
		},
		"target": gin.H{
			"target_amount": targetTotal,
			"completion":    completion,
		},
	})
}

// ReportRepresentatives handles GET /api/reports/representatives — a
// per-representative monthly breakdown for admins and department
// managers. Optional year/month override the current month.
func ReportRepresentatives(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if !user.IsAdmin() && !user.IsDepartmentManager() {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "only managers can view this report"})
		return
	}
	db := database.GetDB()

	today := clock.Today()
	year := today.Year()
	month := int(today.Month())
	if raw := c.Query("year"); raw != "" {
		if n, ok := parseUintParam(raw); ok {
			year = int(n)
		}
	}
	if raw := c.Query("month"); raw != "" {
		n, ok := parseUintParam(raw)
		if !ok || n < 1 || n > 12 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "month is invalid"})
			return
		}
		month = int(n)
	}

	sc, err := scope.Resolve(db, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to resolve scope"})
		return
	}
	var reps []models.User
	query := db.Model(&models.User{}).Where("is_active = ?", true)
	if err := sc.Filter(query, "id").Order("id asc").Find(&reps).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to fetch users"})
		return
	}

	rows := make([]gin.H, 0, len(reps))
	for i := range reps {
		rep := &reps[i]
		salesTotal, returnsTotal, err := monthTotals(db, rep.ID, year, month)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to compute totals"})
			return
		}

		var targetAmount float64
		var target models.Target
		if err := db.Where("user_id = ? AND year = ? AND month = ?", rep.ID, year, month).
			First(&target).Error; err == nil {
			targetAmount = target.TargetAmount
		}
		net := salesTotal - returnsTotal
		var completion float64
		if targetAmount > 0 {
			completion = net / targetAmount * 100
		}

		rows = append(rows, gin.H{
			"user_id":             rep.ID,
			"full_name":           rep.FullName(),
			"representative_code": rep.RepresentativeCode,
			"region":              rep.Region,
			"sales_total":         salesTotal,
			"returns_total":       returnsTotal,
			"net_total":           net,
			"target_amount":       targetAmount,
			"completion":          completion,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"year":            year,
		"month":           month,
		"representatives": rows,
	})
}

// ListActivityLogs handles GET /api/activity-logs (admin). Newest first,
// capped at 200, with optional user_id and action filters.
func ListActivityLogs(c *gin.Context) {
	db := database.GetDB()
	query := db.Model(&models.ActivityLog{})

	if raw := c.Query("user_id"); raw != "" {
		id, ok := parseUintParam(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "user_id is invalid"})
			return
		}
		query = query.Where("user_id = ?", id)
	}
	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}

	var logs []models.ActivityLog
	if err := query.Order("created_at desc").Limit(200).Find(&logs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to fetch activity logs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "logs": logs})
}

package handlers

import (
	"net/http"

	"sales-ops-api/internal/clock"
	"sales-ops-api/internal/database"
	"sales-ops-api/internal/middleware"
	"sales-ops-api/internal/models"
	"sales-ops-api/internal/scope"

	"github.com/gin-gonic/gin"
)

// ListTargets handles GET /api/targets. Admins see everyone's targets,
// department managers their members', plain users their own. Optional
// year/month filters.
func ListTargets(c *gin.Context) {
	user := middleware.CurrentUser(c)
	db := database.GetDB()

	sc, err := scope.Resolve(db, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to resolve scope"})
		return
	}
	query := sc.Filter(db.Model(&models.Target{}), "user_id")

	if raw := c.Query("year"); raw != "" {
		n, ok := parseUintParam(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "year is invalid"})
			return
		}
		query = query.Where("year = ?", n)
	}
	if raw := c.Query("month"); raw != "" {
		n, ok := parseUintParam(raw)
		if !ok || n < 1 || n > 12 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "month is invalid"})
			return
		}
		query = query.Where("month = ?", n)
	}

	var targets []models.Target
	if err := query.Order("year desc, month desc, user_id asc").Find(&targets).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to fetch targets"})
		return
	}

	resp := make([]gin.H, 0, len(targets))
	for i := range targets {
		t := &targets[i]
		userName := "-"
		var owner models.User
		if err := db.First(&owner, t.UserID).Error; err == nil {
			userName = owner.FullName()
		}
		resp = append(resp, gin.H{
			"id":            t.ID,
			"user_id":       t.UserID,
			"user_name":     userName,
			"year":          t.Year,
			"month":         t.Month,
			"target_amount": t.TargetAmount,
			"created_at":    t.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "targets": resp})
}

// TargetRequest is the create payload for a monthly target.
type TargetRequest struct {
	UserID       uint    `json:"user_id" binding:"required"`
	Year         int     `json:"year" binding:"required"`
	Month        int     `json:"month" binding:"required"`
	TargetAmount float64 `json:"target_amount"`
}

// CreateTarget handles POST /api/targets. Admins may target anyone;
// a department manager only their own members. One target per user per
// month: a second create for the same month is rejected.
func CreateTarget(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if !user.IsAdmin() && !user.IsDepartmentManager() {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "only managers can set targets"})
		return
	}

	var req TargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if req.Month < 1 || req.Month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "month is invalid"})
		return
	}
	if req.TargetAmount < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "target amount cannot be negative"})
		return
	}

	db := database.GetDB()
	sc, err := scope.Resolve(db, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to resolve scope"})
		return
	}
	if !sc.Contains(req.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "user is outside your scope"})
		return
	}
	var target models.User
	if err := db.First(&target, req.UserID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "user not found"})
		return
	}

	var count int64
	db.Model(&models.Target{}).
		Where("user_id = ? AND year = ? AND month = ?", req.UserID, req.Year, req.Month).
		Count(&count)
	if count > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "target already defined for this month"})
		return
	}

	row := models.Target{
		UserID:       req.UserID,
		Year:         req.Year,
		Month:        req.Month,
		TargetAmount: req.TargetAmount,
	}
	if err := db.Create(&row).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to create target"})
		return
	}
	logActivity(c, "target_create", "target created for user "+target.Username)
	c.JSON(http.StatusCreated, gin.H{"success": true, "target_id": row.ID})
}

// UpdateTargetRequest changes the amount of an existing target.
type UpdateTargetRequest struct {
	TargetAmount *float64 `json:"target_amount" binding:"required"`
}

// UpdateTarget handles PUT /api/targets/:id
func UpdateTarget(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if !user.IsAdmin() && !user.IsDepartmentManager() {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "only managers can set targets"})
		return
	}
	targetID, ok := parseUintParam(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "target id is invalid"})
		return
	}

	db := database.GetDB()
	var row models.Target
	if err := db.First(&row, targetID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "target not found"})
		return
	}
	sc, err := scope.Resolve(db, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to resolve scope"})
		return
	}
	if !sc.Contains(row.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "target is outside your scope"})
		return
	}

	var req UpdateTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "target_amount is required"})
		return
	}
	if *req.TargetAmount < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "target amount cannot be negative"})
		return
	}

	if err := db.Model(&row).Update("target_amount", *req.TargetAmount).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to update target"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteTarget handles DELETE /api/targets/:id
func DeleteTarget(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if !user.IsAdmin() && !user.IsDepartmentManager() {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "only managers can set targets"})
		return
	}
	targetID, ok := parseUintParam(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "target id is invalid"})
		return
	}

	db := database.GetDB()
	var row models.Target
	if err := db.First(&row, targetID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "target not found"})
		return
	}
	sc, err := scope.Resolve(db, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to resolve scope"})
		return
	}
	if !sc.Contains(row.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "target is outside your scope"})
		return
	}

	if err := db.Delete(&row).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to delete target"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RepresentativeTarget handles GET /api/targets/representative/:id —
// the month's target for one representative plus their realized sales,
// returns and completion percentage. Defaults to the current month.
func RepresentativeTarget(c *gin.Context) {
	user := middleware.CurrentUser(c)
	repID, ok := parseUintParam(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "user id is invalid"})
		return
	}

	db := database.GetDB()
	sc, err := scope.Resolve(db, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to resolve scope"})
		return
	}
	if !sc.Contains(repID) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "user is outside your scope"})
		return
	}

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

	var targetAmount float64
	var row models.Target
	if err := db.Where("user_id = ? AND year = ? AND month = ?", repID, year, month).
		First(&row).Error; err == nil {
		targetAmount = row.TargetAmount
	}

	salesTotal, returnsTotal, err := monthTotals(db, repID, year, month)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to compute totals"})
		return
	}

	net := salesTotal - returnsTotal
	var completion float64
	if targetAmount > 0 {
		completion = net / targetAmount * 100
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"user_id":       repID,
		"year":          year,
		"month":         month,
		"target_amount": targetAmount,
		"sales_total":   salesTotal,
		"returns_total": returnsTotal,
		"net_total":     net,
		"completion":    completion,
	})
}

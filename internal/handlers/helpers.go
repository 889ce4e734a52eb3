package handlers

import (
	"strconv"

	"sales-ops-api/internal/database"
	"sales-ops-api/internal/middleware"
	"sales-ops-api/internal/models"

	"github.com/gin-gonic/gin"
)

// logActivity records an audit row for the authenticated user.
// Best-effort: audit must never fail the request.
func logActivity(c *gin.Context, action, description string) {
	user := middleware.CurrentUser(c)
	if user == nil {
		return
	}
	entry := models.ActivityLog{
		UserID:      user.ID,
		Action:      action,
		Description: description,
		IPAddress:   c.ClientIP(),
	}
	if err := database.GetDB().Create(&entry).Error; err != nil {
		middleware.Logger(c).WithError(err).Warn("failed to write activity log")
	}
}

// parseUintParam parses a positive integer ID from a path or query
// parameter.
func parseUintParam(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// parseOptionalDate parses a YYYY-MM-DD field that may be absent.
// Returns (nil, false) on a malformed value.
func parseOptionalDate(s string) (*models.Date, bool) {
	if s == "" {
		return nil, true
	}
	d, err := models.ParseDate(s)
	if err != nil {
		return nil, false
	}
	return &d, true
}

package handlers

import (
	"net/http"

	"sales-ops-api/internal/clock"
	"sales-ops-api/internal/database"
	"sales-ops-api/internal/middleware"
	"sales-ops-api/internal/models"
	"sales-ops-api/internal/notify"

	"github.com/gin-gonic/gin"
)

// ListNotifications handles GET /api/notifications — the caller's own
// notifications, newest first, capped at 50. ?unread=true filters to
// unread rows.
func ListNotifications(c *gin.Context) {
	user := middleware.CurrentUser(c)
	db := database.GetDB()

	query := db.Where("to_user_id = ?", user.ID)
	if c.Query("unread") == "true" {
		query = query.Where("is_read = ?", false)
	}

	var notifications []models.Notification
	if err := query.Order("created_at desc").Limit(50).Find(&notifications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to fetch notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "notifications": notifications})
}

// UnreadCount handles GET /api/notifications/unread-count. The count is
// served from a short-lived cache; fan-out and mark-read invalidate it.
func UnreadCount(c *gin.Context) {
	user := middleware.CurrentUser(c)

	if count, ok := notify.UnreadCounts.Get(user.ID); ok {
		c.JSON(http.StatusOK, gin.H{"success": true, "unread_count": count})
		return
	}

	var count int64
	err := database.GetDB().Model(&models.Notification{}).
		Where("to_user_id = ? AND is_read = ?", user.ID, false).
		Count(&count).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to count notifications"})
		return
	}
	notify.UnreadCounts.Set(user.ID, count, notify.UnreadCountTTL)
	c.JSON(http.StatusOK, gin.H{"success": true, "unread_count": count})
}

// MarkNotificationRead handles POST /api/notifications/:id/read.
//
// Idempotent: marking an already-read notification succeeds without a
// second read receipt. Only the first transition sets read_at and fans
// out to the viewer's manager and the admins.
func MarkNotificationRead(c *gin.Context) {
	user := middleware.CurrentUser(c)
	notifID, ok := parseUintParam(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "notification id is invalid"})
		return
	}

	db := database.GetDB()
	var notif models.Notification
	if err := db.First(&notif, notifID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "notification not found"})
		return
	}
	if notif.ToUserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "this notification is not yours"})
		return
	}

	if notif.IsRead {
		c.JSON(http.StatusOK, gin.H{"success": true, "already_read": true})
		return
	}

	now := clock.Now()
	updates := map[string]any{"is_read": true, "read_at": now}
	if err := db.Model(&notif).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to mark notification read"})
		return
	}
	notif.IsRead = true
	notif.ReadAt = &now
	notify.UnreadCounts.Delete(user.ID)

	notify.NotificationViewed(db, &notif, user)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

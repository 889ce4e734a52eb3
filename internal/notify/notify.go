// Package notify implements notification fan-out: given a
// state-changing action, it computes the recipient set and persists one
// notification row per recipient. Fan-out runs after the primary
// mutation has committed and is best-effort: failures are logged, never
// surfaced, and never roll back the triggering write.
package notify

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"sales-ops-api/internal/cache"
	"sales-ops-api/internal/models"
	"sales-ops-api/internal/realtime"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TaskAction identifies a state-changing task event.
type TaskAction string

const (
	ActionCreate  TaskAction = "create"
	ActionApprove TaskAction = "approve"
	ActionDeliver TaskAction = "deliver"
	ActionComment TaskAction = "comment"
)

// UnreadCounts caches per-user unread notification counts for the
// unread-count endpoint. Fan-out and mark-read invalidate entries.
var UnreadCounts = cache.New[uint, int64]()

// UnreadCountTTL bounds staleness when an invalidation is missed.
const UnreadCountTTL = 30 * time.Second

// Recipients computes the recipient set of a task event:
//   - create: the assignee (if any)
//   - approve/deliver/comment: the task's creator
//
// plus, for every action, the department's manager and all admins.
// The set is deduplicated and the actor is always excluded: a principal
// never receives a notification generated by their own action.
func Recipients(db *gorm.DB, task *models.Task, action TaskAction, actor *models.User) ([]uint, error) {
	set := make(map[uint]struct{})

	switch action {
	case ActionCreate:
		if task.AssignedToID != nil {
			set[*task.AssignedToID] = struct{}{}
		}
	default:
		set[task.CreatedByID] = struct{}{}
	}

	if task.DepartmentID != nil {
		dmID, err := departmentManagerID(db, *task.DepartmentID)
		if err != nil {
			return nil, err
		}
		if dmID != 0 {
			set[dmID] = struct{}{}
		}
	}

	adminIDs, err := adminIDs(db)
	if err != nil {
		return nil, err
	}
	for _, id := range adminIDs {
		set[id] = struct{}{}
	}

	delete(set, actor.ID)
	return sortedIDs(set), nil
}

// TaskEvent persists one notification per recipient for the given
// action and pushes a realtime event to each. Returns the persisted
// rows; nil when fan-out failed.
func TaskEvent(db *gorm.DB, task *models.Task, action TaskAction, actor *models.User) []models.Notification {
	recipients, err := Recipients(db, task, action, actor)
	if err != nil {
		logrus.WithError(err).WithField("task_id", task.ID).Warn("notification fan-out: recipient lookup failed")
		return nil
	}
	if len(recipients) == 0 {
		return nil
	}

	notifs := make([]models.Notification, 0, len(recipients))
	for _, uid := range recipients {
		title, message := taskEventText(task, action, actor, uid)
		notifs = append(notifs, models.Notification{
			ToUserID:    uid,
			CreatedByID: &actor.ID,
			Title:       title,
			Message:     message,
			URL:         "/tasks",
			EntityType:  "task",
			EntityID:    &task.ID,
		})
	}
	return persist(db, notifs)
}

// NotificationViewed emits the read-receipt fan-out: the viewer's own
// department manager and all admins, excluding the viewer.
func NotificationViewed(db *gorm.DB, notif *models.Notification, viewer *models.User) []models.Notification {
	set := make(map[uint]struct{})

	if viewer.DepartmentID != nil {
		dmID, err := departmentManagerID(db, *viewer.DepartmentID)
		if err != nil {
			logrus.WithError(err).Warn("read-receipt fan-out: manager lookup failed")
			return nil
		}
		if dmID != 0 {
			set[dmID] = struct{}{}
		}
	}
	ids, err := adminIDs(db)
	if err != nil {
		logrus.WithError(err).Warn("read-receipt fan-out: admin lookup failed")
		return nil
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	delete(set, viewer.ID)
	if len(set) == 0 {
		return nil
	}

	message := fmt.Sprintf("%s viewed a notification.", viewer.FullName())
	if notif.EntityType == "task" && notif.EntityID != nil {
		message = fmt.Sprintf("%s viewed a task notification (ID: %d).", viewer.FullName(), *notif.EntityID)
	}
	url := notif.URL
	if url == "" {
		url = "/tasks"
	}

	notifs := make([]models.Notification, 0, len(set))
	for _, uid := range sortedIDs(set) {
		notifs = append(notifs, models.Notification{
			ToUserID:    uid,
			CreatedByID: &viewer.ID,
			Title:       "Notification Viewed",
			Message:     message,
			URL:         url,
			EntityType:  notif.EntityType,
			EntityID:    notif.EntityID,
		})
	}
	return persist(db, notifs)
}

func persist(db *gorm.DB, notifs []models.Notification) []models.Notification {
	if err := db.Create(&notifs).Error; err != nil {
		logrus.WithError(err).Warn("notification fan-out: persist failed")
		return nil
	}
	hub := realtime.GetHub()
	for i := range notifs {
		UnreadCounts.Delete(notifs[i].ToUserID)
		hub.BroadcastEvent(notifs[i].ToUserID, map[string]any{
			"type":            "notification",
			"notification_id": notifs[i].ID,
			"title":           notifs[i].Title,
			"entity_type":     notifs[i].EntityType,
			"entity_id":       notifs[i].EntityID,
		})
	}
	return notifs
}

func taskEventText(task *models.Task, action TaskAction, actor *models.User, recipient uint) (string, string) {
	switch action {
	case ActionCreate:
		if task.AssignedToID != nil && *task.AssignedToID == recipient {
			return "New Task", fmt.Sprintf("You have been assigned a new task: %s", task.Title)
		}
		return "Task Activity", fmt.Sprintf("%s created a task: %s", actor.FullName(), task.Title)
	case ActionApprove:
		return "Task Approved", fmt.Sprintf("%s approved a task: %s", actor.FullName(), task.Title)
	case ActionDeliver:
		return "Task Delivered", fmt.Sprintf("%s delivered a task: %s", actor.FullName(), task.Title)
	case ActionComment:
		return "Task Comment", fmt.Sprintf("%s commented on a task: %s", actor.FullName(), task.Title)
	}
	return "Task Activity", fmt.Sprintf("%s updated a task: %s", actor.FullName(), task.Title)
}

func departmentManagerID(db *gorm.DB, departmentID uint) (uint, error) {
	var dm models.User
	err := db.Where("role = ? AND department_id = ?", models.RoleDepartmentManager, departmentID).
		First(&dm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return dm.ID, nil
}

func adminIDs(db *gorm.DB) ([]uint, error) {
	var ids []uint
	err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Pluck("id", &ids).Error
	return ids, err
}

func sortedIDs(set map[uint]struct{}) []uint {
	ids := make([]uint, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

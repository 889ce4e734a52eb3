package handlers

import (
	"net/http"
	"strings"

	"sales-ops-api/internal/clock"
	"sales-ops-api/internal/database"
	"sales-ops-api/internal/middleware"
	"sales-ops-api/internal/models"
	"sales-ops-api/internal/notify"
	"sales-ops-api/internal/scope"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ListTasks handles GET /api/tasks
//
// Visibility follows the caller's scope: admins see everything, a
// department manager sees their department's tasks plus anything they
// created or were assigned, a plain user sees only tasks they created
// or were assigned. Filters: status (repeatable or comma-separated),
// assigned_to_id, start_date/end_date (on due_date).
func ListTasks(c *gin.Context) {
	user := middleware.CurrentUser(c)
	db := database.GetDB()

	query := db.Model(&models.Task{})
	switch {
	case user.IsAdmin():
	case user.IsDepartmentManager():
		if user.DepartmentID != nil {
			query = query.Where(
				"department_id = ? OR assigned_to_id = ? OR created_by_id = ?",
				*user.DepartmentID, user.ID, user.ID,
			)
		} else {
			query = query.Where("assigned_to_id = ? OR created_by_id = ?", user.ID, user.ID)
		}
	default:
		query = query.Where("assigned_to_id = ? OR created_by_id = ?", user.ID, user.ID)
	}

	statuses := c.QueryArray("status")
	if len(statuses) == 1 && strings.Contains(statuses[0], ",") {
		statuses = strings.Split(statuses[0], ",")
	}
	var cleaned []models.TaskStatus
	for _, s := range statuses {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		st := models.TaskStatus(s)
		if !st.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unknown status: " + s})
			return
		}
		cleaned = append(cleaned, st)
	}
	if len(cleaned) > 0 {
		query = query.Where("status IN ?", cleaned)
	}

	if raw := c.Query("assigned_to_id"); raw != "" {
		id, ok := parseUintParam(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "assigned_to_id is invalid"})
			return
		}
		query = query.Where("assigned_to_id = ?", id)
	}
	if raw := c.Query("start_date"); raw != "" {
		d, err := models.ParseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "start_date is invalid"})
			return
		}
		query = query.Where("due_date IS NULL OR due_date >= ?", d)
	}
	if raw := c.Query("end_date"); raw != "" {
		d, err := models.ParseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "end_date is invalid"})
			return
		}
		query = query.Where("due_date IS NULL OR due_date <= ?", d)
	}

	var tasks []models.Task
	if err := query.Order("due_date IS NULL, due_date asc, created_at desc").Find(&tasks).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to fetch tasks"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tasks": tasks})
}

// CreateTaskRequest represents the request payload for creating a task.
// assigned_to_ids creates one task per assignee.
type CreateTaskRequest struct {
	Title         string              `json:"title" binding:"required"`
	Description   string              `json:"description"`
	AssignedToID  *uint               `json:"assigned_to_id"`
	AssignedToIDs []uint              `json:"assigned_to_ids"`
	StartDate     string              `json:"start_date"`
	DueDate       string              `json:"due_date"`
	Priority      models.TaskPriority `json:"priority"`
	IsRecurring   bool                `json:"is_recurring"`
	Recurrence    models.Recurrence   `json:"recurrence"`
}

// CreateTask handles POST /api/tasks
//
// New tasks always start as pending in the creator's department.
// Notification fan-out runs after the creating transaction commits.
func CreateTask(c *gin.Context) {
	user := middleware.CurrentUser(c)
	db := database.GetDB()

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}
	if !priority.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unknown priority"})
		return
	}
	recurrence := req.Recurrence
	if recurrence == "" {
		recurrence = models.RecurrenceNone
	}
	if !recurrence.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unknown recurrence"})
		return
	}

	startDate, ok := parseOptionalDate(req.StartDate)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "start_date is invalid"})
		return
	}
	dueDate, ok := parseOptionalDate(req.DueDate)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "due_date is invalid"})
		return
	}

	assignees := req.AssignedToIDs
	if len(assignees) == 0 && req.AssignedToID != nil {
		assignees = []uint{*req.AssignedToID}
	}
	for _, id := range assignees {
		var count int64
		db.Model(&models.User{}).Where("id = ?", id).Count(&count)
		if count == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "assignee not found"})
			return
		}
	}

	buildTask := func(assignee *uint) models.Task {
		return models.Task{
			Title:        req.Title,
			Description:  req.Description,
			DepartmentID: user.DepartmentID,
			AssignedByID: &user.ID,
			AssignedToID: assignee,
			CreatedByID:  user.ID,
			Status:       models.StatusPending,
			Priority:     priority,
			StartDate:    startDate,
			DueDate:      dueDate,
			IsRecurring:  req.IsRecurring,
			Recurrence:   recurrence,
		}
	}

	var created []models.Task
	if len(assignees) == 0 {
		created = append(created, buildTask(nil))
	} else {
		for i := range assignees {
			created = append(created, buildTask(&assignees[i]))
		}
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		for i := range created {
			if err := tx.Create(&created[i]).Error; err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to create task"})
		return
	}

	// Primary write committed; fan-out is best-effort from here on.
	for i := range created {
		notify.TaskEvent(db, &created[i], notify.ActionCreate, user)
	}

	taskIDs := make([]uint, 0, len(created))
	for i := range created {
		taskIDs = append(taskIDs, created[i].ID)
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "task_ids": taskIDs})
}

// loadTaskInScope fetches the task and checks the caller may access it:
// admins always, otherwise the assignee or the creator must be inside
// the caller's scope, or the task is tagged with the manager's own
// department. The department clause mirrors ListTasks.
func loadTaskInScope(c *gin.Context, user *models.User) (*models.Task, bool) {
	taskID, ok := parseUintParam(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "task id is invalid"})
		return nil, false
	}
	db := database.GetDB()
	var task models.Task
	if err := db.First(&task, taskID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "task not found"})
		return nil, false
	}

	sc, err := scope.Resolve(db, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to resolve scope"})
		return nil, false
	}
	inScope := sc.IsUnrestricted() ||
		(task.AssignedToID != nil && sc.Contains(*task.AssignedToID)) ||
		sc.Contains(task.CreatedByID)
	if !inScope && user.IsDepartmentManager() &&
		user.DepartmentID != nil && task.DepartmentID != nil &&
		*user.DepartmentID == *task.DepartmentID {
		inScope = true
	}
	if !inScope {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "you do not have access to this task"})
		return nil, false
	}
	return &task, true
}

// GetTask handles GET /api/tasks/:id
func GetTask(c *gin.Context) {
	user := middleware.CurrentUser(c)
	task, ok := loadTaskInScope(c, user)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "task": task})
}

// UpdateTaskRequest represents the request payload for updating a task
type UpdateTaskRequest struct {
	Title        *string              `json:"title"`
	Description  *string              `json:"description"`
	Status       *models.TaskStatus   `json:"status"`
	AssignedToID *uint                `json:"assigned_to_id"`
	StartDate    *string              `json:"start_date"`
	DueDate      *string              `json:"due_date"`
	Priority     *models.TaskPriority `json:"priority"`
	IsRecurring  *bool                `json:"is_recurring"`
	Recurrence   *models.Recurrence   `json:"recurrence"`
}

// UpdateTask handles PUT /api/tasks/:id
//
// Admins and department managers have full control, including arbitrary
// status values. A plain user touching their own task may only move the
// status to in_progress, completed or cancelled.
func UpdateTask(c *gin.Context) {
	user := middleware.CurrentUser(c)
	task, ok := loadTaskInScope(c, user)
	if !ok {
		return
	}
	db := database.GetDB()

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	if user.IsAdmin() || user.IsDepartmentManager() {
		if req.Status != nil {
			if !req.Status.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unknown status"})
				return
			}
			task.Status = *req.Status
		}
		if req.AssignedToID != nil {
			if *req.AssignedToID == 0 {
				task.AssignedToID = nil
			} else {
				sc, err := scope.Resolve(db, user)
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to resolve scope"})
					return
				}
				if !sc.Contains(*req.AssignedToID) {
					c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "assignee is outside your scope"})
					return
				}
				task.AssignedToID = req.AssignedToID
			}
		}
		if req.Title != nil {
			task.Title = *req.Title
		}
		if req.Description != nil {
			task.Description = *req.Description
		}
		if req.Priority != nil {
			if !req.Priority.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unknown priority"})
				return
			}
			task.Priority = *req.Priority
		}
		if req.StartDate != nil {
			d, ok := parseOptionalDate(*req.StartDate)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "start_date is invalid"})
				return
			}
			task.StartDate = d
		}
		if req.DueDate != nil {
			d, ok := parseOptionalDate(*req.DueDate)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "due_date is invalid"})
				return
			}
			task.DueDate = d
		}
		if req.IsRecurring != nil {
			task.IsRecurring = *req.IsRecurring
		}
		if req.Recurrence != nil {
			rec := *req.Recurrence
			if rec == "" {
				rec = models.RecurrenceNone
			}
			if !rec.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unknown recurrence"})
				return
			}
			task.Recurrence = rec
		}
	} else {
		// Plain user: only a status change on their own task, and only
		// into the self-service subset. Approval back to pending is the
		// manager's call.
		if (task.AssignedToID == nil || *task.AssignedToID != user.ID) && task.CreatedByID != user.ID {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "you cannot update this task"})
			return
		}
		if req.Status != nil {
			switch *req.Status {
			case models.StatusInProgress, models.StatusCompleted, models.StatusCancelled:
				// Completing is subject to the same overdue rule as deliver.
				if *req.Status == models.StatusCompleted &&
					task.DueDate != nil && task.DueDate.Before(clock.Today().Time) {
					c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "task is overdue and can no longer be completed"})
					return
				}
				task.Status = *req.Status
			default:
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid status update"})
				return
			}
		}
	}

	if err := db.Save(task).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to update task"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteTask handles DELETE /api/tasks/:id
//
// Admins delete anything; a department manager deletes tasks tied to
// their department (by department, assignee or creator); plain users
// cannot delete. Comments cascade with the task.
func DeleteTask(c *gin.Context) {
	user := middleware.CurrentUser(c)
	taskID, ok := parseUintParam(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "task id is invalid"})
		return
	}
	db := database.GetDB()
	var task models.Task
	if err := db.First(&task, taskID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "task not found"})
		return
	}

	switch {
	case user.IsAdmin():
	case user.IsDepartmentManager() && user.DepartmentID != nil:
		allowed := task.DepartmentID != nil && *task.DepartmentID == *user.DepartmentID
		if !allowed && task.AssignedToID != nil {
			allowed = userInDepartment(db, *task.AssignedToID, *user.DepartmentID)
		}
		if !allowed {
			allowed = userInDepartment(db, task.CreatedByID, *user.DepartmentID)
		}
		if !allowed {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "you cannot delete this task"})
			return
		}
	default:
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "you cannot delete this task"})
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", task.ID).Delete(&models.TaskComment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&task).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to delete task"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "deleted_id": task.ID})
}

func userInDepartment(db *gorm.DB, userID, deptID uint) bool {
	var count int64
	db.Model(&models.User{}).Where("id = ? AND department_id = ?", userID, deptID).Count(&count)
	return count > 0
}

// ApproveTask handles POST /api/tasks/:id/approve
//
// Only the assignee may approve, and only from pending or requested.
func ApproveTask(c *gin.Context) {
	user := middleware.CurrentUser(c)
	taskID, ok := parseUintParam(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "task id is invalid"})
		return
	}
	db := database.GetDB()
	var task models.Task
	if err := db.First(&task, taskID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "task not found"})
		return
	}

	if task.AssignedToID == nil || *task.AssignedToID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "only the assignee can approve this task"})
		return
	}
	switch task.Status {
	case models.StatusPending, models.StatusRequested:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "task cannot be approved in its current status"})
		return
	}

	if err := db.Model(&task).Update("status", models.StatusInProgress).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to approve task"})
		return
	}
	task.Status = models.StatusInProgress

	notify.TaskEvent(db, &task, notify.ActionApprove, user)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeliverTask handles POST /api/tasks/:id/deliver
//
// Only the assignee may deliver, from pending/requested/in_progress,
// and not once the due date has passed.
func DeliverTask(c *gin.Context) {
	user := middleware.CurrentUser(c)
	taskID, ok := parseUintParam(c.Param("id"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "task id is invalid"})
		return
	}
	db := database.GetDB()
	var task models.Task
	if err := db.First(&task, taskID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "task not found"})
		return
	}

	if task.AssignedToID == nil || *task.AssignedToID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "only the assignee can deliver this task"})
		return
	}
	switch task.Status {
	case models.StatusPending, models.StatusRequested, models.StatusInProgress:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "task cannot be delivered in its current status"})
		return
	}
	if task.DueDate != nil && task.DueDate.Before(clock.Today().Time) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "task is overdue and can no longer be delivered"})
		return
	}

	if err := db.Model(&task).Update("status", models.StatusCompleted).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to deliver task"})
		return
	}
	task.Status = models.StatusCompleted

	notify.TaskEvent(db, &task, notify.ActionDeliver, user)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListTaskComments handles GET /api/tasks/:id/comments
func ListTaskComments(c *gin.Context) {
	user := middleware.CurrentUser(c)
	task, ok := loadTaskInScope(c, user)
	if !ok {
		return
	}
	db := database.GetDB()

	var comments []models.TaskComment
	if err := db.Where("task_id = ?", task.ID).Order("created_at asc").Find(&comments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to fetch comments"})
		return
	}

	resp := make([]gin.H, 0, len(comments))
	for i := range comments {
		var author models.User
		userName := "-"
		if err := db.First(&author, comments[i].UserID).Error; err == nil {
			userName = author.FullName()
		}
		resp = append(resp, gin.H{
			"id":         comments[i].ID,
			"task_id":    comments[i].TaskID,
			"user_id":    comments[i].UserID,
			"user_name":  userName,
			"comment":    comments[i].Comment,
			"created_at": comments[i].CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "comments": resp})
}

// CreateTaskCommentRequest is the comment submission payload.
type CreateTaskCommentRequest struct {
	Comment string `json:"comment" binding:"required"`
}

// CreateTaskComment handles POST /api/tasks/:id/comments
func CreateTaskComment(c *gin.Context) {
	user := middleware.CurrentUser(c)
	task, ok := loadTaskInScope(c, user)
	if !ok {
		return
	}
	db := database.GetDB()

	var req CreateTaskCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "comment is required"})
		return
	}

	comment := models.TaskComment{TaskID: task.ID, UserID: user.ID, Comment: req.Comment}
	if err := db.Create(&comment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to create comment"})
		return
	}

	notify.TaskEvent(db, task, notify.ActionComment, user)
	c.JSON(http.StatusCreated, gin.H{"success": true, "comment_id": comment.ID})
}

// TasksDueSoon handles GET /api/tasks/due-soon — open tasks due within
// the next N days (default 3), within the caller's visibility.
func TasksDueSoon(c *gin.Context) {
	user := middleware.CurrentUser(c)
	db := database.GetDB()

	days := 3
	if raw := c.Query("days"); raw != "" {
		if n, ok := parseUintParam(raw); ok {
			days = int(n)
		}
	}
	today := clock.Today()
	until := today.AddDays(days)

	query := db.Model(&models.Task{}).Where(
		"due_date IS NOT NULL AND due_date >= ? AND due_date <= ? AND status IN ?",
		today, until,
		[]models.TaskStatus{models.StatusPending, models.StatusInProgress, models.StatusRequested},
	)
	switch {
	case user.IsAdmin():
	case user.IsDepartmentManager() && user.DepartmentID != nil:
		query = query.Where(
			"department_id = ? OR assigned_to_id = ? OR created_by_id = ?",
			*user.DepartmentID, user.ID, user.ID,
		)
	default:
		query = query.Where("assigned_to_id = ? OR created_by_id = ?", user.ID, user.ID)
	}

	var tasks []models.Task
	if err := query.Order("due_date asc").Limit(50).Find(&tasks).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to fetch tasks"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tasks": tasks})
}

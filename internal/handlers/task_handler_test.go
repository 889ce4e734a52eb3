package handlers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"sales-ops-api/internal/clock"
	"sales-ops-api/internal/middleware"
	"sales-ops-api/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func taskRouter() *gin.Engine {
	r := gin.New()
	api := r.Group("/api")
	api.Use(middleware.RequireAuth())
	api.GET("/tasks", ListTasks)
	api.GET("/tasks/:id", GetTask)
	api.POST("/tasks", CreateTask)
	api.PUT("/tasks/:id", UpdateTask)
	api.DELETE("/tasks/:id", DeleteTask)
	api.POST("/tasks/:id/approve", ApproveTask)
	api.POST("/tasks/:id/deliver", DeliverTask)
	api.GET("/tasks/:id/comments", ListTaskComments)
	api.POST("/tasks/:id/comments", CreateTaskComment)
	return r
}

func seedTask(t *testing.T, db *gorm.DB, creator *models.User, assignee *models.User, status models.TaskStatus) *models.Task {
	t.Helper()
	task := models.Task{
		Title:        "Quarterly stock count",
		DepartmentID: creator.DepartmentID,
		CreatedByID:  creator.ID,
		AssignedByID: &creator.ID,
		Status:       status,
		Priority:     models.PriorityNormal,
		Recurrence:   models.RecurrenceNone,
	}
	if assignee != nil {
		task.AssignedToID = &assignee.ID
	}
	require.NoError(t, db.Create(&task).Error)
	return &task
}

func TestCreateTask_MultiAssignee(t *testing.T) {
	db := setupDB(t)
	dept := seedDepartment(t, db, "Field Sales")
	manager := seedUser(t, db, "dm", models.RoleDepartmentManager, &dept.ID)
	rep1 := seedUser(t, db, "rep1", models.RoleUser, &dept.ID)
	rep2 := seedUser(t, db, "rep2", models.RoleUser, &dept.ID)

	w := doJSON(t, taskRouter(), http.MethodPost, "/api/tasks", tokenFor(t, manager), gin.H{
		"title":           "Visit the pharmacies in the north region",
		"assigned_to_ids": []uint{rep1.ID, rep2.ID},
		"priority":        "high",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var tasks []models.Task
	require.NoError(t, db.Find(&tasks).Error)
	require.Len(t, tasks, 2)
	for _, task := range tasks {
		require.Equal(t, models.StatusPending, task.Status)
		require.Equal(t, models.PriorityHigh, task.Priority)
		require.Equal(t, manager.ID, task.CreatedByID)
	}

	// Each assignee was notified about their copy.
	var n int64
	require.NoError(t, db.Model(&models.Notification{}).
		Where("to_user_id IN ?", []uint{rep1.ID, rep2.ID}).Count(&n).Error)
	require.EqualValues(t, 2, n)
}

func TestCreateTask_RejectsUnknownEnums(t *testing.T) {
	db := setupDB(t)
	user := seedUser(t, db, "rep", models.RoleUser, nil)
	r := taskRouter()

	w := doJSON(t, r, http.MethodPost, "/api/tasks", tokenFor(t, user), gin.H{
		"title":    "x",
		"priority": "urgent",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/tasks", tokenFor(t, user), gin.H{
		"title":      "x",
		"recurrence": "fortnightly",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListTasks_PlainUserSeesOnlyOwn(t *testing.T) {
	db := setupDB(t)
	dept := seedDepartment(t, db, "Field Sales")
	manager := seedUser(t, db, "dm", models.RoleDepartmentManager, &dept.ID)
	rep := seedUser(t, db, "rep", models.RoleUser, &dept.ID)
	other := seedUser(t, db, "other", models.RoleUser, &dept.ID)

	seedTask(t, db, manager, rep, models.StatusPending)
	seedTask(t, db, manager, other, models.StatusPending)

	w := doJSON(t, taskRouter(), http.MethodGet, "/api/tasks", tokenFor(t, rep), nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	require.Len(t, resp["tasks"], 1)

	// The manager sees both department tasks.
	w = doJSON(t, taskRouter(), http.MethodGet, "/api/tasks", tokenFor(t, manager), nil)
	resp = decodeBody(t, w)
	require.Len(t, resp["tasks"], 2)
}

func TestListTasks_StatusFilterRejectsUnknown(t *testing.T) {
	db := setupDB(t)
	user := seedUser(t, db, "rep", models.RoleUser, nil)

	w := doJSON(t, taskRouter(), http.MethodGet, "/api/tasks?status=bogus", tokenFor(t, user), nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateTask_PlainUserStatusRules(t *testing.T) {
	db := setupDB(t)
	dept := seedDepartment(t, db, "Field Sales")
	manager := seedUser(t, db, "dm", models.RoleDepartmentManager, &dept.ID)
	rep := seedUser(t, db, "rep", models.RoleUser, &dept.ID)
	task := seedTask(t, db, manager, rep, models.StatusPending)
	r := taskRouter()
	path := fmt.Sprintf("/api/tasks/%d", task.ID)

	// Allowed self-service transition.
	w := doJSON(t, r, http.MethodPut, path, tokenFor(t, rep), gin.H{"status": "completed"})
	require.Equal(t, http.StatusOK, w.Code)

	// Statuses outside the self-service subset are rejected.
	w = doJSON(t, r, http.MethodPut, path, tokenFor(t, rep), gin.H{"status": "requested"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Non-status fields from a plain user are ignored.
	w = doJSON(t, r, http.MethodPut, path, tokenFor(t, rep), gin.H{"title": "hijacked"})
	require.Equal(t, http.StatusOK, w.Code)
	var reloaded models.Task
	require.NoError(t, db.First(&reloaded, task.ID).Error)
	require.Equal(t, task.Title, reloaded.Title)
}

func TestUpdateTask_ManagerCannotAssignOutsideScope(t *testing.T) {
	db := setupDB(t)
	dept := seedDepartment(t, db, "Field Sales")
	otherDept := seedDepartment(t, db, "Back Office")
	manager := seedUser(t, db, "dm", models.RoleDepartmentManager, &dept.ID)
	outsider := seedUser(t, db, "outsider", models.RoleUser, &otherDept.ID)
	task := seedTask(t, db, manager, nil, models.StatusPending)

	w := doJSON(t, taskRouter(), http.MethodPut, fmt.Sprintf("/api/tasks/%d", task.ID),
		tokenFor(t, manager), gin.H{"assigned_to_id": outsider.ID})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetTask_OutOfScopeForbidden(t *testing.T) {
	db := setupDB(t)
	dept := seedDepartment(t, db, "Field Sales")
	manager := seedUser(t, db, "dm", models.RoleDepartmentManager, &dept.ID)
	rep := seedUser(t, db, "rep", models.RoleUser, &dept.ID)
	stranger := seedUser(t, db, "stranger", models.RoleUser, nil)
	task := seedTask(t, db, manager, rep, models.StatusPending)

	w := doJSON(t, taskRouter(), http.MethodGet, fmt.Sprintf("/api/tasks/%d", task.ID),
		tokenFor(t, stranger), nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestApproveTask_OnlyAssignee(t *testing.T) {
	db := setupDB(t)
	dept := seedDepartment(t, db, "Field Sales")
	manager := seedUser(t, db, "dm", models.RoleDepartmentManager, &dept.ID)
	rep := seedUser(t, db, "rep", models.RoleUser, &dept.ID)
	other := seedUser(t, db, "other", models.RoleUser, &dept.ID)
	task := seedTask(t, db, manager, rep, models.StatusPending)
	r := taskRouter()
	path := fmt.Sprintf("/api/tasks/%d/approve", task.ID)

	w := doJSON(t, r, http.MethodPost, path, tokenFor(t, other), nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodPost, path, tokenFor(t, rep), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var reloaded models.Task
	require.NoError(t, db.First(&reloaded, task.ID).Error)
	require.Equal(t, models.StatusInProgress, reloaded.Status)

	// Creator was notified; the approving assignee was not.
	var n int64
	require.NoError(t, db.Model(&models.Notification{}).
		Where("to_user_id = ? AND title = ?", manager.ID, "Task Approved").Count(&n).Error)
	require.EqualValues(t, 1, n)
	require.NoError(t, db.Model(&models.Notification{}).
		Where("to_user_id = ?", rep.ID).Count(&n).Error)
	require.EqualValues(t, 0, n)
}

func TestApproveTask_WrongStatus(t *testing.T) {
	db := setupDB(t)
	dept := seedDepartment(t, db, "Field Sales")
	manager := seedUser(t, db, "dm", models.RoleDepartmentManager, &dept.ID)
	rep := seedUser(t, db, "rep", models.RoleUser, &dept.ID)
	task := seedTask(t, db, manager, rep, models.StatusCompleted)

	w := doJSON(t, taskRouter(), http.MethodPost, fmt.Sprintf("/api/tasks/%d/approve", task.ID),
		tokenFor(t, rep), nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeliverTask_RejectsPastDue(t *testing.T) {
	db := setupDB(t)
	clock.Set(clock.Fixed{T: time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)})
	dept := seedDepartment(t, db, "Field Sales")
	manager := seedUser(t, db, "dm", models.RoleDepartmentManager, &dept.ID)
	rep := seedUser(t, db, "rep", models.RoleUser, &dept.ID)

	task := seedTask(t, db, manager, rep, models.StatusInProgress)
	due := models.NewDate(2025, time.March, 9)
	require.NoError(t, db.Model(task).Update("due_date", due).Error)

	w := doJSON(t, taskRouter(), http.MethodPost, fmt.Sprintf("/api/tasks/%d/deliver", task.ID),
		tokenFor(t, rep), nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Due today is still deliverable.
	require.NoError(t, db.Model(task).Update("due_date", models.NewDate(2025, time.March, 10)).Error)
	w = doJSON(t, taskRouter(), http.MethodPost, fmt.Sprintf("/api/tasks/%d/deliver", task.ID),
		tokenFor(t, rep), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var reloaded models.Task
	require.NoError(t, db.First(&reloaded, task.ID).Error)
	require.Equal(t, models.StatusCompleted, reloaded.Status)
}

func TestUpdateTask_PlainUserCannotCompleteOverdue(t *testing.T) {
	db := setupDB(t)
	clock.Set(clock.Fixed{T: time.Date(2025, time.March, 20, 9, 0, 0, 0, time.UTC)})
	dept := seedDepartment(t, db, "Field Sales")
	manager := seedUser(t, db, "dm", models.RoleDepartmentManager, &dept.ID)
	rep := seedUser(t, db, "rep", models.RoleUser, &dept.ID)

	task := seedTask(t, db, manager, rep, models.StatusInProgress)
	require.NoError(t, db.Model(task).Update("due_date", models.NewDate(2025, time.March, 10)).Error)
	r := taskRouter()
	path := fmt.Sprintf("/api/tasks/%d", task.ID)

	w := doJSON(t, r, http.MethodPut, path, tokenFor(t, rep), gin.H{"status": "completed"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var reloaded models.Task
	require.NoError(t, db.First(&reloaded, task.ID).Error)
	require.Equal(t, models.StatusInProgress, reloaded.Status)

	// Cancelling an overdue task stays allowed.
	w = doJSON(t, r, http.MethodPut, path, tokenFor(t, rep), gin.H{"status": "cancelled"})
	require.Equal(t, http.StatusOK, w.Code)

	// Completing on the due date itself is fine.
	task2 := seedTask(t, db, manager, rep, models.StatusInProgress)
	require.NoError(t, db.Model(task2).Update("due_date", models.NewDate(2025, time.March, 20)).Error)
	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/tasks/%d", task2.ID),
		tokenFor(t, rep), gin.H{"status": "completed"})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestGetTask_ManagerSeesDepartmentTaggedTask(t *testing.T) {
	db := setupDB(t)
	dept := seedDepartment(t, db, "Field Sales")
	otherDept := seedDepartment(t, db, "Back Office")
	manager := seedUser(t, db, "dm", models.RoleDepartmentManager, &dept.ID)
	outsider := seedUser(t, db, "outsider", models.RoleUser, &otherDept.ID)

	// Tagged with the manager's department, but created by and assigned
	// to someone outside it.
	task := seedTask(t, db, outsider, outsider, models.StatusPending)
	require.NoError(t, db.Model(task).Update("department_id", dept.ID).Error)
	r := taskRouter()

	w := doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/tasks/%d", task.ID),
		tokenFor(t, manager), nil)
	require.Equal(t, http.StatusOK, w.Code)

	// The same task shows up in the manager's list, so GET must agree.
	w = doJSON(t, r, http.MethodGet, "/api/tasks", tokenFor(t, manager), nil)
	resp := decodeBody(t, w)
	require.Len(t, resp["tasks"], 1)
}

func TestDeleteTask_PlainUserForbidden(t *testing.T) {
	db := setupDB(t)
	dept := seedDepartment(t, db, "Field Sales")
	manager := seedUser(t, db, "dm", models.RoleDepartmentManager, &dept.ID)
	rep := seedUser(t, db, "rep", models.RoleUser, &dept.ID)
	task := seedTask(t, db, manager, rep, models.StatusPending)

	w := doJSON(t, taskRouter(), http.MethodDelete, fmt.Sprintf("/api/tasks/%d", task.ID),
		tokenFor(t, rep), nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeleteTask_CascadesComments(t *testing.T) {
	db := setupDB(t)
	dept := seedDepartment(t, db, "Field Sales")
	manager := seedUser(t, db, "dm", models.RoleDepartmentManager, &dept.ID)
	rep := seedUser(t, db, "rep", models.RoleUser, &dept.ID)
	task := seedTask(t, db, manager, rep, models.StatusPending)
	require.NoError(t, db.Create(&models.TaskComment{TaskID: task.ID, UserID: rep.ID, Comment: "note"}).Error)

	w := doJSON(t, taskRouter(), http.MethodDelete, fmt.Sprintf("/api/tasks/%d", task.ID),
		tokenFor(t, manager), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var comments int64
	require.NoError(t, db.Model(&models.TaskComment{}).Where("task_id = ?", task.ID).Count(&comments).Error)
	require.EqualValues(t, 0, comments)
}

func TestTaskComments_CreateAndList(t *testing.T) {
	db := setupDB(t)
	dept := seedDepartment(t, db, "Field Sales")
	manager := seedUser(t, db, "dm", models.RoleDepartmentManager, &dept.ID)
	rep := seedUser(t, db, "rep", models.RoleUser, &dept.ID)
	task := seedTask(t, db, manager, rep, models.StatusPending)
	r := taskRouter()
	path := fmt.Sprintf("/api/tasks/%d/comments", task.ID)

	w := doJSON(t, r, http.MethodPost, path, tokenFor(t, rep), gin.H{"comment": "on my way"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodGet, path, tokenFor(t, manager), nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	comments := resp["comments"].([]any)
	require.Len(t, comments, 1)
	first := comments[0].(map[string]any)
	require.Equal(t, "on my way", first["comment"])
	require.Equal(t, rep.FullName(), first["user_name"])
}

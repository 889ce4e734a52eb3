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
)

func planningRouter() *gin.Engine {
	r := gin.New()
	api := r.Group("/api")
	api.Use(middleware.RequireAuth())
	api.GET("/planning/today", GetTodayPlanning)
	api.POST("/planning/today", SaveTodayPlanning)
	api.GET("/planning/month", GetMonthPlanning)
	api.GET("/planning/day", GetDayPlanning)
	api.DELETE("/planning/day", middleware.RequireRoles(models.RoleAdmin), DeleteDayPlanning)
	api.GET("/planning/years", GetPlanningYears)
	api.GET("/planning/months", GetPlanningMonths)
	api.GET("/planning/archive/departments", PlanningArchiveDepartments)
	return r
}

func TestSaveTodayPlanning_CreatesPlanAndSnapshot(t *testing.T) {
	db := setupDB(t)
	clock.Set(clock.Fixed{T: time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)})
	rep := seedUser(t, db, "rep", models.RoleUser, nil)
	r := planningRouter()

	w := doJSON(t, r, http.MethodPost, "/api/planning/today", tokenFor(t, rep), gin.H{
		"yesterday_activities": "visited 4 pharmacies",
		"today_plan":           "north region route",
		"challenges":           "stock shortage",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var plans []models.Planning
	require.NoError(t, db.Find(&plans).Error)
	require.Len(t, plans, 1)
	require.Equal(t, "north region route", plans[0].TodayPlan)
	require.Equal(t, "2025-03-10", plans[0].Date.String())

	var snapshots []models.PlanningSnapshot
	require.NoError(t, db.Find(&snapshots).Error)
	require.Len(t, snapshots, 1)

	// Editing within the window updates the row and appends a second
	// snapshot rather than replacing the first.
	w = doJSON(t, r, http.MethodPost, "/api/planning/today", tokenFor(t, rep), gin.H{
		"today_plan": "revised route",
	})
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, db.Find(&plans).Error)
	require.Len(t, plans, 1)
	require.Equal(t, "revised route", plans[0].TodayPlan)
	require.NoError(t, db.Find(&snapshots).Error)
	require.Len(t, snapshots, 2)
}

func TestSaveTodayPlanning_WindowClosesAfter24h(t *testing.T) {
	db := setupDB(t)
	base := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	clock.Set(clock.Fixed{T: base})
	rep := seedUser(t, db, "rep", models.RoleUser, nil)

	plan := models.Planning{
		RepresentativeID: rep.ID,
		Date:             models.NewDate(2025, time.March, 10),
		TodayPlan:        "original",
	}
	require.NoError(t, db.Create(&plan).Error)
	// Age the row past the window.
	require.NoError(t, db.Model(&plan).Update("created_at", base.Add(-25*time.Hour)).Error)

	w := doJSON(t, planningRouter(), http.MethodPost, "/api/planning/today", tokenFor(t, rep), gin.H{
		"today_plan": "too late",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var reloaded models.Planning
	require.NoError(t, db.First(&reloaded, plan.ID).Error)
	require.Equal(t, "original", reloaded.TodayPlan)
}

func TestGetTodayPlanning_EmptyIsNotAnError(t *testing.T) {
	db := setupDB(t)
	clock.Set(clock.Fixed{T: time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)})
	rep := seedUser(t, db, "rep", models.RoleUser, nil)

	w := doJSON(t, planningRouter(), http.MethodGet, "/api/planning/today", tokenFor(t, rep), nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	require.Nil(t, resp["planning"])
	require.Equal(t, true, resp["editable"])
}

func TestGetMonthPlanning_Markers(t *testing.T) {
	db := setupDB(t)
	clock.Set(clock.Fixed{T: time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)})
	dept := seedDepartment(t, db, "Field Sales")
	manager := seedUser(t, db, "dm", models.RoleDepartmentManager, &dept.ID)
	rep := seedUser(t, db, "rep", models.RoleUser, &dept.ID)

	require.NoError(t, db.Create(&models.Planning{
		RepresentativeID: rep.ID,
		Date:             models.NewDate(2025, time.March, 5),
		TodayPlan:        "p",
	}).Error)

	start := models.NewDate(2025, time.March, 12)
	due := models.NewDate(2025, time.March, 14)
	task := models.Task{
		Title:        "Collect overdue invoices",
		CreatedByID:  manager.ID,
		AssignedToID: &rep.ID,
		Status:       models.StatusPending,
		Priority:     models.PriorityNormal,
		Recurrence:   models.RecurrenceNone,
		StartDate:    &start,
		DueDate:      &due,
	}
	require.NoError(t, db.Create(&task).Error)

	w := doJSON(t, planningRouter(), http.MethodGet,
		fmt.Sprintf("/api/planning/month?year=2025&month=3&user_id=%d", rep.ID),
		tokenFor(t, manager), nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	days := resp["days"].([]any)
	require.Len(t, days, 31)

	day5 := days[4].(map[string]any)
	require.Equal(t, true, day5["has_planning"])
	require.Equal(t, false, day5["has_tasks"])

	day12 := days[11].(map[string]any)
	require.Equal(t, true, day12["has_tasks"])
	require.Equal(t, true, day12["has_task_assign"])
	require.Equal(t, false, day12["has_task_due"])
	// Privileged viewers see task titles.
	require.Len(t, day12["tasks_meta"], 1)

	day14 := days[13].(map[string]any)
	require.Equal(t, true, day14["has_task_due"])

	day13 := days[12].(map[string]any)
	require.Equal(t, false, day13["has_tasks"], "non-recurring tasks mark only start and due days")
}

func TestGetMonthPlanning_PlainUserGetsNoTaskMeta(t *testing.T) {
	db := setupDB(t)
	clock.Set(clock.Fixed{T: time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)})
	rep := seedUser(t, db, "rep", models.RoleUser, nil)

	w := doJSON(t, planningRouter(), http.MethodGet, "/api/planning/month?year=2025&month=3",
		tokenFor(t, rep), nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	days := resp["days"].([]any)
	first := days[0].(map[string]any)
	_, present := first["tasks_meta"]
	require.False(t, present)
}

func TestDeleteDayPlanning_AdminOnly(t *testing.T) {
	db := setupDB(t)
	clock.Set(clock.Fixed{T: time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)})
	admin := seedUser(t, db, "root", models.RoleAdmin, nil)
	rep := seedUser(t, db, "rep", models.RoleUser, nil)
	require.NoError(t, db.Create(&models.Planning{
		RepresentativeID: rep.ID,
		Date:             models.NewDate(2025, time.March, 10),
		TodayPlan:        "p",
	}).Error)
	r := planningRouter()
	path := fmt.Sprintf("/api/planning/day?date=2025-03-10&user_id=%d", rep.ID)

	w := doJSON(t, r, http.MethodDelete, path, tokenFor(t, rep), nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodDelete, path, tokenFor(t, admin), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var n int64
	require.NoError(t, db.Model(&models.Planning{}).Count(&n).Error)
	require.EqualValues(t, 0, n)
}

func TestGetPlanningMonths_CountsDaysPerMonth(t *testing.T) {
	db := setupDB(t)
	clock.Set(clock.Fixed{T: time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)})
	rep := seedUser(t, db, "rep", models.RoleUser, nil)
	for _, d := range []models.Date{
		models.NewDate(2025, time.March, 3),
		models.NewDate(2025, time.March, 4),
		models.NewDate(2025, time.April, 1),
		models.NewDate(2024, time.December, 31),
	} {
		require.NoError(t, db.Create(&models.Planning{RepresentativeID: rep.ID, Date: d, TodayPlan: "p"}).Error)
	}

	w := doJSON(t, planningRouter(), http.MethodGet, "/api/planning/months?year=2025", tokenFor(t, rep), nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	require.EqualValues(t, 2025, resp["year"])
	months := resp["months"].([]any)
	require.Len(t, months, 12)

	march := months[2].(map[string]any)
	require.Equal(t, "2025-03", march["label"])
	require.EqualValues(t, 2, march["days_with_entries"])
	april := months[3].(map[string]any)
	require.EqualValues(t, 1, april["days_with_entries"])
	december := months[11].(map[string]any)
	require.EqualValues(t, 0, december["days_with_entries"], "last year's plans stay out")
}

func TestPlanningArchiveDepartments_ManagerScopedStats(t *testing.T) {
	db := setupDB(t)
	clock.Set(clock.Fixed{T: time.Date(2025, time.March, 20, 9, 0, 0, 0, time.UTC)})
	dept := seedDepartment(t, db, "Field Sales")
	otherDept := seedDepartment(t, db, "Back Office")
	manager := seedUser(t, db, "dm", models.RoleDepartmentManager, &dept.ID)
	rep := seedUser(t, db, "rep", models.RoleUser, &dept.ID)
	seedUser(t, db, "other", models.RoleUser, &otherDept.ID)

	seedTask(t, db, manager, rep, models.StatusCompleted)
	seedTask(t, db, manager, rep, models.StatusInProgress)
	overdue := seedTask(t, db, manager, rep, models.StatusPending)
	require.NoError(t, db.Model(overdue).Update("due_date", models.NewDate(2025, time.March, 10)).Error)

	w := doJSON(t, planningRouter(), http.MethodGet, "/api/planning/archive/departments",
		tokenFor(t, manager), nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	departments := resp["departments"].([]any)
	require.Len(t, departments, 1, "a manager only sees their own department")

	first := departments[0].(map[string]any)
	require.Equal(t, "Field Sales", first["name"])
	users := first["users"].([]any)
	require.Len(t, users, 2)

	var stats map[string]any
	for _, raw := range users {
		entry := raw.(map[string]any)
		if entry["username"] == "rep" {
			stats = entry["stats"].(map[string]any)
		}
	}
	require.NotNil(t, stats)
	require.EqualValues(t, 3, stats["total"])
	require.EqualValues(t, 1, stats["completed"])
	require.EqualValues(t, 1, stats["in_progress"])
	require.EqualValues(t, 1, stats["pending"])
	require.EqualValues(t, 1, stats["overdue"])
	require.InDelta(t, 33.3, stats["completion_rate"], 0.1)
}

func TestGetPlanningYears(t *testing.T) {
	db := setupDB(t)
	clock.Set(clock.Fixed{T: time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)})
	rep := seedUser(t, db, "rep", models.RoleUser, nil)
	for _, d := range []models.Date{
		models.NewDate(2024, time.December, 30),
		models.NewDate(2025, time.January, 2),
		models.NewDate(2025, time.March, 9),
	} {
		require.NoError(t, db.Create(&models.Planning{RepresentativeID: rep.ID, Date: d, TodayPlan: "p"}).Error)
	}

	w := doJSON(t, planningRouter(), http.MethodGet, "/api/planning/years", tokenFor(t, rep), nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	require.ElementsMatch(t, []any{float64(2024), float64(2025)}, resp["years"])
}

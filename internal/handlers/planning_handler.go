package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"sales-ops-api/internal/clock"
	"sales-ops-api/internal/database"
	"sales-ops-api/internal/middleware"
	"sales-ops-api/internal/models"
	"sales-ops-api/internal/recurrence"
	"sales-ops-api/internal/scope"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// resolvePlanningUser picks whose plan is being accessed: the caller by
// default, or ?user_id when that user is inside the caller's scope.
func resolvePlanningUser(c *gin.Context) (*models.User, bool) {
	current := middleware.CurrentUser(c)
	raw := c.Query("user_id")
	if raw == "" {
		return current, true
	}
	viewID, ok := parseUintParam(raw)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "user_id is invalid"})
		return nil, false
	}
	if viewID == current.ID {
		return current, true
	}

	db := database.GetDB()
	sc, err := scope.Resolve(db, current)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to resolve scope"})
		return nil, false
	}
	if !sc.Contains(viewID) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "user is outside your scope"})
		return nil, false
	}
	var user models.User
	if err := db.First(&user, viewID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "user not found"})
		return nil, false
	}
	return &user, true
}

// GetTodayPlanning handles GET /api/planning/today
func GetTodayPlanning(c *gin.Context) {
	user, ok := resolvePlanningUser(c)
	if !ok {
		return
	}
	db := database.GetDB()
	today := clock.Today()

	var plan models.Planning
	err := db.Where("representative_id = ? AND date = ?", user.ID, today).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusOK, gin.H{"success": true, "planning": nil, "editable": true, "date": today})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to fetch planning"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"planning": plan,
		"editable": plan.Editable(clock.Now()),
		"date":     today,
	})
}

// PlanningRequest is the daily plan payload.
type PlanningRequest struct {
	YesterdayActivities string `json:"yesterday_activities"`
	TodayPlan           string `json:"today_plan"`
	Challenges          string `json:"challenges"`
}

// SaveTodayPlanning handles POST /api/planning/today
//
// Upserts the caller's plan for today. A plan stays editable for 24
// hours from its creation; after that the write is rejected. Every
// successful write also appends a snapshot row, in the same
// transaction as the plan itself.
func SaveTodayPlanning(c *gin.Context) {
	user := middleware.CurrentUser(c)
	db := database.GetDB()
	today := clock.Today()

	var req PlanningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	var plan models.Planning
	err := db.Where("representative_id = ? AND date = ?", user.ID, today).First(&plan).Error
	exists := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to fetch planning"})
		return
	}
	if exists && !plan.Editable(clock.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "planning is no longer editable"})
		return
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if exists {
			plan.YesterdayActivities = req.YesterdayActivities
			plan.TodayPlan = req.TodayPlan
			plan.Challenges = req.Challenges
			if err := tx.Save(&plan).Error; err != nil {
				return err
			}
		} else {
			plan = models.Planning{
				RepresentativeID:    user.ID,
				Date:                today,
				YesterdayActivities: req.YesterdayActivities,
				TodayPlan:           req.TodayPlan,
				Challenges:          req.Challenges,
			}
			if err := tx.Create(&plan).Error; err != nil {
				return err
			}
		}
		snapshot := models.PlanningSnapshot{
			RepresentativeID:    user.ID,
			Date:                today,
			YesterdayActivities: req.YesterdayActivities,
			TodayPlan:           req.TodayPlan,
			Challenges:          req.Challenges,
		}
		return tx.Create(&snapshot).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to save planning"})
		return
	}

	logActivity(c, "planning_save", "daily plan saved for "+today.String())
	c.JSON(http.StatusOK, gin.H{"success": true, "planning_id": plan.ID})
}

// GetMonthPlanning handles GET /api/planning/month?year=&month=
//
// Returns one entry per day of the month with boolean markers:
// has_planning, has_tasks (a task occurs that day), has_task_assign
// (a task starts that day) and has_task_due. Admins and department
// managers additionally get up to two task titles per day plus an
// overflow count.
func GetMonthPlanning(c *gin.Context) {
	user, ok := resolvePlanningUser(c)
	if !ok {
		return
	}
	current := middleware.CurrentUser(c)
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

	first := models.NewDate(year, time.Month(month), 1)
	last := models.DateOf(first.AddDate(0, 1, -1))

	var plannedDates []models.Date
	err := db.Model(&models.Planning{}).
		Where("representative_id = ? AND date >= ? AND date <= ?", user.ID, first, last).
		Pluck("date", &plannedDates).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to fetch plannings"})
		return
	}
	planned := make(map[string]bool, len(plannedDates))
	for _, d := range plannedDates {
		planned[d.String()] = true
	}

	var tasks []models.Task
	err = db.Where("assigned_to_id = ? OR created_by_id = ?", user.ID, user.ID).Find(&tasks).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to fetch tasks"})
		return
	}

	privileged := current.IsAdmin() || current.IsDepartmentManager()
	days := make([]gin.H, 0, last.Day())
	for d := 1; d <= last.Day(); d++ {
		day := models.NewDate(year, time.Month(month), d)
		entry := gin.H{
			"date":         day,
			"has_planning": planned[day.String()],
		}
		var occurs, assign, due bool
		var titles []string
		more := 0
		for i := range tasks {
			t := &tasks[i]
			if !recurrence.OccursOn(t, day) {
				continue
			}
			occurs = true
			if t.StartDate != nil && t.StartDate.Equal(day.Time) {
				assign = true
			}
			if t.DueDate != nil && t.DueDate.Equal(day.Time) {
				due = true
			}
			if privileged {
				if len(titles) < 2 {
					titles = append(titles, t.Title)
				} else {
					more++
				}
			}
		}
		entry["has_tasks"] = occurs
		entry["has_task_assign"] = assign
		entry["has_task_due"] = due
		if privileged {
			entry["tasks_meta"] = titles
			entry["tasks_meta_more"] = more
		}
		days = append(days, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"year":    year,
		"month":   month,
		"days":    days,
	})
}

// GetDayPlanning handles GET /api/planning/day?date=
func GetDayPlanning(c *gin.Context) {
	user, ok := resolvePlanningUser(c)
	if !ok {
		return
	}
	day, err := models.ParseDate(c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "date is invalid"})
		return
	}
	db := database.GetDB()

	var plan models.Planning
	var planning any
	err = db.Where("representative_id = ? AND date = ?", user.ID, day).First(&plan).Error
	if err == nil {
		planning = plan
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to fetch planning"})
		return
	}

	var all []models.Task
	if err := db.Where("assigned_to_id = ? OR created_by_id = ?", user.ID, user.ID).Find(&all).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to fetch tasks"})
		return
	}
	tasks := make([]models.Task, 0)
	for i := range all {
		if recurrence.OccursOn(&all[i], day) {
			tasks = append(tasks, all[i])
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"date":     day,
		"planning": planning,
		"tasks":    tasks,
	})
}

// DeleteDayPlanning handles DELETE /api/planning/day?date=&user_id= (admin)
func DeleteDayPlanning(c *gin.Context) {
	user, ok := resolvePlanningUser(c)
	if !ok {
		return
	}
	day, err := models.ParseDate(c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "date is invalid"})
		return
	}
	db := database.GetDB()

	var plan models.Planning
	if err := db.Where("representative_id = ? AND date = ?", user.ID, day).First(&plan).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "planning not found"})
		return
	}
	if err := db.Delete(&plan).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to delete planning"})
		return
	}
	logActivity(c, "planning_delete", "plan deleted for "+day.String())
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetPlanningMonths handles GET /api/planning/months?year=
//
// Year overview for the calendar: one entry per month with the number
// of days that have a saved plan.
func GetPlanningMonths(c *gin.Context) {
	user, ok := resolvePlanningUser(c)
	if !ok {
		return
	}
	year := clock.Today().Year()
	if raw := c.Query("year"); raw != "" {
		n, ok := parseUintParam(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "year is invalid"})
			return
		}
		year = int(n)
	}
	db := database.GetDB()

	months := make([]gin.H, 0, 12)
	for m := 1; m <= 12; m++ {
		first := models.NewDate(year, time.Month(m), 1)
		next := models.DateOf(first.AddDate(0, 1, 0))
		var count int64
		err := db.Model(&models.Planning{}).
			Where("representative_id = ? AND date >= ? AND date < ?", user.ID, first, next).
			Count(&count).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to fetch plannings"})
			return
		}
		months = append(months, gin.H{
			"year":              year,
			"month":             m,
			"label":             fmt.Sprintf("%04d-%02d", year, m),
			"days_with_entries": count,
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "year": year, "months": months})
}

// PlanningArchiveDepartments handles GET /api/planning/archive/departments
//
// Archive overview grouped by department: each department lists its
// users inside the caller's scope with their task statistics. Admins
// see every department (optionally narrowed with ?department_id),
// everyone else only the department they belong to.
func PlanningArchiveDepartments(c *gin.Context) {
	current := middleware.CurrentUser(c)
	db := database.GetDB()

	sc, err := scope.Resolve(db, current)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to resolve scope"})
		return
	}

	deptQuery := db.Order("name asc")
	if !current.IsAdmin() {
		if current.DepartmentID == nil {
			c.JSON(http.StatusOK, gin.H{"success": true, "departments": []gin.H{}})
			return
		}
		deptQuery = deptQuery.Where("id = ?", *current.DepartmentID)
	}
	if raw := c.Query("department_id"); raw != "" {
		deptID, ok := parseUintParam(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "department id is invalid"})
			return
		}
		deptQuery = deptQuery.Where("id = ?", deptID)
	}
	var departments []models.Department
	if err := deptQuery.Find(&departments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to fetch departments"})
		return
	}

	today := clock.Today()
	resp := make([]gin.H, 0, len(departments))
	for i := range departments {
		dept := &departments[i]
		var users []models.User
		q := db.Where("department_id = ?", dept.ID).Order("first_name asc")
		if err := sc.Filter(q, "id").Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to fetch users"})
			return
		}
		entries := make([]gin.H, 0, len(users))
		for j := range users {
			u := &users[j]
			stats, err := taskStats(db, u.ID, today)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to fetch tasks"})
				return
			}
			entries = append(entries, gin.H{
				"id":       u.ID,
				"name":     u.FullName(),
				"username": u.Username,
				"stats":    stats,
			})
		}
		resp = append(resp, gin.H{"id": dept.ID, "name": dept.Name, "users": entries})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "departments": resp})
}

// taskStats aggregates a user's assigned tasks for the archive view.
// Pending includes approval-requested tasks; overdue counts open tasks
// whose due date is strictly before today.
func taskStats(db *gorm.DB, userID uint, today models.Date) (gin.H, error) {
	var tasks []models.Task
	if err := db.Where("assigned_to_id = ?", userID).Find(&tasks).Error; err != nil {
		return nil, err
	}
	var completed, inProgress, pending, overdue int
	for i := range tasks {
		t := &tasks[i]
		switch t.Status {
		case models.StatusCompleted:
			completed++
		case models.StatusInProgress:
			inProgress++
		case models.StatusPending, models.StatusRequested:
			pending++
		}
		if t.DueDate != nil && t.DueDate.Before(today.Time) &&
			t.Status != models.StatusCompleted && t.Status != models.StatusCancelled {
			overdue++
		}
	}
	total := len(tasks)
	rate := 0.0
	if total > 0 {
		rate = float64(completed) / float64(total) * 100
	}
	return gin.H{
		"total":           total,
		"completed":       completed,
		"in_progress":     inProgress,
		"pending":         pending,
		"overdue":         overdue,
		"completion_rate": rate,
	}, nil
}

// GetPlanningYears handles GET /api/planning/years — the distinct years
// the user has plans in, for the calendar's year picker.
func GetPlanningYears(c *gin.Context) {
	user, ok := resolvePlanningUser(c)
	if !ok {
		return
	}
	var dates []models.Date
	err := database.GetDB().Model(&models.Planning{}).
		Where("representative_id = ?", user.ID).
		Pluck("date", &dates).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to fetch plannings"})
		return
	}

	seen := make(map[int]bool)
	years := make([]int, 0)
	for _, d := range dates {
		if !seen[d.Year()] {
			seen[d.Year()] = true
			years = append(years, d.Year())
		}
	}
	if len(years) == 0 {
		years = append(years, clock.Today().Year())
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "years": years})
}

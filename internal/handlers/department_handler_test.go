package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"sales-ops-api/internal/middleware"
	"sales-ops-api/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func departmentRouter() *gin.Engine {
	r := gin.New()
	admin := r.Group("/auth")
	admin.Use(middleware.RequireAuth(), middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/departments", GetDepartments)
	admin.POST("/departments", CreateDepartment)
	admin.PUT("/departments/:id", UpdateDepartment)
	admin.GET("/departments/:id/users", GetDepartmentUsers)
	admin.GET("/departments/:id/permissions", GetDepartmentPermissions)
	admin.PUT("/departments/:id/permissions", SetDepartmentPermissions)
	api := r.Group("/api")
	api.Use(middleware.RequireAuth())
	api.GET("/departments/simple", ListSimpleDepartments)
	return r
}

func TestCreateDepartment_PromotesManager(t *testing.T) {
	db := setupDB(t)
	admin := seedUser(t, db, "root", models.RoleAdmin, nil)
	rep := seedUser(t, db, "rep", models.RoleUser, nil)

	w := doJSON(t, departmentRouter(), http.MethodPost, "/auth/departments", tokenFor(t, admin), gin.H{
		"name":       "Field Sales",
		"manager_id": rep.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, rep.ID).Error)
	require.Equal(t, models.RoleDepartmentManager, reloaded.Role)
	require.NotNil(t, reloaded.DepartmentID)
}

func TestCreateDepartment_DuplicateName(t *testing.T) {
	db := setupDB(t)
	admin := seedUser(t, db, "root", models.RoleAdmin, nil)
	seedDepartment(t, db, "Field Sales")

	w := doJSON(t, departmentRouter(), http.MethodPost, "/auth/departments", tokenFor(t, admin), gin.H{
		"name": "Field Sales",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateDepartment_ManagerSwapDemotesOld(t *testing.T) {
	db := setupDB(t)
	admin := seedUser(t, db, "root", models.RoleAdmin, nil)
	dept := seedDepartment(t, db, "Field Sales")
	oldMgr := seedUser(t, db, "old", models.RoleDepartmentManager, &dept.ID)
	require.NoError(t, db.Model(dept).Update("manager_id", oldMgr.ID).Error)
	newMgr := seedUser(t, db, "new", models.RoleUser, &dept.ID)

	w := doJSON(t, departmentRouter(), http.MethodPut, fmt.Sprintf("/auth/departments/%d", dept.ID),
		tokenFor(t, admin), gin.H{"manager_id": newMgr.ID})
	require.Equal(t, http.StatusOK, w.Code)

	var old, fresh models.User
	require.NoError(t, db.First(&old, oldMgr.ID).Error)
	require.NoError(t, db.First(&fresh, newMgr.ID).Error)
	require.Equal(t, models.RoleUser, old.Role, "old manager without other departments is demoted")
	require.Equal(t, models.RoleDepartmentManager, fresh.Role)
}

func TestSetDepartmentPermissions_ReplacesAll(t *testing.T) {
	db := setupDB(t)
	admin := seedUser(t, db, "root", models.RoleAdmin, nil)
	dept := seedDepartment(t, db, "Field Sales")
	require.NoError(t, db.Create(&models.DepartmentPermission{
		DepartmentID: dept.ID, ModuleName: "sales", CanView: true,
	}).Error)
	r := departmentRouter()

	w := doJSON(t, r, http.MethodPut, fmt.Sprintf("/auth/departments/%d/permissions", dept.ID),
		tokenFor(t, admin), gin.H{
			"permissions": []gin.H{
				{"module_name": "Returns", "can_view": true, "can_edit": true},
			},
		})
	require.Equal(t, http.StatusOK, w.Code)

	var perms []models.DepartmentPermission
	require.NoError(t, db.Where("department_id = ?", dept.ID).Find(&perms).Error)
	require.Len(t, perms, 1)
	require.Equal(t, "returns", perms[0].ModuleName, "module names are normalized")
	require.True(t, perms[0].CanEdit)
}

func TestListSimpleDepartments_AdminAllOthersOwn(t *testing.T) {
	db := setupDB(t)
	admin := seedUser(t, db, "root", models.RoleAdmin, nil)
	sales := seedDepartment(t, db, "Field Sales")
	seedDepartment(t, db, "Back Office")
	rep := seedUser(t, db, "rep", models.RoleUser, &sales.ID)
	loner := seedUser(t, db, "loner", models.RoleUser, nil)
	r := departmentRouter()

	w := doJSON(t, r, http.MethodGet, "/api/departments/simple", tokenFor(t, admin), nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	departments := resp["departments"].([]any)
	require.Len(t, departments, 2)
	// Ordered by name.
	require.Equal(t, "Back Office", departments[0].(map[string]any)["name"])

	w = doJSON(t, r, http.MethodGet, "/api/departments/simple", tokenFor(t, rep), nil)
	resp = decodeBody(t, w)
	departments = resp["departments"].([]any)
	require.Len(t, departments, 1)
	require.Equal(t, "Field Sales", departments[0].(map[string]any)["name"])

	w = doJSON(t, r, http.MethodGet, "/api/departments/simple", tokenFor(t, loner), nil)
	resp = decodeBody(t, w)
	require.Empty(t, resp["departments"])
}

func TestGetDepartmentUsers_AdminOnly(t *testing.T) {
	db := setupDB(t)
	admin := seedUser(t, db, "root", models.RoleAdmin, nil)
	dept := seedDepartment(t, db, "Field Sales")
	rep := seedUser(t, db, "rep", models.RoleUser, &dept.ID)
	r := departmentRouter()
	path := fmt.Sprintf("/auth/departments/%d/users", dept.ID)

	w := doJSON(t, r, http.MethodGet, path, tokenFor(t, rep), nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, http.MethodGet, path, tokenFor(t, admin), nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	users := resp["users"].([]any)
	require.Len(t, users, 1)
	first := users[0].(map[string]any)
	require.Equal(t, "rep", first["username"])
	require.Equal(t, rep.FullName(), first["full_name"])
	require.Equal(t, true, first["is_active"])

	w = doJSON(t, r, http.MethodGet, "/auth/departments/9999/users", tokenFor(t, admin), nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetDepartments_IncludesCounts(t *testing.T) {
	db := setupDB(t)
	admin := seedUser(t, db, "root", models.RoleAdmin, nil)
	dept := seedDepartment(t, db, "Field Sales")
	seedUser(t, db, "rep1", models.RoleUser, &dept.ID)
	seedUser(t, db, "rep2", models.RoleUser, &dept.ID)

	w := doJSON(t, departmentRouter(), http.MethodGet, "/auth/departments", tokenFor(t, admin), nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	departments := resp["departments"].([]any)
	require.Len(t, departments, 1)
	first := departments[0].(map[string]any)
	require.EqualValues(t, 2, first["user_count"])
}

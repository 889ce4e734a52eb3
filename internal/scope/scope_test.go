package scope

import (
	"testing"

	"sales-ops-api/internal/models"
	"sales-ops-api/internal/testutil"

	"github.com/stretchr/testify/require"
)

func TestUnrestrictedIsNotEmptySet(t *testing.T) {
	unrestricted := Unrestricted()
	empty := Of()

	require.True(t, unrestricted.Contains(42))
	require.False(t, empty.Contains(42))
	require.Nil(t, unrestricted.IDs())
	require.Empty(t, empty.IDs())
}

func TestResolve_Admin(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)

	admin := models.User{Username: "root", PasswordHash: "x", Role: models.RoleAdmin}
	require.NoError(t, db.Create(&admin).Error)

	sc, err := Resolve(db, &admin)
	require.NoError(t, err)
	require.True(t, sc.IsUnrestricted())
	require.True(t, sc.Contains(9999))
}

func TestResolve_DepartmentManager(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)

	dept := models.Department{Name: "Field Sales", IsActive: true}
	require.NoError(t, db.Create(&dept).Error)
	other := models.Department{Name: "Back Office", IsActive: true}
	require.NoError(t, db.Create(&other).Error)

	manager := models.User{Username: "dm", PasswordHash: "x", Role: models.RoleDepartmentManager, DepartmentID: &dept.ID}
	member := models.User{Username: "rep1", PasswordHash: "x", Role: models.RoleUser, DepartmentID: &dept.ID}
	outsider := models.User{Username: "rep2", PasswordHash: "x", Role: models.RoleUser, DepartmentID: &other.ID}
	require.NoError(t, db.Create(&manager).Error)
	require.NoError(t, db.Create(&member).Error)
	require.NoError(t, db.Create(&outsider).Error)

	sc, err := Resolve(db, &manager)
	require.NoError(t, err)
	require.False(t, sc.IsUnrestricted())
	require.True(t, sc.Contains(manager.ID))
	require.True(t, sc.Contains(member.ID))
	require.False(t, sc.Contains(outsider.ID))
}

func TestResolve_ManagerWithoutDepartmentSeesNothing(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)

	manager := models.User{Username: "dm", PasswordHash: "x", Role: models.RoleDepartmentManager}
	require.NoError(t, db.Create(&manager).Error)

	sc, err := Resolve(db, &manager)
	require.NoError(t, err)
	require.False(t, sc.IsUnrestricted())
	require.False(t, sc.Contains(manager.ID))
	require.Empty(t, sc.IDs())
}

func TestResolve_PlainUserSeesOnlySelf(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)

	user := models.User{Username: "rep", PasswordHash: "x", Role: models.RoleUser}
	require.NoError(t, db.Create(&user).Error)

	sc, err := Resolve(db, &user)
	require.NoError(t, err)
	require.True(t, sc.Contains(user.ID))
	require.False(t, sc.Contains(user.ID+1))
}

func TestFilter(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)

	for _, repID := range []uint{1, 2, 3} {
		sale := models.Sale{
			RepresentativeID: repID,
			Date:             models.NewDate(2025, 3, 10),
			ProductGroup:     "g", Brand: "b", ProductName: "p",
			Quantity: 1, UnitPrice: 10, TotalPrice: 10, NetPrice: 10,
		}
		require.NoError(t, db.Create(&sale).Error)
	}

	var n int64
	require.NoError(t, Of(1, 3).Filter(db.Model(&models.Sale{}), "representative_id").Count(&n).Error)
	require.EqualValues(t, 2, n)

	require.NoError(t, Unrestricted().Filter(db.Model(&models.Sale{}), "representative_id").Count(&n).Error)
	require.EqualValues(t, 3, n)

	require.NoError(t, Of().Filter(db.Model(&models.Sale{}), "representative_id").Count(&n).Error)
	require.EqualValues(t, 0, n)
}

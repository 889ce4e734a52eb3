package scope

import (
	"sales-ops-api/internal/models"

	"gorm.io/gorm"
)

// Scope is the set of user IDs whose records a principal may access.
// An unrestricted scope (admin) is distinct from an enumerated set: an
// empty set means no access, unrestricted means all access.
type Scope struct {
	unrestricted bool
	userIDs      map[uint]struct{}
}

// Unrestricted builds the admin scope.
func Unrestricted() Scope {
	return Scope{unrestricted: true}
}

// Of builds an explicit scope over the given user IDs.
func Of(ids ...uint) Scope {
	s := Scope{userIDs: make(map[uint]struct{}, len(ids))}
	for _, id := range ids {
		s.userIDs[id] = struct{}{}
	}
	return s
}

// Resolve computes the access scope of a principal:
//   - admin: unrestricted
//   - department manager with a department: every user in it
//   - department manager without a department: empty (no access)
//   - plain user: only themselves
//
// Department membership can change between requests, so scopes must be
// resolved fresh per request and never cached.
func Resolve(db *gorm.DB, u *models.User) (Scope, error) {
	switch {
	case u.IsAdmin():
		return Unrestricted(), nil
	case u.IsDepartmentManager():
		if u.DepartmentID == nil {
			return Of(), nil
		}
		var ids []uint
		err := db.Model(&models.User{}).
			Where("department_id = ?", *u.DepartmentID).
			Pluck("id", &ids).Error
		if err != nil {
			return Scope{}, err
		}
		return Of(ids...), nil
	default:
		return Of(u.ID), nil
	}
}

// IsUnrestricted reports whether the scope carries no filter at all.
func (s Scope) IsUnrestricted() bool {
	return s.unrestricted
}

// Contains reports whether the given user is inside the scope.
func (s Scope) Contains(userID uint) bool {
	if s.unrestricted {
		return true
	}
	_, ok := s.userIDs[userID]
	return ok
}

// IDs returns the enumerated user IDs. Nil for an unrestricted scope.
func (s Scope) IDs() []uint {
	if s.unrestricted {
		return nil
	}
	ids := make([]uint, 0, len(s.userIDs))
	for id := range s.userIDs {
		ids = append(ids, id)
	}
	return ids
}

// Filter narrows a query by the scope on the given user-reference
// column. Unrestricted scopes pass the query through unchanged; empty
// scopes match nothing.
func (s Scope) Filter(q *gorm.DB, column string) *gorm.DB {
	if s.unrestricted {
		return q
	}
	return q.Where(column+" IN ?", s.IDs())
}

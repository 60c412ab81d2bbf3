package tenant

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("tenant not found")

// EndOfTime is the account-expiration sentinel used when a tenant has no
// validity-period policy.
var EndOfTime = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

type Tenant struct {
	ID   uuid.UUID
	Name string
	// UserValidityPeriod is the tenant-wide account validity in seconds;
	// a negative value means accounts never expire.
	UserValidityPeriod int64
	CreatedAt          time.Time
}

// AccountExpiration derives the expiration timestamp for a newly mirrored
// user, per the tenant validity-period policy.
func (t Tenant) AccountExpiration(now time.Time) time.Time {
	if t.UserValidityPeriod < 0 {
		return EndOfTime
	}
	return now.Add(time.Duration(t.UserValidityPeriod) * time.Second)
}

// Department is a tenant-scoped mirror of a data-source department.
// Mirrors are created and deleted, never updated; identity fields are read
// through to the source entity.
type Department struct {
	ID           int64
	TenantID     uuid.UUID
	DataSourceID int64
	DepartmentID int64
}

// User is a tenant-scoped mirror of a data-source user.
type User struct {
	ID           int64
	TenantID     uuid.UUID
	DataSourceID int64
	UserID       int64
	ExpiredAt    time.Time
}

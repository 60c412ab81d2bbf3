package datasource

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("data source not found")

// DataSource is one external identity provider instance. It owns the code
// namespace for its departments and users.
type DataSource struct {
	ID       int64
	TenantID uuid.UUID
	Code     string
	Name     string
	// UsernameRule, when non-empty, names the tenant-level naming rule that
	// governs the username field. A governed username is never overwritten
	// from raw records, even in overwrite mode.
	UsernameRule string
	CreatedAt    time.Time
}

// UsernameGoverned reports whether a naming rule, not the source, is
// authoritative for the username field.
func (d DataSource) UsernameGoverned() bool {
	return d.UsernameRule != ""
}

type Department struct {
	ID           int64
	DataSourceID int64
	Code         string
	Name         string
}

// DepartmentRelation encodes one department's position in the forest:
// a parent pointer plus nested-set traversal coordinates scoped by TreeID.
type DepartmentRelation struct {
	ID           int64
	DataSourceID int64
	DepartmentID int64
	ParentID     *int64
	TreeID       int64
	Left         int
	Right        int
	Level        int
}

type User struct {
	ID               int64
	DataSourceID     int64
	Code             string
	Username         string
	FullName         string
	Email            string
	Phone            string
	PhoneCountryCode string
	Extras           map[string]any
}

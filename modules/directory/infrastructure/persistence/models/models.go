package models

import (
	"time"

	"github.com/google/uuid"
)

type DataSource struct {
	ID           int64
	TenantID     uuid.UUID
	Code         string
	Name         string
	UsernameRule string
	CreatedAt    time.Time
}

type Department struct {
	ID           int64
	DataSourceID int64
	Code         string
	Name         string
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

type SyncTask struct {
	ID           int64
	Type         string
	DataSourceID int64
	TenantID     *uuid.UUID
	Status       string
	Trigger      string
	Overwrite    bool
	Incremental  bool
	HasWarning   bool
	Logs         string
	StartedAt    time.Time
	DurationMS   int64
}

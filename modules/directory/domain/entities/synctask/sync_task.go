package synctask

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeDataSource Type = "data_source"
	TypeTenant     Type = "tenant"
)

type Status string

const (
	StatusRunning Status = "RUNNING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

type Trigger string

const (
	TriggerManual  Trigger = "manual"
	TriggerCrontab Trigger = "crontab"
	TriggerSignal  Trigger = "signal"
)

type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

type EntityType string

const (
	EntityDepartment       EntityType = "department"
	EntityUser             EntityType = "user"
	EntityTenantDepartment EntityType = "tenant_department"
	EntityTenantUser       EntityType = "tenant_user"
)

// SyncTask is one engine invocation. Created RUNNING when the task scope is
// entered; finalized exactly once with SUCCESS or FAILED. Never deleted.
type SyncTask struct {
	ID           int64
	Type         Type
	DataSourceID int64
	TenantID     *uuid.UUID
	Status       Status
	Trigger      Trigger
	Overwrite    bool
	Incremental  bool
	HasWarning   bool
	Logs         string
	StartedAt    time.Time
	Duration     time.Duration
}

// ChangeLog is one create/update/delete decision made during a task.
// Written once at task end, never mutated.
type ChangeLog struct {
	ID         int64
	TaskID     int64
	EntityType EntityType
	Operation  Operation
	Code       string
	Name       string
	CreatedAt  time.Time
}

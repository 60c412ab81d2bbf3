package services

import (
	"context"

	"github.com/iota-uz/dirsync/modules/directory/domain/entities/synctask"
)

// Change is one create/update/delete decision made by a syncer. Changes are
// buffered by the task context and persisted as change-log rows at task end.
type Change struct {
	Entity synctask.EntityType
	Op     synctask.Operation
	Code   string
	Name   string
}

// Syncer is one reconciliation stage of the pipeline. Sync applies the
// stage's store mutations and returns the changes it decided on. Syncers
// raise; the only condition handled inline is an unresolvable reference,
// which is logged and skipped.
type Syncer interface {
	Name() string
	Sync(ctx context.Context) ([]Change, error)
}

// SyncOptions are the per-invocation task parameters.
type SyncOptions struct {
	// Overwrite causes matched entities to have their fields replaced with
	// the raw values.
	Overwrite bool
	// Incremental suppresses deletion of entities absent from the raw batch.
	Incremental bool
	Trigger     synctask.Trigger
}

package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/dirsync/modules/directory/domain/entities/datasource"
	"github.com/iota-uz/dirsync/modules/directory/domain/entities/synctask"
)

// TaskContext scopes one sync task: it creates the task row RUNNING, buffers
// log lines and change records while the body runs, and persists everything
// exactly once on exit. RUNNING moves to SUCCESS on a normal return and to
// FAILED on an error or recovered panic. Change records accumulated before a
// failure are discarded; store mutations already applied by completed stages
// are not rolled back here.
type TaskContext struct {
	tasks TaskStore
	task  *synctask.SyncTask

	buf     bytes.Buffer
	logger  *logrus.Logger
	warning *warningHook
	changes []Change

	now func() time.Time
}

func NewDataSourceTaskContext(tasks TaskStore, ds datasource.DataSource, opts SyncOptions) *TaskContext {
	return newTaskContext(tasks, &synctask.SyncTask{
		Type:         synctask.TypeDataSource,
		DataSourceID: ds.ID,
		Trigger:      opts.Trigger,
		Overwrite:    opts.Overwrite,
		Incremental:  opts.Incremental,
	})
}

func NewTenantTaskContext(tasks TaskStore, ds datasource.DataSource, tenantID uuid.UUID, opts SyncOptions) *TaskContext {
	return newTaskContext(tasks, &synctask.SyncTask{
		Type:         synctask.TypeTenant,
		DataSourceID: ds.ID,
		TenantID:     &tenantID,
		Trigger:      opts.Trigger,
		Overwrite:    opts.Overwrite,
		Incremental:  opts.Incremental,
	})
}

func newTaskContext(tasks TaskStore, task *synctask.SyncTask) *TaskContext {
	tc := &TaskContext{
		tasks:   tasks,
		task:    task,
		warning: &warningHook{},
		now:     time.Now,
	}
	logger := logrus.New()
	logger.SetOutput(&tc.buf)
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(taskLogFormatter{})
	logger.AddHook(tc.warning)
	tc.logger = logger
	return tc
}

// Logger returns the task-scoped logger. Its output is buffered in memory
// for the task duration and written onto the task row once, at exit.
func (t *TaskContext) Logger() *logrus.Logger {
	return t.logger
}

// Task returns the task row owned by this context.
func (t *TaskContext) Task() *synctask.SyncTask {
	return t.task
}

// Record buffers change decisions for persistence at task end.
func (t *TaskContext) Record(changes ...Change) {
	t.changes = append(t.changes, changes...)
}

// Changes returns the change decisions recorded so far.
func (t *TaskContext) Changes() []Change {
	return t.changes
}

// Execute runs body inside the task scope.
func (t *TaskContext) Execute(ctx context.Context, body func(ctx context.Context) error) error {
	t.task.Status = synctask.StatusRunning
	t.task.StartedAt = t.now()
	if err := t.tasks.Create(ctx, t.task); err != nil {
		return errors.Wrap(err, "create sync task")
	}
	t.logger.Infof("sync task %d started (type=%s, overwrite=%t, incremental=%t)",
		t.task.ID, t.task.Type, t.task.Overwrite, t.task.Incremental)

	err := t.runBody(ctx, body)

	t.task.Duration = t.now().Sub(t.task.StartedAt)

	if err != nil {
		t.logger.Errorf("sync task failed: %+v", err)
		t.task.Status = synctask.StatusFailed
		t.changes = nil
	} else {
		t.logger.Infof("sync task success: %d changes recorded", len(t.changes))
		if persistErr := t.persistChanges(ctx); persistErr != nil {
			t.logger.Errorf("sync task failed: persist change logs: %+v", persistErr)
			t.task.Status = synctask.StatusFailed
			err = persistErr
		} else {
			t.task.Status = synctask.StatusSuccess
		}
	}

	t.task.HasWarning = t.warning.raised
	t.task.Logs = t.buf.String()
	if finishErr := t.tasks.Finish(ctx, t.task); finishErr != nil {
		if err == nil {
			err = errors.Wrap(finishErr, "finish sync task")
		}
	}
	return err
}

func (t *TaskContext) runBody(ctx context.Context, body func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("sync task panicked: %v", r)
		}
	}()
	return body(ctx)
}

func (t *TaskContext) persistChanges(ctx context.Context) error {
	if len(t.changes) == 0 {
		return nil
	}
	logs := make([]synctask.ChangeLog, 0, len(t.changes))
	for _, c := range t.changes {
		logs = append(logs, synctask.ChangeLog{
			TaskID:     t.task.ID,
			EntityType: c.Entity,
			Operation:  c.Op,
			Code:       c.Code,
			Name:       c.Name,
		})
	}
	return t.tasks.BulkInsertChangeLogs(ctx, logs)
}

// taskLogFormatter renders one level-prefixed line per entry, the format
// stored on the task row.
type taskLogFormatter struct{}

func (taskLogFormatter) Format(e *logrus.Entry) ([]byte, error) {
	return []byte(fmt.Sprintf("%s %s\n", strings.ToUpper(e.Level.String()), e.Message)), nil
}

// warningHook raises the task's has_warning flag on any entry at warning
// severity or worse.
type warningHook struct {
	raised bool
}

func (h *warningHook) Levels() []logrus.Level {
	return []logrus.Level{
		logrus.WarnLevel,
		logrus.ErrorLevel,
		logrus.FatalLevel,
		logrus.PanicLevel,
	}
}

func (h *warningHook) Fire(*logrus.Entry) error {
	h.raised = true
	return nil
}

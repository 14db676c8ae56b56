package core

import (
	"context"
	"time"

	"taskmate/internal/logging"
)

// Logger is the structured logging contract used by the service.
type Logger = logging.Logger

type noopLogger = logging.Noop

// Clock supplies the current time for audit timestamps.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// AuditStatus is the outcome recorded for an operation.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry describes one service operation for the audit trail.
type AuditEntry struct {
	Timestamp time.Time
	Operation string
	Entity    EntityType
	Action    Action
	EntityID  string
	Status    AuditStatus
	Duration  time.Duration
	Error     string
}

// AuditRecorder receives audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// MetricsRecorder observes operation outcomes.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts spans around operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is finished with the operation's error, nil on success.
type TraceSpan interface {
	End(err error)
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

type operationMeta struct {
	entity EntityType
	action Action
}

// operations maps audited operation names to the entity and action they touch.
var operations = map[string]operationMeta{
	"create_team":             {EntityTeam, ActionCreate},
	"update_team":             {EntityTeam, ActionUpdate},
	"delete_team":             {EntityTeam, ActionDelete},
	"join_team":               {EntityTeam, ActionUpdate},
	"add_team_member":         {EntityTeam, ActionUpdate},
	"remove_team_member":      {EntityTeam, ActionUpdate},
	"set_current_team":        {EntityCurrentTeam, ActionUpdate},
	"create_project":          {EntityProject, ActionCreate},
	"update_project":          {EntityProject, ActionUpdate},
	"delete_project":          {EntityProject, ActionDelete},
	"create_task":             {EntityTask, ActionCreate},
	"update_task":             {EntityTask, ActionUpdate},
	"delete_task":             {EntityTask, ActionDelete},
	"add_comment":             {EntityComment, ActionCreate},
	"delete_comment":          {EntityComment, ActionDelete},
	"add_file":                {EntityFile, ActionCreate},
	"update_file":             {EntityFile, ActionUpdate},
	"delete_file":             {EntityFile, ActionDelete},
	"add_file_comment":        {EntityFileComment, ActionCreate},
	"delete_file_comment":     {EntityFileComment, ActionDelete},
	"create_notification":     {EntityNotification, ActionCreate},
	"mark_notification_read":  {EntityNotification, ActionUpdate},
	"mark_notifications_read": {EntityNotification, ActionUpdate},
	"delete_notification":     {EntityNotification, ActionDelete},
	"notify_deadlines":        {EntityNotification, ActionCreate},
}

func (s *Service) recordAuditSuccess(ctx context.Context, op, entityID string, duration time.Duration) {
	s.recordAudit(ctx, op, entityID, duration, nil)
}

func (s *Service) recordAuditError(ctx context.Context, op, entityID string, duration time.Duration, err error) {
	s.recordAudit(ctx, op, entityID, duration, err)
}

func (s *Service) recordAudit(ctx context.Context, op, entityID string, duration time.Duration, err error) {
	meta, ok := operations[op]
	if !ok {
		return
	}
	entry := AuditEntry{
		Timestamp: s.clock.Now(),
		Operation: op,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Status:    AuditStatusSuccess,
		Duration:  duration,
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}

package core

import "taskmate/pkg/domain"

type (
	EntityType         = domain.EntityType
	Severity           = domain.Severity
	User               = domain.User
	SessionUser        = domain.SessionUser
	Team               = domain.Team
	Project            = domain.Project
	Task               = domain.Task
	Comment            = domain.Comment
	FileAttachment     = domain.FileAttachment
	FileComment        = domain.FileComment
	Notification       = domain.Notification
	TaskStatus         = domain.TaskStatus
	Priority           = domain.Priority
	FileCategory       = domain.FileCategory
	FileStatus         = domain.FileStatus
	NotificationType   = domain.NotificationType
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	ValidationError    = domain.ValidationError
	Rule               = domain.Rule
	RuleView           = domain.RuleView
	RulesEngine        = domain.RulesEngine
)

// ErrNotFound is returned when an operation references a missing entity.
type ErrNotFound = domain.NotFoundError

// ErrJoinCodeExhausted reports that no unused join code could be drawn.
var ErrJoinCodeExhausted = domain.ErrJoinCodeExhausted

const (
	EntityTeam         = domain.EntityTeam
	EntityProject      = domain.EntityProject
	EntityTask         = domain.EntityTask
	EntityComment      = domain.EntityComment
	EntityFile         = domain.EntityFile
	EntityFileComment  = domain.EntityFileComment
	EntityNotification = domain.EntityNotification
	EntityCurrentTeam  = domain.EntityCurrentTeam
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)

// NewRulesEngine constructs an empty engine.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

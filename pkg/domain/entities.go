// Package domain defines the persisted TaskMate entities, value types, and
// rule evaluation primitives shared by the store and service layers.
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityTeam identifies a team record.
	EntityTeam EntityType = "team"
	// EntityProject identifies a project owned by a team.
	EntityProject EntityType = "project"
	// EntityTask identifies a task within a project.
	EntityTask EntityType = "task"
	// EntityComment identifies a task-scoped comment.
	EntityComment EntityType = "comment"
	// EntityFile identifies file attachment metadata.
	EntityFile EntityType = "file"
	// EntityFileComment identifies a comment on a file attachment.
	EntityFileComment EntityType = "file_comment"
	// EntityNotification identifies a per-user notification.
	EntityNotification EntityType = "notification"
	// EntityCurrentTeam identifies the session pointer to the selected team.
	EntityCurrentTeam EntityType = "current_team"
	EntityUser        EntityType = "user"
)

// Role is the coarse user role. It is informational only; nothing is authorized by it.
type Role string

// Supported user roles.
const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// TaskStatus enumerates the kanban columns a task moves through.
type TaskStatus string

// Canonical task statuses.
const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "inprogress"
	TaskStatusDone       TaskStatus = "done"
)

// Priority ranks task urgency.
type Priority string

// Canonical task priorities.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// FileCategory groups attachments for filtering.
type FileCategory string

// Canonical file categories.
const (
	FileCategoryDocument     FileCategory = "document"
	FileCategoryImage        FileCategory = "image"
	FileCategoryVideo        FileCategory = "video"
	FileCategorySpreadsheet  FileCategory = "spreadsheet"
	FileCategoryPresentation FileCategory = "presentation"
	FileCategoryOther        FileCategory = "other"
)

// FileStatus tracks the review state of an attachment.
type FileStatus string

// Canonical file review states.
const (
	FileStatusDraft         FileStatus = "draft"
	FileStatusNeedsRevision FileStatus = "needs-revision"
	FileStatusApproved      FileStatus = "approved"
)

// NotificationType enumerates the events a user can be notified about.
type NotificationType string

// Canonical notification types.
const (
	NotificationTaskAssigned        NotificationType = "task_assigned"
	NotificationTaskCompleted       NotificationType = "task_completed"
	NotificationCommentAdded        NotificationType = "comment_added"
	NotificationDeadlineApproaching NotificationType = "deadline_approaching"
	NotificationFileUploaded        NotificationType = "file_uploaded"
	NotificationTeamInvite          NotificationType = "team_invite"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// DeadlineLayout is the date-only layout deadlines are entered with.
const DeadlineLayout = "2006-01-02"

// Join codes are JoinCodeLength characters drawn from JoinCodeAlphabet, which
// leaves out the easily confused 0/O and 1/I.
const (
	JoinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	JoinCodeLength   = 8
)

// ErrJoinCodeExhausted is returned when no unused join code could be drawn.
var ErrJoinCodeExhausted = errors.New("join code generation exhausted")

// NormalizeJoinCode trims and uppercases user input.
func NormalizeJoinCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidJoinCode reports whether code has the generated shape.
func ValidJoinCode(code string) bool {
	if len(code) != JoinCodeLength {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(JoinCodeAlphabet, r) {
			return false
		}
	}
	return true
}

// User is a registered account. Password material never leaves the auth package
// in session records; see SessionUser.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	Password     string    `json:"password,omitempty"` // legacy plaintext, cleared on upgrade
	Role         Role      `json:"role"`
	Initials     string    `json:"initials"`
	Bio          string    `json:"bio,omitempty"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
}

// SessionUser is the password-free projection persisted as the current session.
type SessionUser struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	Initials  string `json:"initials"`
	Bio       string `json:"bio,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Session strips password material from the user.
func (u User) Session() SessionUser {
	return SessionUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Initials:  u.Initials,
		Bio:       u.Bio,
		AvatarURL: u.AvatarURL,
	}
}

// Team groups members, projects and tasks.
type Team struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	JoinCode    string    `json:"joinCode"`
	Members     []string  `json:"members"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// HasMember reports whether userID is listed in the team members.
func (t Team) HasMember(userID string) bool {
	for _, m := range t.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// Project belongs to exactly one team.
type Project struct {
	ID          string    `json:"id"`
	TeamID      string    `json:"teamId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Task is a unit of work inside a project.
type Task struct {
	ID          string     `json:"id"`
	TeamID      string     `json:"teamId"`
	ProjectID   string     `json:"projectId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	AssigneeID  string     `json:"assigneeId"`
	Deadline    string     `json:"deadline"`
	Priority    Priority   `json:"priority"`
	CreatedBy   string     `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// DeadlineTime parses the deadline as a calendar date (or a full RFC 3339 timestamp).
func (t Task) DeadlineTime() (time.Time, bool) {
	return ParseDeadline(t.Deadline)
}

// ParseDeadline accepts "2006-01-02" and RFC 3339 timestamps.
func ParseDeadline(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if d, err := time.Parse(DeadlineLayout, raw); err == nil {
		return d, true
	}
	if d, err := time.Parse(time.RFC3339, raw); err == nil {
		return d, true
	}
	return time.Time{}, false
}

// Comment is a message on a task. UserName and UserInitials are captured at
// creation time and are not kept in sync with the user record.
type Comment struct {
	ID           string    `json:"id"`
	TaskID       string    `json:"taskId"`
	UserID       string    `json:"userId"`
	UserName     string    `json:"userName"`
	UserInitials string    `json:"userInitials"`
	Message      string    `json:"message"`
	CreatedAt    time.Time `json:"createdAt"`
}

// FileAttachment is metadata for a file. URL is a reference only; no bytes are stored.
type FileAttachment struct {
	ID             string       `json:"id"`
	TaskID         string       `json:"taskId"`
	ProjectID      string       `json:"projectId"`
	TeamID         string       `json:"teamId"`
	Name           string       `json:"name"`
	Size           int64        `json:"size"`
	Type           string       `json:"type"`
	Category       FileCategory `json:"category"`
	URL            string       `json:"url"`
	UploadedBy     string       `json:"uploadedBy"`
	UploadedByName string       `json:"uploadedByName"`
	UploadedAt     time.Time    `json:"uploadedAt"`
	Tags           []string     `json:"tags"`
	Description    string       `json:"description,omitempty"`
	Status         FileStatus   `json:"status"`
}

// HasTag reports whether the attachment carries tag.
func (f FileAttachment) HasTag(tag string) bool {
	for _, t := range f.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// FileComment is a review message on a file attachment.
type FileComment struct {
	ID           string    `json:"id"`
	FileID       string    `json:"fileId"`
	UserID       string    `json:"userId"`
	UserName     string    `json:"userName"`
	UserInitials string    `json:"userInitials"`
	Message      string    `json:"message"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Notification is addressed to a single recipient.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	RelatedID string           `json:"relatedId,omitempty"`
	IsRead    bool             `json:"isRead"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// Valid reports whether c is a known file category.
func (c FileCategory) Valid() bool {
	switch c {
	case FileCategoryDocument, FileCategoryImage, FileCategoryVideo,
		FileCategorySpreadsheet, FileCategoryPresentation, FileCategoryOther:
		return true
	}
	return false
}

// Valid reports whether s is a known file review state.
func (s FileStatus) Valid() bool {
	switch s {
	case FileStatusDraft, FileStatusNeedsRevision, FileStatusApproved:
		return true
	}
	return false
}

// Valid reports whether n is a known notification type.
func (n NotificationType) Valid() bool {
	switch n {
	case NotificationTaskAssigned, NotificationTaskCompleted, NotificationCommentAdded,
		NotificationDeadlineApproaching, NotificationFileUploaded, NotificationTeamInvite:
		return true
	}
	return false
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			return "transaction blocked by rules: " + v.Rule + ": " + v.Message
		}
	}
	return "transaction blocked by rules"
}

// NotFoundError is returned when an operation references a missing entity.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ValidationError reports caller input rejected before any state is touched.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

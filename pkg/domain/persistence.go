package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Deletes apply the entity's cascade.
type Transaction interface {
	Snapshot() TransactionView
	CreateTeam(Team) (Team, error)
	UpdateTeam(id string, mutator func(*Team) error) (Team, error)
	DeleteTeam(id string) error
	CreateProject(Project) (Project, error)
	UpdateProject(id string, mutator func(*Project) error) (Project, error)
	DeleteProject(id string) error
	CreateTask(Task) (Task, error)
	UpdateTask(id string, mutator func(*Task) error) (Task, error)
	DeleteTask(id string) error
	CreateComment(Comment) (Comment, error)
	DeleteComment(id string) error
	CreateFile(FileAttachment) (FileAttachment, error)
	UpdateFile(id string, mutator func(*FileAttachment) error) (FileAttachment, error)
	DeleteFile(id string) error
	CreateFileComment(FileComment) (FileComment, error)
	DeleteFileComment(id string) error
	CreateNotification(Notification) (Notification, error)
	UpdateNotification(id string, mutator func(*Notification) error) (Notification, error)
	DeleteNotification(id string) error
	SetCurrentTeam(id string) error
	FindTeam(id string) (Team, bool)
	FindProject(id string) (Project, bool)
	FindTask(id string) (Task, bool)
	FindFile(id string) (FileAttachment, bool)
}

// TransactionView provides read-only access to snapshot data.
type TransactionView interface {
	ListTeams() []Team
	ListProjects() []Project
	ListTasks() []Task
	ListComments() []Comment
	ListFiles() []FileAttachment
	ListFileComments() []FileComment
	ListNotifications() []Notification
	FindTeam(id string) (Team, bool)
	FindProject(id string) (Project, bool)
	FindTask(id string) (Task, bool)
	FindFile(id string) (FileAttachment, bool)
	CurrentTeamID() string
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	RulesEngine() *RulesEngine
}

// Package memory provides the in-memory transactional store behind every
// TaskMate backend. Each transaction works on a clone of the state and is
// committed only when the rules engine reports no blocking violation.
package memory

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskmate/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Team aliases domain.Team.
	Team = domain.Team
	// Project aliases domain.Project.
	Project = domain.Project
	// Task aliases domain.Task.
	Task = domain.Task
	// Comment aliases domain.Comment.
	Comment = domain.Comment
	// FileAttachment aliases domain.FileAttachment.
	FileAttachment = domain.FileAttachment
	// FileComment aliases domain.FileComment.
	FileComment = domain.FileComment
	// Notification aliases domain.Notification.
	Notification = domain.Notification
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

// maxJoinCodeAttempts bounds the re-roll loop when a drawn code is taken.
const maxJoinCodeAttempts = 16

// randRead is swapped in tests to force join code collisions.
var randRead = rand.Read

// Store provides an in-memory transactional store for the TaskMate domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine, opts ...Option) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	s := &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newID() string {
	return uuid.NewString()
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot after
// normalising it (see migrateSnapshot).
func (s *Store) ImportState(snapshot Snapshot) error {
	migrated, err := migrateSnapshot(snapshot)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrated)
	return nil
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	res, _, err := s.Apply(ctx, fn)
	return res, err
}

// Apply is RunInTransaction that also returns the committed changes, so
// write-through wrappers know which collections to persist. On error the
// state is untouched and no changes are returned.
func (s *Store) Apply(ctx context.Context, fn func(tx Transaction) error) (Result, []Change, error) {
	return s.ApplyThen(ctx, fn, nil)
}

// CommitHook runs after the rules pass and before the new state is
// installed, with the state before and after the transaction. An error
// discards the transaction.
type CommitHook func(prev, next Snapshot, changes []Change) error

// ApplyThen is Apply with a hook that must succeed before the state is
// replaced. The hook runs under the store lock.
func (s *Store) ApplyThen(ctx context.Context, fn func(tx Transaction) error, hook CommitHook) (Result, []Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, nil, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, nil, err
		}
		result = res
		if res.HasBlocking() {
			return res, nil, domain.RuleViolationError{Result: res}
		}
	}

	if hook != nil && len(tx.changes) > 0 {
		if err := hook(snapshotFromMemoryState(s.state), snapshotFromMemoryState(tx.state), tx.changes); err != nil {
			return result, nil, err
		}
	}

	s.state = tx.state
	return result, tx.changes, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(newTransactionView(&snapshot))
}

// transaction represents a mutation set applied to the store state.
type transaction struct {
	state   memoryState
	changes []Change
	now     time.Time
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// FindTeam exposes team lookup within the transaction scope.
func (tx *transaction) FindTeam(id string) (Team, bool) {
	return newTransactionView(&tx.state).FindTeam(id)
}

// FindProject exposes project lookup within the transaction scope.
func (tx *transaction) FindProject(id string) (Project, bool) {
	return newTransactionView(&tx.state).FindProject(id)
}

// FindTask exposes task lookup within the transaction scope.
func (tx *transaction) FindTask(id string) (Task, bool) {
	return newTransactionView(&tx.state).FindTask(id)
}

// FindFile exposes file lookup within the transaction scope.
func (tx *transaction) FindFile(id string) (FileAttachment, bool) {
	return newTransactionView(&tx.state).FindFile(id)
}

func (tx *transaction) nextJoinCode() (string, error) {
	taken := make(map[string]struct{}, len(tx.state.teams))
	for _, t := range tx.state.teams {
		taken[t.JoinCode] = struct{}{}
	}
	return generateJoinCode(taken)
}

// generateJoinCode draws codes until one is not in taken, giving up after
// maxJoinCodeAttempts.
func generateJoinCode(taken map[string]struct{}) (string, error) {
	alphabet := domain.JoinCodeAlphabet
	buf := make([]byte, domain.JoinCodeLength)
	for attempt := 0; attempt < maxJoinCodeAttempts; attempt++ {
		if _, err := randRead(buf); err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		code := make([]byte, len(buf))
		for i, b := range buf {
			// 256 is a multiple of 32, so the modulo is unbiased
			code[i] = alphabet[int(b)%len(alphabet)]
		}
		if _, exists := taken[string(code)]; !exists {
			return string(code), nil
		}
	}
	return "", domain.ErrJoinCodeExhausted
}

// CreateTeam stores a new team, assigning an id and a unique join code.
func (tx *transaction) CreateTeam(t Team) (Team, error) {
	if t.ID == "" {
		t.ID = newID()
	}
	if indexByID(tx.state.teams, t.ID, teamID) >= 0 {
		return Team{}, fmt.Errorf("team %q already exists", t.ID)
	}
	t.JoinCode = domain.NormalizeJoinCode(t.JoinCode)
	if t.JoinCode == "" {
		code, err := tx.nextJoinCode()
		if err != nil {
			return Team{}, err
		}
		t.JoinCode = code
	}
	t.Members = dedupeStrings(t.Members)
	t.CreatedAt = tx.now
	tx.state.teams = append(tx.state.teams, cloneTeam(t))
	tx.recordChange(Change{Entity: domain.EntityTeam, Action: domain.ActionCreate, After: cloneTeam(t)})
	return cloneTeam(t), nil
}

// UpdateTeam mutates a team using the provided mutator function.
func (tx *transaction) UpdateTeam(id string, mutator func(*Team) error) (Team, error) {
	idx := indexByID(tx.state.teams, id, teamID)
	if idx < 0 {
		return Team{}, domain.NotFoundError{Entity: domain.EntityTeam, ID: id}
	}
	before := cloneTeam(tx.state.teams[idx])
	current := cloneTeam(before)
	if err := mutator(&current); err != nil {
		return Team{}, err
	}
	current.ID = id
	current.JoinCode = domain.NormalizeJoinCode(current.JoinCode)
	current.Members = dedupeStrings(current.Members)
	tx.state.teams[idx] = cloneTeam(current)
	tx.recordChange(Change{Entity: domain.EntityTeam, Action: domain.ActionUpdate, Before: before, After: cloneTeam(current)})
	return cloneTeam(current), nil
}

// DeleteTeam removes a team together with its projects and tasks. Comments,
// files and file comments that referenced them are left in place.
func (tx *transaction) DeleteTeam(id string) error {
	idx := indexByID(tx.state.teams, id, teamID)
	if idx < 0 {
		return domain.NotFoundError{Entity: domain.EntityTeam, ID: id}
	}
	before := tx.state.teams[idx]
	tx.state.teams = append(tx.state.teams[:idx:idx], tx.state.teams[idx+1:]...)
	tx.recordChange(Change{Entity: domain.EntityTeam, Action: domain.ActionDelete, Before: cloneTeam(before)})

	var removedProjects []Project
	tx.state.projects, removedProjects = partition(tx.state.projects, func(p Project) bool { return p.TeamID != id })
	for _, p := range removedProjects {
		tx.recordChange(Change{Entity: domain.EntityProject, Action: domain.ActionDelete, Before: p})
	}
	var removedTasks []Task
	tx.state.tasks, removedTasks = partition(tx.state.tasks, func(t Task) bool { return t.TeamID != id })
	for _, t := range removedTasks {
		tx.recordChange(Change{Entity: domain.EntityTask, Action: domain.ActionDelete, Before: t})
	}
	if tx.state.currentTeam == id {
		tx.state.currentTeam = ""
		tx.recordChange(Change{Entity: domain.EntityCurrentTeam, Action: domain.ActionDelete, Before: id})
	}
	return nil
}

// SetCurrentTeam points the session at team id; an empty id clears it.
func (tx *transaction) SetCurrentTeam(id string) error {
	if id != "" && indexByID(tx.state.teams, id, teamID) < 0 {
		return domain.NotFoundError{Entity: domain.EntityTeam, ID: id}
	}
	before := tx.state.currentTeam
	if before == id {
		return nil
	}
	tx.state.currentTeam = id
	action := domain.ActionUpdate
	if id == "" {
		action = domain.ActionDelete
	}
	tx.recordChange(Change{Entity: domain.EntityCurrentTeam, Action: action, Before: before, After: id})
	return nil
}

// CreateProject stores a new project.
func (tx *transaction) CreateProject(p Project) (Project, error) {
	if p.ID == "" {
		p.ID = newID()
	}
	if indexByID(tx.state.projects, p.ID, projectID) >= 0 {
		return Project{}, fmt.Errorf("project %q already exists", p.ID)
	}
	p.CreatedAt = tx.now
	tx.state.projects = append(tx.state.projects, p)
	tx.recordChange(Change{Entity: domain.EntityProject, Action: domain.ActionCreate, After: p})
	return p, nil
}

// UpdateProject mutates a project using the provided mutator function.
func (tx *transaction) UpdateProject(id string, mutator func(*Project) error) (Project, error) {
	idx := indexByID(tx.state.projects, id, projectID)
	if idx < 0 {
		return Project{}, domain.NotFoundError{Entity: domain.EntityProject, ID: id}
	}
	before := tx.state.projects[idx]
	current := before
	if err := mutator(&current); err != nil {
		return Project{}, err
	}
	current.ID = id
	tx.state.projects[idx] = current
	tx.recordChange(Change{Entity: domain.EntityProject, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteProject removes a project and its tasks. Task comments are kept.
func (tx *transaction) DeleteProject(id string) error {
	idx := indexByID(tx.state.projects, id, projectID)
	if idx < 0 {
		return domain.NotFoundError{Entity: domain.EntityProject, ID: id}
	}
	before := tx.state.projects[idx]
	tx.state.projects = append(tx.state.projects[:idx:idx], tx.state.projects[idx+1:]...)
	tx.recordChange(Change{Entity: domain.EntityProject, Action: domain.ActionDelete, Before: before})

	var removed []Task
	tx.state.tasks, removed = partition(tx.state.tasks, func(t Task) bool { return t.ProjectID != id })
	for _, t := range removed {
		tx.recordChange(Change{Entity: domain.EntityTask, Action: domain.ActionDelete, Before: t})
	}
	return nil
}

// CreateTask stores a new task.
func (tx *transaction) CreateTask(t Task) (Task, error) {
	if t.ID == "" {
		t.ID = newID()
	}
	if indexByID(tx.state.tasks, t.ID, taskID) >= 0 {
		return Task{}, fmt.Errorf("task %q already exists", t.ID)
	}
	t.CreatedAt = tx.now
	tx.state.tasks = append(tx.state.tasks, t)
	tx.recordChange(Change{Entity: domain.EntityTask, Action: domain.ActionCreate, After: t})
	return t, nil
}

// UpdateTask mutates a task using the provided mutator function.
func (tx *transaction) UpdateTask(id string, mutator func(*Task) error) (Task, error) {
	idx := indexByID(tx.state.tasks, id, taskID)
	if idx < 0 {
		return Task{}, domain.NotFoundError{Entity: domain.EntityTask, ID: id}
	}
	before := tx.state.tasks[idx]
	current := before
	if err := mutator(&current); err != nil {
		return Task{}, err
	}
	current.ID = id
	tx.state.tasks[idx] = current
	tx.recordChange(Change{Entity: domain.EntityTask, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteTask removes a task and exactly the comments attached to it.
func (tx *transaction) DeleteTask(id string) error {
	idx := indexByID(tx.state.tasks, id, taskID)
	if idx < 0 {
		return domain.NotFoundError{Entity: domain.EntityTask, ID: id}
	}
	before := tx.state.tasks[idx]
	tx.state.tasks = append(tx.state.tasks[:idx:idx], tx.state.tasks[idx+1:]...)
	tx.recordChange(Change{Entity: domain.EntityTask, Action: domain.ActionDelete, Before: before})

	var removed []Comment
	tx.state.comments, removed = partition(tx.state.comments, func(c Comment) bool { return c.TaskID != id })
	for _, c := range removed {
		tx.recordChange(Change{Entity: domain.EntityComment, Action: domain.ActionDelete, Before: c})
	}
	return nil
}

// CreateComment appends a task comment.
func (tx *transaction) CreateComment(c Comment) (Comment, error) {
	if c.ID == "" {
		c.ID = newID()
	}
	if indexByID(tx.state.comments, c.ID, commentID) >= 0 {
		return Comment{}, fmt.Errorf("comment %q already exists", c.ID)
	}
	c.CreatedAt = tx.now
	tx.state.comments = append(tx.state.comments, c)
	tx.recordChange(Change{Entity: domain.EntityComment, Action: domain.ActionCreate, After: c})
	return c, nil
}

// DeleteComment removes a task comment.
func (tx *transaction) DeleteComment(id string) error {
	idx := indexByID(tx.state.comments, id, commentID)
	if idx < 0 {
		return domain.NotFoundError{Entity: domain.EntityComment, ID: id}
	}
	before := tx.state.comments[idx]
	tx.state.comments = append(tx.state.comments[:idx:idx], tx.state.comments[idx+1:]...)
	tx.recordChange(Change{Entity: domain.EntityComment, Action: domain.ActionDelete, Before: before})
	return nil
}

// CreateFile appends file attachment metadata.
func (tx *transaction) CreateFile(f FileAttachment) (FileAttachment, error) {
	if f.ID == "" {
		f.ID = newID()
	}
	if indexByID(tx.state.files, f.ID, fileID) >= 0 {
		return FileAttachment{}, fmt.Errorf("file %q already exists", f.ID)
	}
	f.UploadedAt = tx.now
	f.Tags = dedupeStrings(f.Tags)
	tx.state.files = append(tx.state.files, cloneFile(f))
	tx.recordChange(Change{Entity: domain.EntityFile, Action: domain.ActionCreate, After: cloneFile(f)})
	return cloneFile(f), nil
}

// UpdateFile mutates file metadata using the provided mutator function.
func (tx *transaction) UpdateFile(id string, mutator func(*FileAttachment) error) (FileAttachment, error) {
	idx := indexByID(tx.state.files, id, fileID)
	if idx < 0 {
		return FileAttachment{}, domain.NotFoundError{Entity: domain.EntityFile, ID: id}
	}
	before := cloneFile(tx.state.files[idx])
	current := cloneFile(before)
	if err := mutator(&current); err != nil {
		return FileAttachment{}, err
	}
	current.ID = id
	current.Tags = dedupeStrings(current.Tags)
	tx.state.files[idx] = cloneFile(current)
	tx.recordChange(Change{Entity: domain.EntityFile, Action: domain.ActionUpdate, Before: before, After: cloneFile(current)})
	return cloneFile(current), nil
}

// DeleteFile removes file metadata and its review comments.
func (tx *transaction) DeleteFile(id string) error {
	idx := indexByID(tx.state.files, id, fileID)
	if idx < 0 {
		return domain.NotFoundError{Entity: domain.EntityFile, ID: id}
	}
	before := tx.state.files[idx]
	tx.state.files = append(tx.state.files[:idx:idx], tx.state.files[idx+1:]...)
	tx.recordChange(Change{Entity: domain.EntityFile, Action: domain.ActionDelete, Before: cloneFile(before)})

	var removed []FileComment
	tx.state.fileComments, removed = partition(tx.state.fileComments, func(c FileComment) bool { return c.FileID != id })
	for _, c := range removed {
		tx.recordChange(Change{Entity: domain.EntityFileComment, Action: domain.ActionDelete, Before: c})
	}
	return nil
}

// CreateFileComment appends a review comment on a file.
func (tx *transaction) CreateFileComment(c FileComment) (FileComment, error) {
	if c.ID == "" {
		c.ID = newID()
	}
	if indexByID(tx.state.fileComments, c.ID, fileCommentID) >= 0 {
		return FileComment{}, fmt.Errorf("file comment %q already exists", c.ID)
	}
	c.CreatedAt = tx.now
	tx.state.fileComments = append(tx.state.fileComments, c)
	tx.recordChange(Change{Entity: domain.EntityFileComment, Action: domain.ActionCreate, After: c})
	return c, nil
}

// DeleteFileComment removes a file review comment.
func (tx *transaction) DeleteFileComment(id string) error {
	idx := indexByID(tx.state.fileComments, id, fileCommentID)
	if idx < 0 {
		return domain.NotFoundError{Entity: domain.EntityFileComment, ID: id}
	}
	before := tx.state.fileComments[idx]
	tx.state.fileComments = append(tx.state.fileComments[:idx:idx], tx.state.fileComments[idx+1:]...)
	tx.recordChange(Change{Entity: domain.EntityFileComment, Action: domain.ActionDelete, Before: before})
	return nil
}

// CreateNotification prepends a notification so the newest comes first.
func (tx *transaction) CreateNotification(n Notification) (Notification, error) {
	if n.ID == "" {
		n.ID = newID()
	}
	if indexByID(tx.state.notifications, n.ID, notificationID) >= 0 {
		return Notification{}, fmt.Errorf("notification %q already exists", n.ID)
	}
	n.CreatedAt = tx.now
	tx.state.notifications = append([]Notification{n}, tx.state.notifications...)
	tx.recordChange(Change{Entity: domain.EntityNotification, Action: domain.ActionCreate, After: n})
	return n, nil
}

// UpdateNotification mutates a notification using the provided mutator function.
func (tx *transaction) UpdateNotification(id string, mutator func(*Notification) error) (Notification, error) {
	idx := indexByID(tx.state.notifications, id, notificationID)
	if idx < 0 {
		return Notification{}, domain.NotFoundError{Entity: domain.EntityNotification, ID: id}
	}
	before := tx.state.notifications[idx]
	current := before
	if err := mutator(&current); err != nil {
		return Notification{}, err
	}
	current.ID = id
	tx.state.notifications[idx] = current
	tx.recordChange(Change{Entity: domain.EntityNotification, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteNotification removes a notification.
func (tx *transaction) DeleteNotification(id string) error {
	idx := indexByID(tx.state.notifications, id, notificationID)
	if idx < 0 {
		return domain.NotFoundError{Entity: domain.EntityNotification, ID: id}
	}
	before := tx.state.notifications[idx]
	tx.state.notifications = append(tx.state.notifications[:idx:idx], tx.state.notifications[idx+1:]...)
	tx.recordChange(Change{Entity: domain.EntityNotification, Action: domain.ActionDelete, Before: before})
	return nil
}

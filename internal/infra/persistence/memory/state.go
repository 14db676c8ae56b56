package memory

import (
	"fmt"

	"taskmate/pkg/domain"
)

// Snapshot captures the serialisable store state. Slices keep their stored
// order; notifications are newest first.
type Snapshot struct {
	Teams         []Team           `json:"teams"`
	Projects      []Project        `json:"projects"`
	Tasks         []Task           `json:"tasks"`
	Comments      []Comment        `json:"comments"`
	Files         []FileAttachment `json:"files"`
	FileComments  []FileComment    `json:"fileComments"`
	Notifications []Notification   `json:"notifications"`
	CurrentTeamID string           `json:"currentTeamId,omitempty"`
}

type memoryState struct {
	teams         []Team
	projects      []Project
	tasks         []Task
	comments      []Comment
	files         []FileAttachment
	fileComments  []FileComment
	notifications []Notification
	currentTeam   string
}

func newMemoryState() memoryState {
	return memoryState{
		teams:         []Team{},
		projects:      []Project{},
		tasks:         []Task{},
		comments:      []Comment{},
		files:         []FileAttachment{},
		fileComments:  []FileComment{},
		notifications: []Notification{},
	}
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		teams:         make([]Team, len(s.teams)),
		projects:      append([]Project{}, s.projects...),
		tasks:         append([]Task{}, s.tasks...),
		comments:      append([]Comment{}, s.comments...),
		files:         make([]FileAttachment, len(s.files)),
		fileComments:  append([]FileComment{}, s.fileComments...),
		notifications: append([]Notification{}, s.notifications...),
		currentTeam:   s.currentTeam,
	}
	for i, t := range s.teams {
		out.teams[i] = cloneTeam(t)
	}
	for i, f := range s.files {
		out.files[i] = cloneFile(f)
	}
	return out
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	c := state.clone()
	return Snapshot{
		Teams:         c.teams,
		Projects:      c.projects,
		Tasks:         c.tasks,
		Comments:      c.comments,
		Files:         c.files,
		FileComments:  c.fileComments,
		Notifications: c.notifications,
		CurrentTeamID: c.currentTeam,
	}
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	return memoryState{
		teams:         s.Teams,
		projects:      s.Projects,
		tasks:         s.Tasks,
		comments:      s.Comments,
		files:         s.Files,
		fileComments:  s.FileComments,
		notifications: s.Notifications,
		currentTeam:   s.CurrentTeamID,
	}.clone()
}

// migrateSnapshot normalises persisted data: nil collections become empty,
// stored join codes are uppercased, and teams without a valid code get a
// fresh one. When several teams share a code the first keeps it and the
// rest are re-coded. A current team that no longer exists is cleared.
func migrateSnapshot(s Snapshot) (Snapshot, error) {
	out := memoryStateFromSnapshot(s)
	taken := make(map[string]struct{}, len(out.teams))
	for i := range out.teams {
		code := domain.NormalizeJoinCode(out.teams[i].JoinCode)
		if _, dup := taken[code]; dup {
			code = ""
		}
		out.teams[i].JoinCode = code
		if domain.ValidJoinCode(code) {
			taken[code] = struct{}{}
		}
	}
	for i := range out.teams {
		code := out.teams[i].JoinCode
		if domain.ValidJoinCode(code) {
			continue
		}
		fresh, err := generateJoinCode(taken)
		if err != nil {
			return Snapshot{}, fmt.Errorf("assign join code to team %s: %w", out.teams[i].ID, err)
		}
		out.teams[i].JoinCode = fresh
		taken[fresh] = struct{}{}
	}
	if out.currentTeam != "" && indexByID(out.teams, out.currentTeam, teamID) < 0 {
		out.currentTeam = ""
	}
	return snapshotFromMemoryState(out), nil
}

func cloneTeam(t Team) Team {
	if t.Members != nil {
		t.Members = append([]string(nil), t.Members...)
	}
	return t
}

func cloneFile(f FileAttachment) FileAttachment {
	if f.Tags != nil {
		f.Tags = append([]string(nil), f.Tags...)
	}
	return f
}

func teamID(t Team) string                 { return t.ID }
func projectID(p Project) string           { return p.ID }
func taskID(t Task) string                 { return t.ID }
func commentID(c Comment) string           { return c.ID }
func fileID(f FileAttachment) string       { return f.ID }
func fileCommentID(c FileComment) string   { return c.ID }
func notificationID(n Notification) string { return n.ID }

func indexByID[T any](items []T, id string, key func(T) string) int {
	for i, item := range items {
		if key(item) == id {
			return i
		}
	}
	return -1
}

// partition splits items into those kept by keep and those removed,
// preserving order in both.
func partition[T any](items []T, keep func(T) bool) (kept, removed []T) {
	kept = make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			kept = append(kept, item)
		} else {
			removed = append(removed, item)
		}
	}
	return kept, removed
}

func dedupeStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

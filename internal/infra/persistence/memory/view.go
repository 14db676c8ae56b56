package memory

import "taskmate/pkg/domain"

var _ domain.RuleView = transactionView{}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

func (v transactionView) ListTeams() []Team {
	out := make([]Team, len(v.state.teams))
	for i, t := range v.state.teams {
		out[i] = cloneTeam(t)
	}
	return out
}

func (v transactionView) ListProjects() []Project {
	return append([]Project{}, v.state.projects...)
}

func (v transactionView) ListTasks() []Task {
	return append([]Task{}, v.state.tasks...)
}

func (v transactionView) ListComments() []Comment {
	return append([]Comment{}, v.state.comments...)
}

func (v transactionView) ListFiles() []FileAttachment {
	out := make([]FileAttachment, len(v.state.files))
	for i, f := range v.state.files {
		out[i] = cloneFile(f)
	}
	return out
}

func (v transactionView) ListFileComments() []FileComment {
	return append([]FileComment{}, v.state.fileComments...)
}

func (v transactionView) ListNotifications() []Notification {
	return append([]Notification{}, v.state.notifications...)
}

func (v transactionView) FindTeam(id string) (Team, bool) {
	if idx := indexByID(v.state.teams, id, teamID); idx >= 0 {
		return cloneTeam(v.state.teams[idx]), true
	}
	return Team{}, false
}

func (v transactionView) FindProject(id string) (Project, bool) {
	if idx := indexByID(v.state.projects, id, projectID); idx >= 0 {
		return v.state.projects[idx], true
	}
	return Project{}, false
}

func (v transactionView) FindTask(id string) (Task, bool) {
	if idx := indexByID(v.state.tasks, id, taskID); idx >= 0 {
		return v.state.tasks[idx], true
	}
	return Task{}, false
}

func (v transactionView) FindFile(id string) (FileAttachment, bool) {
	if idx := indexByID(v.state.files, id, fileID); idx >= 0 {
		return cloneFile(v.state.files[idx]), true
	}
	return FileAttachment{}, false
}

func (v transactionView) CurrentTeamID() string {
	return v.state.currentTeam
}

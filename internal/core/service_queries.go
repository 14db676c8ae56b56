package core

import (
	"context"
	"time"
)

// Teams lists every team.
func (s *Service) Teams(ctx context.Context) ([]Team, error) {
	var out []Team
	err := s.view(ctx, func(v TransactionView) error {
		out = v.ListTeams()
		return nil
	})
	return out, err
}

// FindTeam looks up a team by id.
func (s *Service) FindTeam(ctx context.Context, id string) (Team, bool, error) {
	var (
		team Team
		ok   bool
	)
	err := s.view(ctx, func(v TransactionView) error {
		team, ok = v.FindTeam(id)
		return nil
	})
	return team, ok, err
}

// UserTeams lists the teams a user belongs to or created.
func (s *Service) UserTeams(ctx context.Context, userID string) ([]Team, error) {
	var out []Team
	err := s.view(ctx, func(v TransactionView) error {
		out = UserTeams(v.ListTeams(), userID)
		return nil
	})
	return out, err
}

// Projects lists a team's projects.
func (s *Service) Projects(ctx context.Context, teamID string) ([]Project, error) {
	var out []Project
	err := s.view(ctx, func(v TransactionView) error {
		out = ProjectsByTeam(v.ListProjects(), teamID)
		return nil
	})
	return out, err
}

// Tasks lists a team's tasks.
func (s *Service) Tasks(ctx context.Context, teamID string) ([]Task, error) {
	var out []Task
	err := s.view(ctx, func(v TransactionView) error {
		out = TasksByTeam(v.ListTasks(), teamID)
		return nil
	})
	return out, err
}

// ProjectTasks lists a project's tasks.
func (s *Service) ProjectTasks(ctx context.Context, projectID string) ([]Task, error) {
	var out []Task
	err := s.view(ctx, func(v TransactionView) error {
		out = TasksByProject(v.ListTasks(), projectID)
		return nil
	})
	return out, err
}

// TaskComments lists a task's comments oldest first.
func (s *Service) TaskComments(ctx context.Context, taskID string) ([]Comment, error) {
	var out []Comment
	err := s.view(ctx, func(v TransactionView) error {
		out = CommentsByTask(v.ListComments(), taskID)
		return nil
	})
	return out, err
}

// FileScope limits Files to one task, project or team; the most specific
// non-empty id wins. An empty scope lists every file.
type FileScope struct {
	TaskID    string
	ProjectID string
	TeamID    string
}

// Files lists files in scope that match filter, newest first.
func (s *Service) Files(ctx context.Context, scope FileScope, filter FileFilter) ([]FileAttachment, error) {
	var out []FileAttachment
	err := s.view(ctx, func(v TransactionView) error {
		files := v.ListFiles()
		switch {
		case scope.TaskID != "":
			files = FilesByTask(files, scope.TaskID)
		case scope.ProjectID != "":
			files = FilesByProject(files, scope.ProjectID)
		case scope.TeamID != "":
			files = FilesByTeam(files, scope.TeamID)
		}
		out = SearchFiles(files, filter)
		return nil
	})
	return out, err
}

// FileComments lists a file's review comments newest first.
func (s *Service) FileComments(ctx context.Context, fileID string) ([]FileComment, error) {
	var out []FileComment
	err := s.view(ctx, func(v TransactionView) error {
		out = FileCommentsFor(v.ListFileComments(), fileID)
		return nil
	})
	return out, err
}

// UserNotifications lists a user's notifications newest first.
func (s *Service) UserNotifications(ctx context.Context, userID string) ([]Notification, error) {
	var out []Notification
	err := s.view(ctx, func(v TransactionView) error {
		out = UserNotifications(v.ListNotifications(), userID)
		return nil
	})
	return out, err
}

// UnreadCount counts a user's unread notifications.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.view(ctx, func(v TransactionView) error {
		n = UnreadCount(v.ListNotifications(), userID)
		return nil
	})
	return n, err
}

// ProjectSummary pairs a project with its completion percentage.
type ProjectSummary struct {
	Project  Project
	Tasks    int
	Progress float64
}

// Dashboard is the overview of one team.
type Dashboard struct {
	Team     Team
	Stats    TeamStats
	Upcoming []Task
	Recent   []Task
	Projects []ProjectSummary
	Members  []MemberStat
}

// Dashboard assembles the overview for teamID.
func (s *Service) Dashboard(ctx context.Context, teamID string) (Dashboard, error) {
	var d Dashboard
	err := s.view(ctx, func(v TransactionView) error {
		team, ok := v.FindTeam(teamID)
		if !ok {
			return ErrNotFound{Entity: EntityTeam, ID: teamID}
		}
		tasks := TasksByTeam(v.ListTasks(), teamID)
		d.Team = team
		d.Stats = ComputeTeamStats(tasks, teamID)
		d.Upcoming = UpcomingDeadlines(tasks, DefaultUpcomingLimit)
		d.Recent = RecentTasks(tasks, DefaultRecentLimit)
		for _, p := range ProjectsByTeam(v.ListProjects(), teamID) {
			d.Projects = append(d.Projects, ProjectSummary{
				Project:  p,
				Tasks:    len(TasksByProject(tasks, p.ID)),
				Progress: ProjectProgress(tasks, p.ID),
			})
		}
		d.Members = MemberStats(team, tasks)
		return nil
	})
	return d, err
}

// Calendar groups a team's tasks by deadline day.
func (s *Service) Calendar(ctx context.Context, teamID string) ([]CalendarBucket, error) {
	var out []CalendarBucket
	err := s.view(ctx, func(v TransactionView) error {
		out = CalendarBuckets(TasksByTeam(v.ListTasks(), teamID))
		return nil
	})
	return out, err
}

// TasksDueOn lists a team's tasks due on day.
func (s *Service) TasksDueOn(ctx context.Context, teamID string, day time.Time) ([]Task, error) {
	var out []Task
	err := s.view(ctx, func(v TransactionView) error {
		out = TasksForDate(TasksByTeam(v.ListTasks(), teamID), day)
		return nil
	})
	return out, err
}

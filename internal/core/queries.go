package core

import (
	"sort"
	"time"

	"taskmate/pkg/domain"
)

// Dashboard list sizes.
const (
	DefaultUpcomingLimit = 5
	DefaultRecentLimit   = 4
)

func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// TasksByTeam returns the tasks of a team in stored order.
func TasksByTeam(tasks []Task, teamID string) []Task {
	return filter(tasks, func(t Task) bool { return t.TeamID == teamID })
}

// TasksByProject returns the tasks of a project in stored order.
func TasksByProject(tasks []Task, projectID string) []Task {
	return filter(tasks, func(t Task) bool { return t.ProjectID == projectID })
}

// ProjectsByTeam returns the projects of a team in stored order.
func ProjectsByTeam(projects []Project, teamID string) []Project {
	return filter(projects, func(p Project) bool { return p.TeamID == teamID })
}

// CommentsByTask returns a task's comments oldest first.
func CommentsByTask(comments []Comment, taskID string) []Comment {
	return filter(comments, func(c Comment) bool { return c.TaskID == taskID })
}

// FilesByTask returns the files attached to a task.
func FilesByTask(files []FileAttachment, taskID string) []FileAttachment {
	return filter(files, func(f FileAttachment) bool { return f.TaskID == taskID })
}

// FilesByProject returns the files attached within a project.
func FilesByProject(files []FileAttachment, projectID string) []FileAttachment {
	return filter(files, func(f FileAttachment) bool { return f.ProjectID == projectID })
}

// FilesByTeam returns the files attached within a team.
func FilesByTeam(files []FileAttachment, teamID string) []FileAttachment {
	return filter(files, func(f FileAttachment) bool { return f.TeamID == teamID })
}

// FileCommentsFor returns a file's review comments newest first.
func FileCommentsFor(comments []FileComment, fileID string) []FileComment {
	out := filter(comments, func(c FileComment) bool { return c.FileID == fileID })
	// stored order is creation order; reverse it so equal timestamps stay newest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// UserTeams returns the teams userID belongs to or created.
func UserTeams(teams []Team, userID string) []Team {
	return filter(teams, func(t Team) bool { return t.HasMember(userID) || t.CreatedBy == userID })
}

// UserNotifications returns a user's notifications newest first.
func UserNotifications(notifications []Notification, userID string) []Notification {
	return filter(notifications, func(n Notification) bool { return n.UserID == userID })
}

// UnreadCount counts a user's unread notifications.
func UnreadCount(notifications []Notification, userID string) int {
	count := 0
	for _, n := range notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count
}

// MemberStat summarises one member's tasks within a team.
type MemberStat struct {
	UserID         string
	Todo           int
	InProgress     int
	Done           int
	Total          int
	CompletionRate float64
}

func memberStat(tasks []Task, teamID, userID string) MemberStat {
	stat := MemberStat{UserID: userID}
	for _, t := range tasks {
		if t.TeamID != teamID || t.AssigneeID != userID {
			continue
		}
		switch t.Status {
		case domain.TaskStatusDone:
			stat.Done++
		case domain.TaskStatusInProgress:
			stat.InProgress++
		case domain.TaskStatusTodo:
			stat.Todo++
		}
	}
	stat.Total = stat.Done + stat.InProgress + stat.Todo
	if stat.Total > 0 {
		stat.CompletionRate = float64(stat.Done) / float64(stat.Total) * 100
	}
	return stat
}

// CompletionRate is the percentage of userID's tasks in teamID that are
// done. It is 0 when the member has no tasks.
func CompletionRate(tasks []Task, teamID, userID string) float64 {
	return memberStat(tasks, teamID, userID).CompletionRate
}

// MemberStats returns per-member task counts for every member of team.
func MemberStats(team Team, tasks []Task) []MemberStat {
	out := make([]MemberStat, 0, len(team.Members))
	for _, member := range team.Members {
		out = append(out, memberStat(tasks, team.ID, member))
	}
	return out
}

// TeamStats are the dashboard counters for a team.
type TeamStats struct {
	Total        int
	InProgress   int
	HighPriority int
	Done         int
}

// ComputeTeamStats counts the tasks of teamID.
func ComputeTeamStats(tasks []Task, teamID string) TeamStats {
	var stats TeamStats
	for _, t := range TasksByTeam(tasks, teamID) {
		stats.Total++
		if t.Status == domain.TaskStatusInProgress {
			stats.InProgress++
		}
		if t.Status == domain.TaskStatusDone {
			stats.Done++
		}
		if t.Priority == domain.PriorityHigh {
			stats.HighPriority++
		}
	}
	return stats
}

// UpcomingDeadlines returns up to limit open tasks sorted by deadline
// ascending. Tasks without a deadline sort last.
func UpcomingDeadlines(tasks []Task, limit int) []Task {
	open := filter(tasks, func(t Task) bool { return t.Status != domain.TaskStatusDone })
	sort.SliceStable(open, func(i, j int) bool {
		a, aok := open[i].DeadlineTime()
		b, bok := open[j].DeadlineTime()
		if aok != bok {
			return aok
		}
		return aok && a.Before(b)
	})
	return head(open, limit)
}

// RecentTasks returns the first limit tasks in stored order.
func RecentTasks(tasks []Task, limit int) []Task {
	return head(append([]Task{}, tasks...), limit)
}

func head[T any](items []T, limit int) []T {
	if limit >= 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

// ProjectProgress is the percentage of a project's tasks that are done.
func ProjectProgress(tasks []Task, projectID string) float64 {
	projectTasks := TasksByProject(tasks, projectID)
	if len(projectTasks) == 0 {
		return 0
	}
	done := 0
	for _, t := range projectTasks {
		if t.Status == domain.TaskStatusDone {
			done++
		}
	}
	return float64(done) / float64(len(projectTasks)) * 100
}

// DateKey identifies a calendar day.
type DateKey struct {
	Year  int
	Month time.Month
	Day   int
}

func dateKeyOf(t time.Time) DateKey {
	y, m, d := t.Date()
	return DateKey{Year: y, Month: m, Day: d}
}

// String formats the key as YYYY-MM-DD.
func (k DateKey) String() string {
	return time.Date(k.Year, k.Month, k.Day, 0, 0, 0, 0, time.UTC).Format(domain.DeadlineLayout)
}

// CalendarBucket groups the tasks due on one day.
type CalendarBucket struct {
	Date         DateKey
	Tasks        []Task
	HighPriority bool
}

// CalendarBuckets groups tasks by deadline day, ordered by date. A bucket is
// high priority when it holds an open high-priority task. Tasks without a
// parseable deadline are skipped.
func CalendarBuckets(tasks []Task) []CalendarBucket {
	index := map[DateKey]int{}
	var out []CalendarBucket
	for _, t := range tasks {
		due, ok := t.DeadlineTime()
		if !ok {
			continue
		}
		key := dateKeyOf(due)
		i, seen := index[key]
		if !seen {
			i = len(out)
			index[key] = i
			out = append(out, CalendarBucket{Date: key})
		}
		out[i].Tasks = append(out[i].Tasks, t)
		if t.Priority == domain.PriorityHigh && t.Status != domain.TaskStatusDone {
			out[i].HighPriority = true
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Date, out[j].Date
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		return a.Day < b.Day
	})
	return out
}

// TasksForDate returns the tasks whose deadline falls on day.
func TasksForDate(tasks []Task, day time.Time) []Task {
	key := dateKeyOf(day)
	return filter(tasks, func(t Task) bool {
		due, ok := t.DeadlineTime()
		return ok && dateKeyOf(due) == key
	})
}

// DueSoon returns open tasks whose deadline day falls within
// [day of now, now+window].
func DueSoon(tasks []Task, now time.Time, window time.Duration) []Task {
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	until := now.Add(window)
	return filter(tasks, func(t Task) bool {
		if t.Status == domain.TaskStatusDone {
			return false
		}
		due, ok := t.DeadlineTime()
		return ok && !due.Before(from) && !due.After(until)
	})
}

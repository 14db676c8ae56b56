package core

import (
	"context"
	"fmt"

	"taskmate/pkg/domain"
)

// NewTaskReferencesRule blocks writing a task whose project is unknown or
// belongs to a different team.
func NewTaskReferencesRule() domain.Rule {
	return taskReferencesRule{}
}

type taskReferencesRule struct{}

func (taskReferencesRule) Name() string { return "task_references" }

func (taskReferencesRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, task := range changedAfter[domain.Task](changes, domain.EntityTask) {
		// skip tasks removed later in the same transaction
		if _, ok := view.FindTask(task.ID); !ok {
			continue
		}
		var msg string
		project, ok := view.FindProject(task.ProjectID)
		switch {
		case !ok:
			msg = fmt.Sprintf("task %s references unknown project %s", task.ID, task.ProjectID)
		case project.TeamID != task.TeamID:
			msg = fmt.Sprintf("task %s team %s differs from project team %s", task.ID, task.TeamID, project.TeamID)
		default:
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "task_references",
			Severity: domain.SeverityBlock,
			Message:  msg,
			Entity:   domain.EntityTask,
			EntityID: task.ID,
		})
	}
	return res, nil
}

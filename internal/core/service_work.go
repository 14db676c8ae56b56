package core

import (
	"context"
	"fmt"

	"taskmate/pkg/domain"
)

// CreateProject persists a new project under an existing team.
func (s *Service) CreateProject(ctx context.Context, project Project) (Project, Result, error) {
	var created Project
	res, err := s.run(ctx, "create_project", func(tx Transaction) (string, error) {
		if err := required("name", project.Name); err != nil {
			return "", err
		}
		if _, ok := tx.FindTeam(project.TeamID); !ok {
			return "", ErrNotFound{Entity: EntityTeam, ID: project.TeamID}
		}
		var err error
		created, err = tx.CreateProject(project)
		return created.ID, err
	})
	return created, res, err
}

// UpdateProject mutates a project.
func (s *Service) UpdateProject(ctx context.Context, id string, mutator func(*Project) error) (Project, Result, error) {
	var updated Project
	res, err := s.run(ctx, "update_project", func(tx Transaction) (string, error) {
		var err error
		updated, err = tx.UpdateProject(id, func(p *Project) error {
			if err := mutator(p); err != nil {
				return err
			}
			return required("name", p.Name)
		})
		return id, err
	})
	return updated, res, err
}

// DeleteProject removes a project and its tasks.
func (s *Service) DeleteProject(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_project", func(tx Transaction) (string, error) {
		return id, tx.DeleteProject(id)
	})
}

// CreateTask persists a task. Status defaults to todo and priority to
// medium; the team is taken from the project when unset. The assignee is
// notified when they are not the creator.
func (s *Service) CreateTask(ctx context.Context, task Task) (Task, Result, error) {
	var created Task
	res, err := s.run(ctx, "create_task", func(tx Transaction) (string, error) {
		if task.Status == "" {
			task.Status = domain.TaskStatusTodo
		}
		if task.Priority == "" {
			task.Priority = domain.PriorityMedium
		}
		if err := validateTask(task); err != nil {
			return "", err
		}
		project, ok := tx.FindProject(task.ProjectID)
		if !ok {
			return "", ErrNotFound{Entity: EntityProject, ID: task.ProjectID}
		}
		if task.TeamID == "" {
			task.TeamID = project.TeamID
		}
		var err error
		created, err = tx.CreateTask(task)
		if err != nil {
			return "", err
		}
		if created.AssigneeID != "" && created.AssigneeID != created.CreatedBy {
			if err := notifyAssigned(tx, created); err != nil {
				return created.ID, err
			}
		}
		return created.ID, nil
	})
	return created, res, err
}

// UpdateTask mutates a task. A new assignee is notified, and the creator is
// notified when the task moves to done.
func (s *Service) UpdateTask(ctx context.Context, id string, mutator func(*Task) error) (Task, Result, error) {
	var updated Task
	res, err := s.run(ctx, "update_task", func(tx Transaction) (string, error) {
		before, ok := tx.FindTask(id)
		if !ok {
			return id, ErrNotFound{Entity: EntityTask, ID: id}
		}
		var err error
		updated, err = tx.UpdateTask(id, func(t *Task) error {
			if err := mutator(t); err != nil {
				return err
			}
			return validateTask(*t)
		})
		if err != nil {
			return id, err
		}
		if updated.AssigneeID != "" && updated.AssigneeID != before.AssigneeID && updated.AssigneeID != updated.CreatedBy {
			if err := notifyAssigned(tx, updated); err != nil {
				return id, err
			}
		}
		if updated.Status == domain.TaskStatusDone && before.Status != domain.TaskStatusDone && updated.CreatedBy != "" {
			if _, err := tx.CreateNotification(Notification{
				UserID:    updated.CreatedBy,
				Type:      domain.NotificationTaskCompleted,
				Title:     "Task completed",
				Message:   fmt.Sprintf("%q is done", updated.Title),
				RelatedID: updated.ID,
			}); err != nil {
				return id, err
			}
		}
		return id, nil
	})
	return updated, res, err
}

// MoveTask changes a task's status column.
func (s *Service) MoveTask(ctx context.Context, id string, status TaskStatus) (Task, Result, error) {
	return s.UpdateTask(ctx, id, func(t *Task) error {
		t.Status = status
		return nil
	})
}

// AssignTask changes a task's assignee; an empty id unassigns it.
func (s *Service) AssignTask(ctx context.Context, id, assigneeID string) (Task, Result, error) {
	return s.UpdateTask(ctx, id, func(t *Task) error {
		t.AssigneeID = assigneeID
		return nil
	})
}

// DeleteTask removes a task and its comments.
func (s *Service) DeleteTask(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_task", func(tx Transaction) (string, error) {
		return id, tx.DeleteTask(id)
	})
}

func notifyAssigned(tx Transaction, task Task) error {
	_, err := tx.CreateNotification(Notification{
		UserID:    task.AssigneeID,
		Type:      domain.NotificationTaskAssigned,
		Title:     "New task assigned",
		Message:   fmt.Sprintf("You were assigned %q", task.Title),
		RelatedID: task.ID,
	})
	return err
}

// AddComment appends a comment to a task. The author's name and initials are
// taken as given so the comment keeps them if the profile changes later. The
// task assignee is notified unless they wrote the comment.
func (s *Service) AddComment(ctx context.Context, comment Comment) (Comment, Result, error) {
	var created Comment
	res, err := s.run(ctx, "add_comment", func(tx Transaction) (string, error) {
		if err := required("message", comment.Message); err != nil {
			return "", err
		}
		task, ok := tx.FindTask(comment.TaskID)
		if !ok {
			return "", ErrNotFound{Entity: EntityTask, ID: comment.TaskID}
		}
		var err error
		created, err = tx.CreateComment(comment)
		if err != nil {
			return "", err
		}
		if task.AssigneeID != "" && task.AssigneeID != created.UserID {
			if _, err := tx.CreateNotification(Notification{
				UserID:    task.AssigneeID,
				Type:      domain.NotificationCommentAdded,
				Title:     "New comment",
				Message:   fmt.Sprintf("%s commented on %q", created.UserName, task.Title),
				RelatedID: task.ID,
			}); err != nil {
				return created.ID, err
			}
		}
		return created.ID, nil
	})
	return created, res, err
}

// DeleteComment removes a task comment.
func (s *Service) DeleteComment(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_comment", func(tx Transaction) (string, error) {
		return id, tx.DeleteComment(id)
	})
}

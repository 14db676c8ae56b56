package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"taskmate/internal/core"
	"taskmate/pkg/domain"
)

type subcommands map[string]func(args []string) error

func (s subcommands) run(name string, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: taskmate %s <%s>", errUsage, name, s.names())
	}
	fn, ok := s[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown %s command %q (want %s)", errUsage, name, args[0], s.names())
	}
	return fn(args[1:])
}

func (s subcommands) names() string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

// resolveTeam returns explicit or the current team id.
func (a *app) resolveTeam(ctx context.Context, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	team, ok, err := a.svc.CurrentTeam(ctx)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.New("no current team; pass -team or run taskmate team use -id ID")
	}
	return team.ID, nil
}

func cmdTeam(ctx context.Context, a *app, args []string) error {
	return subcommands{
		"create": func(args []string) error {
			user, err := a.session(ctx)
			if err != nil {
				return err
			}
			var team domain.Team
			if _, err := parse("team create", args, func(fs *flag.FlagSet) {
				fs.StringVar(&team.Name, "name", "", "team name")
				fs.StringVar(&team.Description, "description", "", "description")
				fs.StringVar(&team.Color, "color", "#3b82f6", "display color")
			}); err != nil {
				return err
			}
			team.CreatedBy = user.ID
			team.Members = []string{user.ID}
			created, _, err := a.svc.CreateTeam(ctx, team)
			if err != nil {
				return err
			}
			a.printf("team %s created id=%s join-code=%s\n", created.Name, created.ID, created.JoinCode)
			return nil
		},
		"list": func([]string) error {
			user, err := a.session(ctx)
			if err != nil {
				return err
			}
			teams, err := a.svc.UserTeams(ctx, user.ID)
			if err != nil {
				return err
			}
			current, _, err := a.svc.CurrentTeam(ctx)
			if err != nil {
				return err
			}
			for _, t := range teams {
				marker := " "
				if t.ID == current.ID {
					marker = "*"
				}
				a.printf("%s %s\t%s\t%s\t%d members\n", marker, t.ID, t.JoinCode, t.Name, len(t.Members))
			}
			return nil
		},
		"join": func(args []string) error {
			user, err := a.session(ctx)
			if err != nil {
				return err
			}
			var code string
			if _, err := parse("team join", args, func(fs *flag.FlagSet) {
				fs.StringVar(&code, "code", "", "join code")
			}); err != nil {
				return err
			}
			team, _, err := a.svc.JoinTeamByCode(ctx, code, user.ID)
			if err != nil {
				var nf core.ErrNotFound
				if errors.As(err, &nf) {
					return fmt.Errorf("no team uses join code %q", strings.ToUpper(strings.TrimSpace(code)))
				}
				return err
			}
			a.printf("joined %s (%s)\n", team.Name, team.ID)
			return nil
		},
		"delete": func(args []string) error {
			var id string
			if _, err := parse("team delete", args, func(fs *flag.FlagSet) {
				fs.StringVar(&id, "id", "", "team id")
			}); err != nil {
				return err
			}
			if err := need("id", id); err != nil {
				return err
			}
			if _, err := a.svc.DeleteTeam(ctx, id); err != nil {
				return err
			}
			a.printf("team %s deleted\n", id)
			return nil
		},
		"use": func(args []string) error {
			var id string
			if _, err := parse("team use", args, func(fs *flag.FlagSet) {
				fs.StringVar(&id, "id", "", "team id")
			}); err != nil {
				return err
			}
			if err := need("id", id); err != nil {
				return err
			}
			if _, err := a.svc.SetCurrentTeam(ctx, id); err != nil {
				return err
			}
			a.printf("current team %s\n", id)
			return nil
		},
		"invite": func(args []string) error {
			var id, userID string
			if _, err := parse("team invite", args, func(fs *flag.FlagSet) {
				fs.StringVar(&id, "team", "", "team id (default current)")
				fs.StringVar(&userID, "user", "", "user id")
			}); err != nil {
				return err
			}
			if err := need("user", userID); err != nil {
				return err
			}
			id, err := a.resolveTeam(ctx, id)
			if err != nil {
				return err
			}
			if _, ok, err := a.auth.FindUser(ctx, userID); err != nil {
				return err
			} else if !ok {
				return fmt.Errorf("unknown user %s", userID)
			}
			team, _, err := a.svc.AddMemberToTeam(ctx, id, userID)
			if err != nil {
				return err
			}
			a.printf("%s now has %d members\n", team.Name, len(team.Members))
			return nil
		},
		"remove": func(args []string) error {
			var id, userID string
			if _, err := parse("team remove", args, func(fs *flag.FlagSet) {
				fs.StringVar(&id, "team", "", "team id (default current)")
				fs.StringVar(&userID, "user", "", "user id")
			}); err != nil {
				return err
			}
			if err := need("user", userID); err != nil {
				return err
			}
			id, err := a.resolveTeam(ctx, id)
			if err != nil {
				return err
			}
			team, _, err := a.svc.RemoveMemberFromTeam(ctx, id, userID)
			if err != nil {
				return err
			}
			a.printf("%s now has %d members\n", team.Name, len(team.Members))
			return nil
		},
		"qr": func(args []string) error {
			var id, pngPath string
			var size int
			if _, err := parse("team qr", args, func(fs *flag.FlagSet) {
				fs.StringVar(&id, "team", "", "team id (default current)")
				fs.StringVar(&pngPath, "png", "", "write a PNG to this path instead of printing")
				fs.IntVar(&size, "size", 256, "PNG size in pixels")
			}); err != nil {
				return err
			}
			id, err := a.resolveTeam(ctx, id)
			if err != nil {
				return err
			}
			if pngPath != "" {
				png, err := a.svc.TeamInviteQR(ctx, id, size)
				if err != nil {
					return err
				}
				if err := os.WriteFile(pngPath, png, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", pngPath, err)
				}
				a.printf("wrote %s\n", pngPath)
				return nil
			}
			text, err := a.svc.TeamInviteQRText(ctx, id)
			if err != nil {
				return err
			}
			a.printf("%s", text)
			return nil
		},
	}.run("team", args)
}

func cmdProject(ctx context.Context, a *app, args []string) error {
	return subcommands{
		"create": func(args []string) error {
			user, err := a.session(ctx)
			if err != nil {
				return err
			}
			var project domain.Project
			if _, err := parse("project create", args, func(fs *flag.FlagSet) {
				fs.StringVar(&project.TeamID, "team", "", "team id (default current)")
				fs.StringVar(&project.Name, "name", "", "project name")
				fs.StringVar(&project.Description, "description", "", "description")
				fs.StringVar(&project.Color, "color", "#10b981", "display color")
			}); err != nil {
				return err
			}
			if project.TeamID, err = a.resolveTeam(ctx, project.TeamID); err != nil {
				return err
			}
			project.CreatedBy = user.ID
			created, _, err := a.svc.CreateProject(ctx, project)
			if err != nil {
				return err
			}
			a.printf("project %s created id=%s\n", created.Name, created.ID)
			return nil
		},
		"list": func(args []string) error {
			var teamID string
			if _, err := parse("project list", args, func(fs *flag.FlagSet) {
				fs.StringVar(&teamID, "team", "", "team id (default current)")
			}); err != nil {
				return err
			}
			teamID, err := a.resolveTeam(ctx, teamID)
			if err != nil {
				return err
			}
			projects, err := a.svc.Projects(ctx, teamID)
			if err != nil {
				return err
			}
			tasks, err := a.svc.Tasks(ctx, teamID)
			if err != nil {
				return err
			}
			for _, p := range projects {
				a.printf("%s\t%s\t%.0f%%\n", p.ID, p.Name, core.ProjectProgress(tasks, p.ID))
			}
			return nil
		},
		"delete": func(args []string) error {
			var id string
			if _, err := parse("project delete", args, func(fs *flag.FlagSet) {
				fs.StringVar(&id, "id", "", "project id")
			}); err != nil {
				return err
			}
			if err := need("id", id); err != nil {
				return err
			}
			if _, err := a.svc.DeleteProject(ctx, id); err != nil {
				return err
			}
			a.printf("project %s deleted\n", id)
			return nil
		},
	}.run("project", args)
}

func (a *app) printTask(t domain.Task) {
	deadline := t.Deadline
	if deadline == "" {
		deadline = "-"
	}
	assignee := t.AssigneeID
	if assignee == "" {
		assignee = "-"
	}
	a.printf("%s\t[%s]\t%s\t%s\tdue %s\t@%s\n", t.ID, t.Status, t.Priority, t.Title, deadline, assignee)
}

func cmdTask(ctx context.Context, a *app, args []string) error {
	return subcommands{
		"create": func(args []string) error {
			user, err := a.session(ctx)
			if err != nil {
				return err
			}
			var task domain.Task
			var status, priority string
			if _, err := parse("task create", args, func(fs *flag.FlagSet) {
				fs.StringVar(&task.ProjectID, "project", "", "project id")
				fs.StringVar(&task.Title, "title", "", "title")
				fs.StringVar(&task.Description, "description", "", "description")
				fs.StringVar(&task.AssigneeID, "assignee", "", "assignee user id")
				fs.StringVar(&task.Deadline, "deadline", "", "deadline as YYYY-MM-DD")
				fs.StringVar(&priority, "priority", "", "high, medium or low")
				fs.StringVar(&status, "status", "", "todo, inprogress or done")
			}); err != nil {
				return err
			}
			if err := need("project", task.ProjectID); err != nil {
				return err
			}
			task.Status = domain.TaskStatus(status)
			task.Priority = domain.Priority(priority)
			task.CreatedBy = user.ID
			created, _, err := a.svc.CreateTask(ctx, task)
			if err != nil {
				return err
			}
			a.printTask(created)
			return nil
		},
		"list": func(args []string) error {
			var teamID, projectID string
			if _, err := parse("task list", args, func(fs *flag.FlagSet) {
				fs.StringVar(&teamID, "team", "", "team id (default current)")
				fs.StringVar(&projectID, "project", "", "only this project")
			}); err != nil {
				return err
			}
			var tasks []domain.Task
			var err error
			if projectID != "" {
				tasks, err = a.svc.ProjectTasks(ctx, projectID)
			} else {
				if teamID, err = a.resolveTeam(ctx, teamID); err != nil {
					return err
				}
				tasks, err = a.svc.Tasks(ctx, teamID)
			}
			if err != nil {
				return err
			}
			for _, t := range tasks {
				a.printTask(t)
			}
			return nil
		},
		"move": func(args []string) error {
			var id, status string
			if _, err := parse("task move", args, func(fs *flag.FlagSet) {
				fs.StringVar(&id, "id", "", "task id")
				fs.StringVar(&status, "status", "", "todo, inprogress or done")
			}); err != nil {
				return err
			}
			if err := need("id", id, "status", status); err != nil {
				return err
			}
			task, _, err := a.svc.MoveTask(ctx, id, domain.TaskStatus(status))
			if err != nil {
				return err
			}
			a.printTask(task)
			return nil
		},
		"assign": func(args []string) error {
			var id, userID string
			if _, err := parse("task assign", args, func(fs *flag.FlagSet) {
				fs.StringVar(&id, "id", "", "task id")
				fs.StringVar(&userID, "user", "", "assignee user id")
			}); err != nil {
				return err
			}
			if err := need("id", id, "user", userID); err != nil {
				return err
			}
			task, _, err := a.svc.AssignTask(ctx, id, userID)
			if err != nil {
				return err
			}
			a.printTask(task)
			return nil
		},
		"delete": func(args []string) error {
			var id string
			if _, err := parse("task delete", args, func(fs *flag.FlagSet) {
				fs.StringVar(&id, "id", "", "task id")
			}); err != nil {
				return err
			}
			if err := need("id", id); err != nil {
				return err
			}
			if _, err := a.svc.DeleteTask(ctx, id); err != nil {
				return err
			}
			a.printf("task %s deleted\n", id)
			return nil
		},
	}.run("task", args)
}

func cmdComment(ctx context.Context, a *app, args []string) error {
	return subcommands{
		"add": func(args []string) error {
			user, err := a.session(ctx)
			if err != nil {
				return err
			}
			comment := domain.Comment{UserID: user.ID, UserName: user.Name, UserInitials: user.Initials}
			if _, err := parse("comment add", args, func(fs *flag.FlagSet) {
				fs.StringVar(&comment.TaskID, "task", "", "task id")
				fs.StringVar(&comment.Message, "message", "", "comment text")
			}); err != nil {
				return err
			}
			if err := need("task", comment.TaskID); err != nil {
				return err
			}
			created, _, err := a.svc.AddComment(ctx, comment)
			if err != nil {
				return err
			}
			a.printf("comment %s added\n", created.ID)
			return nil
		},
		"list": func(args []string) error {
			var taskID string
			if _, err := parse("comment list", args, func(fs *flag.FlagSet) {
				fs.StringVar(&taskID, "task", "", "task id")
			}); err != nil {
				return err
			}
			if err := need("task", taskID); err != nil {
				return err
			}
			comments, err := a.svc.TaskComments(ctx, taskID)
			if err != nil {
				return err
			}
			for _, c := range comments {
				a.printf("%s [%s] %s: %s\n", c.CreatedAt.Format(time.RFC3339), c.UserInitials, c.UserName, c.Message)
			}
			return nil
		},
	}.run("comment", args)
}

func cmdFile(ctx context.Context, a *app, args []string) error {
	return subcommands{
		"add": func(args []string) error {
			user, err := a.session(ctx)
			if err != nil {
				return err
			}
			file := domain.FileAttachment{UploadedBy: user.ID, UploadedByName: user.Name}
			var tags string
			if _, err := parse("file add", args, func(fs *flag.FlagSet) {
				fs.StringVar(&file.TaskID, "task", "", "task id")
				fs.StringVar(&file.ProjectID, "project", "", "project id")
				fs.StringVar(&file.TeamID, "team", "", "team id (default current)")
				fs.StringVar(&file.Name, "name", "", "file name")
				fs.StringVar(&file.Type, "type", "", "MIME type")
				fs.Int64Var(&file.Size, "size", 0, "size in bytes")
				fs.StringVar(&file.URL, "url", "", "reference URL")
				fs.StringVar(&file.Description, "description", "", "description")
				fs.StringVar(&tags, "tags", "", "comma separated tags")
			}); err != nil {
				return err
			}
			if file.TaskID == "" && file.TeamID == "" {
				if file.TeamID, err = a.resolveTeam(ctx, ""); err != nil {
					return err
				}
			}
			file.Tags = splitTags(tags)
			created, _, err := a.svc.AddFile(ctx, file)
			if err != nil {
				return err
			}
			a.printf("file %s added id=%s category=%s url=%s\n", created.Name, created.ID, created.Category, created.URL)
			return nil
		},
		"list": func(args []string) error {
			var scope core.FileScope
			var filter core.FileFilter
			var category string
			if _, err := parse("file list", args, func(fs *flag.FlagSet) {
				fs.StringVar(&scope.TaskID, "task", "", "only this task")
				fs.StringVar(&scope.ProjectID, "project", "", "only this project")
				fs.StringVar(&scope.TeamID, "team", "", "team id (default current)")
				fs.StringVar(&filter.Query, "query", "", "match name, description or tags")
				fs.StringVar(&category, "category", "", "document, image, video, spreadsheet, presentation or other")
				fs.StringVar(&filter.Tag, "tag", "", "exact tag")
			}); err != nil {
				return err
			}
			filter.Category = domain.FileCategory(category)
			if scope.TaskID == "" && scope.ProjectID == "" {
				id, err := a.resolveTeam(ctx, scope.TeamID)
				if err != nil {
					return err
				}
				scope.TeamID = id
			}
			files, err := a.svc.Files(ctx, scope, filter)
			if err != nil {
				return err
			}
			for _, f := range files {
				a.printf("%s\t%s\t%s\t%s\t%s\n", f.ID, f.Name, f.Category, f.Status, strings.Join(f.Tags, ","))
			}
			if tags := core.FileTags(files); len(tags) > 0 {
				a.printf("tags: %s\n", strings.Join(tags, ", "))
			}
			return nil
		},
		"status": func(args []string) error {
			var id, status string
			if _, err := parse("file status", args, func(fs *flag.FlagSet) {
				fs.StringVar(&id, "id", "", "file id")
				fs.StringVar(&status, "status", "", "draft, needs-revision or approved")
			}); err != nil {
				return err
			}
			if err := need("id", id, "status", status); err != nil {
				return err
			}
			file, _, err := a.svc.SetFileStatus(ctx, id, domain.FileStatus(status))
			if err != nil {
				return err
			}
			a.printf("%s is %s\n", file.Name, file.Status)
			return nil
		},
		"delete": func(args []string) error {
			var id string
			if _, err := parse("file delete", args, func(fs *flag.FlagSet) {
				fs.StringVar(&id, "id", "", "file id")
			}); err != nil {
				return err
			}
			if err := need("id", id); err != nil {
				return err
			}
			if _, err := a.svc.DeleteFile(ctx, id); err != nil {
				return err
			}
			a.printf("file %s deleted\n", id)
			return nil
		},
	}.run("file", args)
}

func splitTags(raw string) []string {
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

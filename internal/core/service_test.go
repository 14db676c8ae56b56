package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"taskmate/pkg/domain"
)

type fixture struct {
	svc     *Service
	team    Team
	project Project
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	svc := NewInMemoryService(NewDefaultRulesEngine())
	team, _, err := svc.CreateTeam(ctx, Team{Name: "Core", Members: []string{"owner"}, CreatedBy: "owner"})
	if err != nil {
		t.Fatalf("create team: %v", err)
	}
	project, _, err := svc.CreateProject(ctx, Project{TeamID: team.ID, Name: "Launch", CreatedBy: "owner"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return fixture{svc: svc, team: team, project: project}
}

func (f fixture) task(t *testing.T, task Task) Task {
	t.Helper()
	if task.ProjectID == "" {
		task.ProjectID = f.project.ID
	}
	if task.Title == "" {
		task.Title = "task"
	}
	created, _, err := f.svc.CreateTask(context.Background(), task)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return created
}

func TestFirstTeamBecomesCurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	current, ok, err := f.svc.CurrentTeam(ctx)
	if err != nil || !ok || current.ID != f.team.ID {
		t.Fatalf("expected first team current, got %+v ok=%v err=%v", current, ok, err)
	}
	second, _, err := f.svc.CreateTeam(ctx, Team{Name: "Second", Members: []string{"owner"}, CreatedBy: "owner"})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	current, _, _ = f.svc.CurrentTeam(ctx)
	if current.ID != f.team.ID {
		t.Fatalf("expected current team unchanged after second create")
	}
	if second.JoinCode == f.team.JoinCode {
		t.Fatalf("expected distinct join codes")
	}
}

func TestJoinCodeShape(t *testing.T) {
	f := newFixture(t)
	code := f.team.JoinCode
	if len(code) != domain.JoinCodeLength {
		t.Fatalf("expected %d characters, got %q", domain.JoinCodeLength, code)
	}
	for _, r := range code {
		if !strings.ContainsRune(domain.JoinCodeAlphabet, r) {
			t.Fatalf("character %q outside alphabet in %q", r, code)
		}
	}
}

func TestJoinTeamByCodeIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.SetCurrentTeam(ctx, ""); err != nil {
		t.Fatalf("clear current: %v", err)
	}
	lower := "  " + strings.ToLower(f.team.JoinCode) + " "
	joined, _, err := f.svc.JoinTeamByCode(ctx, lower, "newbie")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if !joined.HasMember("newbie") {
		t.Fatalf("expected newbie in members: %v", joined.Members)
	}
	again, _, err := f.svc.JoinTeamByCode(ctx, f.team.JoinCode, "newbie")
	if err != nil {
		t.Fatalf("join again: %v", err)
	}
	count := 0
	for _, m := range again.Members {
		if m == "newbie" {
			count++
		}
	}
	if count != 1 || len(again.Members) != 2 {
		t.Fatalf("expected single membership, got %v", again.Members)
	}
	current, _, _ := f.svc.CurrentTeam(ctx)
	if current.ID != f.team.ID {
		t.Fatalf("expected joined team to become current")
	}
}

func TestJoinTeamByCodeUnknown(t *testing.T) {
	f := newFixture(t)
	for _, code := range []string{"", "   ", "ZZZZZZZZ"} {
		team, _, err := f.svc.JoinTeamByCode(context.Background(), code, "u2")
		var nf ErrNotFound
		if !errors.As(err, &nf) {
			t.Fatalf("code %q: expected ErrNotFound, got %v", code, err)
		}
		if team.ID != "" {
			t.Fatalf("code %q: expected zero team on error, got %+v", code, team)
		}
	}
}

func TestDeleteTeamCascadeKeepsCommentsAndFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.task(t, Task{Title: "Docs"})
	if _, _, err := f.svc.AddComment(ctx, Comment{TaskID: task.ID, UserID: "owner", Message: "note"}); err != nil {
		t.Fatalf("comment: %v", err)
	}
	file, _, err := f.svc.AddFile(ctx, FileAttachment{TaskID: task.ID, Name: "a.png", Type: "image/png"})
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	if _, _, err := f.svc.AddFileComment(ctx, FileComment{FileID: file.ID, Message: "nice"}); err != nil {
		t.Fatalf("file comment: %v", err)
	}

	if _, err := f.svc.DeleteTeam(ctx, f.team.ID); err != nil {
		t.Fatalf("delete team: %v", err)
	}
	if projects, _ := f.svc.Projects(ctx, f.team.ID); len(projects) != 0 {
		t.Fatalf("expected projects removed")
	}
	if tasks, _ := f.svc.Tasks(ctx, f.team.ID); len(tasks) != 0 {
		t.Fatalf("expected tasks removed")
	}
	if comments, _ := f.svc.TaskComments(ctx, task.ID); len(comments) != 1 {
		t.Fatalf("expected orphaned comment to remain, got %d", len(comments))
	}
	if files, _ := f.svc.Files(ctx, FileScope{TeamID: f.team.ID}, FileFilter{}); len(files) != 1 {
		t.Fatalf("expected orphaned file to remain, got %d", len(files))
	}
	if fc, _ := f.svc.FileComments(ctx, file.ID); len(fc) != 1 {
		t.Fatalf("expected orphaned file comment to remain")
	}
	if _, ok, _ := f.svc.CurrentTeam(ctx); ok {
		t.Fatalf("expected current team cleared")
	}
}

func TestDeleteTaskRemovesOnlyItsComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.task(t, Task{Title: "A"})
	b := f.task(t, Task{Title: "B"})
	for _, id := range []string{a.ID, b.ID, b.ID} {
		if _, _, err := f.svc.AddComment(ctx, Comment{TaskID: id, UserID: "owner", Message: "m"}); err != nil {
			t.Fatalf("comment: %v", err)
		}
	}
	if _, err := f.svc.DeleteTask(ctx, b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := f.svc.TaskComments(ctx, a.ID); len(got) != 1 {
		t.Fatalf("expected task A comment kept, got %d", len(got))
	}
	if got, _ := f.svc.TaskComments(ctx, b.ID); len(got) != 0 {
		t.Fatalf("expected task B comments removed, got %d", len(got))
	}
}

func TestCreateTaskDefaultsAndValidation(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, Task{Title: "Defaults"})
	if task.Status != domain.TaskStatusTodo || task.Priority != domain.PriorityMedium {
		t.Fatalf("unexpected defaults: %+v", task)
	}
	if task.TeamID != f.team.ID {
		t.Fatalf("expected team from project, got %q", task.TeamID)
	}

	cases := []struct {
		name  string
		task  Task
		field string
	}{
		{"missing title", Task{ProjectID: f.project.ID}, "title"},
		{"bad status", Task{ProjectID: f.project.ID, Title: "x", Status: "blocked"}, "status"},
		{"bad priority", Task{ProjectID: f.project.ID, Title: "x", Priority: "urgent"}, "priority"},
		{"bad deadline", Task{ProjectID: f.project.ID, Title: "x", Deadline: "next week"}, "deadline"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := f.svc.CreateTask(context.Background(), tc.task)
			var ve ValidationError
			if !errors.As(err, &ve) || ve.Field != tc.field {
				t.Fatalf("expected validation error on %s, got %v", tc.field, err)
			}
		})
	}

	_, _, err := f.svc.CreateTask(context.Background(), Task{ProjectID: "nope", Title: "x"})
	var nf ErrNotFound
	if !errors.As(err, &nf) || nf.Entity != EntityProject {
		t.Fatalf("expected project not found, got %v", err)
	}
}

func TestTaskTeamMismatchIsBlocked(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.CreateTask(context.Background(), Task{ProjectID: f.project.ID, TeamID: "other-team", Title: "x"})
	var rv RuleViolationError
	if !errors.As(err, &rv) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	if rv.Result.Violations[0].Rule != "task_references" {
		t.Fatalf("unexpected rule: %+v", rv.Result.Violations)
	}
}

func TestTaskNotifications(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.task(t, Task{Title: "Review", CreatedBy: "owner", AssigneeID: "dev"})
	notes, _ := f.svc.UserNotifications(ctx, "dev")
	if len(notes) != 1 || notes[0].Type != domain.NotificationTaskAssigned || notes[0].RelatedID != task.ID {
		t.Fatalf("expected task_assigned for dev, got %+v", notes)
	}

	self := f.task(t, Task{Title: "Mine", CreatedBy: "owner", AssigneeID: "owner"})
	if n, _ := f.svc.UnreadCount(ctx, "owner"); n != 0 {
		t.Fatalf("expected no self-assignment notification, got %d", n)
	}

	if _, _, err := f.svc.MoveTask(ctx, task.ID, domain.TaskStatusDone); err != nil {
		t.Fatalf("move: %v", err)
	}
	if _, _, err := f.svc.MoveTask(ctx, task.ID, domain.TaskStatusDone); err != nil {
		t.Fatalf("move again: %v", err)
	}
	owner, _ := f.svc.UserNotifications(ctx, "owner")
	if len(owner) != 1 || owner[0].Type != domain.NotificationTaskCompleted {
		t.Fatalf("expected one task_completed for owner, got %+v", owner)
	}

	if _, _, err := f.svc.AddComment(ctx, Comment{TaskID: self.ID, UserID: "owner", UserName: "Owner", Message: "self"}); err != nil {
		t.Fatalf("comment: %v", err)
	}
	if _, _, err := f.svc.AddComment(ctx, Comment{TaskID: task.ID, UserID: "owner", UserName: "Owner", Message: "ping"}); err != nil {
		t.Fatalf("comment: %v", err)
	}
	notes, _ = f.svc.UserNotifications(ctx, "dev")
	if len(notes) != 2 || notes[0].Type != domain.NotificationCommentAdded {
		t.Fatalf("expected newest comment_added first, got %+v", notes)
	}

	if _, _, err := f.svc.AssignTask(ctx, self.ID, "dev"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if n, _ := f.svc.UnreadCount(ctx, "dev"); n != 3 {
		t.Fatalf("expected 3 unread for dev, got %d", n)
	}
	changed, _, err := f.svc.MarkAllNotificationsRead(ctx, "dev")
	if err != nil || changed != 3 {
		t.Fatalf("mark all: changed=%d err=%v", changed, err)
	}
	if n, _ := f.svc.UnreadCount(ctx, "dev"); n != 0 {
		t.Fatalf("expected all read, got %d", n)
	}
}

func TestAddMemberSendsInvite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	team, _, err := f.svc.AddMemberToTeam(ctx, f.team.ID, "guest")
	if err != nil {
		t.Fatalf("add member: %v", err)
	}
	if !team.HasMember("guest") {
		t.Fatalf("expected guest member")
	}
	if _, _, err := f.svc.AddMemberToTeam(ctx, f.team.ID, "guest"); err != nil {
		t.Fatalf("add again: %v", err)
	}
	notes, _ := f.svc.UserNotifications(ctx, "guest")
	if len(notes) != 1 || notes[0].Type != domain.NotificationTeamInvite {
		t.Fatalf("expected one invite, got %+v", notes)
	}
	team, _, err = f.svc.RemoveMemberFromTeam(ctx, f.team.ID, "guest")
	if err != nil || team.HasMember("guest") {
		t.Fatalf("expected guest removed, members=%v err=%v", team.Members, err)
	}
	teams, _ := f.svc.UserTeams(ctx, "guest")
	if len(teams) != 0 {
		t.Fatalf("expected guest to have no teams")
	}
}

func TestTeamInviteQR(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	png, err := f.svc.TeamInviteQR(ctx, f.team.ID, 128)
	if err != nil {
		t.Fatalf("qr: %v", err)
	}
	if len(png) < 8 || string(png[1:4]) != "PNG" {
		t.Fatalf("expected PNG bytes")
	}
	text, err := f.svc.TeamInviteQRText(ctx, f.team.ID)
	if err != nil || text == "" {
		t.Fatalf("expected text qr, err=%v", err)
	}
	if _, err := f.svc.TeamInviteQR(ctx, "missing", 0); err == nil {
		t.Fatalf("expected missing team error")
	}
}

func TestValidationRunsBeforeStateChanges(t *testing.T) {
	svc := NewInMemoryService(NewDefaultRulesEngine())
	_, _, err := svc.CreateTeam(context.Background(), Team{Name: "  "})
	var ve ValidationError
	if !errors.As(err, &ve) || ve.Field != "name" {
		t.Fatalf("expected name validation error, got %v", err)
	}
	if teams, _ := svc.Teams(context.Background()); len(teams) != 0 {
		t.Fatalf("expected no teams after failed create")
	}
}

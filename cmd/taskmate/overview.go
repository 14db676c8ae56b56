package main

import (
	"context"
	"expvar"
	"flag"
	"fmt"
	"time"

	"github.com/prometheus/common/expfmt"

	"taskmate/pkg/domain"
)

func cmdNotifications(ctx context.Context, a *app, args []string) error {
	user, err := a.session(ctx)
	if err != nil {
		return err
	}
	var readID, deleteID string
	var readAll bool
	if _, err := parse("notifications", args, func(fs *flag.FlagSet) {
		fs.StringVar(&readID, "read", "", "mark one notification read")
		fs.BoolVar(&readAll, "read-all", false, "mark every notification read")
		fs.StringVar(&deleteID, "delete", "", "delete one notification")
	}); err != nil {
		return err
	}
	switch {
	case readID != "":
		if _, err := a.svc.MarkNotificationRead(ctx, readID); err != nil {
			return err
		}
	case readAll:
		n, _, err := a.svc.MarkAllNotificationsRead(ctx, user.ID)
		if err != nil {
			return err
		}
		a.printf("marked %d read\n", n)
	case deleteID != "":
		if _, err := a.svc.DeleteNotification(ctx, deleteID); err != nil {
			return err
		}
	}
	notifications, err := a.svc.UserNotifications(ctx, user.ID)
	if err != nil {
		return err
	}
	unread, err := a.svc.UnreadCount(ctx, user.ID)
	if err != nil {
		return err
	}
	a.printf("%d unread\n", unread)
	for _, n := range notifications {
		marker := "*"
		if n.IsRead {
			marker = " "
		}
		a.printf("%s %s\t%s\t%s: %s\n", marker, n.ID, n.Type, n.Title, n.Message)
	}
	return nil
}

func cmdDeadlines(ctx context.Context, a *app, args []string) error {
	var window time.Duration
	if _, err := parse("deadlines", args, func(fs *flag.FlagSet) {
		fs.DurationVar(&window, "window", 24*time.Hour, "how far ahead to look")
	}); err != nil {
		return err
	}
	n, _, err := a.svc.NotifyApproachingDeadlines(ctx, time.Now(), window)
	if err != nil {
		return err
	}
	a.printf("%d deadline reminders sent\n", n)
	return nil
}

func cmdDashboard(ctx context.Context, a *app, args []string) error {
	var teamID string
	if _, err := parse("dashboard", args, func(fs *flag.FlagSet) {
		fs.StringVar(&teamID, "team", "", "team id (default current)")
	}); err != nil {
		return err
	}
	teamID, err := a.resolveTeam(ctx, teamID)
	if err != nil {
		return err
	}
	d, err := a.svc.Dashboard(ctx, teamID)
	if err != nil {
		return err
	}
	a.printf("%s\n", d.Team.Name)
	a.printf("tasks %d  in progress %d  high priority %d  done %d\n",
		d.Stats.Total, d.Stats.InProgress, d.Stats.HighPriority, d.Stats.Done)
	a.printf("upcoming deadlines:\n")
	for _, t := range d.Upcoming {
		a.printTask(t)
	}
	a.printf("recent tasks:\n")
	for _, t := range d.Recent {
		a.printTask(t)
	}
	a.printf("projects:\n")
	for _, p := range d.Projects {
		a.printf("  %s\t%d tasks\t%.0f%%\n", p.Project.Name, p.Tasks, p.Progress)
	}
	a.printf("members:\n")
	for _, m := range d.Members {
		name := m.UserID
		if user, ok, err := a.auth.FindUser(ctx, m.UserID); err == nil && ok {
			name = user.Name
		}
		a.printf("  %s\tdone %d\tin progress %d\ttodo %d\t%.0f%%\n", name, m.Done, m.InProgress, m.Todo, m.CompletionRate)
	}
	return nil
}

func cmdCalendar(ctx context.Context, a *app, args []string) error {
	var teamID, date string
	if _, err := parse("calendar", args, func(fs *flag.FlagSet) {
		fs.StringVar(&teamID, "team", "", "team id (default current)")
		fs.StringVar(&date, "date", "", "only tasks due on YYYY-MM-DD")
	}); err != nil {
		return err
	}
	teamID, err := a.resolveTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if date != "" {
		day, ok := domain.ParseDeadline(date)
		if !ok {
			return fmt.Errorf("%w: -date must be YYYY-MM-DD", errUsage)
		}
		tasks, err := a.svc.TasksDueOn(ctx, teamID, day)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			a.printTask(t)
		}
		return nil
	}
	buckets, err := a.svc.Calendar(ctx, teamID)
	if err != nil {
		return err
	}
	for _, b := range buckets {
		mark := ""
		if b.HighPriority {
			mark = " !"
		}
		a.printf("%s%s\n", b.Date, mark)
		for _, t := range b.Tasks {
			a.printf("  ")
			a.printTask(t)
		}
	}
	return nil
}

func cmdMetrics(_ context.Context, a *app, _ []string) error {
	switch {
	case a.expvar != nil:
		if v := expvar.Get(a.expvar.Name()); v != nil {
			a.printf("%s\n", v.String())
		}
		return nil
	case a.prometheus:
		families, err := a.registry.Gather()
		if err != nil {
			return fmt.Errorf("gather metrics: %w", err)
		}
		for _, mf := range families {
			if _, err := expfmt.MetricFamilyToText(a.out, mf); err != nil {
				return err
			}
		}
		return nil
	default:
		a.printf("metrics disabled\n")
		return nil
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strconv"

	"taskmate/internal/auth"
	"taskmate/pkg/domain"
)

var errNotLoggedIn = errors.New("not logged in; run taskmate login")

func (a *app) session(ctx context.Context) (domain.SessionUser, error) {
	user, ok, err := a.auth.Current(ctx)
	if err != nil {
		return domain.SessionUser{}, err
	}
	if !ok {
		return domain.SessionUser{}, errNotLoggedIn
	}
	return user, nil
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	var name, email, password, role string
	if _, err := parse("register", args, func(fs *flag.FlagSet) {
		fs.StringVar(&name, "name", "", "display name")
		fs.StringVar(&email, "email", "", "email address")
		fs.StringVar(&password, "password", "", "password")
		fs.StringVar(&role, "role", string(domain.RoleMember), "admin or member")
	}); err != nil {
		return err
	}
	user, ok, err := a.auth.Register(ctx, name, email, password, domain.Role(role))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("email %s is already registered", email)
	}
	a.printf("registered %s (%s) id=%s\n", user.Name, user.Email, user.ID)
	return nil
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	var email, password string
	if _, err := parse("login", args, func(fs *flag.FlagSet) {
		fs.StringVar(&email, "email", "", "email address")
		fs.StringVar(&password, "password", "", "password")
	}); err != nil {
		return err
	}
	user, ok, err := a.auth.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if !ok {
		return auth.ErrInvalidCredentials
	}
	a.printf("logged in as %s\n", user.Name)
	return nil
}

func cmdLogout(ctx context.Context, a *app, _ []string) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	a.printf("logged out\n")
	return nil
}

func cmdWhoami(ctx context.Context, a *app, _ []string) error {
	user, err := a.session(ctx)
	if err != nil {
		return err
	}
	a.printf("%s [%s] %s <%s> role=%s\n", user.ID, user.Initials, user.Name, user.Email, user.Role)
	if team, ok, err := a.svc.CurrentTeam(ctx); err != nil {
		return err
	} else if ok {
		a.printf("current team: %s (%s)\n", team.Name, team.ID)
	}
	return nil
}

func cmdProfile(ctx context.Context, a *app, args []string) error {
	user, err := a.session(ctx)
	if err != nil {
		return err
	}
	var update auth.ProfileUpdate
	fs, err := parse("profile", args, func(fs *flag.FlagSet) {
		fs.String("name", "", "display name")
		fs.String("email", "", "email address")
		fs.String("bio", "", "short biography")
		fs.String("avatar", "", "avatar URL")
	})
	if err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		value := f.Value.String()
		switch f.Name {
		case "name":
			update.Name = &value
		case "email":
			update.Email = &value
		case "bio":
			update.Bio = &value
		case "avatar":
			update.AvatarURL = &value
		}
	})
	updated, err := a.auth.UpdateProfile(ctx, user.ID, update)
	if err != nil {
		return err
	}
	a.printf("%s [%s] %s <%s>\n", updated.ID, updated.Initials, updated.Name, updated.Email)
	return nil
}

func cmdPassword(ctx context.Context, a *app, args []string) error {
	user, err := a.session(ctx)
	if err != nil {
		return err
	}
	var current, next string
	if _, err := parse("password", args, func(fs *flag.FlagSet) {
		fs.StringVar(&current, "current", "", "current password")
		fs.StringVar(&next, "new", "", "new password")
	}); err != nil {
		return err
	}
	if err := a.auth.ChangePassword(ctx, user.ID, current, next); err != nil {
		return err
	}
	a.printf("password changed\n")
	return nil
}

func cmdPreferences(ctx context.Context, a *app, args []string) error {
	user, err := a.session(ctx)
	if err != nil {
		return err
	}
	prefs, err := a.auth.Preferences(ctx, user.ID)
	if err != nil {
		return err
	}
	fs, err := parse("preferences", args, func(fs *flag.FlagSet) {
		fs.BoolVar(&prefs.EmailNotifications, "email-notifications", prefs.EmailNotifications, "email notifications")
		fs.BoolVar(&prefs.TaskReminders, "task-reminders", prefs.TaskReminders, "task reminders")
		fs.BoolVar(&prefs.WeeklyDigest, "weekly-digest", prefs.WeeklyDigest, "weekly digest")
		fs.BoolVar(&prefs.DarkMode, "dark-mode", prefs.DarkMode, "dark mode")
	})
	if err != nil {
		return err
	}
	if fs.NFlag() > 0 {
		if err := a.auth.SavePreferences(ctx, user.ID, prefs); err != nil {
			return err
		}
	}
	a.printf("email-notifications=%s task-reminders=%s weekly-digest=%s dark-mode=%s\n",
		strconv.FormatBool(prefs.EmailNotifications),
		strconv.FormatBool(prefs.TaskReminders),
		strconv.FormatBool(prefs.WeeklyDigest),
		strconv.FormatBool(prefs.DarkMode))
	return nil
}

func cmdLanguage(ctx context.Context, a *app, args []string) error {
	if len(args) > 0 {
		if err := a.auth.SetLanguage(ctx, args[0]); err != nil {
			return err
		}
	}
	lang, err := a.auth.Language(ctx)
	if err != nil {
		return err
	}
	a.printf("%s\n", lang)
	return nil
}

package auth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"taskmate/internal/kv"
	"taskmate/internal/storage"
	"taskmate/pkg/domain"
)

func newStore(t *testing.T) (*Store, *storage.Adapter) {
	t.Helper()
	adapter := storage.New(kv.NewMemory(0))
	return New(adapter, WithBcryptCost(bcrypt.MinCost)), adapter
}

func TestRegisterThenLogin(t *testing.T) {
	ctx := context.Background()
	s, adapter := newStore(t)
	registered, ok, err := s.Register(ctx, "Siti Nurhaliza Putri", "siti@example.com", "secret1", domain.RoleAdmin)
	if err != nil || !ok {
		t.Fatalf("register: ok=%v err=%v", ok, err)
	}
	if registered.Initials != "SN" {
		t.Fatalf("expected initials SN, got %q", registered.Initials)
	}
	raw, _, _ := adapter.GetString(ctx, storage.KeySession)
	if strings.Contains(raw, "secret1") || strings.Contains(strings.ToLower(raw), "password") {
		t.Fatalf("session record carries password material: %s", raw)
	}
	users, _, _ := adapter.GetString(ctx, storage.KeyUsers)
	if strings.Contains(users, "secret1") {
		t.Fatalf("plaintext password persisted: %s", users)
	}

	if err := s.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok, _ := s.Current(ctx); ok {
		t.Fatalf("expected no session after logout")
	}
	if _, ok, _ := s.Login(ctx, "siti@example.com", "wrong-pass"); ok {
		t.Fatalf("expected wrong password to fail")
	}
	got, ok, err := s.Login(ctx, "siti@example.com", "secret1")
	if err != nil || !ok || got.ID != registered.ID {
		t.Fatalf("login: %+v ok=%v err=%v", got, ok, err)
	}
	current, ok, _ := s.Current(ctx)
	if !ok || current.ID != registered.ID {
		t.Fatalf("expected session for logged-in user")
	}
}

func TestLoginIgnoresSurroundingWhitespace(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	registered, ok, err := s.Register(ctx, "Ana", " ana@example.com ", "secret1", "")
	if err != nil || !ok {
		t.Fatalf("register: ok=%v err=%v", ok, err)
	}
	if registered.Email != "ana@example.com" {
		t.Fatalf("expected trimmed email, got %q", registered.Email)
	}
	for _, email := range []string{" ana@example.com ", "ana@example.com\t"} {
		got, ok, err := s.Login(ctx, email, "secret1")
		if err != nil || !ok || got.ID != registered.ID {
			t.Fatalf("login %q: %+v ok=%v err=%v", email, got, ok, err)
		}
	}
}

func TestRegisterDuplicateEmailLeavesUsersUntouched(t *testing.T) {
	ctx := context.Background()
	s, adapter := newStore(t)
	if _, ok, err := s.Register(ctx, "A", "a@example.com", "secret1", domain.RoleMember); err != nil || !ok {
		t.Fatalf("first register: ok=%v err=%v", ok, err)
	}
	before, _, _ := adapter.GetString(ctx, storage.KeyUsers)
	_, ok, err := s.Register(ctx, "B", "a@example.com", "another", domain.RoleMember)
	if err != nil || ok {
		t.Fatalf("expected duplicate to return false, ok=%v err=%v", ok, err)
	}
	after, _, _ := adapter.GetString(ctx, storage.KeyUsers)
	if before != after {
		t.Fatalf("users collection changed on duplicate register")
	}
}

func TestRegisterValidation(t *testing.T) {
	s, _ := newStore(t)
	cases := []struct {
		name, email, password string
		role                  domain.Role
		field                 string
	}{
		{"", "x@example.com", "secret1", "", "name"},
		{"X", " ", "secret1", "", "email"},
		{"X", "x@example.com", "12345", "", "password"},
		{"X", "x@example.com", "secret1", "owner", "role"},
	}
	for _, tc := range cases {
		_, _, err := s.Register(context.Background(), tc.name, tc.email, tc.password, tc.role)
		var ve domain.ValidationError
		if !errors.As(err, &ve) || ve.Field != tc.field {
			t.Fatalf("expected %s validation error, got %v", tc.field, err)
		}
	}
}

func TestLegacyPlaintextUpgradedOnLogin(t *testing.T) {
	ctx := context.Background()
	s, adapter := newStore(t)
	legacy := []domain.User{{ID: "1", Name: "Old Timer", Email: "old@example.com", Password: "hunter22", Role: domain.RoleMember, Initials: "OT"}}
	if err := storage.Save(ctx, adapter, storage.KeyUsers, legacy); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, ok, err := s.Login(ctx, "old@example.com", "hunter22"); err != nil || !ok {
		t.Fatalf("legacy login: ok=%v err=%v", ok, err)
	}
	users, _ := storage.Load[domain.User](ctx, adapter, storage.KeyUsers)
	if users[0].Password != "" || users[0].PasswordHash == "" {
		t.Fatalf("expected hash upgrade, got %+v", users[0])
	}
	if _, ok, _ := s.Login(ctx, "old@example.com", "hunter22"); !ok {
		t.Fatalf("expected login with upgraded hash")
	}
}

func TestUpdateProfileAndChangePassword(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	user, _, err := s.Register(ctx, "Budi", "budi@example.com", "secret1", domain.RoleMember)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, _, err := s.Register(ctx, "Other", "other@example.com", "secret1", domain.RoleMember); err != nil {
		t.Fatalf("register other: %v", err)
	}
	// the second registration took over the session
	if _, ok, _ := s.Login(ctx, "budi@example.com", "secret1"); !ok {
		t.Fatalf("login budi")
	}

	name, bio := "Budi Santoso", "Backend"
	updated, err := s.UpdateProfile(ctx, user.ID, ProfileUpdate{Name: &name, Bio: &bio})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Initials != "BS" || updated.Bio != "Backend" {
		t.Fatalf("unexpected profile: %+v", updated)
	}
	current, _, _ := s.Current(ctx)
	if current.Name != name {
		t.Fatalf("expected session refreshed, got %+v", current)
	}
	taken := "other@example.com"
	if _, err := s.UpdateProfile(ctx, user.ID, ProfileUpdate{Email: &taken}); err == nil {
		t.Fatalf("expected duplicate email to be rejected")
	}

	if err := s.ChangePassword(ctx, user.ID, "nope", "newsecret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	var ve domain.ValidationError
	if err := s.ChangePassword(ctx, user.ID, "secret1", "short"); !errors.As(err, &ve) {
		t.Fatalf("expected short password rejection, got %v", err)
	}
	if err := s.ChangePassword(ctx, user.ID, "secret1", "newsecret"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, ok, _ := s.Login(ctx, "budi@example.com", "newsecret"); !ok {
		t.Fatalf("expected login with new password")
	}
	if _, err := s.UpdateProfile(ctx, "ghost", ProfileUpdate{}); err == nil {
		t.Fatalf("expected missing user error")
	}
}

func TestInitials(t *testing.T) {
	cases := map[string]string{
		"ada lovelace":      "AL",
		"Single":            "S",
		"  many  word name": "MW",
		"":                  "",
		"élan vital":        "ÉV",
	}
	for in, want := range cases {
		if got := Initials(in); got != want {
			t.Fatalf("Initials(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPreferencesAndLanguage(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	prefs, err := s.Preferences(ctx, "u1")
	if err != nil || prefs != DefaultPreferences() {
		t.Fatalf("expected defaults, got %+v err=%v", prefs, err)
	}
	want := Preferences{WeeklyDigest: true, DarkMode: true}
	if err := s.SavePreferences(ctx, "u1", want); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got, _ := s.Preferences(ctx, "u1"); got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	if lang, _ := s.Language(ctx); lang != "id" {
		t.Fatalf("expected default id, got %q", lang)
	}
	if err := s.SetLanguage(ctx, "EN"); err != nil {
		t.Fatalf("set language: %v", err)
	}
	if lang, _ := s.Language(ctx); lang != "en" {
		t.Fatalf("expected en, got %q", lang)
	}
	if err := s.SetLanguage(ctx, "fr"); err == nil {
		t.Fatalf("expected unsupported language error")
	}
}

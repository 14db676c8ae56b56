// Package auth keeps registered users and the current session in the
// key-value store, outside the transactional entity store.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"taskmate/internal/logging"
	"taskmate/internal/storage"
	"taskmate/pkg/domain"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// ErrInvalidCredentials is returned when a password check fails.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Store manages users, the session record, preferences and language.
type Store struct {
	adapter *storage.Adapter
	logger  logging.Logger
	cost    int
	now     func() time.Time
	mu      sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithLogger routes auth diagnostics to logger.
func WithLogger(logger logging.Logger) Option {
	return func(s *Store) { s.logger = logging.OrNoop(logger) }
}

// WithBcryptCost overrides the bcrypt work factor.
func WithBcryptCost(cost int) Option {
	return func(s *Store) { s.cost = cost }
}

// WithClock overrides the time source for account creation.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns an auth store over adapter.
func New(adapter *storage.Adapter, opts ...Option) *Store {
	s := &Store{
		adapter: adapter,
		logger:  logging.Noop{},
		cost:    bcrypt.DefaultCost,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initials takes the first letter of each word of name, uppercased, at most two.
func Initials(name string) string {
	initials := make([]rune, 0, 2)
	for _, word := range strings.Fields(name) {
		initials = append(initials, unicode.ToUpper([]rune(word)[0]))
		if len(initials) == 2 {
			break
		}
	}
	return string(initials)
}

func (s *Store) users(ctx context.Context) ([]domain.User, error) {
	return storage.Load[domain.User](ctx, s.adapter, storage.KeyUsers)
}

func (s *Store) hash(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", domain.ValidationError{Field: "password", Message: fmt.Sprintf("must be at least %d characters", MinPasswordLength)}
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", domain.ValidationError{Field: "password", Message: "is too long"}
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// verify checks password against the user's hash, falling back to the
// legacy plaintext field. It reports whether the record needs an upgrade.
func verify(u domain.User, password string) (ok, upgrade bool) {
	if u.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil, false
	}
	if u.Password != "" && subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) == 1 {
		return true, true
	}
	return false, false
}

// Register creates an account and starts its session. It returns false,
// leaving the users untouched, when email is already registered.
func (s *Store) Register(ctx context.Context, name, email, password string, role domain.Role) (domain.SessionUser, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return domain.SessionUser{}, false, domain.ValidationError{Field: "name", Message: "is required"}
	}
	if email == "" {
		return domain.SessionUser{}, false, domain.ValidationError{Field: "email", Message: "is required"}
	}
	if role == "" {
		role = domain.RoleMember
	}
	if !role.Valid() {
		return domain.SessionUser{}, false, domain.ValidationError{Field: "role", Message: "unknown role " + string(role)}
	}
	users, err := s.users(ctx)
	if err != nil {
		return domain.SessionUser{}, false, err
	}
	for _, u := range users {
		if u.Email == email {
			return domain.SessionUser{}, false, nil
		}
	}
	hash, err := s.hash(password)
	if err != nil {
		return domain.SessionUser{}, false, err
	}
	user := domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Initials:     Initials(name),
		CreatedAt:    s.now(),
	}
	if err := storage.Save(ctx, s.adapter, storage.KeyUsers, append(users, user)); err != nil {
		return domain.SessionUser{}, false, err
	}
	session := user.Session()
	if err := storage.SaveObject(ctx, s.adapter, storage.KeySession, session); err != nil {
		return domain.SessionUser{}, false, err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return session, true, nil
}

// Login starts a session for the account matching email and password. A
// legacy plaintext password is replaced by a hash on first success.
func (s *Store) Login(ctx context.Context, email, password string) (domain.SessionUser, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.TrimSpace(email)
	users, err := s.users(ctx)
	if err != nil {
		return domain.SessionUser{}, false, err
	}
	for i, u := range users {
		if u.Email != email {
			continue
		}
		ok, upgrade := verify(u, password)
		if !ok {
			return domain.SessionUser{}, false, nil
		}
		if upgrade {
			if hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost); err == nil {
				users[i].PasswordHash = string(hash)
				users[i].Password = ""
				if err := storage.Save(ctx, s.adapter, storage.KeyUsers, users); err != nil {
					return domain.SessionUser{}, false, err
				}
				s.logger.Info("upgraded legacy password", "user_id", u.ID)
			} else {
				s.logger.Warn("legacy password upgrade skipped", "user_id", u.ID, "error", err)
			}
		}
		session := users[i].Session()
		if err := storage.SaveObject(ctx, s.adapter, storage.KeySession, session); err != nil {
			return domain.SessionUser{}, false, err
		}
		return session, true, nil
	}
	return domain.SessionUser{}, false, nil
}

// Logout ends the session. Users and entity data are kept.
func (s *Store) Logout(ctx context.Context) error {
	return s.adapter.Remove(ctx, storage.KeySession)
}

// Current returns the session user, if one is logged in.
func (s *Store) Current(ctx context.Context) (domain.SessionUser, bool, error) {
	return storage.LoadObject[domain.SessionUser](ctx, s.adapter, storage.KeySession)
}

// Users lists every registered account without password material.
func (s *Store) Users(ctx context.Context) ([]domain.SessionUser, error) {
	users, err := s.users(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SessionUser, len(users))
	for i, u := range users {
		out[i] = u.Session()
	}
	return out, nil
}

// FindUser looks up an account by id.
func (s *Store) FindUser(ctx context.Context, id string) (domain.SessionUser, bool, error) {
	users, err := s.users(ctx)
	if err != nil {
		return domain.SessionUser{}, false, err
	}
	for _, u := range users {
		if u.ID == id {
			return u.Session(), true, nil
		}
	}
	return domain.SessionUser{}, false, nil
}

// ProfileUpdate carries the editable profile fields. Nil fields are left
// unchanged.
type ProfileUpdate struct {
	Name      *string
	Email     *string
	Bio       *string
	AvatarURL *string
}

// UpdateProfile edits a user's profile, re-deriving initials and refreshing
// the session when it belongs to that user.
func (s *Store) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (domain.SessionUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.users(ctx)
	if err != nil {
		return domain.SessionUser{}, err
	}
	idx := -1
	for i, u := range users {
		if u.ID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.SessionUser{}, domain.NotFoundError{Entity: domain.EntityUser, ID: userID}
	}
	u := users[idx]
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return domain.SessionUser{}, domain.ValidationError{Field: "name", Message: "is required"}
		}
		u.Name = name
		u.Initials = Initials(name)
	}
	if update.Email != nil {
		email := strings.TrimSpace(*update.Email)
		if email == "" {
			return domain.SessionUser{}, domain.ValidationError{Field: "email", Message: "is required"}
		}
		for i, other := range users {
			if i != idx && other.Email == email {
				return domain.SessionUser{}, domain.ValidationError{Field: "email", Message: "already registered"}
			}
		}
		u.Email = email
	}
	if update.Bio != nil {
		u.Bio = *update.Bio
	}
	if update.AvatarURL != nil {
		u.AvatarURL = *update.AvatarURL
	}
	users[idx] = u
	if err := storage.Save(ctx, s.adapter, storage.KeyUsers, users); err != nil {
		return domain.SessionUser{}, err
	}
	if err := s.refreshSession(ctx, u); err != nil {
		return domain.SessionUser{}, err
	}
	return u.Session(), nil
}

func (s *Store) refreshSession(ctx context.Context, u domain.User) error {
	current, ok, err := storage.LoadObject[domain.SessionUser](ctx, s.adapter, storage.KeySession)
	if err != nil || !ok || current.ID != u.ID {
		return err
	}
	return storage.SaveObject(ctx, s.adapter, storage.KeySession, u.Session())
}

// ChangePassword replaces a user's password after verifying the current one.
func (s *Store) ChangePassword(ctx context.Context, userID, current, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.users(ctx)
	if err != nil {
		return err
	}
	for i, u := range users {
		if u.ID != userID {
			continue
		}
		if ok, _ := verify(u, current); !ok {
			return ErrInvalidCredentials
		}
		hash, err := s.hash(next)
		if err != nil {
			return err
		}
		users[i].PasswordHash = hash
		users[i].Password = ""
		return storage.Save(ctx, s.adapter, storage.KeyUsers, users)
	}
	return domain.NotFoundError{Entity: domain.EntityUser, ID: userID}
}

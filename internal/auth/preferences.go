package auth

import (
	"context"
	"strings"

	"taskmate/internal/storage"
	"taskmate/pkg/domain"
)

// Preferences are the per-user notification and display settings.
type Preferences struct {
	EmailNotifications bool `json:"emailNotifications"`
	TaskReminders      bool `json:"taskReminders"`
	WeeklyDigest       bool `json:"weeklyDigest"`
	DarkMode           bool `json:"darkMode"`
}

// DefaultPreferences apply until a user saves their own.
func DefaultPreferences() Preferences {
	return Preferences{EmailNotifications: true, TaskReminders: true}
}

// Preferences returns the saved preferences of userID or the defaults.
func (s *Store) Preferences(ctx context.Context, userID string) (Preferences, error) {
	prefs, ok, err := storage.LoadObject[Preferences](ctx, s.adapter, storage.PreferencesKey(userID))
	if err != nil {
		return Preferences{}, err
	}
	if !ok {
		return DefaultPreferences(), nil
	}
	return prefs, nil
}

// SavePreferences stores the preferences of userID.
func (s *Store) SavePreferences(ctx context.Context, userID string, prefs Preferences) error {
	if strings.TrimSpace(userID) == "" {
		return domain.ValidationError{Field: "userId", Message: "is required"}
	}
	return storage.SaveObject(ctx, s.adapter, storage.PreferencesKey(userID), prefs)
}

// Supported interface languages.
const (
	LanguageIndonesian = "id"
	LanguageEnglish    = "en"
	DefaultLanguage    = LanguageIndonesian
)

// Language returns the selected interface language, defaulting to Indonesian.
func (s *Store) Language(ctx context.Context) (string, error) {
	lang, ok, err := s.adapter.GetString(ctx, storage.KeyLanguage)
	if err != nil {
		return "", err
	}
	if !ok || (lang != LanguageIndonesian && lang != LanguageEnglish) {
		return DefaultLanguage, nil
	}
	return lang, nil
}

// SetLanguage stores the interface language.
func (s *Store) SetLanguage(ctx context.Context, lang string) error {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang != LanguageIndonesian && lang != LanguageEnglish {
		return domain.ValidationError{Field: "language", Message: "must be id or en"}
	}
	return s.adapter.SetString(ctx, storage.KeyLanguage, lang)
}

package ledger

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"spendsheet/internal/core"
	"spendsheet/internal/log"
)

// Setting returns the value stored under key and whether it exists.
func (l *Ledger) Setting(ctx context.Context, key string) (string, bool, error) {
	t, err := l.load(ctx, SheetSettings, SettingsHeader)
	if err != nil {
		return "", false, err
	}
	r, ok := t.find(exact(key))
	if !ok {
		return "", false, nil
	}
	return t.get(r, 1), true, nil
}

// SetSetting updates the value of key in place, appending a row when the key is new.
// Values are stored trimmed, the same way they are read back.
func (l *Ledger) SetSetting(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("empty setting key")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.setSetting(ctx, key, value)
}

func (l *Ledger) setSetting(ctx context.Context, key, value string) error {
	value = strings.TrimSpace(value)
	t, err := l.load(ctx, SheetSettings, SettingsHeader)
	if err != nil {
		return err
	}
	if r, ok := t.find(exact(key)); ok {
		if err := l.updateCell(ctx, t, r, 1, value); err != nil {
			return err
		}
	} else if err := l.appendRow(ctx, t, []any{key, value}); err != nil {
		return err
	}
	l.logger.InfoContext(ctx, "Setting saved", "key", key)
	return nil
}

// DeleteSetting removes the row of key.
func (l *Ledger) DeleteSetting(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.deleteSetting(ctx, key)
}

func (l *Ledger) deleteSetting(ctx context.Context, key string) error {
	t, err := l.load(ctx, SheetSettings, SettingsHeader)
	if err != nil {
		return err
	}
	r, ok := t.find(exact(key))
	if !ok {
		return fmt.Errorf("setting %q: %w", key, core.ErrNotFound)
	}
	if err := l.deleteRow(ctx, t, r); err != nil {
		return err
	}
	l.logger.InfoContext(ctx, "Setting deleted", "key", key, log.FieldRow, r.row)
	return nil
}

// HasMasterPassword reports whether an edit-confirmation password is configured.
func (l *Ledger) HasMasterPassword(ctx context.Context) (bool, error) {
	v, ok, err := l.Setting(ctx, core.SettingMasterPassword)
	if err != nil {
		return false, err
	}
	return ok && v != "", nil
}

// VerifyMasterPassword compares password with the stored one, ignoring
// surrounding whitespace. With no password configured every attempt passes.
// This is an edit-confirmation gate only; the password is stored in plain text.
func (l *Ledger) VerifyMasterPassword(ctx context.Context, password string) (bool, error) {
	stored, ok, err := l.Setting(ctx, core.SettingMasterPassword)
	if err != nil {
		return false, err
	}
	if !ok || stored == "" {
		return true, nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(strings.TrimSpace(password))) == 1, nil
}

// SetMasterPassword replaces the password after checking current. An empty
// next password removes the gate; one made only of whitespace is rejected.
func (l *Ledger) SetMasterPassword(ctx context.Context, current, next string) error {
	trimmed := strings.TrimSpace(next)
	if next != "" && trimmed == "" {
		return core.ErrBlankPassword
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	valid, err := l.VerifyMasterPassword(ctx, current)
	if err != nil {
		return err
	}
	if !valid {
		return core.ErrUnauthorized
	}
	if trimmed == "" {
		err := l.deleteSetting(ctx, core.SettingMasterPassword)
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			return err
		}
		return nil
	}
	return l.setSetting(ctx, core.SettingMasterPassword, trimmed)
}

func exact(want string) func(string) bool {
	want = strings.TrimSpace(want)
	return func(key string) bool { return key == want }
}

package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vanpelt/sitecraft/internal/logger"
	"github.com/vanpelt/sitecraft/internal/models"
)

const (
	// Version of the on-disk session layout
	Version    = 3
	persistKey = "root"
)

type persistedFile struct {
	Version int             `json:"version"`
	Key     string          `json:"key"`
	Auth    json.RawMessage `json:"auth"`
}

type persistedAuth struct {
	User            *models.User `json:"user"`
	IsAuthenticated bool         `json:"isAuthenticated"`
	AuthChecked     bool         `json:"authChecked"`
}

// looseAuth accepts the shapes older clients wrote
type looseAuth struct {
	User            json.RawMessage `json:"user"`
	IsAuthenticated json.RawMessage `json:"isAuthenticated"`
	AuthChecked     json.RawMessage `json:"authChecked"`
}

// readState loads path; migrated reports that the file should be rewritten
func readState(path string) (state State, migrated bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("failed to read session: %w", err)
	}

	var file persistedFile
	if err := json.Unmarshal(data, &file); err != nil {
		return State{}, false, fmt.Errorf("failed to parse session: %w", err)
	}

	auth, rewrapped := unwrapString(file.Auth, 1)
	var loose looseAuth
	if len(auth) > 0 && !isNull(auth) {
		if err := json.Unmarshal(auth, &loose); err != nil {
			return State{}, false, fmt.Errorf("failed to parse session auth: %w", err)
		}
	}

	user, userFixed := decodeUser(loose.User)
	isAuth, authFixed := decodeBool(loose.IsAuthenticated)
	checked, checkedFixed := decodeBool(loose.AuthChecked)

	state = State{
		User:            user,
		IsAuthenticated: isAuth && user != nil,
		AuthChecked:     checked,
	}
	migrated = file.Version != Version || file.Key != persistKey || rewrapped || userFixed || authFixed || checkedFixed
	if migrated {
		logger.Debugf("📥 Migrated session file from version %d", file.Version)
	}
	return state, migrated, nil
}

func writeState(path string, state State) error {
	auth, err := json.Marshal(persistedAuth{
		User:            state.User,
		IsAuthenticated: state.IsAuthenticated,
		AuthChecked:     state.AuthChecked,
	})
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	data, err := json.MarshalIndent(persistedFile{Version: Version, Key: persistKey, Auth: auth}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// unwrapString decodes raw while it is a JSON string, at most limit times
func unwrapString(raw json.RawMessage, limit int) (json.RawMessage, bool) {
	changed := false
	for i := 0; i < limit; i++ {
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 || trimmed[0] != '"' {
			break
		}
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			break
		}
		raw = json.RawMessage(s)
		changed = true
	}
	return raw, changed
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// decodeUser accepts a user object or one that was stringified up to twice.
// Anything unreadable becomes a logged-out session.
func decodeUser(raw json.RawMessage) (*models.User, bool) {
	raw, changed := unwrapString(raw, 2)
	if isNull(raw) {
		return nil, changed
	}
	var u models.User
	if err := json.Unmarshal(raw, &u); err != nil {
		logger.Warnf("⚠️  Dropping unreadable stored user: %v", err)
		return nil, true
	}
	return &u, changed
}

// decodeBool accepts true/false or their string forms
func decodeBool(raw json.RawMessage) (bool, bool) {
	if isNull(raw) {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s == "true", true
	}
	return false, true
}

package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/vanpelt/sitecraft/internal/api"
	"github.com/vanpelt/sitecraft/internal/logger"
	"github.com/vanpelt/sitecraft/internal/models"
)

// ErrNotAuthenticated means the backend has no session for us. It is an
// expected outcome of CheckAuth, not a failure worth showing.
var ErrNotAuthenticated = errors.New("Not authenticated")

// IsNormal reports whether err is an expected logged-out result
func IsNormal(err error) bool {
	return errors.Is(err, ErrNotAuthenticated)
}

// State is the authentication state. Err holds the last user-facing error
// and is never persisted.
type State struct {
	User            *models.User
	IsAuthenticated bool
	AuthChecked     bool
	Err             string
}

// Backend is the subset of the API client used for auth
type Backend interface {
	CheckAuth(ctx context.Context) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Logout(ctx context.Context) (*models.MessageResponse, error)
}

// Store holds the session and persists it across runs
type Store struct {
	path    string
	backend Backend

	mu    sync.RWMutex
	state State
}

// NewStore creates a store persisting to path
func NewStore(path string, backend Backend) *Store {
	return &Store{path: path, backend: backend}
}

// Load rehydrates the session from disk, migrating older layouts. A missing
// file is a logged-out session.
func (s *Store) Load() error {
	state, migrated, err := readState(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	if migrated {
		return writeState(s.path, state)
	}
	return nil
}

// State returns the current session
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// User returns the signed-in user or nil
func (s *Store) User() *models.User {
	return s.State().User
}

// IsAuthenticated reports whether a user is signed in
func (s *Store) IsAuthenticated() bool {
	return s.State().IsAuthenticated
}

// ClearError drops the last error message
func (s *Store) ClearError() {
	s.mu.Lock()
	s.state.Err = ""
	s.mu.Unlock()
}

// CheckAuth asks the backend who we are. A 401 clears the session and returns
// ErrNotAuthenticated without recording an error message.
func (s *Store) CheckAuth(ctx context.Context) (*models.User, error) {
	resp, err := s.backend.CheckAuth(ctx)
	if err != nil {
		if api.IsUnauthorized(err) {
			logger.Debugf("🔐 Not signed in")
			s.signedOut("")
			return nil, ErrNotAuthenticated
		}
		s.signedOut(err.Error())
		return nil, err
	}
	if resp.User == nil {
		err := errors.New(firstNonEmpty(resp.Error, "Authentication check failed"))
		s.signedOut(err.Error())
		return nil, err
	}
	s.signedIn(resp.User)
	return resp.User, nil
}

// Login signs in with email and password
func (s *Store) Login(ctx context.Context, emailID, password string) (*models.User, error) {
	resp, err := s.backend.Login(ctx, models.LoginRequest{EmailID: strings.TrimSpace(emailID), Password: password})
	return s.finishAuth(resp, err, "Login failed")
}

// Register creates an account and signs in
func (s *Store) Register(ctx context.Context, firstName, emailID, password string) (*models.User, error) {
	resp, err := s.backend.Register(ctx, models.RegisterRequest{
		FirstName: strings.TrimSpace(firstName),
		EmailID:   strings.TrimSpace(emailID),
		Password:  password,
	})
	return s.finishAuth(resp, err, "Registration failed")
}

func (s *Store) finishAuth(resp *models.AuthResponse, err error, fallback string) (*models.User, error) {
	if err == nil && resp.User == nil {
		err = errors.New(firstNonEmpty(resp.Error, fallback))
	}
	if err != nil {
		s.signedOut(err.Error())
		return nil, err
	}
	s.signedIn(resp.User)
	logger.Component("session").Info().Str("email", resp.User.EmailID).Msg("🔓 Signed in")
	return resp.User, nil
}

// Logout ends the session. A 401 or a "logout successfully" message counts as
// success. The local session is cleared in every case.
func (s *Store) Logout(ctx context.Context) error {
	resp, err := s.backend.Logout(ctx)

	var result error
	switch {
	case err == nil && resp != nil && (resp.Success || strings.Contains(resp.Message, "logout successfully")):
	case api.IsUnauthorized(err):
		logger.Debugf("🔐 Already signed out")
	case err != nil:
		result = err
	default:
		msg := "Logout failed"
		if resp != nil && resp.Error != "" {
			msg = resp.Error
		}
		result = errors.New(msg)
	}

	s.signedOut("")
	return result
}

func (s *Store) signedIn(user *models.User) {
	s.update(State{User: user, IsAuthenticated: true, AuthChecked: true})
}

func (s *Store) signedOut(errMsg string) {
	s.update(State{AuthChecked: true, Err: errMsg})
}

func (s *Store) update(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	if err := writeState(s.path, state); err != nil {
		logger.Warnf("⚠️  Failed to save session: %v", err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

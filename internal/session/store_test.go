package session

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanpelt/sitecraft/internal/api"
	"github.com/vanpelt/sitecraft/internal/models"
)

type fakeBackend struct {
	check    func() (*models.AuthResponse, error)
	login    func(req models.LoginRequest) (*models.AuthResponse, error)
	register func(req models.RegisterRequest) (*models.AuthResponse, error)
	logout   func() (*models.MessageResponse, error)
}

func (f *fakeBackend) CheckAuth(ctx context.Context) (*models.AuthResponse, error) {
	return f.check()
}

func (f *fakeBackend) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	return f.login(req)
}

func (f *fakeBackend) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	return f.register(req)
}

func (f *fakeBackend) Logout(ctx context.Context) (*models.MessageResponse, error) {
	return f.logout()
}

var ada = &models.User{ID: "u1", FirstName: "Ada", EmailID: "ada@example.com"}

func unauthorized() error {
	return &api.Error{StatusCode: 401, Message: "Not authenticated"}
}

func sessionPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "session.json")
}

func readFile(t *testing.T, path string) map[string]interface{} {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestLoadMissingFile(t *testing.T) {
	s := NewStore(sessionPath(t), &fakeBackend{})
	require.NoError(t, s.Load())
	assert.Equal(t, State{}, s.State())
}

func TestLoadMigratesLegacyShapes(t *testing.T) {
	userJSON := `{"_id":"u1","firstName":"Ada","emailId":"ada@example.com"}`
	once, _ := json.Marshal(userJSON)
	twice, _ := json.Marshal(string(once))

	cases := []struct {
		name string
		auth string
	}{
		{"stringified user", `{"user":` + string(once) + `,"isAuthenticated":"true","authChecked":"true"}`},
		{"double stringified user", `{"user":` + string(twice) + `,"isAuthenticated":true,"authChecked":"true"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := sessionPath(t)
			legacy := `{"version":2,"key":"root","auth":` + tc.auth + `}`
			require.NoError(t, os.WriteFile(path, []byte(legacy), 0o600))

			s := NewStore(path, &fakeBackend{})
			require.NoError(t, s.Load())

			st := s.State()
			require.NotNil(t, st.User)
			assert.Equal(t, "Ada", st.User.FirstName)
			assert.True(t, st.IsAuthenticated)
			assert.True(t, st.AuthChecked)

			// Rewritten at the current version with real types
			file := readFile(t, path)
			assert.Equal(t, float64(Version), file["version"])
			assert.Equal(t, "root", file["key"])
			auth := file["auth"].(map[string]interface{})
			assert.Equal(t, true, auth["isAuthenticated"])
			assert.IsType(t, map[string]interface{}{}, auth["user"])
		})
	}
}

func TestLoadStringifiedAuthPartition(t *testing.T) {
	path := sessionPath(t)
	auth, _ := json.Marshal(`{"user":null,"isAuthenticated":"false","authChecked":true}`)
	require.NoError(t, os.WriteFile(path, []byte(`{"version":3,"key":"root","auth":`+string(auth)+`}`), 0o600))

	s := NewStore(path, &fakeBackend{})
	require.NoError(t, s.Load())
	assert.Nil(t, s.User())
	assert.False(t, s.IsAuthenticated())
	assert.True(t, s.State().AuthChecked)
}

func TestLoadUnreadableUserSignsOut(t *testing.T) {
	path := sessionPath(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"version":3,"key":"root","auth":{"user":"not json","isAuthenticated":true}}`), 0o600))

	s := NewStore(path, &fakeBackend{})
	require.NoError(t, s.Load())
	assert.Nil(t, s.User())
	assert.False(t, s.IsAuthenticated(), "no user means not authenticated")
}

func TestLoadCorruptFile(t *testing.T) {
	path := sessionPath(t)
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	assert.Error(t, NewStore(path, &fakeBackend{}).Load())
}

func TestCheckAuth(t *testing.T) {
	t.Run("signed in", func(t *testing.T) {
		path := sessionPath(t)
		s := NewStore(path, &fakeBackend{check: func() (*models.AuthResponse, error) {
			return &models.AuthResponse{User: ada}, nil
		}})

		user, err := s.CheckAuth(context.Background())
		require.NoError(t, err)
		assert.Equal(t, ada, user)
		assert.True(t, s.IsAuthenticated())
		assert.True(t, s.State().AuthChecked)

		// Persisted for the next run
		reloaded := NewStore(path, &fakeBackend{})
		require.NoError(t, reloaded.Load())
		assert.Equal(t, "ada@example.com", reloaded.User().EmailID)
	})

	t.Run("401 is normal", func(t *testing.T) {
		s := NewStore(sessionPath(t), &fakeBackend{check: func() (*models.AuthResponse, error) {
			return nil, unauthorized()
		}})

		_, err := s.CheckAuth(context.Background())
		assert.True(t, IsNormal(err))
		st := s.State()
		assert.False(t, st.IsAuthenticated)
		assert.True(t, st.AuthChecked)
		assert.Empty(t, st.Err)
	})

	t.Run("network error is recorded", func(t *testing.T) {
		s := NewStore(sessionPath(t), &fakeBackend{check: func() (*models.AuthResponse, error) {
			return nil, &api.Error{Message: "Network error. Please check your connection."}
		}})

		_, err := s.CheckAuth(context.Background())
		require.Error(t, err)
		assert.False(t, IsNormal(err))
		assert.Equal(t, "Network error. Please check your connection.", s.State().Err)
		assert.True(t, s.State().AuthChecked)

		s.ClearError()
		assert.Empty(t, s.State().Err)
	})

	t.Run("missing user", func(t *testing.T) {
		s := NewStore(sessionPath(t), &fakeBackend{check: func() (*models.AuthResponse, error) {
			return &models.AuthResponse{}, nil
		}})

		_, err := s.CheckAuth(context.Background())
		assert.EqualError(t, err, "Authentication check failed")
	})
}

func TestLoginAndRegister(t *testing.T) {
	backend := &fakeBackend{
		login: func(req models.LoginRequest) (*models.AuthResponse, error) {
			if req.Password != "secret" {
				return nil, &api.Error{StatusCode: 400, Message: "Invalid credentials"}
			}
			assert.Equal(t, "ada@example.com", req.EmailID)
			return &models.AuthResponse{User: ada}, nil
		},
		register: func(req models.RegisterRequest) (*models.AuthResponse, error) {
			if req.FirstName == "" {
				return &models.AuthResponse{Error: "First name is required"}, nil
			}
			return &models.AuthResponse{User: &models.User{FirstName: req.FirstName, EmailID: req.EmailID}}, nil
		},
	}
	s := NewStore(sessionPath(t), backend)
	ctx := context.Background()

	_, err := s.Login(ctx, "ada@example.com", "wrong")
	assert.EqualError(t, err, "Invalid credentials")
	assert.False(t, s.IsAuthenticated())
	assert.Equal(t, "Invalid credentials", s.State().Err)

	user, err := s.Login(ctx, " ada@example.com ", "secret")
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.DisplayName())
	assert.True(t, s.IsAuthenticated())
	assert.Empty(t, s.State().Err)

	_, err = s.Register(ctx, "", "x@example.com", "pw")
	assert.EqualError(t, err, "First name is required")
	assert.False(t, s.IsAuthenticated())

	user, err = s.Register(ctx, "Grace", "grace@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "Grace", user.FirstName)
	assert.True(t, s.IsAuthenticated())
}

func TestLogout(t *testing.T) {
	cases := []struct {
		name    string
		resp    *models.MessageResponse
		err     error
		wantErr string
	}{
		{name: "message", resp: &models.MessageResponse{Message: "User logout successfully"}},
		{name: "success flag", resp: &models.MessageResponse{Success: true}},
		{name: "already signed out", err: unauthorized()},
		{name: "server error", err: errors.New("Something went wrong"), wantErr: "Something went wrong"},
		{name: "unexpected body", resp: &models.MessageResponse{Error: "nope"}, wantErr: "nope"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewStore(sessionPath(t), &fakeBackend{
				check:  func() (*models.AuthResponse, error) { return &models.AuthResponse{User: ada}, nil },
				logout: func() (*models.MessageResponse, error) { return tc.resp, tc.err },
			})
			_, err := s.CheckAuth(context.Background())
			require.NoError(t, err)

			err = s.Logout(context.Background())
			if tc.wantErr != "" {
				assert.EqualError(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.False(t, s.IsAuthenticated())
			assert.Nil(t, s.User())
		})
	}
}

package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanpelt/sitecraft/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, opts...)
	require.NoError(t, err)
	return client
}

func TestExplainStreamsBodyAndHeader(t *testing.T) {
	var gotPath string
	var gotBody models.MessageRequest

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set(ChatIDHeader, "chat-42")
		_, _ = io.WriteString(w, "hello world")
	}))

	t.Run("new conversation", func(t *testing.T) {
		resp, err := client.Explain(context.Background(), "", "Build a login page")
		require.NoError(t, err)
		defer resp.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "hello world", string(body))
		assert.Equal(t, "chat-42", resp.ChatID())
		assert.Equal(t, "/chat/explain", gotPath)
		assert.Equal(t, "Build a login page", gotBody.Message)
	})

	t.Run("continuing conversation", func(t *testing.T) {
		resp, err := client.Explain(context.Background(), "abc", "more")
		require.NoError(t, err)
		defer resp.Close()
		assert.Equal(t, "/chat/explain/abc", gotPath)
	})
}

func TestStreamNon2xx(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))

	_, err := client.EnhancePrompt(context.Background(), "draft")
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "HTTP error! status: 502", apiErr.Message)
}

func TestGenerateCode(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/code/chat123", r.URL.Path)
			_ = json.NewEncoder(w).Encode(models.CodeResponse{
				Success: true,
				Files:   []models.GeneratedFile{{Path: "footer.jsx", Content: "export default 1"}},
			})
		}))

		resp, err := client.GenerateCode(context.Background(), "chat123", "Add a footer")
		require.NoError(t, err)
		assert.True(t, resp.Success)
		require.Len(t, resp.Files, 1)
		assert.Equal(t, "footer.jsx", resp.Files[0].Path)
	})

	t.Run("server error keeps body text", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, "exploded\n")
		}))

		_, err := client.GenerateCode(context.Background(), "c", "p")
		require.Error(t, err)
		assert.Equal(t, "Server error: 500 - exploded", err.Error())
	})

	t.Run("malformed json", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "{not json")
		}))

		_, err := client.GenerateCode(context.Background(), "c", "p")
		require.Error(t, err)
		assert.Equal(t, "Malformed response from server", err.Error())
	})
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"token expired"}`, "Not authenticated"},
		{"error field", http.StatusBadRequest, `{"error":"Email already exists"}`, "Email already exists"},
		{"message field", http.StatusForbidden, `{"message":"Invalid credentials"}`, "Invalid credentials"},
		{"no detail", http.StatusInternalServerError, `oops`, "Something went wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))

			_, err := client.CheckAuth(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.message, err.Error())
			assert.Equal(t, tt.status == http.StatusUnauthorized, IsUnauthorized(err))
		})
	}

	t.Run("network failure", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		client, err := NewClient(url)
		require.NoError(t, err)

		_, err = client.AllChats(context.Background())
		require.Error(t, err)
		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		assert.True(t, apiErr.IsNetwork())
		assert.Equal(t, "Network error. Please check your connection.", apiErr.Message)
	})
}

func TestCookiesPersistAcrossClients(t *testing.T) {
	cookieFile := filepath.Join(t.TempDir(), "cookies.json")

	mux := http.NewServeMux()
	mux.HandleFunc("/user/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "secret", Path: "/"})
		_ = json.NewEncoder(w).Encode(models.AuthResponse{User: &models.User{FirstName: "Ada"}})
	})
	mux.HandleFunc("/user/check", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("token")
		if err != nil || c.Value != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(models.AuthResponse{User: &models.User{FirstName: "Ada"}})
	})
	mux.HandleFunc("/user/logout", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(models.MessageResponse{Message: "User logout successfully"})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	first, err := NewClient(server.URL, WithCookieFile(cookieFile))
	require.NoError(t, err)
	_, err = first.Login(context.Background(), models.LoginRequest{EmailID: "ada@example.com", Password: "pw"})
	require.NoError(t, err)

	second, err := NewClient(server.URL, WithCookieFile(cookieFile))
	require.NoError(t, err)
	resp, err := second.CheckAuth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ada", resp.User.FirstName)

	out, err := second.Logout(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out.Message, "logout successfully")

	_, err = second.CheckAuth(context.Background())
	assert.True(t, IsUnauthorized(err))
}

func TestDeployAndChats(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/deploy", func(w http.ResponseWriter, r *http.Request) {
		var req models.DeployRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Files, 2)
		_ = json.NewEncoder(w).Encode(models.DeployResponse{Success: true, URL: "https://site.example.com"})
	})
	mux.HandleFunc("/chat/allChats", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"chats":[{"_id":"c1","messages":[{"role":"user","parts":[{"text":"hi"}]}]}]}`)
	})
	mux.HandleFunc("/chat/c1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		_, _ = io.WriteString(w, `{"success":true}`)
	})
	client := newTestClient(t, mux)

	deployed, err := client.Deploy(context.Background(), []models.GeneratedFile{{Path: "/a"}, {Path: "/b"}})
	require.NoError(t, err)
	assert.Equal(t, "https://site.example.com", deployed.URL)

	list, err := client.AllChats(context.Background())
	require.NoError(t, err)
	require.Len(t, list.Chats, 1)
	assert.Equal(t, "c1", list.Chats[0].ID)
	assert.Equal(t, "hi", list.Chats[0].Messages[0].Text())

	require.NoError(t, client.DeleteChat(context.Background(), "c1"))
}

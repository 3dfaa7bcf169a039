package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/vanpelt/sitecraft/internal/api"
	"github.com/vanpelt/sitecraft/internal/chat"
	"github.com/vanpelt/sitecraft/internal/config"
	"github.com/vanpelt/sitecraft/internal/filemap"
	"github.com/vanpelt/sitecraft/internal/logger"
	"github.com/vanpelt/sitecraft/internal/models"
	"github.com/vanpelt/sitecraft/internal/session"
	"golang.org/x/term"
)

// errLoginRequired is what every protected command reports when the backend
// has no session for us.
var errLoginRequired = errors.New("Please log in first")

// env is the client state shared by every command
type env struct {
	cfg     *config.Config
	client  *api.Client
	session *session.Store
	files   *filemap.Store
}

func newEnv() (*env, error) {
	cfg := appConfig
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	client, err := api.NewClient(cfg.APIURL,
		api.WithCookieFile(cfg.Runtime.CookieFile()),
		api.WithTimeout(cfg.RequestTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create api client: %w", err)
	}

	store := session.NewStore(cfg.Runtime.SessionFile(), client)
	if err := store.Load(); err != nil {
		logger.Warnf("⚠️  Failed to load saved session: %v", err)
	}

	return &env{
		cfg:     cfg,
		client:  client,
		session: store,
		files:   filemap.NewStore(),
	}, nil
}

// requireAuth confirms the session with the backend. Commands that touch
// conversations call it before doing anything else.
func (e *env) requireAuth(ctx context.Context) (*models.User, error) {
	user, err := e.session.CheckAuth(ctx)
	if err != nil {
		if session.IsNormal(err) {
			return nil, errLoginRequired
		}
		return nil, err
	}
	if user == nil {
		return nil, errLoginRequired
	}
	return user, nil
}

// loadChat seeds e.files with the stored conversation chatID
func (e *env) loadChat(ctx context.Context, chatID string) (*chat.Engine, error) {
	engine := chat.NewEngine(e.client, e.files, chat.Hooks{})
	if !engine.LoadConversation(ctx, chatID) {
		return nil, fmt.Errorf("failed to load chat %s", chatID)
	}
	return engine, nil
}

// signalContext is cancelled on Ctrl+C or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// prompt reads one line from stdin after printing label
func prompt(label string) (string, error) {
	fmt.Print(label)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptSecret reads a password without echo when stdin is a terminal
func promptSecret(label string) (string, error) {
	if !isTerminal(os.Stdin) {
		return prompt(label)
	}
	fmt.Print(label)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(raw), nil
}

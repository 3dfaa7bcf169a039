package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/vanpelt/sitecraft/internal/assets"
	"github.com/vanpelt/sitecraft/internal/filemap"
	"github.com/vanpelt/sitecraft/internal/logger"
	"github.com/vanpelt/sitecraft/internal/preview"
)

const (
	statusPath = "/__sitecraft/status"
	socketPath = "/__sitecraft/ws"
)

// scriptTypes covers source files the mime table does not know
var scriptTypes = map[string]string{
	".jsx": "text/javascript; charset=utf-8",
	".tsx": "text/javascript; charset=utf-8",
	".ts":  "text/javascript; charset=utf-8",
	".mjs": "text/javascript; charset=utf-8",
}

// ReloadMessage is pushed to connected pages after each good build
type ReloadMessage struct {
	Type     string `json:"type"`
	Revision uint64 `json:"revision"`
}

// StatusResponse is the body of the status endpoint
type StatusResponse struct {
	Status   preview.Status `json:"status"`
	Errors   []string       `json:"errors,omitempty"`
	Revision uint64         `json:"revision"`
	BuiltAt  *time.Time     `json:"builtAt,omitempty"`
	Files    int            `json:"files"`
}

// PreviewServer serves the last successful build over HTTP and tells open
// pages to reload when a newer one is published.
type PreviewServer struct {
	app *fiber.App

	mu       sync.RWMutex
	files    filemap.FileMap
	status   preview.RuntimeStatus
	revision uint64
	builtAt  time.Time

	connMu sync.Mutex
	conns  map[*websocket.Conn]struct{}

	addr string
}

var _ preview.Publisher = (*PreviewServer)(nil)

// NewPreviewServer creates a server with nothing published yet
func NewPreviewServer() *PreviewServer {
	s := &PreviewServer{
		status: preview.RuntimeStatus{State: preview.StatusIdle},
		conns:  make(map[*websocket.Conn]struct{}),
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		AppName:               "sitecraft-preview",
	})
	app.Use(recover.New())
	app.Use(RequestLogger())

	app.Get(statusPath, s.GetStatus)
	app.Get(socketPath, s.HandleWebSocket)
	app.Get("/*", s.ServeFile)

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests
func (s *PreviewServer) App() *fiber.App {
	return s.app
}

// Publish records a build result. Successful builds replace the served files
// and trigger a reload on connected pages.
func (s *PreviewServer) Publish(files filemap.FileMap, status preview.RuntimeStatus) {
	s.mu.Lock()
	s.status = status
	if status.State != preview.StatusSuccess {
		s.mu.Unlock()
		return
	}
	s.files = files.Clone()
	s.revision++
	s.builtAt = time.Now()
	rev := s.revision
	s.mu.Unlock()

	logger.Component("preview-server").Debug().Uint64("revision", rev).Int("files", len(files)).Msg("📦 Published build")
	s.broadcast(ReloadMessage{Type: "reload", Revision: rev})
}

// Revision is the number of successful builds published
func (s *PreviewServer) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// GetStatus reports the last build result
func (s *PreviewServer) GetStatus(c *fiber.Ctx) error {
	s.mu.RLock()
	resp := StatusResponse{
		Status:   s.status.State,
		Errors:   s.status.Errors,
		Revision: s.revision,
		Files:    len(s.files),
	}
	if !s.builtAt.IsZero() {
		builtAt := s.builtAt
		resp.BuiltAt = &builtAt
	}
	s.mu.RUnlock()

	return c.JSON(resp)
}

// ServeFile serves a published file. "/" and unknown paths get index.html so
// client-side routes work. HTML gets the live-reload script.
func (s *PreviewServer) ServeFile(c *fiber.Ctx) error {
	s.mu.RLock()
	files := s.files
	s.mu.RUnlock()

	if files == nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("Preview not built yet")
	}

	p := filemap.NormalizePath(c.Path())
	if p == "/" {
		p = "/index.html"
	}
	f, ok := files[p]
	if !ok {
		p = "/index.html"
		if f, ok = files[p]; !ok {
			return c.Status(fiber.StatusNotFound).SendString("Not found")
		}
	}

	ext := path.Ext(p)
	if ext == ".html" {
		c.Type("html", "utf-8")
		return c.SendString(InjectLiveReload(f.Code))
	}
	if ct, ok := scriptTypes[ext]; ok {
		c.Set(fiber.HeaderContentType, ct)
	} else if ext != "" {
		c.Type(strings.TrimPrefix(ext, "."))
	}
	return c.SendString(f.Code)
}

// InjectLiveReload adds the reload script before </body>, or at the end if
// the page has none.
func InjectLiveReload(html string) string {
	tag := "<script>" + assets.LiveReloadScript() + "</script>"
	if i := strings.LastIndex(strings.ToLower(html), "</body>"); i >= 0 {
		return html[:i] + tag + html[i:]
	}
	return html + tag
}

// HandleWebSocket upgrades to the live-reload socket. The current revision is
// sent on connect so the page knows what it is showing.
func (s *PreviewServer) HandleWebSocket(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(s.handleConnection)(c)
}

func (s *PreviewServer) handleConnection(conn *websocket.Conn) {
	s.connMu.Lock()
	s.conns[conn] = struct{}{}
	hello := ReloadMessage{Type: "reload", Revision: s.Revision()}
	err := conn.WriteJSON(hello)
	s.connMu.Unlock()

	defer func() {
		s.connMu.Lock()
		delete(s.conns, conn)
		s.connMu.Unlock()
		_ = conn.Close()
	}()
	if err != nil {
		return
	}

	// Pages never send anything; reading only detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *PreviewServer) broadcast(msg ReloadMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	s.connMu.Lock()
	defer s.connMu.Unlock()
	for conn := range s.conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.Debugf("live-reload write failed: %v", err)
			delete(s.conns, conn)
			_ = conn.Close()
		}
	}
}

// Serve listens on addr until ctx is done. It returns once the listener is
// closed.
func (s *PreviewServer) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is done
func (s *PreviewServer) ServeListener(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	logger.Component("preview-server").Info().Str("url", s.URL()).Msg("🌐 Preview server listening")

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listener(ln)
	}()

	select {
	case <-ctx.Done():
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			return fmt.Errorf("failed to stop preview server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, net.ErrClosed) {
			return fmt.Errorf("preview server stopped: %w", err)
		}
		return nil
	}
}

// URL is the address pages are served from, empty before Serve
func (s *PreviewServer) URL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.addr == "" {
		return ""
	}
	return "http://" + s.addr + "/"
}

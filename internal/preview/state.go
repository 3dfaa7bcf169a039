// Package preview keeps a live-preview runtime in sync with the FileMap and
// tracks whether the last build succeeded.
package preview

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"
)

// Status of a preview build
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Message is the one-line label for a status
func (s Status) Message() string {
	switch s {
	case StatusRunning:
		return "Building preview..."
	case StatusSuccess:
		return "Preview ready"
	case StatusError:
		return "Build failed"
	default:
		return "Ready to run"
	}
}

// Tab is the view the user is looking at
type Tab string

const (
	TabCode    Tab = "code"
	TabPreview Tab = "preview"
)

// RuntimeStatus is what a runtime reports when polled
type RuntimeStatus struct {
	State  Status   `json:"status"`
	Errors []string `json:"errors,omitempty"`
}

// Runtime builds and serves the preview
type Runtime interface {
	Status(ctx context.Context) (RuntimeStatus, error)
	Refresh(ctx context.Context) error
	Stop()
}

// BuildState is the bridge's view of the preview
type BuildState struct {
	SessionID   string
	Status      Status
	LastBuiltAt time.Time
	ErrorDetail string
	Cached      bool
}

// Message is the status label
func (b BuildState) Message() string {
	return b.Status.Message()
}

const maxErrorDetail = 100

// truncateDetail keeps error detail to a single readable line
func truncateDetail(s string) string {
	if utf8.RuneCountInString(s) <= maxErrorDetail {
		return s
	}
	return string([]rune(s)[:maxErrorDetail]) + "…"
}

// FormatLastRun renders how long ago the last build finished
func FormatLastRun(last time.Time) string {
	return formatLastRunAt(last, time.Now())
}

func formatLastRunAt(last, now time.Time) string {
	if last.IsZero() {
		return "Never"
	}
	seconds := int(now.Sub(last) / time.Second)
	if seconds < 0 {
		seconds = 0
	}
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds ago", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm ago", seconds/60)
	default:
		return fmt.Sprintf("%dh ago", seconds/3600)
	}
}

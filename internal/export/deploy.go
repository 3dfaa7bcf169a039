package export

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"runtime"
	"time"

	"github.com/vanpelt/sitecraft/internal/filemap"
	"github.com/vanpelt/sitecraft/internal/logger"
	"github.com/vanpelt/sitecraft/internal/models"
)

// DeployFailedMessage is shown for every failed deployment
const DeployFailedMessage = "❌ Error during deployment. Please try again."

// DeployAnimation is how long the cosmetic deploy bar takes to fill
const DeployAnimation = 3 * time.Second

// DeployError hides the cause behind the fixed user-facing message
type DeployError struct {
	Cause error
}

func (e *DeployError) Error() string {
	return DeployFailedMessage
}

func (e *DeployError) Unwrap() error {
	return e.Cause
}

// DeployBackend publishes files
type DeployBackend interface {
	Deploy(ctx context.Context, files []models.GeneratedFile) (*models.DeployResponse, error)
}

// Opener shows a URL to the user
type Opener interface {
	Open(url string) error
}

// OpenerFunc adapts a function to Opener
type OpenerFunc func(url string) error

func (f OpenerFunc) Open(url string) error { return f(url) }

// BrowserOpener opens URLs in the system browser
type BrowserOpener struct{}

func (BrowserOpener) Open(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

// Deployer ships the effective FileMap to the hosting endpoint
type Deployer struct {
	backend DeployBackend
	opener  Opener
}

// NewDeployer creates a deployer; a nil opener disables opening the result
func NewDeployer(backend DeployBackend, opener Opener) *Deployer {
	return &Deployer{backend: backend, opener: opener}
}

// Deploy publishes fm and opens the live URL. Every failure is a *DeployError.
func (d *Deployer) Deploy(ctx context.Context, fm filemap.FileMap) (string, error) {
	log := logger.Component("deploy")
	log.Info().Int("files", len(fm)).Msg("🚀 Deploying")

	resp, err := d.backend.Deploy(ctx, fm.ToGenerated())
	if err == nil && (resp == nil || !resp.Success || resp.URL == "") {
		err = errors.New("Deployment failed")
		if resp != nil && resp.Error != "" {
			err = errors.New(resp.Error)
		}
	}
	if err != nil {
		log.Error().Err(err).Msg("Deployment error")
		return "", &DeployError{Cause: err}
	}

	log.Info().Str("url", resp.URL).Msg("✅ Deployed")
	if d.opener != nil {
		if err := d.opener.Open(resp.URL); err != nil {
			logger.Warnf("⚠️  Failed to open %s: %v", resp.URL, err)
		}
	}
	return resp.URL, nil
}

// DeployProgress is the cosmetic bar value (0..100) after elapsed time. It
// follows an ease-in-out curve over DeployAnimation regardless of how long the
// request actually takes.
func DeployProgress(elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	if elapsed >= DeployAnimation {
		return 100
	}
	t := float64(elapsed) / float64(DeployAnimation)
	return 100 * (1 - math.Cos(math.Pi*t)) / 2
}

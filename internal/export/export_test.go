package export

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vanpelt/sitecraft/internal/filemap"
	"github.com/vanpelt/sitecraft/internal/models"
)

func TestZipRoundTrip(t *testing.T) {
	fm := filemap.FileMap{
		"/index.html":     {Code: "<div id=root></div>"},
		"/src/App.jsx":    {Code: "export default function App() {}"},
		"/src/greet.txt":  {Code: "こんにちは"},
		"/empty.css":      {Code: ""},
		"/nested/a/b.txt": {Code: "deep"},
	}

	var buf bytes.Buffer
	require.NoError(t, Zip(&buf, fm))

	files, err := ReadZip(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.True(t, fm.Equal(filemap.FromGenerated(files)))
}

func TestZipStripsLeadingSlash(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Zip(&buf, filemap.FileMap{"/src/App.jsx": {Code: "x"}}))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "src/App.jsx", zr.File[0].Name)
}

func TestWriteZipFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", DefaultZipName)
	require.NoError(t, WriteZipFile(path, filemap.Defaults()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	files, err := ReadZip(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Len(t, files, len(filemap.Defaults()))
}

func TestReadZipRejectsGarbage(t *testing.T) {
	_, err := ReadZip(bytes.NewReader([]byte("not a zip")), 9)
	assert.Error(t, err)
}

type fakeDeployBackend struct {
	got  []models.GeneratedFile
	resp *models.DeployResponse
	err  error
}

func (f *fakeDeployBackend) Deploy(ctx context.Context, files []models.GeneratedFile) (*models.DeployResponse, error) {
	f.got = files
	return f.resp, f.err
}

func TestDeploySuccessOpensURL(t *testing.T) {
	backend := &fakeDeployBackend{resp: &models.DeployResponse{Success: true, URL: "https://site.example.app"}}
	var opened []string
	d := NewDeployer(backend, OpenerFunc(func(url string) error {
		opened = append(opened, url)
		return nil
	}))

	fm := filemap.FileMap{"/index.html": {Code: "<html>"}, "/a.js": {Code: "a"}}
	url, err := d.Deploy(context.Background(), fm)
	require.NoError(t, err)
	assert.Equal(t, "https://site.example.app", url)
	assert.Equal(t, []string{"https://site.example.app"}, opened)
	assert.ElementsMatch(t, fm.ToGenerated(), backend.got)
}

func TestDeployFailures(t *testing.T) {
	cases := []struct {
		name string
		resp *models.DeployResponse
		err  error
	}{
		{"transport", nil, errors.New("Network error. Please check your connection.")},
		{"not successful", &models.DeployResponse{Success: false, Error: "quota"}, nil},
		{"missing url", &models.DeployResponse{Success: true}, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opened := false
			d := NewDeployer(&fakeDeployBackend{resp: tc.resp, err: tc.err}, OpenerFunc(func(string) error {
				opened = true
				return nil
			}))

			url, err := d.Deploy(context.Background(), filemap.Defaults())
			assert.Empty(t, url)
			require.Error(t, err)
			assert.Equal(t, DeployFailedMessage, err.Error())
			var de *DeployError
			assert.ErrorAs(t, err, &de)
			assert.NotNil(t, de.Cause)
			assert.False(t, opened)
		})
	}
}

func TestDeployProgress(t *testing.T) {
	assert.Zero(t, DeployProgress(0))
	assert.Zero(t, DeployProgress(-time.Second))
	assert.InDelta(t, 50, DeployProgress(1500*time.Millisecond), 0.001)
	assert.Equal(t, 100.0, DeployProgress(DeployAnimation))
	assert.Equal(t, 100.0, DeployProgress(time.Minute))

	// Slow at both ends
	assert.Less(t, DeployProgress(300*time.Millisecond), 10.0)
	assert.Greater(t, DeployProgress(2700*time.Millisecond), 90.0)

	prev := 0.0
	for ms := 0; ms <= 3000; ms += 100 {
		v := DeployProgress(time.Duration(ms) * time.Millisecond)
		assert.GreaterOrEqual(t, v, prev)
		prev = v
	}
}

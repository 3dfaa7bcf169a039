package git

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockGitService struct {
	titles     []string
	returnHash string
	returnErr  error
}

func (m *mockGitService) AddCommitGetHash(title string) (string, error) {
	m.titles = append(m.titles, title)
	return m.returnHash, m.returnErr
}

func TestCreateCheckpointNumbersCommits(t *testing.T) {
	svc := &mockGitService{returnHash: "abc123"}
	var seen []Checkpoint
	cm := NewSessionCheckpointManager(svc, func(c Checkpoint) { seen = append(seen, c) })

	hash, err := cm.CreateCheckpoint("Build a landing page")
	require.NoError(t, err)
	assert.Equal(t, "abc123", hash)

	_, err = cm.CreateCheckpoint("Add a footer")
	require.NoError(t, err)

	assert.Equal(t, []string{"Build a landing page checkpoint: 1", "Add a footer checkpoint: 2"}, svc.titles)
	assert.Equal(t, 2, cm.Count())
	require.Len(t, seen, 2)
	assert.Equal(t, "Add a footer checkpoint: 2", seen[1].Message)

	cm.Reset()
	assert.Zero(t, cm.Count())
}

func TestCreateCheckpointNoChanges(t *testing.T) {
	svc := &mockGitService{}
	cm := NewSessionCheckpointManager(svc, func(Checkpoint) { t.Error("no checkpoint expected") })

	hash, err := cm.CreateCheckpoint("anything")
	require.NoError(t, err)
	assert.Empty(t, hash)
	assert.Zero(t, cm.Count())
}

func TestCreateCheckpointErrors(t *testing.T) {
	cm := NewSessionCheckpointManager(&mockGitService{returnErr: errors.New("disk full")}, nil)
	_, err := cm.CreateCheckpoint("x")
	assert.EqualError(t, err, "disk full")
	assert.Zero(t, cm.Count())

	_, err = NewSessionCheckpointManager(nil, nil).CreateCheckpoint("x")
	assert.Error(t, err)
}

func TestShortTitle(t *testing.T) {
	assert.Equal(t, "Generation", shortTitle("  "))
	assert.Equal(t, "first line", shortTitle("first line\nsecond line"))
	long := strings.Repeat("a", 80)
	assert.Equal(t, strings.Repeat("a", 60)+"…", shortTitle(long))
}

func TestGoGitServiceCommitsChanges(t *testing.T) {
	svc, err := NewTestService()
	require.NoError(t, err)

	log, err := svc.Log(0)
	require.NoError(t, err)
	assert.Empty(t, log, "fresh repository has no history")

	require.NoError(t, WriteTestFile(svc, "index.html", "<html></html>"))
	require.NoError(t, WriteTestFile(svc, "src/App.jsx", "export default 1"))

	first, err := svc.AddCommitGetHash("one checkpoint: 1")
	require.NoError(t, err)
	assert.Len(t, first, 40)

	// Nothing changed
	hash, err := svc.AddCommitGetHash("two checkpoint: 2")
	require.NoError(t, err)
	assert.Empty(t, hash)

	require.NoError(t, svc.Filesystem().Remove("src/App.jsx"))
	second, err := svc.AddCommitGetHash("three checkpoint: 2")
	require.NoError(t, err)
	assert.NotEmpty(t, second, "deletions are committed")

	log, err = svc.Log(0)
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, second, log[0].Hash)
	assert.Equal(t, "three checkpoint: 2", log[0].Message)
	assert.Equal(t, first, log[1].Hash)

	limited, err := svc.Log(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestOpenDirReopensRepository(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<p>hi</p>"), 0o644))

	svc, err := OpenDir(dir)
	require.NoError(t, err)
	hash, err := NewSessionCheckpointManager(svc, nil).CreateCheckpoint("Hello page")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.DirExists(t, filepath.Join(dir, ".git"))

	reopened, err := OpenDir(dir)
	require.NoError(t, err)
	log, err := reopened.Log(0)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, "Hello page checkpoint: 1", log[0].Message)
}

package assets

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScaffoldFiles(t *testing.T) {
	files := ScaffoldFiles()

	for _, path := range []string{"/index.html", "/index.css", "/vercel.json", "/package.json", "/tailwind.config.js", "/vite.config.js"} {
		assert.Contains(t, files, path)
		assert.NotEmpty(t, files[path], path)
	}
	assert.Len(t, files, 6)

	var pkg map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(files["/package.json"]), &pkg))
	assert.Contains(t, pkg, "dependencies")
}

func TestLiveReloadScript(t *testing.T) {
	assert.Contains(t, LiveReloadScript(), "/__sitecraft/ws")
}

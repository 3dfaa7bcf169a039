package assets

import (
	"embed"
	"io/fs"
	"sort"
)

//go:embed scaffold
var scaffold embed.FS

//go:embed livereload.js
var liveReloadScript string

// Scaffold returns the default project files with the "scaffold" prefix
// stripped. Paths are relative, e.g. "index.html".
func Scaffold() fs.FS {
	sub, err := fs.Sub(scaffold, "scaffold")
	if err != nil {
		// Only possible if the embed directive above is broken
		panic(err)
	}
	return sub
}

// ScaffoldFiles returns the scaffold as path -> content with paths prefixed by
// "/" in the form the FileMap uses.
func ScaffoldFiles() map[string]string {
	files := make(map[string]string)
	root := Scaffold()
	names, _ := fs.Glob(root, "*")
	sort.Strings(names)
	for _, name := range names {
		data, err := fs.ReadFile(root, name)
		if err != nil {
			continue
		}
		files["/"+name] = string(data)
	}
	return files
}

// LiveReloadScript is injected into served HTML pages by the preview server
func LiveReloadScript() string {
	return liveReloadScript
}

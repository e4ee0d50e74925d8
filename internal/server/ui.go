package server

import (
	"io/fs"
	"net/http"
	"strings"
)

// uiFS holds the embedded UI filesystem. Set via SetUI before creating the server.
var uiFS fs.FS

// SetUI sets the embedded filesystem for serving the UI.
func SetUI(fsys fs.FS) {
	uiFS = fsys
}

// spaHandler serves static files from the embedded FS, falling back to
// index.html for any path that is not a file.
func spaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if uiFS == nil {
			writeError(w, http.StatusNotFound, "ui not embedded")
			return
		}

		path := strings.TrimPrefix(r.URL.Path, "/")
		if path == "" {
			path = "index.html"
		}

		f, err := uiFS.Open(path)
		if err != nil {
			path = "index.html"
		} else {
			f.Close()
		}

		http.ServeFileFS(w, r, uiFS, path)
	}
}

// Package dashboard serves the embedded single-page status view.
package dashboard

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed assets
var assets embed.FS

// Files returns the dashboard assets rooted at the asset directory.
func Files() fs.FS {
	sub, err := fs.Sub(assets, "assets")
	if err != nil {
		panic(err) // assets is embedded at build time
	}
	return sub
}

// Handler serves index.html at / and the other assets at their paths. The
// page polls the JSON API itself, so responses are marked for revalidation.
func Handler() http.Handler {
	files := http.FileServer(http.FS(Files()))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		files.ServeHTTP(w, r)
	})
}

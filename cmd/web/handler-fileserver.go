package main

import (
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
)

// staticFiles serves the stylesheet and script from ui/static with immutable caching. Anything else, directories
// included, gets the 404 page through pageChain so that the page reflects the signed-in user.
func (app *application) staticFiles(fileChain, pageChain func(http.Handler) http.Handler) (http.Handler, error) {
	root, err := uiDir("static", "")
	if err != nil {
		return nil, err
	}
	files := os.DirFS(root)
	serveFile := fileChain(cacheForever(http.FileServerFS(files)))
	notFound := pageChain(http.HandlerFunc(app.notFound))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if !fs.ValidPath(name) || name == "." {
			notFound.ServeHTTP(w, r)
			return
		}
		if info, statErr := fs.Stat(files, name); statErr != nil || info.IsDir() {
			notFound.ServeHTTP(w, r)
			return
		}
		serveFile.ServeHTTP(w, r)
	}), nil
}

// Package web holds the assistant's page assets.
package web

import (
	"embed"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

//go:embed static
var static embed.FS

// CheckoutPage is the sample checkout form used for test fills
const CheckoutPage = "checkout.html"

// Assets returns the embedded asset tree rooted at its top directory
func Assets() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// CheckoutHTML returns the sample checkout form
func CheckoutHTML() (string, error) {
	data, err := fs.ReadFile(Assets(), CheckoutPage)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Handler serves files from fsys by path, with "/" mapped to index.html.
// Unlike http.FileServer it never redirects /index.html, so every listed
// asset answers 200 directly.
func Handler(fsys fs.FS) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name == "" {
			name = "index.html"
		}

		f, err := fsys.Open(name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}

		rs, ok := f.(io.ReadSeeker)
		if !ok {
			data, err := io.ReadAll(f)
			if err != nil {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			rs = strings.NewReader(string(data))
		}

		http.ServeContent(w, r, name, info.ModTime(), rs)
	})
}

package hubapi

import (
	"net/http"
	"strings"
)

// route registers h on mux for an exact "METHOD /path" pattern. It stands in
// for Go 1.22 ServeMux method patterns, which the Go 1.21 mux treats as a
// literal path.
func route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	method, path, _ := strings.Cut(pattern, " ")
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	})
}

package main

import (
	"net/http"
	"net/url"
	"strings"
)

// originChecker builds a gorilla/websocket CheckOrigin func that enforces
// the reference CLI's optional Origin suffix whitelist: an empty suffix
// accepts any origin; otherwise the Origin header's host must equal the
// suffix or end in "."+suffix.
func originChecker(suffix string) func(r *http.Request) bool {
	if suffix == "" {
		return func(r *http.Request) bool { return true }
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return false
		}
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			return false
		}
		host := u.Hostname()
		return host == suffix || strings.HasSuffix(host, "."+suffix)
	}
}

package e2etest

import (
	"net/http"
	"net/url"
	"sync"
)

// unsafeCookieJar keeps every cookie by name regardless of domain, path and the Secure flag. The server sets
// __Host- prefixed secure cookies which the standard jar refuses to send over the plain HTTP used in tests.
type unsafeCookieJar struct {
	mu      sync.Mutex
	cookies map[string]*http.Cookie
}

func newUnsafeCookieJar() (*unsafeCookieJar, error) {
	return &unsafeCookieJar{mu: sync.Mutex{}, cookies: make(map[string]*http.Cookie)}, nil
}

func (j *unsafeCookieJar) SetCookies(_ *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, c := range cookies {
		if c.MaxAge < 0 || c.Value == "" {
			delete(j.cookies, c.Name)
			continue
		}
		j.cookies[c.Name] = c
	}
}

func (j *unsafeCookieJar) Cookies(_ *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]*http.Cookie, 0, len(j.cookies))
	for _, c := range j.cookies {
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value}) //nolint:exhaustruct // only name and value are sent.
	}
	return out
}

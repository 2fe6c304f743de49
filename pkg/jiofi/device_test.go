package jiofi

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
)

func itoa(i int) string {
	return strconv.Itoa(i)
}

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   string
}

// fakeDevice imitates the router web UI.
type fakeDevice struct {
	mu       sync.Mutex
	requests []recordedRequest

	loginToken    string
	settingsToken string
	challenge     string
	statusXML     string

	// restore handles the final request; nil drops the connection like a
	// rebooting device.
	restore http.HandlerFunc
	// hook runs before each request is answered.
	hook func(r *http.Request)
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		loginToken:    "login-token",
		settingsToken: "settings-token",
		challenge:     "abc123",
		statusXML:     "<dev><batt_per>80</batt_per><batt_st>1024</batt_st></dev>",
	}
}

func (d *fakeDevice) start(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(d)
	t.Cleanup(srv.Close)
	return srv
}

func (d *fakeDevice) paths() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var paths []string
	for _, r := range d.requests {
		paths = append(paths, r.Path)
	}
	return paths
}

func (d *fakeDevice) request(path string) recordedRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range d.requests {
		if r.Path == path {
			return r
		}
	}
	return recordedRequest{}
}

func tokenInput(token string) string {
	if token == "" {
		return "<form></form>"
	}
	return `<form><input type="hidden" id="csrf_token2" value="` + token + `"></form>`
}

func (d *fakeDevice) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	d.mu.Lock()
	d.requests = append(d.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Header: r.Header.Clone(),
		Body:   string(body),
	})
	d.mu.Unlock()

	if d.hook != nil {
		d.hook(r)
	}

	switch r.URL.Path {
	case statusPath:
		_, _ = io.WriteString(w, d.statusXML)
	case rootPath:
		http.SetCookie(w, &http.Cookie{Name: "SessionID", Value: "s1", Path: "/"})
		_, _ = io.WriteString(w, "<html>JioFi</html>")
	case loginPagePath:
		_, _ = io.WriteString(w, tokenInput(d.loginToken))
	case challengePath:
		if d.challenge == "" {
			_, _ = io.WriteString(w, "<lang>en</lang>")
			return
		}
		_, _ = io.WriteString(w, "<xml><rand>"+d.challenge+"</rand></xml>")
	case loginPath:
		http.SetCookie(w, &http.Cookie{Name: "Auth", Value: "ok", Path: "/"})
		_, _ = io.WriteString(w, "<xml><login>1</login></xml>")
	case settingsPath:
		_, _ = io.WriteString(w, tokenInput(d.settingsToken))
	case restorePath:
		if d.restore != nil {
			d.restore(w, r)
			return
		}
		dropConnection(w)
	default:
		http.NotFound(w, r)
	}
}

// dropConnection closes the connection without writing a response.
func dropConnection(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		panic("response writer cannot be hijacked")
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		panic(err)
	}
	_ = conn.Close()
}

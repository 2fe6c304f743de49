package jiofi

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.UnixMilli(1709283600000)

func newTestClient(srvURL string) *Client {
	return NewClient(srvURL,
		WithCredentials("", "Administrator"),
		WithClock(func() time.Time { return fixedNow }),
	)
}

func TestRestart(t *testing.T) {
	d := newFakeDevice()
	srv := d.start(t)

	res, err := newTestClient(srv.URL).Restart(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Device restart initiated successfully", res.Message)

	assert.Equal(t, []string{
		"/",
		"/login.htm",
		"/mark_lang.w.xml",
		"/wxml/post_login.xml",
		"/set_user.html",
		"/wxml/set_restore.xml",
	}, d.paths())

	for _, p := range d.paths() {
		r := d.request(p)
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"), p)
		assert.Equal(t, "no-cache", r.Header.Get("Cache-Control"), p)
		assert.Equal(t, "no-cache", r.Header.Get("Pragma"), p)
		assert.Equal(t, "XMLHttpRequest", r.Header.Get("X-Requested-With"), p)
	}

	assert.Equal(t, srv.URL+"/", d.request(loginPagePath).Header.Get("Referer"))
	assert.Contains(t, d.request(loginPagePath).Header.Get("Cookie"), "SessionID=s1")

	challenge := d.request(challengePath)
	assert.Equal(t, "_=1709283600000", challenge.Query)
	assert.Equal(t, srv.URL+"/", challenge.Header.Get("Referer"))

	login := d.request(loginPath)
	assert.Equal(t, http.MethodPost, login.Method)
	assert.Equal(t, "Name=administrator&password="+HashPassword("abc123", "administrator")+"&rand=abc123", login.Body)
	assert.Equal(t, "login-token", login.Header.Get(csrfHeader))
	assert.Equal(t, srv.URL, login.Header.Get("Origin"))
	assert.Equal(t, srv.URL+"/", login.Header.Get("Referer"))
	assert.Equal(t, formContentType, login.Header.Get("Content-Type"))

	settings := d.request(settingsPath)
	assert.Equal(t, srv.URL+"/index.htm", settings.Header.Get("Referer"))
	assert.Contains(t, settings.Header.Get("Cookie"), "Auth=ok")

	restore := d.request(restorePath)
	assert.Equal(t, http.MethodPost, restore.Method)
	assert.Equal(t, "restore=1", restore.Body)
	assert.Equal(t, "settings-token", restore.Header.Get(csrfHeader))
	assert.Equal(t, srv.URL+"/set_user.html", restore.Header.Get("Referer"))
	assert.Equal(t, formContentType, restore.Header.Get("Content-Type"))
}

func TestRestartLoginTokenMissing(t *testing.T) {
	d := newFakeDevice()
	d.loginToken = ""
	srv := d.start(t)

	_, err := newTestClient(srv.URL).Restart(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	var rerr *RestartError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 2, rerr.Step)
	assert.Equal(t, "Failed: csrf_token2 not found", err.Error())

	// Nothing after the login page is requested.
	assert.Equal(t, []string{"/", "/login.htm"}, d.paths())
}

func TestRestartChallengeMissing(t *testing.T) {
	d := newFakeDevice()
	d.challenge = ""
	srv := d.start(t)

	_, err := newTestClient(srv.URL).Restart(context.Background())
	assert.ErrorIs(t, err, ErrChallengeNotFound)
	assert.Equal(t, "Failed: rand not found in XML", err.Error())
	assert.Equal(t, []string{"/", "/login.htm", "/mark_lang.w.xml"}, d.paths())
}

func TestRestartSettingsTokenMissing(t *testing.T) {
	d := newFakeDevice()
	d.settingsToken = ""
	srv := d.start(t)

	_, err := newTestClient(srv.URL).Restart(context.Background())
	var rerr *RestartError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 5, rerr.Step)
	assert.ErrorIs(t, err, ErrTokenNotFound)
	assert.NotContains(t, d.paths(), restorePath)
}

func TestRestartUnreachable(t *testing.T) {
	d := newFakeDevice()
	srv := d.start(t)
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url).Restart(context.Background())
	var rerr *RestartError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 1, rerr.Step)

	var nerr *NetworkError
	assert.ErrorAs(t, err, &nerr)
}

func TestRestartConnectionDroppedOnRestore(t *testing.T) {
	d := newFakeDevice()
	srv := d.start(t)

	res, err := newTestClient(srv.URL).Restart(context.Background())
	require.NoError(t, err)
	assert.Contains(t, d.paths(), restorePath)
	assert.True(t, res.Success)
	assert.Equal(t, "Device restart initiated successfully", res.Message)
}

func TestRestartRestoreTimeout(t *testing.T) {
	d := newFakeDevice()
	d.restore = func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}
	srv := d.start(t)

	c := NewClient(srv.URL, WithTimeouts(0, 100*time.Millisecond))
	res, err := c.Restart(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)
}

// A device that answers the restart request did not reboot, whatever the code.
func TestRestartRestoreAnswered(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		body    string
		message string
	}{
		{name: "ok", code: http.StatusOK, body: "<error>0</error>", message: "Device restart failed: HTTP 200"},
		{name: "no content", code: http.StatusNoContent, message: "Device restart failed: HTTP 204"},
		{name: "forbidden", code: http.StatusForbidden, message: "Device restart failed: HTTP 403"},
		{name: "server error", code: http.StatusInternalServerError, body: "busy", message: "Device restart failed: HTTP 500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newFakeDevice()
			d.restore = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}
			srv := d.start(t)

			res, err := newTestClient(srv.URL).Restart(context.Background())
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.Equal(t, tt.message, res.Message)
		})
	}
}

func TestTryRestartInProgress(t *testing.T) {
	d := newFakeDevice()
	entered := make(chan struct{})
	release := make(chan struct{})
	d.hook = func(r *http.Request) {
		if r.URL.Path == rootPath {
			close(entered)
			<-release
		}
	}
	srv := d.start(t)
	c := newTestClient(srv.URL)

	done := make(chan error, 1)
	go func() {
		_, err := c.Restart(context.Background())
		done <- err
	}()

	<-entered
	_, err := c.TryRestart(context.Background())
	assert.True(t, errors.Is(err, ErrRestartInProgress))

	close(release)
	require.NoError(t, <-done)
}

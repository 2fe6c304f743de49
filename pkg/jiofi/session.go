package jiofi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	rootPath      = "/"
	loginPagePath = "/login.htm"
	challengePath = "/mark_lang.w.xml"
	loginPath     = "/wxml/post_login.xml"
	landingPath   = "/index.htm"
	settingsPath  = "/set_user.html"
	restorePath   = "/wxml/set_restore.xml"

	userAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	csrfHeader      = "__RequestVerificationToken"
	formContentType = "application/x-www-form-urlencoded; charset=UTF-8"

	tagChallenge = "rand"

	restartSucceeded = "Device restart initiated successfully"
	restartFailed    = "Device restart failed"
)

// RestartResult is what the restart flow reports back to the caller.
type RestartResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SessionContext is the state threaded through the restart steps. It is
// created per Restart call and dropped when the call returns.
type SessionContext struct {
	Cookies   map[string]string
	CSRFToken string
	Challenge string
}

type step struct {
	name    string
	method  string
	path    string
	headers map[string]string
	body    string
	// ignoreFailure makes transport errors count as an empty, successful reply.
	// Only the restore request sets it: the device drops the connection while
	// rebooting, usually before it answers.
	ignoreFailure bool
}

type session struct {
	c     *Client
	hc    *http.Client
	jar   http.CookieJar
	state SessionContext
	log   *logrus.Entry
}

func (c *Client) newSession(opID string) (*session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &session{
		c:   c,
		hc:  newHTTPClient(c.sessionTimeout, c.sessionTimeout, jar),
		jar: jar,
		log: logrus.WithFields(logrus.Fields{
			"operation": opID,
			"device":    c.baseURL,
		}),
	}, nil
}

func (s *session) headers(overrides map[string]string) http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Cache-Control", "no-cache")
	h.Set("Pragma", "no-cache")
	h.Set("X-Requested-With", "XMLHttpRequest")
	for k, v := range overrides {
		// The CSRF header name is not canonical; keep it byte for byte.
		h[k] = []string{v}
	}
	return h
}

// do runs one step. absorbed reports a transport failure swallowed because
// the step sets ignoreFailure; resp is zero then.
func (s *session) do(ctx context.Context, st step) (resp response, absorbed bool, err error) {
	s.log.WithFields(logrus.Fields{
		"step":   st.name,
		"method": st.method,
		"path":   st.path,
	}).Debug("running restart step")

	resp, err = s.c.send(ctx, s.hc, st.method, st.path, s.headers(st.headers), st.body)
	if err != nil {
		if st.ignoreFailure {
			s.log.WithError(err).WithField("step", st.name).Debug("ignoring failure of best-effort step")
			return response{}, true, nil
		}
		return response{}, false, err
	}

	s.snapshotCookies()
	return resp, false, nil
}

func (s *session) snapshotCookies() {
	u, err := url.Parse(s.c.baseURL)
	if err != nil {
		return
	}
	cookies := map[string]string{}
	for _, ck := range s.jar.Cookies(u) {
		cookies[ck.Name] = ck.Value
	}
	s.state.Cookies = cookies
}

// Restart logs into the device web UI and asks it to reboot. Concurrent calls
// are serialised, the device only keeps one session.
func (c *Client) Restart(ctx context.Context) (RestartResult, error) {
	c.restartMu.Lock()
	defer c.restartMu.Unlock()

	return c.restart(ctx)
}

// TryRestart is Restart that fails with ErrRestartInProgress instead of waiting.
func (c *Client) TryRestart(ctx context.Context) (RestartResult, error) {
	if !c.restartMu.TryLock() {
		return RestartResult{}, ErrRestartInProgress
	}
	defer c.restartMu.Unlock()

	return c.restart(ctx)
}

func (c *Client) restart(ctx context.Context) (RestartResult, error) {
	opID := uuid.NewString()

	s, err := c.newSession(opID)
	if err != nil {
		return RestartResult{}, &RestartError{Step: 0, Err: err}
	}

	s.log.Info("restarting device")

	result, err := s.run(ctx)
	if err != nil {
		s.log.WithError(err).Error("device restart failed")
		return RestartResult{}, err
	}

	s.log.WithFields(logrus.Fields{
		"success": result.Success,
		"message": result.Message,
	}).Info("device restart finished")

	return result, nil
}

func (s *session) run(ctx context.Context) (RestartResult, error) {
	base := s.c.baseURL

	// 1. Session cookie.
	if _, _, err := s.do(ctx, step{
		name:   "bootstrap",
		method: http.MethodGet,
		path:   rootPath,
	}); err != nil {
		return RestartResult{}, &RestartError{Step: 1, Err: err}
	}

	// 2. CSRF token of the login form.
	loginPage, _, err := s.do(ctx, step{
		name:    "login page",
		method:  http.MethodGet,
		path:    loginPagePath,
		headers: map[string]string{"Referer": base + "/"},
	})
	if err != nil {
		return RestartResult{}, &RestartError{Step: 2, Err: err}
	}
	token, ok := ExtractCSRFToken(loginPage.Body)
	if !ok {
		return RestartResult{}, &RestartError{Step: 2, Err: ErrTokenNotFound}
	}
	s.state.CSRFToken = token

	// 3. Login challenge.
	challengeDoc, _, err := s.do(ctx, step{
		name:    "challenge",
		method:  http.MethodGet,
		path:    challengePath + "?_=" + strconv.FormatInt(s.c.now().UnixMilli(), 10),
		headers: map[string]string{"Referer": base + "/"},
	})
	if err != nil {
		return RestartResult{}, &RestartError{Step: 3, Err: err}
	}
	challenge, ok := ExtractTag(challengeDoc.Body, tagChallenge)
	if !ok {
		return RestartResult{}, &RestartError{Step: 3, Err: ErrChallengeNotFound}
	}
	s.state.Challenge = challenge

	// 4. Login.
	form := url.Values{}
	form.Set("Name", s.c.username)
	form.Set("password", HashPassword(challenge, s.c.password))
	form.Set("rand", challenge)
	loginResp, _, err := s.do(ctx, step{
		name:   "login",
		method: http.MethodPost,
		path:   loginPath,
		headers: map[string]string{
			"Origin":       base,
			"Referer":      base + "/",
			"Content-Type": formContentType,
			csrfHeader:     s.state.CSRFToken,
		},
		body: form.Encode(),
	})
	if err != nil {
		return RestartResult{}, &RestartError{Step: 4, Err: err}
	}
	s.log.WithFields(logrus.Fields{
		"statusCode": loginResp.StatusCode,
		"cookies":    len(s.state.Cookies),
	}).Debug("login submitted")

	// 5. Fresh CSRF token from an authenticated page.
	settingsPage, _, err := s.do(ctx, step{
		name:    "settings page",
		method:  http.MethodGet,
		path:    settingsPath,
		headers: map[string]string{"Referer": base + landingPath},
	})
	if err != nil {
		return RestartResult{}, &RestartError{Step: 5, Err: err}
	}
	token, ok = ExtractCSRFToken(settingsPage.Body)
	if !ok {
		return RestartResult{}, &RestartError{Step: 5, Err: ErrTokenNotFound}
	}
	s.state.CSRFToken = token

	// 6. Restart. A rebooting device drops the connection before it
	// answers; any completed reply, 2xx included, means it did not reboot.
	restoreResp, absorbed, _ := s.do(ctx, step{
		name:   "restore",
		method: http.MethodPost,
		path:   restorePath,
		headers: map[string]string{
			"Referer":      base + settingsPath,
			"Content-Type": formContentType,
			csrfHeader:     s.state.CSRFToken,
		},
		body:          "restore=1",
		ignoreFailure: true,
	})

	if !absorbed {
		s.log.WithFields(logrus.Fields{
			"statusCode": restoreResp.StatusCode,
			"body":       restoreResp.Body,
		}).Warn("device answered the restart request instead of rebooting")
		return RestartResult{
			Success: false,
			Message: fmt.Sprintf("%s: HTTP %d", restartFailed, restoreResp.StatusCode),
		}, nil
	}

	return RestartResult{Success: true, Message: restartSucceeded}, nil
}

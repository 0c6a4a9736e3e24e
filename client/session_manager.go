// Package client provides the session manager used by API consumers:
// it attaches the cached access token to outgoing requests, and on an
// auth failure performs one shared refresh and retries the original
// request exactly once.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// refreshKey is the singleflight key: there is only ever one refresh
// operation per session manager.
const refreshKey = "refresh"

// Options configures a SessionManager.
type Options struct {
	// BaseURL of the auth server, e.g. "https://auth.example.com".
	BaseURL string
	// Transport used for outgoing API calls. Defaults to
	// http.DefaultTransport.
	Transport http.RoundTripper
	// OnSessionExpired is invoked once per failed refresh, after the
	// cached access token has been cleared. The application uses it to
	// drive the user to its login entry point.
	OnSessionExpired func()
	// Logger for session events. Defaults to a no-op logger.
	Logger *zerolog.Logger
}

// SessionManager caches the access token, intercepts 401/403 responses,
// and coordinates a single shared in-flight refresh across concurrent
// callers. It implements http.RoundTripper.
type SessionManager struct {
	baseURL   string
	transport http.RoundTripper
	// authClient owns the refresh cookie; the jar is private to the
	// session manager so the refresh token never leaks into API calls.
	authClient *http.Client
	onExpired  func()
	log        zerolog.Logger

	group singleflight.Group

	mu          sync.RWMutex
	accessToken string
}

// NewSessionManager creates a SessionManager for the given auth server.
func NewSessionManager(opts Options) (*SessionManager, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("[NewSessionManager] base URL is required")
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, errors.Wrap(err, "[NewSessionManager] invalid base URL")
	}

	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "[NewSessionManager] cookiejar.New")
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &SessionManager{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		transport:  transport,
		authClient: &http.Client{Transport: transport, Jar: jar},
		onExpired:  opts.OnSessionExpired,
		log:        logger,
	}, nil
}

// Client returns an *http.Client whose requests carry the session's
// access token and transparently refresh-and-retry once on an auth
// failure.
func (sm *SessionManager) Client() *http.Client {
	return &http.Client{Transport: sm}
}

// AccessToken returns the cached access token, if any.
func (sm *SessionManager) AccessToken() string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.accessToken
}

func (sm *SessionManager) setAccessToken(tok string) {
	sm.mu.Lock()
	sm.accessToken = tok
	sm.mu.Unlock()
}

// GetValidAccessToken returns the cached access token, refreshing
// through the shared in-flight operation when none is cached. Callers
// abandoning the wait (context cancelled) do not affect other awaiters
// of the same refresh.
func (sm *SessionManager) GetValidAccessToken(ctx context.Context) (string, error) {
	if tok := sm.AccessToken(); tok != "" {
		return tok, nil
	}
	return sm.refreshShared(ctx)
}

// Login authenticates against the auth server, caches the access
// token, and lets the private cookie jar capture the refresh cookie.
func (sm *SessionManager) Login(ctx context.Context, email, password string) error {
	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
		"provider": "local",
	})
	if err != nil {
		return errors.Wrap(err, "[SessionManager.Login] marshal")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sm.baseURL+"/auth/login", strings.NewReader(string(body)))
	if err != nil {
		return errors.Wrap(err, "[SessionManager.Login] new request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := sm.authClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "[SessionManager.Login] do")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("[SessionManager.Login] unexpected status %d", resp.StatusCode)
	}

	var parsed struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return errors.Wrap(err, "[SessionManager.Login] decode")
	}
	sm.setAccessToken(parsed.AccessToken)
	return nil
}

// Logout clears the refresh cookie server-side and drops the cached
// access token. The access token itself stays cryptographically valid
// until its natural expiry; there is no server-side revocation.
func (sm *SessionManager) Logout(ctx context.Context) error {
	sm.setAccessToken("")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sm.baseURL+"/auth/logout", nil)
	if err != nil {
		return errors.Wrap(err, "[SessionManager.Logout] new request")
	}

	resp, err := sm.authClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "[SessionManager.Logout] do")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("[SessionManager.Logout] unexpected status %d", resp.StatusCode)
	}
	return nil
}

// RoundTrip attaches the cached access token and, on an auth failure,
// performs one shared refresh and replays the request exactly once. A
// second auth failure propagates; there is no second refresh for the
// same request.
func (sm *SessionManager) RoundTrip(req *http.Request) (*http.Response, error) {
	attemptToken := sm.AccessToken()
	attempt := cloneRequest(req)
	if attemptToken != "" {
		attempt.Header.Set("Authorization", "Bearer "+attemptToken)
	}

	resp, err := sm.transport.RoundTrip(attempt)
	if err != nil {
		return nil, err
	}
	if !isAuthFailure(resp.StatusCode) {
		return resp, nil
	}

	// Another caller may have already rotated the token while this
	// request was in flight; retry with the fresher cached token before
	// starting a new rotation.
	newToken := sm.AccessToken()
	if newToken == "" || newToken == attemptToken {
		var refreshErr error
		newToken, refreshErr = sm.refreshShared(req.Context())
		if refreshErr != nil {
			// Refresh failed: the original auth failure stands and the
			// session is over for this client.
			return resp, nil
		}
	}

	retry, err := rewindRequest(req)
	if err != nil {
		return resp, nil
	}
	drainBody(resp)

	retry.Header.Set("Authorization", "Bearer "+newToken)
	return sm.transport.RoundTrip(retry)
}

// refreshShared funnels all concurrent refresh attempts into a single
// in-flight call. When the shared call settles, singleflight forgets
// the key, so the next expiry cycle starts a fresh refresh.
func (sm *SessionManager) refreshShared(ctx context.Context) (string, error) {
	ch := sm.group.DoChan(refreshKey, func() (any, error) {
		return sm.doRefresh()
	})

	select {
	case <-ctx.Done():
		// The abandoned wait does not cancel the shared refresh; other
		// awaiters still receive its result.
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// doRefresh calls the refresh endpoint. It runs at most once per
// in-flight cycle regardless of how many callers are waiting.
func (sm *SessionManager) doRefresh() (string, error) {
	req, err := http.NewRequest(http.MethodGet, sm.baseURL+"/auth/refresh", nil)
	if err != nil {
		return "", errors.Wrap(err, "[SessionManager.doRefresh] new request")
	}

	resp, err := sm.authClient.Do(req)
	if err != nil {
		sm.expire()
		return "", errors.Wrap(err, "[SessionManager.doRefresh] do")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		sm.expire()
		return "", fmt.Errorf("[SessionManager.doRefresh] refresh rejected with status %d", resp.StatusCode)
	}

	var parsed struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		sm.expire()
		return "", errors.Wrap(err, "[SessionManager.doRefresh] decode")
	}

	sm.setAccessToken(parsed.AccessToken)
	sm.log.Debug().Msg("access token refreshed")
	return parsed.AccessToken, nil
}

// expire clears the cached token and signals the application exactly
// once per failed refresh cycle.
func (sm *SessionManager) expire() {
	sm.setAccessToken("")
	sm.log.Debug().Msg("session expired")
	if sm.onExpired != nil {
		sm.onExpired()
	}
}

// isAuthFailure reports whether the status indicates a missing or
// invalid/expired access token. The server splits the two cases across
// 401 and 403; both are repairable by a refresh.
func isAuthFailure(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

func cloneRequest(req *http.Request) *http.Request {
	return req.Clone(req.Context())
}

// rewindRequest clones the request with a fresh body for the single
// retry. Requests with a body but no GetBody cannot be replayed.
func rewindRequest(req *http.Request) (*http.Request, error) {
	retry := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return retry, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("[SessionManager] request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, errors.Wrap(err, "[SessionManager] GetBody")
	}
	retry.Body = body
	return retry, nil
}

// drainBody fully consumes and closes a response body so the transport
// can reuse the connection.
func drainBody(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}

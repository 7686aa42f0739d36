// Package auth drives the scripted browser login flow and the session
// liveness check. Browser automation stays behind this package; the core
// pipeline only ever sees a boolean outcome.
package auth

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"cartscout/internal/config"
	"cartscout/internal/fetcher"
)

// Login form selectors on the sign-in page.
const (
	emailSelector    = "#ap_email"
	continueSelector = "#continue"
	passwordSelector = "#ap_password"
	submitSelector   = "#signInSubmit"

	// accountSelector marks a signed-in navigation bar.
	accountSelector = "#nav-link-accountList"

	// signInLinkSelector marks a signed-out page.
	signInLinkSelector = `a[href*="/ap/signin"]`

	elementTimeout = 10 * time.Second
	pageTimeout    = 30 * time.Second
)

// Authenticator owns the login flows and cookie persistence. Every failure
// mode surfaces as a boolean false, never as an error to the caller.
type Authenticator struct {
	cfg     *config.Config
	session *fetcher.Session
	client  *http.Client
	confirm io.Reader
	logger  *slog.Logger
}

// New creates an Authenticator sharing the pipeline's session and HTTP
// client.
func New(cfg *config.Config, session *fetcher.Session, client *http.Client, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		cfg:     cfg,
		session: session,
		client:  client,
		confirm: os.Stdin,
		logger:  logger.With("component", "auth"),
	}
}

// AttemptLogin runs the scripted credential flow: open browser, fill the
// sign-in form, detect success, persist cookies. Any failure along the way
// is logged and reported as false.
func (a *Authenticator) AttemptLogin(ctx context.Context, email, password string) bool {
	browser, page, err := a.openSignInPage(ctx, a.cfg.Auth.Headless)
	if err != nil {
		a.logger.Error("login failed: browser", "error", err)
		return false
	}
	defer browser.Close()

	steps := []struct {
		selector string
		text     string
	}{
		{emailSelector, email},
		{continueSelector, ""},
		{passwordSelector, password},
		{submitSelector, ""},
	}
	for _, step := range steps {
		if err := a.interact(page, step.selector, step.text); err != nil {
			a.logger.Error("login failed: form interaction", "selector", step.selector, "error", err)
			return false
		}
	}

	if err := page.Timeout(pageTimeout).WaitStable(500 * time.Millisecond); err != nil {
		a.logger.Warn("page stability timeout after submit, continuing", "error", err)
	}

	return a.finishLogin(page)
}

// AwaitManualLogin opens a visible browser at the sign-in page, waits for
// the operator to complete the login by hand, and converges on the same
// success detection and cookie persistence as the scripted flow.
func (a *Authenticator) AwaitManualLogin(ctx context.Context) bool {
	browser, page, err := a.openSignInPage(ctx, false)
	if err != nil {
		a.logger.Error("manual login failed: browser", "error", err)
		return false
	}
	defer browser.Close()

	fmt.Println("A browser window has been opened. Sign in there, then press Enter here.")
	if _, err := bufio.NewReader(a.confirm).ReadString('\n'); err != nil {
		a.logger.Error("manual login aborted", "error", err)
		return false
	}

	return a.finishLogin(page)
}

// IsAuthenticated loads persisted cookies into the HTTP session and probes
// the site root. The session is alive only when the probe succeeds and the
// landed URL is not a sign-in page; any error fails closed.
func (a *Authenticator) IsAuthenticated(ctx context.Context) bool {
	if err := a.session.LoadCookies(); err != nil {
		a.logger.Debug("no persisted session", "error", err)
		a.session.SetAuthenticated(false)
		return false
	}

	probeCtx, cancel := context.WithTimeout(ctx, a.cfg.Auth.LivenessTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, a.cfg.Site.BaseURL, nil)
	if err != nil {
		a.session.SetAuthenticated(false)
		return false
	}
	req.Header.Set("User-Agent", a.cfg.Crawler.UserAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Debug("liveness probe failed", "error", err)
		a.session.SetAuthenticated(false)
		return false
	}
	defer resp.Body.Close()

	landed := resp.Request.URL.String()
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300 &&
		!strings.Contains(landed, a.cfg.Site.SignInPath)

	a.session.SetAuthenticated(ok)
	a.logger.Info("session liveness check", "authenticated", ok, "status", resp.StatusCode)
	return ok
}

// openSignInPage launches a browser and navigates to the sign-in page.
func (a *Authenticator) openSignInPage(ctx context.Context, headless bool) (*rod.Browser, *rod.Page, error) {
	controlURL, err := launcher.New().
		Headless(headless).
		Set("disable-blink-features", "AutomationControlled").
		Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, nil, fmt.Errorf("connect browser: %w", err)
	}

	page, err := stealth.Page(browser)
	if err != nil {
		browser.Close()
		return nil, nil, fmt.Errorf("stealth page: %w", err)
	}
	page = page.Context(ctx)

	signInURL := a.cfg.Site.BaseURL + a.cfg.Site.SignInPath
	if err := page.Timeout(pageTimeout).Navigate(signInURL); err != nil {
		browser.Close()
		return nil, nil, fmt.Errorf("navigate %s: %w", signInURL, err)
	}
	if err := page.Timeout(pageTimeout).WaitStable(300 * time.Millisecond); err != nil {
		a.logger.Warn("sign-in page stability timeout, continuing", "error", err)
	}

	return browser, page, nil
}

// interact types into a field when text is given, otherwise clicks.
func (a *Authenticator) interact(page *rod.Page, selector, text string) error {
	el, err := page.Timeout(elementTimeout).Element(selector)
	if err != nil {
		return fmt.Errorf("element not found: %s: %w", selector, err)
	}
	if text != "" {
		return el.Input(text)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// finishLogin applies the success heuristic and persists cookies on success.
func (a *Authenticator) finishLogin(page *rod.Page) bool {
	if !a.loginSucceeded(page) {
		a.logger.Warn("login not detected as successful")
		return false
	}

	cookies, err := page.Cookies(nil)
	if err != nil {
		a.logger.Error("login succeeded but cookies unreadable", "error", err)
		return false
	}
	if err := a.session.SaveCookies(convertCookies(cookies)); err != nil {
		a.logger.Error("login succeeded but cookies not persisted", "error", err)
		return false
	}

	a.session.SetAuthenticated(true)
	a.logger.Info("login successful", "cookies", len(cookies))
	return true
}

// loginSucceeded combines the success signals with logical OR. The mix is
// deliberately lenient: any single signal is accepted, and the bare "ap/"
// check can false-positive on unrelated paths.
func (a *Authenticator) loginSucceeded(page *rod.Page) bool {
	landed := ""
	if info, err := page.Info(); err == nil && info != nil {
		landed = info.URL
	}

	domain := strings.TrimPrefix(a.cfg.Site.BaseURL, "https://")
	if landed != "" && strings.Contains(landed, domain) &&
		!strings.Contains(landed, a.cfg.Site.SignInPath) {
		return true
	}
	if landed != "" && !strings.Contains(landed, "ap/") {
		return true
	}

	if has, _, err := page.Has(accountSelector); err == nil && has {
		return true
	}
	if has, _, err := page.Has(signInLinkSelector); err == nil && !has {
		return true
	}

	return false
}

// convertCookies maps browser cookies onto net/http cookies.
func convertCookies(cookies []*proto.NetworkCookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		cookie := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		}
		if c.Expires > 0 {
			cookie.Expires = time.Unix(int64(c.Expires), 0)
		}
		out = append(out, cookie)
	}
	return out
}

package fetcher

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// cookieRecord is the on-disk form of one cookie, a JSON object compatible
// with browser-exported cookie dumps.
type cookieRecord struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
}

// Session owns the cookie jar shared by every HTTP request in a run, plus
// the authenticated flag. Cookies are persisted to a local JSON file on
// login success and restored from it on liveness checks.
type Session struct {
	jar  *cookiejar.Jar
	path string
	base *url.URL

	mu            sync.Mutex
	authenticated bool

	logger *slog.Logger
}

// NewSession creates a Session persisting cookies at path, scoped to the
// site at baseURL.
func NewSession(path, baseURL string, logger *slog.Logger) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL %q: %w", baseURL, err)
	}
	return &Session{
		jar:    jar,
		path:   path,
		base:   base,
		logger: logger.With("component", "session"),
	}, nil
}

// Jar exposes the cookie jar for the HTTP client.
func (s *Session) Jar() http.CookieJar { return s.jar }

// Authenticated reports whether the last liveness check or login succeeded.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authenticated
}

// SetAuthenticated records the session liveness state.
func (s *Session) SetAuthenticated(v bool) {
	s.mu.Lock()
	s.authenticated = v
	s.mu.Unlock()
}

// SaveCookies persists the given cookies to the session's cookie file and
// loads them into the jar.
func (s *Session) SaveCookies(cookies []*http.Cookie) error {
	records := make([]cookieRecord, 0, len(cookies))
	for _, c := range cookies {
		rec := cookieRecord{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
		}
		if !c.Expires.IsZero() {
			rec.Expires = float64(c.Expires.Unix())
		}
		records = append(records, rec)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cookies: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cookie dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write cookie file: %w", err)
	}

	s.setJarCookies(cookies)
	s.logger.Info("cookies saved", "path", s.path, "count", len(records))
	return nil
}

// LoadCookies restores persisted cookies from the cookie file into the jar.
func (s *Session) LoadCookies() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read cookie file: %w", err)
	}

	var records []cookieRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("parse cookie file %s: %w", s.path, err)
	}

	cookies := make([]*http.Cookie, 0, len(records))
	for _, rec := range records {
		c := &http.Cookie{
			Name:     rec.Name,
			Value:    rec.Value,
			Domain:   rec.Domain,
			Path:     rec.Path,
			Secure:   rec.Secure,
			HttpOnly: rec.HTTPOnly,
		}
		if rec.Expires > 0 {
			c.Expires = time.Unix(int64(rec.Expires), 0)
		}
		cookies = append(cookies, c)
	}

	s.setJarCookies(cookies)
	s.logger.Debug("cookies loaded", "path", s.path, "count", len(cookies))
	return nil
}

// setJarCookies installs cookies into the jar grouped by cookie domain.
// Cookies without a domain attach to the session's base URL.
func (s *Session) setJarCookies(cookies []*http.Cookie) {
	byHost := make(map[string][]*http.Cookie)
	for _, c := range cookies {
		host := strings.TrimPrefix(c.Domain, ".")
		if host == "" {
			host = s.base.Host
		}
		byHost[host] = append(byHost[host], c)
	}
	for host, group := range byHost {
		u := &url.URL{Scheme: "https", Host: host, Path: "/"}
		s.jar.SetCookies(u, group)
	}
}

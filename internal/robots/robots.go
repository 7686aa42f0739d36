// Package robots answers whether a path on the target site may be crawled,
// based on the site's robots.txt.
package robots

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/temoto/robotstxt"
)

// maxRobotsBodyBytes limits the size of robots.txt responses we will read.
const maxRobotsBodyBytes = 512 * 1024

// Policy fetches and caches the target site's robots.txt and answers
// crawlability checks against it. A fetch or parse failure fails open:
// crawling is never blocked because the policy itself could not be read.
type Policy struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger

	mu      sync.Mutex
	fetched bool
	data    *robotstxt.RobotsData
}

// New creates a Policy for the given site base URL.
func New(baseURL string, client *http.Client, logger *slog.Logger) *Policy {
	return &Policy{
		baseURL: baseURL,
		client:  client,
		logger:  logger.With("component", "robots_policy"),
	}
}

// CanCrawl reports whether the given path is permitted for the given agent.
// The robots.txt is fetched once, on first use; any failure to fetch or
// parse it yields true.
func (p *Policy) CanCrawl(path, agent string) bool {
	data := p.robotsData()
	if data == nil {
		return true
	}

	group := data.FindGroup(agent)
	if group == nil {
		return true
	}
	return group.Test(path)
}

// robotsData returns the cached parse, fetching it on first call. A failed
// fetch is cached as nil so the single attempt is not repeated per check.
func (p *Policy) robotsData() *robotstxt.RobotsData {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fetched {
		return p.data
	}
	p.fetched = true

	data, err := p.fetch()
	if err != nil {
		p.logger.Warn("robots.txt check unavailable, failing open", "error", err)
		return nil
	}
	p.data = data
	return data
}

func (p *Policy) fetch() (*robotstxt.RobotsData, error) {
	robotsURL := p.baseURL + "/robots.txt"

	resp, err := p.client.Get(robotsURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", robotsURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", robotsURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", robotsURL, err)
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", robotsURL, err)
	}
	return data, nil
}

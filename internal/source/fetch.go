package source

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"svitlobot/internal/schedule"
	"svitlobot/pkg/logx"
)

// Fetcher yields one poll cycle's snapshot. A nil snapshot with a nil error
// means the page had no usable data this cycle; the caller skips the cycle,
// it is not an error condition.
type Fetcher interface {
	Fetch(ctx context.Context) (*schedule.Snapshot, error)
}

// Config configures the HTTP fetcher.
type Config struct {
	URL      string
	Timezone string // IANA name; Europe/Uzhgorod is folded into Europe/Kyiv
	Timeout  time.Duration
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.URL) == "" {
		c.URL = "https://poweron.loe.lviv.ua/"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}

var (
	textBlockRe = regexp.MustCompile(`(?s)<div[^>]*class="[^"]*power-off__text[^"]*"[^>]*>(.*?)</div>`)
	paragraphRe = regexp.MustCompile(`(?s)<p[^>]*>(.*?)</p>`)
	tagRe       = regexp.MustCompile(`<[^>]*>`)
)

// Client fetches and parses the outage page over plain HTTP. It owns its
// HTTP session: on a failed fetch the session is disposed and rebuilt before
// the next attempt, so a wedged keep-alive connection cannot poison every
// following cycle.
type Client struct {
	cfg Config
	log logx.Logger
	loc *time.Location

	mu   sync.Mutex
	http *http.Client
}

func NewClient(cfg Config, log logx.Logger) *Client {
	cfg = cfg.withDefaults()
	c := &Client{
		cfg: cfg,
		log: log.With(logx.String("comp", "source")),
		loc: loadLocation(cfg.Timezone, log),
	}
	c.http = c.newSession()
	return c
}

func loadLocation(name string, log logx.Logger) *time.Location {
	if name == "Europe/Uzhgorod" {
		name = "Europe/Kyiv"
	}
	if name == "" {
		name = "Europe/Kyiv"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Warn("unknown timezone; falling back to UTC", logx.String("tz", name), logx.Err(err))
		return time.UTC
	}
	return loc
}

func (c *Client) newSession() *http.Client {
	return &http.Client{Timeout: c.cfg.Timeout}
}

func (c *Client) session() *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.http
}

func (c *Client) resetSession() {
	c.mu.Lock()
	old := c.http
	c.http = c.newSession()
	c.mu.Unlock()
	if old != nil {
		old.CloseIdleConnections()
	}
}

// Fetch downloads the page and parses the schedule text block.
func (c *Client) Fetch(ctx context.Context) (*schedule.Snapshot, error) {
	body, err := c.get(ctx)
	if err != nil {
		c.resetSession()
		return nil, err
	}

	lines := extractTextLines(body)
	if len(lines) == 0 {
		c.log.Warn("schedule text block not found", logx.String("url", c.cfg.URL))
		return nil, nil
	}

	snap := ParseText(lines, time.Now().In(c.loc))
	if snap == nil {
		c.log.Warn("no complete schedule section on page", logx.Int("lines", len(lines)))
		return nil, nil
	}
	return snap, nil
}

func (c *Client) get(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) svitlobot/1.0")

	resp, err := c.session().Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", c.cfg.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: unexpected status %d", c.cfg.URL, resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", c.cfg.URL, err)
	}
	return string(b), nil
}

// extractTextLines pulls the <p> lines out of the schedule text block.
func extractTextLines(body string) []string {
	m := textBlockRe.FindStringSubmatch(body)
	if m == nil {
		return nil
	}
	var lines []string
	for _, p := range paragraphRe.FindAllStringSubmatch(m[1], -1) {
		text := html.UnescapeString(tagRe.ReplaceAllString(p[1], " "))
		text = strings.Join(strings.Fields(text), " ")
		if text != "" {
			lines = append(lines, text)
		}
	}
	return lines
}

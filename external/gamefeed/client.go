package gamefeed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/zkesrefoglu/turkish-stars-tracker/internal/domain/livematch"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/platform/logging"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/platform/resilience"
	"github.com/zkesrefoglu/turkish-stars-tracker/internal/usecase"
)

const (
	defaultBaseURL     = "https://api.gamefeed.example.com/v2/sports"
	maxResponseBytes   = 4 << 20
	dateQueryFormat    = "20060102"
	eventTimeFormat    = "2006-01-02T15:04Z"
	eventTimeFormatAlt = time.RFC3339
)

var apiKeyParamRegex = regexp.MustCompile(`apikey=[^&\s"']+`)
var errGamefeedTransient = crerr.New("gamefeed transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Token          string
	Timeout        time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client talks to the external sports data feed. Each fetch maps to at
// most one upstream request; the poll cadence, not the client, provides
// retry spacing. Failures surface through the usecase error taxonomy.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	token          string
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         *resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		token:          strings.TrimSpace(cfg.Token),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
		flight:         resilience.NewSingleFlight(),
	}
}

func (c *Client) FetchGamesInRange(ctx context.Context, teamID int64, from, to time.Time) ([]usecase.ProviderGame, error) {
	if teamID <= 0 {
		return nil, fmt.Errorf("%w: team id must be greater than zero", usecase.ErrInvalidInput)
	}

	path := fmt.Sprintf("/teams/%d/events", teamID)
	query := map[string]string{
		"dates": from.UTC().Format(dateQueryFormat) + "-" + to.UTC().Format(dateQueryFormat),
	}

	var envelope eventsEnvelope
	if err := c.doJSON(ctx, path, query, &envelope); err != nil {
		return nil, fmt.Errorf("fetch events team_id=%d: %w", teamID, err)
	}

	games := make([]usecase.ProviderGame, 0, len(envelope.Events))
	for _, ev := range envelope.Events {
		game, err := parseEvent(ev, teamID)
		if err != nil {
			c.logger.WarnContext(ctx, "skipping unparseable event", "team_id", teamID, "event_id", ev.ID, "error", err)
			continue
		}
		if game.StartTime.Before(from) || game.StartTime.After(to) {
			continue
		}
		games = append(games, game)
	}

	return games, nil
}

func (c *Client) FetchLiveStats(ctx context.Context, playerID int64, gameID string) (livematch.StatLine, error) {
	if playerID <= 0 {
		// Subjects without a player link still get a score row, just no stat bag.
		return livematch.StatLine{}, nil
	}
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return nil, fmt.Errorf("%w: game id is required", usecase.ErrInvalidInput)
	}

	path := fmt.Sprintf("/athletes/%d/events/%s/statistics", playerID, url.PathEscape(gameID))

	var envelope statsEnvelope
	if err := c.doJSON(ctx, path, nil, &envelope); err != nil {
		return nil, fmt.Errorf("fetch stats player_id=%d event_id=%s: %w", playerID, gameID, err)
	}

	line := livematch.StatLine{}
	for _, category := range envelope.Splits.Categories {
		for _, stat := range category.Stats {
			name := strings.ToLower(strings.TrimSpace(stat.Name))
			if name == "" {
				continue
			}
			line[name] = int(stat.Value)
		}
	}

	return line, nil
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "gamefeed circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: game data provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}
	values.Set("apikey", c.token)

	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	out, err := c.flight.Do(ctx, path+"?"+values.Encode(), func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if isGamefeedCircuitFailure(reqErr) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("%w: unexpected payload type %T", usecase.ErrMalformedResponse, out)
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: decode provider payload: %v", usecase.ErrMalformedResponse, err)
	}

	return nil
}

// executeRequest performs exactly one upstream attempt and maps the
// outcome onto the failure taxonomy.
func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		reqErr := fmt.Errorf("%w: send request: %s", usecase.ErrDependencyUnavailable, sanitizeSensitiveText(err.Error(), c.token))
		c.logger.WarnContext(ctx, "gamefeed request failed", "url", redactAPIURL(fullURL), "error", reqErr)
		return nil, crerr.Mark(reqErr, errGamefeedTransient)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if readErr != nil {
		reqErr := fmt.Errorf("%w: read response body: %v", usecase.ErrDependencyUnavailable, readErr)
		return nil, crerr.Mark(reqErr, errGamefeedTransient)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return raw, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: provider status=%d", usecase.ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: provider status=%d retry_after=%s", usecase.ErrRateLimited, resp.StatusCode, resp.Header.Get("Retry-After"))
	case resp.StatusCode >= 500:
		reqErr := fmt.Errorf("%w: provider status=%d body=%s", usecase.ErrDependencyUnavailable, resp.StatusCode, abbreviateBody(raw))
		c.logger.WarnContext(ctx, "gamefeed request failed", "url", redactAPIURL(fullURL), "error", reqErr)
		return nil, crerr.Mark(reqErr, errGamefeedTransient)
	default:
		return nil, fmt.Errorf("%w: provider status=%d body=%s", usecase.ErrMalformedResponse, resp.StatusCode, abbreviateBody(raw))
	}
}

func isGamefeedCircuitFailure(err error) bool {
	return err != nil && crerr.Is(err, errGamefeedTransient)
}

func parseEvent(ev eventPayload, teamID int64) (usecase.ProviderGame, error) {
	start, err := parseEventTime(ev.Date)
	if err != nil {
		return usecase.ProviderGame{}, fmt.Errorf("parse event date %q: %w", ev.Date, err)
	}
	if len(ev.Competitions) == 0 {
		return usecase.ProviderGame{}, fmt.Errorf("event %s has no competitions", ev.ID)
	}

	comp := ev.Competitions[0]

	var home, opponent competitorPayload
	foundSelf := false
	for _, competitor := range comp.Competitors {
		if competitor.HomeAway == "home" {
			home = competitor
		}
		if competitor.Team.ID == strconv.FormatInt(teamID, 10) {
			foundSelf = true
		} else {
			opponent = competitor
		}
	}
	if !foundSelf {
		return usecase.ProviderGame{}, fmt.Errorf("event %s does not include team %d", ev.ID, teamID)
	}

	homeScore, _ := strconv.Atoi(strings.TrimSpace(home.Score))
	var awayScore int
	for _, competitor := range comp.Competitors {
		if competitor.HomeAway == "away" {
			awayScore, _ = strconv.Atoi(strings.TrimSpace(competitor.Score))
		}
	}

	selfHome := home.Team.ID == strconv.FormatInt(teamID, 10)

	game := usecase.ProviderGame{
		GameID:       ev.ID,
		Opponent:     opponent.Team.DisplayName,
		Home:         selfHome,
		StartTime:    start,
		RawStatus:    comp.Status.Type.Description,
		RawClock:     comp.Status.DisplayClock,
		HomeScore:    homeScore,
		AwayScore:    awayScore,
		LastPlayText: comp.Situation.LastPlay.Text,
	}
	if game.RawStatus == "" {
		game.RawStatus = comp.Status.Type.ShortDetail
	}

	return game, nil
}

func parseEventTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(eventTimeFormat, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(eventTimeFormatAlt, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func sanitizeSensitiveText(value, token string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if token != "" {
		value = strings.ReplaceAll(value, token, "REDACTED")
	}
	return apiKeyParamRegex.ReplaceAllString(value, "apikey=REDACTED")
}

func redactAPIURL(rawURL string) string {
	return apiKeyParamRegex.ReplaceAllString(rawURL, "apikey=REDACTED")
}

func abbreviateBody(raw []byte) string {
	const limit = 256
	trimmed := strings.TrimSpace(string(raw))
	if len(trimmed) > limit {
		return trimmed[:limit] + "..."
	}
	return trimmed
}

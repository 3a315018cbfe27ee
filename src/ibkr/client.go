package ibkr

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jiaming2012/ib-options/src/eventmodels"
	"github.com/jiaming2012/ib-options/src/eventpubsub"
)

const userAgent = "ib-options/1.0"

const (
	minClientID = 100
	maxClientID = 9999
)

type ClientConfig struct {
	Host string
	Port int

	// ClientID tags this session in the logs. Zero picks a random id.
	ClientID int

	InsecureSkipVerify bool
	RequestTimeout     time.Duration
}

// Client is a Client Portal gateway session: REST for contract lookups and
// the websocket datafeed for streaming snapshots.
type Client struct {
	cfg       ClientConfig
	baseURL   string
	wsURL     string
	tlsConfig *tls.Config
	http      *http.Client
	logger    *log.Entry

	contractCache *cache.Cache

	mu      sync.Mutex
	bus     *eventpubsub.Bus
	feed    *datafeed
	tickers map[int]*Ticker
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.ClientID == 0 {
		cfg.ClientID = minClientID + rand.Intn(maxClientID-minClientID+1)
	}

	host := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	tlsConfig := &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig

	return &Client{
		cfg:       cfg,
		baseURL:   (&url.URL{Scheme: "https", Host: host, Path: "/v1/api"}).String(),
		wsURL:     (&url.URL{Scheme: "wss", Host: host, Path: "/v1/api/ws"}).String(),
		tlsConfig: tlsConfig,
		http: &http.Client{
			Transport: otelhttp.NewTransport(transport),
		},
		logger: log.WithFields(log.Fields{
			"client_id": cfg.ClientID,
			"gateway":   host,
		}),
		contractCache: cache.New(5*time.Minute, 10*time.Minute),
		bus:           eventpubsub.New(),
		tickers:       make(map[int]*Ticker),
	}
}

func (c *Client) ClientID() int {
	return c.cfg.ClientID
}

// Connect verifies the gateway's brokerage session and opens the datafeed.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.feed != nil {
		return nil
	}

	var status AuthStatusDTO
	if err := c.postJSON(ctx, "/iserver/auth/status", nil, &status); err != nil {
		return fmt.Errorf("Client.Connect: %w: %w", eventmodels.ErrConnectionFailure, err)
	}

	if !status.Authenticated || !status.Connected {
		return fmt.Errorf("Client.Connect: %w: gateway session is not authenticated (authenticated=%t, connected=%t): %s", eventmodels.ErrConnectionFailure, status.Authenticated, status.Connected, status.Message)
	}

	var tickle TickleDTO
	if err := c.postJSON(ctx, "/tickle", nil, &tickle); err != nil {
		return fmt.Errorf("Client.Connect: %w: %w", eventmodels.ErrConnectionFailure, err)
	}

	feed, err := dialDatafeed(ctx, c.wsURL, tickle.Session, c.tlsConfig, c.bus, c.logger)
	if err != nil {
		return fmt.Errorf("Client.Connect: %w: %w", eventmodels.ErrConnectionFailure, err)
	}

	c.feed = feed
	c.logger.Info("connected to gateway")

	return nil
}

// Disconnect cancels every market data subscription and closes the datafeed.
// Calling it on a closed session is a no-op.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.feed == nil {
		return nil
	}

	for conID := range c.tickers {
		if err := c.feed.unsubscribe(conID); err != nil {
			c.logger.Warnf("failed to cancel market data for conid %d: %v", conID, err)
		}
	}

	err := c.feed.close()

	c.feed = nil
	c.tickers = make(map[int]*Ticker)
	c.bus = eventpubsub.New()

	if err != nil {
		return fmt.Errorf("Client.Disconnect: %w", err)
	}

	c.logger.Info("disconnected from gateway")
	return nil
}

// RequestSnapshot subscribes conID to fields. A conid already streaming
// reuses its ticker and widens the subscription to the union of fields.
func (c *Client) RequestSnapshot(ctx context.Context, conID int, fields []eventmodels.MarketDataField) (eventmodels.Ticker, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.feed == nil {
		return nil, fmt.Errorf("Client.RequestSnapshot: %w: not connected", eventmodels.ErrConnectionFailure)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("Client.RequestSnapshot: %w", err)
	}

	ticker, found := c.tickers[conID]
	if found {
		ticker.addFields(fields)
	} else {
		ticker = newTicker(conID, fields)
		if err := c.bus.Subscribe(marketDataTopic(conID), ticker.apply); err != nil {
			return nil, fmt.Errorf("Client.RequestSnapshot: failed to subscribe to conid %d: %w", conID, err)
		}

		c.tickers[conID] = ticker
	}

	if err := c.feed.subscribe(conID, ticker.Fields()); err != nil {
		return nil, fmt.Errorf("Client.RequestSnapshot: %w", err)
	}

	return ticker, nil
}

func (c *Client) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.doJSON(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body interface{}, out interface{}) error {
	return c.doJSON(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body interface{}, out interface{}) error {
	if c.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: failed to encode request: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("%s %s: failed to create request: %w", method, path, err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: failed to read response: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, path, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
	}

	return nil
}

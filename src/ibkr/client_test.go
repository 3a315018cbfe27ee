package ibkr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiaming2012/ib-options/src/eventmodels"
)

// fakeGateway serves the Client Portal endpoints the client uses. Quotes
// are pushed back on the websocket as soon as a conid is subscribed.
type fakeGateway struct {
	server *httptest.Server

	mu            sync.Mutex
	authenticated bool
	stocks        string
	search        string
	strikes       map[string]string
	infos         map[string]string
	quotes        map[int]map[string]interface{}
	infoCalls     map[string]int
	wsMessages    []string
	wsCookie      string
}

func newFakeGateway(t *testing.T) *fakeGateway {
	g := &fakeGateway{
		authenticated: true,
		strikes:       make(map[string]string),
		infos:         make(map[string]string),
		quotes:        make(map[int]map[string]interface{}),
		infoCalls:     make(map[string]int),
	}

	router := mux.NewRouter()
	api := router.PathPrefix("/v1/api").Subrouter()
	api.HandleFunc("/iserver/auth/status", g.handleAuthStatus).Methods(http.MethodPost)
	api.HandleFunc("/tickle", g.handleTickle).Methods(http.MethodPost)
	api.HandleFunc("/trsrv/stocks", g.handleStocks).Methods(http.MethodGet)
	api.HandleFunc("/iserver/secdef/search", g.handleSearch).Methods(http.MethodGet)
	api.HandleFunc("/iserver/secdef/strikes", g.handleStrikes).Methods(http.MethodGet)
	api.HandleFunc("/iserver/secdef/info", g.handleInfo).Methods(http.MethodGet)
	api.HandleFunc("/ws", g.handleWebsocket)

	g.server = httptest.NewTLSServer(router)
	t.Cleanup(g.server.Close)

	return g
}

func (g *fakeGateway) clientConfig() ClientConfig {
	u, _ := url.Parse(g.server.URL)
	port, _ := strconv.Atoi(u.Port())

	return ClientConfig{
		Host:               u.Hostname(),
		Port:               port,
		ClientID:           4242,
		InsecureSkipVerify: true,
		RequestTimeout:     5 * time.Second,
	}
}

func (g *fakeGateway) writeRaw(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

func (g *fakeGateway) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	authenticated := g.authenticated
	g.mu.Unlock()

	json.NewEncoder(w).Encode(AuthStatusDTO{Authenticated: authenticated, Connected: true})
}

func (g *fakeGateway) handleTickle(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(TickleDTO{Session: "abc123"})
}

func (g *fakeGateway) handleStocks(w http.ResponseWriter, r *http.Request) {
	g.writeRaw(w, http.StatusOK, g.stocks)
}

func (g *fakeGateway) handleSearch(w http.ResponseWriter, r *http.Request) {
	g.writeRaw(w, http.StatusOK, g.search)
}

func (g *fakeGateway) handleStrikes(w http.ResponseWriter, r *http.Request) {
	body, found := g.strikes[r.URL.Query().Get("month")]
	if !found {
		g.writeRaw(w, http.StatusOK, `{"call":[],"put":[]}`)
		return
	}

	g.writeRaw(w, http.StatusOK, body)
}

func (g *fakeGateway) handleInfo(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := fmt.Sprintf("%s|%s|%s", q.Get("month"), q.Get("strike"), q.Get("right"))

	g.mu.Lock()
	g.infoCalls[key]++
	g.mu.Unlock()

	body, found := g.infos[key]
	if !found {
		g.writeRaw(w, http.StatusBadRequest, `{"error":"No contracts found"}`)
		return
	}

	g.writeRaw(w, http.StatusOK, body)
}

func (g *fakeGateway) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	g.mu.Lock()
	g.wsCookie = r.Header.Get("Cookie")
	g.mu.Unlock()

	conn.WriteJSON(map[string]interface{}{"topic": "system", "success": "user"})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}

		text := string(message)

		g.mu.Lock()
		g.wsMessages = append(g.wsMessages, text)
		g.mu.Unlock()

		if !strings.HasPrefix(text, "smd+") {
			continue
		}

		parts := strings.SplitN(text, "+", 3)
		conID, err := strconv.Atoi(parts[1])
		if err != nil {
			continue
		}

		g.mu.Lock()
		fields := g.quotes[conID]
		g.mu.Unlock()

		if fields == nil {
			continue
		}

		payload := map[string]interface{}{
			"topic":     "smd+" + parts[1],
			"conid":     conID,
			"server_id": "q0",
		}
		for k, v := range fields {
			payload[k] = v
		}

		conn.WriteJSON(payload)
	}
}

func (g *fakeGateway) messages() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	return append([]string(nil), g.wsMessages...)
}

func connectedClient(t *testing.T, g *fakeGateway) *Client {
	client := NewClient(g.clientConfig())
	require.NoError(t, client.Connect(context.Background()))
	t.Cleanup(func() { client.Disconnect() })

	return client
}

var testAAPL = eventmodels.Underlying{
	Symbol:          "AAPL",
	Exchange:        "SMART",
	PrimaryExchange: "NASDAQ",
	Currency:        "USD",
	ConID:           265598,
}

func TestNewClient(t *testing.T) {
	t.Run("random client id within range", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			client := NewClient(ClientConfig{Host: "localhost", Port: 5000})
			assert.GreaterOrEqual(t, client.ClientID(), 100)
			assert.LessOrEqual(t, client.ClientID(), 9999)
		}
	})

	t.Run("urls", func(t *testing.T) {
		client := NewClient(ClientConfig{Host: "localhost", Port: 5000, ClientID: 7})
		assert.Equal(t, 7, client.ClientID())
		assert.Equal(t, "https://localhost:5000/v1/api", client.baseURL)
		assert.Equal(t, "wss://localhost:5000/v1/api/ws", client.wsURL)
	})
}

func TestConnect(t *testing.T) {
	t.Run("opens the datafeed with the session", func(t *testing.T) {
		g := newFakeGateway(t)
		connectedClient(t, g)

		assert.Eventually(t, func() bool {
			msgs := g.messages()
			return len(msgs) > 0 && msgs[0] == `{"session":"abc123"}`
		}, 2*time.Second, 10*time.Millisecond)

		g.mu.Lock()
		assert.Equal(t, "api=abc123", g.wsCookie)
		g.mu.Unlock()
	})

	t.Run("unauthenticated session", func(t *testing.T) {
		g := newFakeGateway(t)
		g.authenticated = false

		client := NewClient(g.clientConfig())
		err := client.Connect(context.Background())
		assert.ErrorIs(t, err, eventmodels.ErrConnectionFailure)
	})

	t.Run("unreachable gateway", func(t *testing.T) {
		g := newFakeGateway(t)
		cfg := g.clientConfig()
		g.server.Close()

		client := NewClient(cfg)
		err := client.Connect(context.Background())
		assert.ErrorIs(t, err, eventmodels.ErrConnectionFailure)
	})

	t.Run("disconnect is idempotent", func(t *testing.T) {
		g := newFakeGateway(t)
		client := connectedClient(t, g)

		assert.NoError(t, client.Disconnect())
		assert.NoError(t, client.Disconnect())
	})
}

func TestRequestSnapshot(t *testing.T) {
	t.Run("requires a connection", func(t *testing.T) {
		client := NewClient(ClientConfig{Host: "localhost", Port: 5000})
		_, err := client.RequestSnapshot(context.Background(), 265598, eventmodels.UnderlyingPriceFields)
		assert.ErrorIs(t, err, eventmodels.ErrConnectionFailure)
	})

	t.Run("streams pushed fields into the ticker", func(t *testing.T) {
		g := newFakeGateway(t)
		g.quotes[265598] = map[string]interface{}{
			"31":   "C189.50",
			"7741": "189.50",
		}

		client := connectedClient(t, g)

		ticker, err := client.RequestSnapshot(context.Background(), 265598, eventmodels.UnderlyingPriceFields)
		require.NoError(t, err)
		assert.Equal(t, 265598, ticker.ConID())

		select {
		case <-ticker.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("ticker did not complete")
		}

		price, ok := ticker.Snapshot().Price()
		assert.True(t, ok)
		assert.Equal(t, 189.5, price)

		assert.Contains(t, g.messages(), `smd+265598+{"fields":["31","7741"]}`)
	})

	t.Run("repeat requests share the ticker", func(t *testing.T) {
		g := newFakeGateway(t)
		client := connectedClient(t, g)

		first, err := client.RequestSnapshot(context.Background(), 1001, eventmodels.UnderlyingPriceFields)
		require.NoError(t, err)

		second, err := client.RequestSnapshot(context.Background(), 1001, []eventmodels.MarketDataField{eventmodels.FieldBid})
		require.NoError(t, err)

		assert.Same(t, first, second)

		assert.Eventually(t, func() bool {
			for _, msg := range g.messages() {
				if msg == `smd+1001+{"fields":["31","84","7741"]}` {
					return true
				}
			}
			return false
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("disconnect cancels subscriptions", func(t *testing.T) {
		g := newFakeGateway(t)
		client := NewClient(g.clientConfig())
		require.NoError(t, client.Connect(context.Background()))

		_, err := client.RequestSnapshot(context.Background(), 1001, eventmodels.UnderlyingPriceFields)
		require.NoError(t, err)

		require.NoError(t, client.Disconnect())

		assert.Eventually(t, func() bool {
			for _, msg := range g.messages() {
				if msg == `umd+1001+{}` {
					return true
				}
			}
			return false
		}, 2*time.Second, 10*time.Millisecond)
	})
}

func TestSleep(t *testing.T) {
	client := NewClient(ClientConfig{Host: "localhost", Port: 5000})

	assert.NoError(t, client.Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := client.Sleep(ctx, time.Hour)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestQualifyStock(t *testing.T) {
	g := newFakeGateway(t)
	g.stocks = `{"AAPL":[{"name":"APPLE INC","assetClass":"STK","contracts":[
		{"conid":265598,"exchange":"NASDAQ","isUS":true},
		{"conid":38708077,"exchange":"MEXI","isUS":false}]}]}`

	client := NewClient(g.clientConfig())

	t.Run("usd keeps us listings", func(t *testing.T) {
		matches, err := client.QualifyStock(context.Background(), "AAPL", "USD", "SMART")
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, testAAPL, matches[0])
	})

	t.Run("other currencies keep every listing", func(t *testing.T) {
		matches, err := client.QualifyStock(context.Background(), "AAPL", "MXN", "SMART")
		require.NoError(t, err)
		assert.Len(t, matches, 2)
	})

	t.Run("unknown symbol", func(t *testing.T) {
		matches, err := client.QualifyStock(context.Background(), "ZZZZ", "USD", "SMART")
		require.NoError(t, err)
		assert.Empty(t, matches)
	})
}

func seedChain(g *fakeGateway) {
	g.search = `[{"conid":"265598","symbol":"AAPL","companyHeader":"APPLE INC - NASDAQ","description":"NASDAQ",
		"sections":[{"secType":"STK"},{"secType":"OPT","months":"NOV26;DEC26","exchange":"SMART;AMEX"}]}]`

	g.strikes["NOV26"] = `{"call":[180,185,190],"put":[185,190,195]}`
	g.strikes["DEC26"] = `{"call":[200],"put":[200]}`

	g.infos["NOV26|190|C"] = `[
		{"conid":700001,"symbol":"AAPL","strike":190,"right":"C","maturityDate":"20261120","multiplier":"100","tradingClass":"AAPL","exchange":"SMART"},
		{"conid":700002,"symbol":"AAPL","strike":"190","right":"C","maturityDate":"20261127","multiplier":"100","tradingClass":"AAPL","exchange":"SMART"},
		{"conid":700003,"symbol":"AAPL","strike":190,"right":"C","maturityDate":"20261120","multiplier":"100","tradingClass":"2AAPL","exchange":"SMART"}]`
	g.infos["DEC26|200|C"] = `[
		{"conid":700004,"symbol":"AAPL","strike":200,"right":"C","maturityDate":"20261218","multiplier":"100","tradingClass":"AAPL","exchange":"SMART"}]`
}

func TestRequestChainParameters(t *testing.T) {
	t.Run("groups by trading class", func(t *testing.T) {
		g := newFakeGateway(t)
		seedChain(g)

		client := NewClient(g.clientConfig())
		chains, err := client.RequestChainParameters(context.Background(), testAAPL)
		require.NoError(t, err)
		require.Len(t, chains, 2)

		assert.Equal(t, eventmodels.ChainParameters{
			Exchange:     "SMART",
			TradingClass: "AAPL",
			Multiplier:   "100",
			Expirations:  []eventmodels.ExpirationDate{"20261120", "20261127", "20261218"},
			Strikes:      []float64{180, 185, 190, 195, 200},
		}, chains[0])

		assert.Equal(t, "2AAPL", chains[1].TradingClass)
		assert.Equal(t, []eventmodels.ExpirationDate{"20261120"}, chains[1].Expirations)
		assert.Equal(t, []float64{180, 185, 190, 195}, chains[1].Strikes)
	})

	t.Run("no option months", func(t *testing.T) {
		g := newFakeGateway(t)
		g.search = `[{"conid":"265598","symbol":"AAPL","sections":[{"secType":"STK"}]}]`

		client := NewClient(g.clientConfig())
		chains, err := client.RequestChainParameters(context.Background(), testAAPL)
		require.NoError(t, err)
		assert.Empty(t, chains)
	})
}

func TestQualifyOptions(t *testing.T) {
	g := newFakeGateway(t)
	seedChain(g)

	client := NewClient(g.clientConfig())

	spec := func(expiration eventmodels.ExpirationDate, strike float64) eventmodels.ContractSpec {
		return eventmodels.ContractSpec{Symbol: "AAPL", Expiration: expiration, Strike: strike, Right: eventmodels.Call, Exchange: "SMART"}
	}

	qualified, err := client.QualifyOptions(context.Background(), testAAPL, []eventmodels.ContractSpec{
		spec("20261120", 190),
		spec("20261120", 999),
		spec("20261127", 190),
		spec("20261204", 190),
	})
	require.NoError(t, err)
	require.Len(t, qualified, 2)

	assert.Equal(t, 700001, qualified[0].ConID)
	assert.Equal(t, spec("20261120", 190), qualified[0].ContractSpec)
	assert.Equal(t, "AAPL", qualified[0].TradingClass)
	assert.Equal(t, "100", qualified[0].Multiplier)
	assert.Equal(t, 700002, qualified[1].ConID)

	g.mu.Lock()
	defer g.mu.Unlock()
	assert.Equal(t, 1, g.infoCalls["NOV26|190|C"])
	assert.Equal(t, 1, g.infoCalls["NOV26|999|C"])
}

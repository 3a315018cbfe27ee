package ibkr

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/ib-options/src/eventmodels"
	"github.com/jiaming2012/ib-options/src/eventpubsub"
)

const keepaliveInterval = 55 * time.Second

func marketDataTopic(conID int) string {
	return fmt.Sprintf("smd+%d", conID)
}

func subscribeMessage(conID int, fields []eventmodels.MarketDataField) ([]byte, error) {
	payload, err := json.Marshal(struct {
		Fields []eventmodels.MarketDataField `json:"fields"`
	}{Fields: fields})
	if err != nil {
		return nil, err
	}

	return []byte(fmt.Sprintf("smd+%d+%s", conID, payload)), nil
}

func unsubscribeMessage(conID int) []byte {
	return []byte(fmt.Sprintf("umd+%d+{}", conID))
}

type smdErrorMessage struct {
	Topic string `json:"topic"`
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// datafeed is the gateway websocket. One reader goroutine decodes pushed
// messages and publishes them on the bus, keyed by topic.
type datafeed struct {
	conn   *websocket.Conn
	bus    *eventpubsub.Bus
	logger *log.Entry

	writeMu sync.Mutex

	stop     chan struct{}
	stopOnce sync.Once
	readerWg sync.WaitGroup
	closeErr error
}

func dialDatafeed(ctx context.Context, wsURL, session string, tlsConfig *tls.Config, bus *eventpubsub.Bus, logger *log.Entry) (*datafeed, error) {
	dialer := *websocket.DefaultDialer
	dialer.TLSClientConfig = tlsConfig

	header := http.Header{}
	header.Set("User-Agent", userAgent)
	if session != "" {
		header.Set("Cookie", "api="+session)
	}

	logger.Debugf("connecting to %s", wsURL)

	conn, _, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, fmt.Errorf("dialDatafeed: failed to connect to %s: %w", wsURL, err)
	}

	feed := &datafeed{
		conn:   conn,
		bus:    bus,
		logger: logger,
		stop:   make(chan struct{}),
	}

	if session != "" {
		payload, _ := json.Marshal(map[string]string{"session": session})
		if err := feed.write(payload); err != nil {
			conn.Close()
			return nil, fmt.Errorf("dialDatafeed: failed to send session: %w", err)
		}
	}

	feed.readerWg.Add(1)
	go feed.listen()
	go feed.keepalive()

	return feed, nil
}

func (f *datafeed) subscribe(conID int, fields []eventmodels.MarketDataField) error {
	payload, err := subscribeMessage(conID, fields)
	if err != nil {
		return fmt.Errorf("datafeed.subscribe: failed to encode fields: %w", err)
	}

	if err := f.write(payload); err != nil {
		return fmt.Errorf("datafeed.subscribe: conid %d: %w", conID, err)
	}

	return nil
}

func (f *datafeed) unsubscribe(conID int) error {
	if err := f.write(unsubscribeMessage(conID)); err != nil {
		return fmt.Errorf("datafeed.unsubscribe: conid %d: %w", conID, err)
	}

	return nil
}

func (f *datafeed) write(payload []byte) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	return f.conn.WriteMessage(websocket.TextMessage, payload)
}

func (f *datafeed) close() error {
	f.stopOnce.Do(func() {
		close(f.stop)

		f.writeMu.Lock()
		_ = f.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		f.writeMu.Unlock()

		f.closeErr = f.conn.Close()
		f.readerWg.Wait()
	})

	return f.closeErr
}

func (f *datafeed) stopped() bool {
	select {
	case <-f.stop:
		return true
	default:
		return false
	}
}

func (f *datafeed) keepalive() {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.stop:
			return
		case <-ticker.C:
			if err := f.write([]byte("tic")); err != nil {
				f.logger.Warnf("datafeed keepalive failed: %v", err)
				return
			}
		}
	}
}

func (f *datafeed) listen() {
	defer f.readerWg.Done()

	for {
		_, message, err := f.conn.ReadMessage()
		if err != nil {
			if !f.stopped() {
				f.logger.Errorf("datafeed: read failed, market data stopped: %v", err)
			}
			return
		}

		f.handleMessage(message)
	}
}

func (f *datafeed) handleMessage(message []byte) {
	var msg map[string]interface{}
	if err := json.Unmarshal(message, &msg); err != nil {
		f.logger.Debugf("datafeed: discarding non-json message: %s", message)
		return
	}

	topic, _ := msg["topic"].(string)
	switch {
	case topic == "":
		f.logger.Debugf("datafeed: discarding message without topic: %s", message)
	case topic == "smd":
		var smdErr smdErrorMessage
		if err := json.Unmarshal(message, &smdErr); err != nil {
			f.logger.Errorf("datafeed: failed to decode smd error: %v", err)
			return
		}
		f.logger.Warnf("datafeed: smd code %d: %s", smdErr.Code, smdErr.Error)
	case strings.HasPrefix(topic, "smd+"):
		update, err := decodeMarketDataUpdate(topic, msg, time.Now())
		if err != nil {
			f.logger.Warnf("datafeed: %v", err)
			return
		}
		updateTopic := marketDataTopic(update.ConID)
		if !f.bus.HasSubscribers(updateTopic) {
			f.logger.Debugf("datafeed: no ticker for conid %d, dropping update", update.ConID)
			return
		}
		f.bus.Publish(updateTopic, update)
	case topic == "system", topic == "sts", topic == "tic", topic == "act", topic == "blt":
		return
	default:
		f.logger.Debugf("datafeed: ignoring topic %s", topic)
	}
}

// decodeMarketDataUpdate keeps the numeric field ids of an smd message and
// drops metadata keys such as conid, server_id and _updated.
func decodeMarketDataUpdate(topic string, msg map[string]interface{}, receivedAt time.Time) (MarketDataUpdate, error) {
	conID, err := strconv.Atoi(strings.TrimPrefix(topic, "smd+"))
	if err != nil {
		return MarketDataUpdate{}, fmt.Errorf("decodeMarketDataUpdate: invalid topic %s: %w", topic, err)
	}

	update := MarketDataUpdate{
		ConID:      conID,
		Fields:     make(map[eventmodels.MarketDataField]string),
		ReceivedAt: receivedAt,
	}

	for key, raw := range msg {
		if !isFieldID(key) {
			continue
		}

		value, ok := stringifyFieldValue(raw)
		if !ok {
			continue
		}

		update.Fields[eventmodels.MarketDataField(key)] = value
	}

	return update, nil
}

func isFieldID(key string) bool {
	if key == "" {
		return false
	}

	for _, r := range key {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

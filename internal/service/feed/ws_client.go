package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"OptiFeed/internal/domain/models"
	drepo "OptiFeed/internal/domain/repository"
	applogger "OptiFeed/pkg/logger"
)

// Config holds the upstream feed connection settings.
type Config struct {
	URL            string
	APIKey         string
	ReconnectDelay time.Duration
	PingInterval   time.Duration
}

// WSClient implements a QuoteProvider backed by a quote-stream WebSocket.
// The read loop buffers the latest quote per subscribed instrument; readers
// get the buffered state and never touch the connection.
type WSClient struct {
	cfg Config
	log *applogger.Logger

	mu          sync.RWMutex
	conn        *websocket.Conn
	connected   bool
	underlyings map[string]models.Quote
	options     map[string]models.OptionRecord
	subs        []subscription

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type subscription struct {
	Type   string  `json:"type"`
	Symbol string  `json:"symbol"`
	Strike float64 `json:"strike,omitempty"`
	Expiry string  `json:"expiry,omitempty"`
	Right  string  `json:"right,omitempty"`
}

// NewWSClient creates a WebSocket quote provider.
func NewWSClient(cfg Config, log *applogger.Logger) *WSClient {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	return &WSClient{
		cfg:         cfg,
		log:         log,
		underlyings: make(map[string]models.Quote),
		options:     make(map[string]models.OptionRecord),
	}
}

// Connect dials the feed and starts the read and ping loops.
func (c *WSClient) Connect(ctx context.Context) error {
	u := c.cfg.URL
	if c.cfg.APIKey != "" {
		u = fmt.Sprintf("%s?token=%s", c.cfg.URL, c.cfg.APIKey)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("feed connect: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.cancel = cancel
	c.mu.Unlock()

	c.wg.Add(2)
	go c.pingLoop(loopCtx)
	go c.readLoop(loopCtx)

	c.log.Info("feed connected", applogger.String("url", c.cfg.URL))
	return nil
}

// SubscribeUnderlying requests the quote stream for one underlying.
func (c *WSClient) SubscribeUnderlying(_ context.Context, symbol string) error {
	return c.subscribe(subscription{Type: "subscribe", Symbol: symbol})
}

// Subscribe requests the quote stream for one option contract.
func (c *WSClient) Subscribe(_ context.Context, contract models.OptionContract) error {
	return c.subscribe(subscription{
		Type:   "subscribe_option",
		Symbol: contract.Symbol,
		Strike: contract.Strike,
		Expiry: contract.Expiry,
		Right:  string(contract.Right),
	})
}

func (c *WSClient) subscribe(sub subscription) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || !c.connected {
		return fmt.Errorf("feed not connected")
	}
	if err := c.conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe %s: %w", sub.Symbol, err)
	}
	c.subs = append(c.subs, sub)
	return nil
}

// UnderlyingQuotes returns a copy of the latest underlying quotes.
func (c *WSClient) UnderlyingQuotes() map[string]models.Quote {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]models.Quote, len(c.underlyings))
	for k, v := range c.underlyings {
		out[k] = v
	}
	return out
}

// OptionQuotes returns a copy of the latest option records.
func (c *WSClient) OptionQuotes() []models.OptionRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.OptionRecord, 0, len(c.options))
	for _, rec := range c.options {
		out = append(out, rec)
	}
	return out
}

// Close stops the loops and closes the connection.
func (c *WSClient) Close() error {
	c.mu.Lock()
	c.connected = false
	cancel := c.cancel
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var err error
	if conn != nil {
		err = conn.Close()
	}
	c.wg.Wait()
	return err
}

func (c *WSClient) pingLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.RLock()
			conn := c.conn
			c.mu.RUnlock()
			if conn != nil {
				_ = conn.WriteMessage(websocket.PingMessage, nil)
			}
		}
	}
}

type quoteFrame struct {
	Type         string   `json:"type"`
	Symbol       string   `json:"symbol"`
	Bid          float64  `json:"bid"`
	Ask          float64  `json:"ask"`
	Last         float64  `json:"last"`
	BidSize      int64    `json:"bid_size"`
	AskSize      int64    `json:"ask_size"`
	LastSize     int64    `json:"last_size"`
	Volume       int64    `json:"volume"`
	OpenInterest int64    `json:"open_interest"`
	Strike       float64  `json:"strike"`
	Expiry       string   `json:"expiry"`
	Right        string   `json:"right"`
	ImpliedVol   *float64 `json:"iv,omitempty"`
	Delta        *float64 `json:"delta,omitempty"`
	TsMillis     int64    `json:"ts"`
}

func (c *WSClient) readLoop(ctx context.Context) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			return
		}

		_, b, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("feed read error, reconnecting", applogger.Error(err))
			if rerr := c.reconnect(ctx); rerr != nil {
				c.log.Error("feed reconnect failed", applogger.Error(rerr))
				return
			}
			continue
		}

		var frame quoteFrame
		if err := json.Unmarshal(b, &frame); err != nil {
			// ignore non-quote frames
			continue
		}
		c.apply(frame)
	}
}

func (c *WSClient) apply(frame quoteFrame) {
	ts := time.UnixMilli(frame.TsMillis)

	c.mu.Lock()
	defer c.mu.Unlock()

	switch frame.Type {
	case "quote":
		c.underlyings[frame.Symbol] = models.Quote{
			Symbol:    frame.Symbol,
			Bid:       frame.Bid,
			Ask:       frame.Ask,
			Last:      frame.Last,
			BidSize:   frame.BidSize,
			AskSize:   frame.AskSize,
			Timestamp: ts,
		}
	case "option":
		rec := models.OptionRecord{
			OptionContract: models.OptionContract{
				Symbol: frame.Symbol,
				Strike: frame.Strike,
				Expiry: frame.Expiry,
				Right:  models.OptionRight(frame.Right),
			},
			Bid:          frame.Bid,
			Ask:          frame.Ask,
			Last:         frame.Last,
			BidSize:      frame.BidSize,
			AskSize:      frame.AskSize,
			LastSize:     frame.LastSize,
			Volume:       frame.Volume,
			OpenInterest: frame.OpenInterest,
			Timestamp:    ts,
		}
		rec.ImpliedVol = frame.ImpliedVol
		rec.Delta = frame.Delta
		c.options[rec.Key()] = rec
	}
}

// reconnect redials and replays every recorded subscription.
func (c *WSClient) reconnect(ctx context.Context) error {
	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	subs := append([]subscription(nil), c.subs...)
	delay := c.cfg.ReconnectDelay
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
	}

	u := c.cfg.URL
	if c.cfg.APIKey != "" {
		u = fmt.Sprintf("%s?token=%s", c.cfg.URL, c.cfg.APIKey)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("feed redial: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	for _, sub := range subs {
		c.mu.Lock()
		err := conn.WriteJSON(sub)
		c.mu.Unlock()
		if err != nil {
			return fmt.Errorf("resubscribe %s: %w", sub.Symbol, err)
		}
	}
	c.log.Info("feed reconnected", applogger.Int("subscriptions", len(subs)))
	return nil
}

var _ drepo.QuoteProvider = (*WSClient)(nil)

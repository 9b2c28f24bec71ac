package polymarket

// feed.go implements ports.ActivityFeed (C7's realtime leg): one websocket
// subscription to Polymarket's public real-time activity stream, filtered
// to the configured target wallets.
//
// Reconnects with exponential backoff (1s -> 30s cap), pings every 50s, and
// treats 90s of silence as a dead connection.

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mdelgado/polycopy/internal/domain"
)

const (
	defaultActivityWSURL = "wss://ws-live-data.polymarket.com/"

	feedPingInterval     = 50 * time.Second
	feedReadTimeout      = 90 * time.Second
	feedMaxReconnectWait = 30 * time.Second
	feedWriteTimeout     = 10 * time.Second
	feedBufferSize       = 256
)

type activityWireEvent struct {
	EventType    string      `json:"event_type"`
	ProxyWallet  string      `json:"proxyWallet"`
	Timestamp    json.Number `json:"timestamp"`
	ConditionID  string      `json:"conditionId"`
	Type         string      `json:"type"`
	Size         json.Number `json:"size"`
	TransactionHash string   `json:"transactionHash"`
	Price        json.Number `json:"price"`
	Asset        string      `json:"asset"`
	Side         string      `json:"side"`
	OutcomeIndex int         `json:"outcomeIndex"`
	Slug         string      `json:"slug"`
	Outcome      string      `json:"outcome"`
}

type feedSubscribeMsg struct {
	Type    string   `json:"type"`
	Wallets []string `json:"wallets"`
}

// ActivityFeed subscribes to the public activity stream for a fixed set of
// target wallets and republishes them as domain.ActivityEvent.
type ActivityFeed struct {
	url     string
	targets []string

	connMu sync.Mutex
	conn   *websocket.Conn

	connectedMu sync.RWMutex
	connected   bool

	events chan domain.ActivityEvent
}

// NewActivityFeed builds a feed over targets. An empty url selects production.
func NewActivityFeed(url string, targets []string) *ActivityFeed {
	if url == "" {
		url = defaultActivityWSURL
	}
	return &ActivityFeed{
		url:     url,
		targets: targets,
		events:  make(chan domain.ActivityEvent, feedBufferSize),
	}
}

// Events returns the channel of activity events. Never closed.
func (f *ActivityFeed) Events() <-chan domain.ActivityEvent { return f.events }

// Connected reports whether the websocket is currently up.
func (f *ActivityFeed) Connected() bool {
	f.connectedMu.RLock()
	defer f.connectedMu.RUnlock()
	return f.connected
}

// Run connects and maintains the subscription with auto-reconnect. Blocks
// until ctx is cancelled.
func (f *ActivityFeed) Run(ctx context.Context) error {
	backoff := time.Second

	for {
		err := f.connectAndRead(ctx)
		f.setConnected(false)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		slog.Warn("activity feed disconnected, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > feedMaxReconnectWait {
			backoff = feedMaxReconnectWait
		}
	}
}

func (f *ActivityFeed) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()

	defer func() {
		f.connMu.Lock()
		conn.Close()
		f.conn = nil
		f.connMu.Unlock()
	}()

	if err := f.writeJSON(feedSubscribeMsg{Type: "activity", Wallets: f.targets}); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	slog.Info("activity feed connected", "targets", len(f.targets))
	f.setConnected(true)

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go f.pingLoop(pingCtx)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn.SetReadDeadline(time.Now().Add(feedReadTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		f.dispatch(msg)
	}
}

func (f *ActivityFeed) dispatch(data []byte) {
	var evt activityWireEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		slog.Debug("ignoring non-json activity feed message", "data", string(data))
		return
	}
	if evt.EventType != "activity" {
		slog.Debug("ignoring activity feed event", "type", evt.EventType)
		return
	}

	price, _ := evt.Price.Float64()
	size, _ := evt.Size.Float64()
	sec, _ := evt.Timestamp.Int64()
	ts := time.Unix(sec, 0).UTC()
	if sec > 1e12 {
		ts = time.UnixMilli(sec).UTC()
	}

	outcome := domain.OutcomeYes
	if evt.OutcomeIndex == 1 || evt.Outcome == "No" {
		outcome = domain.OutcomeNo
	}
	side := domain.SideBuy
	if evt.Side == "SELL" {
		side = domain.SideSell
	}
	activityType := domain.ActivityTrade
	switch evt.Type {
	case "SPLIT":
		activityType = domain.ActivitySplit
	case "MERGE":
		activityType = domain.ActivityMerge
	case "REDEEM":
		activityType = domain.ActivityRedeem
	}

	ae := domain.ActivityEvent{
		TargetWallet: evt.ProxyWallet,
		TradeID:      evt.TransactionHash + ":" + evt.Asset + ":" + evt.Side + ":" + evt.Size.String(),
		Timestamp:    ts,
		TokenID:      evt.Asset,
		ConditionID:  evt.ConditionID,
		MarketSlug:   evt.Slug,
		Outcome:      outcome,
		Side:         side,
		Price:        price,
		SizeShares:   size,
		ActivityType: activityType,
	}

	select {
	case f.events <- ae:
	default:
		slog.Warn("activity feed channel full, dropping event", "wallet", ae.TargetWallet, "tradeId", ae.TradeID)
	}
}

func (f *ActivityFeed) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(feedPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.writeMessage(websocket.TextMessage, []byte("PING")); err != nil {
				slog.Warn("activity feed ping failed", "error", err)
				return
			}
		}
	}
}

func (f *ActivityFeed) writeJSON(v any) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return fmt.Errorf("not connected")
	}
	f.conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
	return f.conn.WriteJSON(v)
}

func (f *ActivityFeed) writeMessage(msgType int, data []byte) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return fmt.Errorf("not connected")
	}
	f.conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout))
	return f.conn.WriteMessage(msgType, data)
}

func (f *ActivityFeed) setConnected(v bool) {
	f.connectedMu.Lock()
	f.connected = v
	f.connectedMu.Unlock()
}

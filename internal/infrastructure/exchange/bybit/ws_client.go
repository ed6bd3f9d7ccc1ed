package bybit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"spreadwatch/internal/domain"
	"spreadwatch/internal/infrastructure/exchange"
)

// TickerFeed 订阅 Bybit ticker 频道，把最新行情写进 cache
type TickerFeed struct {
	wsURL string // e.g. wss://stream.bybit.com/v5/public/linear
	cache *exchange.TickerCache
}

func NewTickerFeed(wsURL string, cache *exchange.TickerCache) *TickerFeed {
	return &TickerFeed{
		wsURL: strings.TrimSpace(wsURL),
		cache: cache,
	}
}

func (f *TickerFeed) Name() string { return "bybit" }

type bybitSubReq struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}

type bybitTickerItem struct {
	Symbol    string `json:"symbol"`
	Bid1Price string `json:"bid1Price"`
	Ask1Price string `json:"ask1Price"`
	MarkPrice string `json:"markPrice"`
}

// data can be object OR array
type bybitDataList []bybitTickerItem

func (d *bybitDataList) UnmarshalJSON(b []byte) error {
	b = bytesTrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*d = nil
		return nil
	}
	switch b[0] {
	case '[':
		var arr []bybitTickerItem
		if err := json.Unmarshal(b, &arr); err != nil {
			return err
		}
		*d = arr
		return nil
	case '{':
		var one bybitTickerItem
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*d = bybitDataList{one}
		return nil
	default:
		return fmt.Errorf("unexpected data json: %s", string(b))
	}
}

func bytesTrimSpace(b []byte) []byte {
	i := 0
	j := len(b) - 1
	for i <= j && (b[i] == ' ' || b[i] == '\n' || b[i] == '\r' || b[i] == '\t') {
		i++
	}
	for j >= i && (b[j] == ' ' || b[j] == '\n' || b[j] == '\r' || b[j] == '\t') {
		j--
	}
	if i > j {
		return []byte{}
	}
	return b[i : j+1]
}

type bybitTickerMsg struct {
	Topic string        `json:"topic"`
	Type  string        `json:"type"`
	Ts    int64         `json:"ts"`
	Data  bybitDataList `json:"data"`

	Success *bool  `json:"success,omitempty"`
	RetMsg  string `json:"ret_msg,omitempty"`
	Op      string `json:"op,omitempty"`
}

// Start 校验参数后启动后台订阅循环
func (f *TickerFeed) Start(ctx context.Context, instruments []string) error {
	if f.wsURL == "" {
		return errors.New("bybit ws_url empty")
	}

	topics := make([]string, 0, len(instruments))
	for _, inst := range instruments {
		inst = strings.ToUpper(strings.TrimSpace(inst))
		if inst == "" {
			continue
		}
		topics = append(topics, "tickers."+inst)
	}
	if len(topics) == 0 {
		return errors.New("no valid symbols for bybit topics")
	}

	go f.run(ctx, topics)
	return nil
}

func (f *TickerFeed) run(ctx context.Context, topics []string) {
	backoff := 500 * time.Millisecond
	maxBackoff := 10 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		log.Warn().Str("feed", f.Name()).Str("url", f.wsURL).Msg("ws connecting")
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		conn, _, err := websocket.DefaultDialer.DialContext(cctx, f.wsURL, nil)
		cancel()
		if err != nil {
			log.Error().Str("feed", f.Name()).Err(err).Msg("ws dial failed")
			time.Sleep(backoff)
			backoff = exchange.MinDuration(backoff*2, maxBackoff)
			continue
		}

		// subscribe
		sub := bybitSubReq{Op: "subscribe", Args: topics}
		if err := conn.WriteJSON(sub); err != nil {
			_ = conn.Close()
			log.Error().Str("feed", f.Name()).Err(err).Msg("subscribe failed")
			time.Sleep(backoff)
			backoff = exchange.MinDuration(backoff*2, maxBackoff)
			continue
		}

		backoff = 500 * time.Millisecond
		log.Info().Str("feed", f.Name()).Msg("ws connected & subscribed")

		err = readLoop(ctx, conn, f.onMessage)

		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}

		log.Warn().Str("feed", f.Name()).Err(err).Msg("ws disconnected, reconnecting")
		time.Sleep(backoff)
		backoff = exchange.MinDuration(backoff*2, maxBackoff)
	}
}

func (f *TickerFeed) onMessage(b []byte) {
	var msg bybitTickerMsg
	if err := json.Unmarshal(b, &msg); err != nil {
		log.Error().Str("feed", f.Name()).Err(err).Msg("json unmarshal failed")
		return
	}

	// ack
	if msg.Success != nil {
		if !*msg.Success {
			log.Error().Str("feed", f.Name()).Str("ret_msg", msg.RetMsg).Msg("subscribe not success")
		}
		return
	}

	if len(msg.Data) == 0 {
		return
	}

	observed := time.Now()
	if msg.Ts > 0 {
		observed = time.UnixMilli(msg.Ts)
	}

	for _, d := range msg.Data {
		snap := domain.PriceSnapshot{
			Instrument: strings.ToUpper(strings.TrimSpace(d.Symbol)),
			ObservedAt: observed,
		}
		// delta messages omit unchanged fields, the cache carries them forward
		if v, err := exchange.ParsePrice(d.Bid1Price); err == nil {
			snap.Bid = v
		}
		if v, err := exchange.ParsePrice(d.Ask1Price); err == nil {
			snap.Ask = v
		}
		if v, err := exchange.ParsePrice(d.MarkPrice); err == nil {
			snap.Mark = v
		}
		if snap.Bid == 0 && snap.Ask == 0 && snap.Mark == 0 {
			continue
		}
		f.cache.Apply(snap)
	}
}

func readLoop(ctx context.Context, conn *websocket.Conn, onMsg func([]byte)) error {
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	pingTicker := time.NewTicker(25 * time.Second)
	defer pingTicker.Stop()

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		for {
			_, b, err := conn.ReadMessage()
			if err == nil {
				_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			}
			if err != nil {
				errCh <- err
				return
			}
			onMsg(b)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-pingTicker.C:
			_ = conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
		}
	}
}

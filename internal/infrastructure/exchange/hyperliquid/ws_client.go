package hyperliquid

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"spreadwatch/internal/domain"
	"spreadwatch/internal/infrastructure/exchange"
)

// MidsFeed 订阅 Hyperliquid allMids 频道，把中间价写进 cache
// allMids 推送不带盘口, 快照只有 Mark 一个字段
type MidsFeed struct {
	wsURL     string
	cache     *exchange.TickerCache
	converter *Converter

	// 原生币名 -> 通用交易对, Start 时生成, 之后只读
	wanted map[string]string
}

func NewMidsFeed(wsURL string, cache *exchange.TickerCache) *MidsFeed {
	return &MidsFeed{
		wsURL:     wsURL,
		cache:     cache,
		converter: NewConverter(),
	}
}

func (f *MidsFeed) Name() string { return "hyperliquid" }

type hlSubRequest struct {
	Method       string         `json:"method"`
	Subscription hlSubscription `json:"subscription"`
}

type hlSubscription struct {
	Type string `json:"type"`
}

// hlPing 应用层心跳, Hyperliquid 不认 ws control frame
type hlPing struct {
	Method string `json:"method"`
}

type hlMessage struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type hlAllMids struct {
	Mids map[string]string `json:"mids"`
}

func (f *MidsFeed) Start(ctx context.Context, instruments []string) error {
	if f.wsURL == "" {
		return errors.New("hyperliquid ws_url empty")
	}

	wanted := make(map[string]string, len(instruments))
	for _, inst := range instruments {
		inst = strings.ToUpper(strings.TrimSpace(inst))
		if inst == "" {
			continue
		}
		wanted[f.converter.Common2Native(inst)] = inst
	}
	if len(wanted) == 0 {
		return errors.New("no valid coins for hyperliquid mids")
	}
	f.wanted = wanted

	go f.run(ctx)
	return nil
}

func (f *MidsFeed) run(ctx context.Context) {
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
		sub := hlSubRequest{Method: "subscribe", Subscription: hlSubscription{Type: "allMids"}}
		if err := conn.WriteJSON(sub); err != nil {
			_ = conn.Close()
			log.Error().Str("feed", f.Name()).Err(err).Msg("subscribe failed")
			time.Sleep(backoff)
			backoff = exchange.MinDuration(backoff*2, maxBackoff)
			continue
		}

		backoff = 500 * time.Millisecond
		log.Info().Str("feed", f.Name()).Msg("ws connected & subscribed")

		err = f.readLoop(ctx, conn)

		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}

		log.Warn().Str("feed", f.Name()).Err(err).Msg("ws disconnected, reconnecting")
		time.Sleep(backoff)
		backoff = exchange.MinDuration(backoff*2, maxBackoff)
	}
}

func (f *MidsFeed) onMessage(b []byte) {
	var msg hlMessage
	if err := json.Unmarshal(b, &msg); err != nil {
		log.Error().Str("feed", f.Name()).Err(err).Msg("json unmarshal failed")
		return
	}

	switch msg.Channel {
	case "allMids":
	case "subscriptionResponse", "pong":
		return
	default:
		return
	}

	var payload hlAllMids
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		log.Error().Str("feed", f.Name()).Err(err).Msg("mids unmarshal failed")
		return
	}

	now := time.Now()
	for coin, raw := range payload.Mids {
		// @ 开头的是现货指数, 跳过
		if strings.HasPrefix(coin, "@") {
			continue
		}
		inst, ok := f.wanted[coin]
		if !ok {
			continue
		}
		mid, err := exchange.ParsePrice(raw)
		if err != nil {
			continue
		}
		f.cache.Apply(domain.PriceSnapshot{
			Venue:      domain.VenueHyperliquid,
			Instrument: inst,
			Mark:       mid,
			ObservedAt: now,
		})
	}
}

// readLoop 与 bybit 的区别: 心跳是 {"method":"ping"} JSON 消息
// 服务端回 {"channel":"pong"}, 走普通读路径刷新 deadline
func (f *MidsFeed) readLoop(ctx context.Context, conn *websocket.Conn) error {
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

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
			f.onMessage(b)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-pingTicker.C:
			if err := conn.WriteJSON(hlPing{Method: "ping"}); err != nil {
				return err
			}
		}
	}
}

// Package hyperliquid Hyperliquid 行情适配器
// 公共数据全部走 POST /info, 请求体携带查询类型
package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain"
	"spreadwatch/internal/infrastructure/exchange"
)

const (
	defaultBaseURL = "https://api.hyperliquid.xyz"
	maxBodyBytes   = 1 << 20
)

// Client Hyperliquid REST 客户端
// /info 是公开接口, 不需要签名
type Client struct {
	baseURL    string
	httpClient *http.Client
	guard      *exchange.Guard
	converter  *Converter
}

// NewClient 创建 Hyperliquid REST 客户端
func NewClient(baseURL string, guard *exchange.Guard) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		guard:      guard,
		converter:  NewConverter(),
	}
}

// Venue 返回所属交易所
func (c *Client) Venue() domain.Venue {
	return domain.VenueHyperliquid
}

type infoRequest struct {
	Type string `json:"type"`
	Coin string `json:"coin,omitempty"`
}

type bookLevel struct {
	Px string `json:"px"`
	Sz string `json:"sz"`
	N  int    `json:"n"`
}

// l2BookResp 盘口响应
// levels[0] 买盘, levels[1] 卖盘, 各自按价格优先排序
type l2BookResp struct {
	Coin   string        `json:"coin"`
	Time   int64         `json:"time"`
	Levels [][]bookLevel `json:"levels"`
}

type metaResp struct {
	Universe []struct {
		Name       string `json:"name"`
		IsDelisted bool   `json:"isDelisted,omitempty"`
	} `json:"universe"`
}

// Fetch 拉取一档盘口并组装快照
func (c *Client) Fetch(ctx context.Context, instrument string) (domain.PriceSnapshot, error) {
	var snap domain.PriceSnapshot
	err := c.guard.Do(ctx, func() error {
		var ferr error
		snap, ferr = c.fetchBook(ctx, instrument)
		return ferr
	})
	if err != nil {
		return domain.PriceSnapshot{}, exchange.Classify(domain.VenueHyperliquid, err)
	}
	return snap, nil
}

func (c *Client) fetchBook(ctx context.Context, instrument string) (domain.PriceSnapshot, error) {
	instrument = strings.ToUpper(strings.TrimSpace(instrument))
	coin := c.converter.Common2Native(instrument)

	body, err := c.postInfo(ctx, infoRequest{Type: "l2Book", Coin: coin})
	if err != nil {
		return domain.PriceSnapshot{}, err
	}

	var resp l2BookResp
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.PriceSnapshot{}, c.malformed(fmt.Errorf("parse l2Book response: %w", err))
	}
	if len(resp.Levels) < 2 || len(resp.Levels[0]) == 0 || len(resp.Levels[1]) == 0 {
		return domain.PriceSnapshot{}, c.malformed(fmt.Errorf("empty book for coin %s", coin))
	}

	bid, err := exchange.ParsePrice(resp.Levels[0][0].Px)
	if err != nil {
		return domain.PriceSnapshot{}, c.malformed(fmt.Errorf("bid for %s: %w", coin, err))
	}
	ask, err := exchange.ParsePrice(resp.Levels[1][0].Px)
	if err != nil {
		return domain.PriceSnapshot{}, c.malformed(fmt.Errorf("ask for %s: %w", coin, err))
	}
	if bid > ask {
		return domain.PriceSnapshot{}, c.malformed(fmt.Errorf("crossed book for %s: bid %s > ask %s", coin, resp.Levels[0][0].Px, resp.Levels[1][0].Px))
	}

	observed := time.Now()
	if resp.Time > 0 {
		observed = time.UnixMilli(resp.Time)
	}

	return domain.PriceSnapshot{
		Venue:      domain.VenueHyperliquid,
		Instrument: instrument,
		Bid:        bid,
		Ask:        ask,
		ObservedAt: observed,
	}, nil
}

// ListInstruments 从永续元数据列出在线币种, 换算成通用交易对
func (c *Client) ListInstruments(ctx context.Context) ([]string, error) {
	var out []string
	err := c.guard.Do(ctx, func() error {
		body, err := c.postInfo(ctx, infoRequest{Type: "meta"})
		if err != nil {
			return err
		}

		var resp metaResp
		if err := json.Unmarshal(body, &resp); err != nil {
			return c.malformed(fmt.Errorf("parse meta response: %w", err))
		}

		out = out[:0]
		for _, asset := range resp.Universe {
			if asset.IsDelisted || asset.Name == "" {
				continue
			}
			out = append(out, c.converter.Native2Common(asset.Name))
		}
		return nil
	})
	if err != nil {
		return nil, exchange.Classify(domain.VenueHyperliquid, err)
	}
	return out, nil
}

func (c *Client) postInfo(ctx context.Context, reqBody infoRequest) ([]byte, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal info request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/info", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build info request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", reqBody.Type, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", reqBody.Type, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &port.FetchError{
			Venue: domain.VenueHyperliquid,
			Kind:  exchange.KindForStatus(resp.StatusCode),
			Err:   fmt.Errorf("hyperliquid http %d: %s", resp.StatusCode, truncateBody(body)),
		}
	}
	return body, nil
}

func (c *Client) malformed(err error) error {
	return &port.FetchError{Venue: domain.VenueHyperliquid, Kind: port.FetchMalformed, Err: err}
}

func truncateBody(b []byte) string {
	const limit = 256
	if len(b) <= limit {
		return string(b)
	}
	return string(b[:limit]) + "..."
}

var (
	_ port.PriceSource      = (*Client)(nil)
	_ port.InstrumentLister = (*Client)(nil)
)

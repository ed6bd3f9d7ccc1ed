package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain"
	"spreadwatch/internal/infrastructure/exchange"
)

// Client Bybit V5 行情 REST 客户端
type Client struct {
	baseURL     string
	credentials *Credentials
	httpClient  *http.Client
	guard       *exchange.Guard
}

// NewClient 创建 Bybit REST 客户端
// 公共行情接口不需要凭证，配置了 key 时请求会带上 V5 签名头
func NewClient(baseURL, apiKey, apiSecret string, guard *exchange.Guard) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://api.bybit.com"
	}
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		guard: guard,
	}
	if apiKey != "" && apiSecret != "" {
		c.credentials = NewCredentials(apiKey, apiSecret)
	}
	return c
}

func (c *Client) Venue() domain.Venue { return domain.VenueBybit }

type tickersResp struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		Category string `json:"category"`
		List     []struct {
			Symbol    string `json:"symbol"`
			Bid1Price string `json:"bid1Price"`
			Ask1Price string `json:"ask1Price"`
			MarkPrice string `json:"markPrice"`
			LastPrice string `json:"lastPrice"`
		} `json:"list"`
	} `json:"result"`
	Time int64 `json:"time"`
}

// Fetch 获取单个合约的最新行情
func (c *Client) Fetch(ctx context.Context, instrument string) (domain.PriceSnapshot, error) {
	var snap domain.PriceSnapshot
	err := c.guard.Do(ctx, func() error {
		s, err := c.fetchTicker(ctx, instrument)
		if err != nil {
			return err
		}
		snap = s
		return nil
	})
	if err != nil {
		return domain.PriceSnapshot{}, exchange.Classify(domain.VenueBybit, err)
	}
	return snap, nil
}

func (c *Client) fetchTicker(ctx context.Context, instrument string) (domain.PriceSnapshot, error) {
	params := url.Values{}
	params.Set("category", "linear")
	params.Set("symbol", strings.ToUpper(strings.TrimSpace(instrument)))

	body, err := c.getJSON(ctx, "/v5/market/tickers", params)
	if err != nil {
		return domain.PriceSnapshot{}, err
	}

	var resp tickersResp
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.PriceSnapshot{}, malformed(fmt.Errorf("decode tickers: %w", err))
	}
	if resp.RetCode != 0 {
		return domain.PriceSnapshot{}, apiError(resp.RetCode, resp.RetMsg)
	}
	if len(resp.Result.List) == 0 {
		return domain.PriceSnapshot{}, malformed(fmt.Errorf("no ticker for %s", instrument))
	}

	t := resp.Result.List[0]
	bid, err := exchange.ParsePrice(t.Bid1Price)
	if err != nil {
		return domain.PriceSnapshot{}, malformed(fmt.Errorf("bid1Price: %w", err))
	}
	ask, err := exchange.ParsePrice(t.Ask1Price)
	if err != nil {
		return domain.PriceSnapshot{}, malformed(fmt.Errorf("ask1Price: %w", err))
	}
	if bid > ask {
		return domain.PriceSnapshot{}, malformed(fmt.Errorf("crossed book: bid %s over ask %s", t.Bid1Price, t.Ask1Price))
	}
	mark, _ := exchange.ParsePrice(t.MarkPrice)

	observed := time.Now()
	if resp.Time > 0 {
		observed = time.UnixMilli(resp.Time)
	}
	return domain.PriceSnapshot{
		Venue:      domain.VenueBybit,
		Instrument: strings.ToUpper(t.Symbol),
		Bid:        bid,
		Ask:        ask,
		Mark:       mark,
		ObservedAt: observed,
	}, nil
}

type instrumentsResp struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		Category       string `json:"category"`
		NextPageCursor string `json:"nextPageCursor"`
		List           []struct {
			Symbol    string `json:"symbol"`
			Status    string `json:"status"`
			QuoteCoin string `json:"quoteCoin"`
		} `json:"list"`
	} `json:"result"`
}

// ListInstruments 翻页拉取全部可交易的 USDT 永续合约
func (c *Client) ListInstruments(ctx context.Context) ([]string, error) {
	var out []string
	cursor := ""
	for {
		var page []string
		var next string
		err := c.guard.Do(ctx, func() error {
			p, n, err := c.fetchInstrumentPage(ctx, cursor)
			if err != nil {
				return err
			}
			page, next = p, n
			return nil
		})
		if err != nil {
			return nil, exchange.Classify(domain.VenueBybit, err)
		}
		out = append(out, page...)
		if next == "" {
			return out, nil
		}
		cursor = next
	}
}

func (c *Client) fetchInstrumentPage(ctx context.Context, cursor string) ([]string, string, error) {
	params := url.Values{}
	params.Set("category", "linear")
	params.Set("status", "Trading")
	params.Set("limit", "1000")
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	body, err := c.getJSON(ctx, "/v5/market/instruments-info", params)
	if err != nil {
		return nil, "", err
	}

	var resp instrumentsResp
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, "", malformed(fmt.Errorf("decode instruments: %w", err))
	}
	if resp.RetCode != 0 {
		return nil, "", apiError(resp.RetCode, resp.RetMsg)
	}

	out := make([]string, 0, len(resp.Result.List))
	for _, it := range resp.Result.List {
		if it.QuoteCoin != "USDT" {
			continue
		}
		out = append(out, strings.ToUpper(it.Symbol))
	}
	return out, resp.Result.NextPageCursor, nil
}

func malformed(err error) error {
	return &port.FetchError{Venue: domain.VenueBybit, Kind: port.FetchMalformed, Err: err}
}

// apiError Bybit 业务错误靠 retCode 区分，HTTP 状态码通常还是 200
func apiError(code int, msg string) error {
	kind := port.FetchMalformed
	switch code {
	case 10003, 10004, 10005, 33004:
		kind = port.FetchAuth
	case 10006, 10018:
		kind = port.FetchRateLimited
	}
	return &port.FetchError{
		Venue: domain.VenueBybit,
		Kind:  kind,
		Err:   fmt.Errorf("bybit retCode %d: %s", code, msg),
	}
}

var (
	_ port.PriceSource      = (*Client)(nil)
	_ port.InstrumentLister = (*Client)(nil)
)

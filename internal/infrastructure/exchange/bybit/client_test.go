package bybit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain"
	"spreadwatch/internal/infrastructure/exchange"
)

func testGuard() *exchange.Guard {
	return exchange.NewGuard("bybit-test", 1000, 100)
}

const tickerPayload = `{
  "retCode": 0,
  "retMsg": "OK",
  "result": {
    "category": "linear",
    "list": [
      {
        "symbol": "BTCUSDT",
        "lastPrice": "43250.30",
        "bid1Price": "43250.10",
        "ask1Price": "43250.60",
        "markPrice": "43251.00"
      }
    ]
  },
  "time": 1717243500123
}`

func TestFetchParsesTicker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v5/market/tickers" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "BTCUSDT" {
			t.Errorf("symbol = %s", got)
		}
		if got := r.URL.Query().Get("category"); got != "linear" {
			t.Errorf("category = %s", got)
		}
		w.Write([]byte(tickerPayload))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "", testGuard())
	snap, err := c.Fetch(context.Background(), "btcusdt")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if snap.Venue != domain.VenueBybit || snap.Instrument != "BTCUSDT" {
		t.Errorf("identity = %s/%s", snap.Venue, snap.Instrument)
	}
	if snap.Bid != 43250.10 || snap.Ask != 43250.60 || snap.Mark != 43251.00 {
		t.Errorf("prices = %v/%v/%v", snap.Bid, snap.Ask, snap.Mark)
	}
	if snap.ObservedAt.UnixMilli() != 1717243500123 {
		t.Errorf("ObservedAt = %v, want envelope time", snap.ObservedAt)
	}
}

func TestFetchMapsAuthRetCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"retCode":10003,"retMsg":"API key is invalid.","result":{}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "", testGuard())
	_, err := c.Fetch(context.Background(), "BTCUSDT")

	var fe *port.FetchError
	if !errors.As(err, &fe) || fe.Kind != port.FetchAuth {
		t.Errorf("error = %v, want auth classification", err)
	}
}

func TestFetchMapsHTTPStatus(t *testing.T) {
	cases := []struct {
		status int
		want   port.FetchKind
	}{
		{http.StatusTooManyRequests, port.FetchRateLimited},
		{http.StatusForbidden, port.FetchAuth},
		{http.StatusBadGateway, port.FetchMalformed},
	}

	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		c := NewClient(srv.URL, "", "", testGuard())
		_, err := c.Fetch(context.Background(), "BTCUSDT")
		srv.Close()

		var fe *port.FetchError
		if !errors.As(err, &fe) || fe.Kind != tc.want {
			t.Errorf("status %d: error = %v, want kind %s", tc.status, err, tc.want)
		}
	}
}

func TestFetchRejectsBadBook(t *testing.T) {
	payloads := map[string]string{
		"crossed book": `{"retCode":0,"retMsg":"OK","result":{"list":[{"symbol":"BTCUSDT","bid1Price":"43251.00","ask1Price":"43250.00","markPrice":"43250.50"}]},"time":1717243500123}`,
		"zero bid":     `{"retCode":0,"retMsg":"OK","result":{"list":[{"symbol":"BTCUSDT","bid1Price":"0","ask1Price":"43250.00","markPrice":"43250.50"}]},"time":1717243500123}`,
		"empty list":   `{"retCode":0,"retMsg":"OK","result":{"list":[]},"time":1717243500123}`,
	}

	for name, payload := range payloads {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(payload))
		}))
		c := NewClient(srv.URL, "", "", testGuard())
		_, err := c.Fetch(context.Background(), "BTCUSDT")
		srv.Close()

		var fe *port.FetchError
		if !errors.As(err, &fe) || fe.Kind != port.FetchMalformed {
			t.Errorf("%s: error = %v, want malformed", name, err)
		}
	}
}

func TestFetchSignsWhenCredentialsSet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-BAPI-API-KEY") != "key-1" {
			t.Error("api key header missing")
		}
		if r.Header.Get("X-BAPI-SIGN") == "" || r.Header.Get("X-BAPI-TIMESTAMP") == "" {
			t.Error("signature headers missing")
		}
		w.Write([]byte(tickerPayload))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key-1", "secret-1", testGuard())
	if _, err := c.Fetch(context.Background(), "BTCUSDT"); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
}

func TestListInstrumentsPaginates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v5/market/instruments-info" {
			t.Errorf("path = %s", r.URL.Path)
		}
		switch r.URL.Query().Get("cursor") {
		case "":
			w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"nextPageCursor":"page-2","list":[
				{"symbol":"BTCUSDT","status":"Trading","quoteCoin":"USDT"},
				{"symbol":"ETHUSDT","status":"Trading","quoteCoin":"USDT"},
				{"symbol":"BTCPERP","status":"Trading","quoteCoin":"USDC"}]}}`))
		case "page-2":
			w.Write([]byte(`{"retCode":0,"retMsg":"OK","result":{"nextPageCursor":"","list":[
				{"symbol":"SOLUSDT","status":"Trading","quoteCoin":"USDT"}]}}`))
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("cursor"))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "", testGuard())
	got, err := c.ListInstruments(context.Background())
	if err != nil {
		t.Fatalf("ListInstruments failed: %v", err)
	}
	want := []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("instruments = %v, want %v", got, want)
	}
}

func TestDataListUnmarshal(t *testing.T) {
	var fromObj bybitTickerMsg
	if err := json.Unmarshal([]byte(`{"topic":"tickers.BTCUSDT","ts":1,"data":{"symbol":"BTCUSDT","bid1Price":"1.5"}}`), &fromObj); err != nil {
		t.Fatalf("object data: %v", err)
	}
	if len(fromObj.Data) != 1 || fromObj.Data[0].Symbol != "BTCUSDT" {
		t.Errorf("object data = %+v", fromObj.Data)
	}

	var fromArr bybitTickerMsg
	if err := json.Unmarshal([]byte(`{"topic":"tickers.BTCUSDT","ts":1,"data":[{"symbol":"BTCUSDT"},{"symbol":"ETHUSDT"}]}`), &fromArr); err != nil {
		t.Fatalf("array data: %v", err)
	}
	if len(fromArr.Data) != 2 {
		t.Errorf("array data = %+v", fromArr.Data)
	}

	var fromNull bybitTickerMsg
	if err := json.Unmarshal([]byte(`{"topic":"x","data":null}`), &fromNull); err != nil {
		t.Fatalf("null data: %v", err)
	}
	if fromNull.Data != nil {
		t.Errorf("null data = %+v, want nil", fromNull.Data)
	}
}

func TestTickerFeedAppliesMessages(t *testing.T) {
	cache := exchange.NewTickerCache(domain.VenueBybit)
	feed := NewTickerFeed("wss://stream.bybit.com/v5/public/linear", cache)

	feed.onMessage([]byte(`{"topic":"tickers.BTCUSDT","type":"snapshot","ts":1717243500123,
		"data":{"symbol":"BTCUSDT","bid1Price":"43250.10","ask1Price":"43250.60","markPrice":"43251.00"}}`))

	now := time.UnixMilli(1717243500123)
	snap, ok := cache.Latest("BTCUSDT", now, 20*time.Second)
	if !ok {
		t.Fatal("snapshot tick not cached")
	}
	if snap.Bid != 43250.10 || snap.Ask != 43250.60 {
		t.Errorf("book = %v/%v", snap.Bid, snap.Ask)
	}

	// delta with only a bid: the other sides carry forward
	feed.onMessage([]byte(`{"topic":"tickers.BTCUSDT","type":"delta","ts":1717243501123,
		"data":{"symbol":"BTCUSDT","bid1Price":"43250.20"}}`))

	snap, ok = cache.Latest("BTCUSDT", now.Add(time.Second), 20*time.Second)
	if !ok {
		t.Fatal("delta tick not cached")
	}
	if snap.Bid != 43250.20 || snap.Ask != 43250.60 || snap.Mark != 43251.00 {
		t.Errorf("merged = %+v", snap)
	}

	// subscribe ack must not disturb the cache
	feed.onMessage([]byte(`{"success":true,"ret_msg":"","op":"subscribe"}`))
	if cache.Len() != 1 {
		t.Errorf("cache len = %d after ack, want 1", cache.Len())
	}
}

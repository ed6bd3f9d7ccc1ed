package bybit

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/domain"
	"spreadwatch/internal/infrastructure/exchange"
)

const maxBodyBytes = 1 << 20

// Credentials 包含 API 凭证和签名方法
type Credentials struct {
	apiKey    string
	apiSecret string
}

// NewCredentials 创建凭证对象
func NewCredentials(apiKey, apiSecret string) *Credentials {
	return &Credentials{
		apiKey:    apiKey,
		apiSecret: apiSecret,
	}
}

// Sign 生成 HMAC-SHA256 签名
func (c *Credentials) Sign(data string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// APIKey 返回 API Key
func (c *Credentials) APIKey() string {
	return c.apiKey
}

// getJSON 发送 GET 请求；配置了凭证时附带 V5 签名头
func (c *Client) getJSON(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint, err := exchange.BuildQueryURL(c.baseURL, path, params.Encode())
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if c.credentials != nil {
		c.signRequest(req, params.Encode())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &port.FetchError{
			Venue: domain.VenueBybit,
			Kind:  exchange.KindForStatus(resp.StatusCode),
			Err:   fmt.Errorf("bybit http %d: %s", resp.StatusCode, truncateBody(body)),
		}
	}
	return body, nil
}

// signRequest Bybit V5 signature: timestamp + apiKey + recvWindow + payload
func (c *Client) signRequest(req *http.Request, payload string) {
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	recvWindow := "5000"

	signature := c.credentials.Sign(timestamp + c.credentials.APIKey() + recvWindow + payload)

	req.Header.Set("X-BAPI-API-KEY", c.credentials.APIKey())
	req.Header.Set("X-BAPI-TIMESTAMP", timestamp)
	req.Header.Set("X-BAPI-RECV-WINDOW", recvWindow)
	req.Header.Set("X-BAPI-SIGN", signature)
}

func truncateBody(b []byte) string {
	const max = 256
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}

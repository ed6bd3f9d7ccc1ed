package bybit

import (
	"spreadwatch/internal/domain"
	"spreadwatch/internal/infrastructure/config"
	"spreadwatch/internal/infrastructure/exchange"
	"spreadwatch/internal/infrastructure/pricefeed"
)

// 请求节流参数，贴着 Bybit 公共接口的限速
const (
	requestsPerSec = 10
	requestBurst   = 20
)

// init() automatically registers the Bybit feed builder
// 这样避免了在容器里硬编码 Bybit
func init() {
	pricefeed.Register("bybit", func(vcfg config.VenueConfig, deps pricefeed.BuildDeps) (pricefeed.Feeds, error) {
		guard := exchange.NewGuard("bybit", requestsPerSec, requestBurst)
		client := NewClient(vcfg.RestURL, vcfg.APIKey, vcfg.APISecret, guard)

		feeds := pricefeed.Feeds{Lister: client}
		if vcfg.Feed == "ws" {
			cache := exchange.NewTickerCache(domain.VenueBybit)
			feeds.Feed = NewTickerFeed(vcfg.WsURL, cache)
			feeds.Source = exchange.NewStreamSource(domain.VenueBybit, cache, deps.MaxStaleness)
		} else {
			feeds.Source = client
		}
		return feeds, nil
	})
}

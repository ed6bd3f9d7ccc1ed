package hyperliquid

import (
	"spreadwatch/internal/domain"
	"spreadwatch/internal/infrastructure/config"
	"spreadwatch/internal/infrastructure/exchange"
	"spreadwatch/internal/infrastructure/pricefeed"
)

// /info 接口按 IP 限重, 保守限到每秒 10 次
const (
	requestsPerSec = 10
	requestBurst   = 20
)

func init() {
	pricefeed.Register("hyperliquid", func(vcfg config.VenueConfig, deps pricefeed.BuildDeps) (pricefeed.Feeds, error) {
		guard := exchange.NewGuard("hyperliquid", requestsPerSec, requestBurst)
		client := NewClient(vcfg.RestURL, guard)

		feeds := pricefeed.Feeds{Lister: client}
		if vcfg.Feed == "ws" {
			cache := exchange.NewTickerCache(domain.VenueHyperliquid)
			feeds.Feed = NewMidsFeed(vcfg.WsURL, cache)
			feeds.Source = exchange.NewStreamSource(domain.VenueHyperliquid, cache, deps.MaxStaleness)
		} else {
			feeds.Source = client
		}
		return feeds, nil
	})
}

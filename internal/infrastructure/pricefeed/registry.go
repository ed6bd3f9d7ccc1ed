package pricefeed

import (
	"time"

	"github.com/rs/zerolog/log"

	"spreadwatch/internal/application/port"
	"spreadwatch/internal/infrastructure/config"
)

// BuildDeps 构建价格源时需要的运行参数
type BuildDeps struct {
	MaxStaleness time.Duration
}

// Feeds bundles what one venue contributes: a price source, an instrument
// lister, and (in ws mode) a background stream feed.
type Feeds struct {
	Source port.PriceSource
	Lister port.InstrumentLister
	Feed   port.StreamFeed
}

// Builder 构建某个交易所的价格源组件
type Builder func(vcfg config.VenueConfig, deps BuildDeps) (Feeds, error)

// registry maps venue names to their respective builders
var registry = make(map[string]Builder)

// Register 注册一个venue builder
// 这是由各个交易所包的init()函数调用来自注册的
func Register(venueName string, builder Builder) {
	if builder == nil {
		log.Warn().Str("venue", venueName).Msg("invalid price feed builder")
		return
	}
	if _, exists := registry[venueName]; exists {
		log.Warn().Str("venue", venueName).Msg("price feed builder already registered, overwriting")
	}
	registry[venueName] = builder
	log.Debug().Str("venue", venueName).Msg("price feed builder registered")
}

// Get 获取已注册的builder for给定的venue名称
func Get(venueName string) (Builder, bool) {
	builder, ok := registry[venueName]
	return builder, ok
}

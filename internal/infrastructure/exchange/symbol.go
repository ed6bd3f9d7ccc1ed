package exchange

import (
	"strings"
)

// SymbolConverter 符号转换接口
// 各交易所适配器实现此接口，在交易所原生符号与通用交易对之间转换
type SymbolConverter interface {
	// Native2Common 将交易所原生符号转换为通用交易对
	// 例: BTC -> BTCUSDT, kPEPE -> 1000PEPEUSDT
	Native2Common(native string) string

	// Common2Native 将通用交易对转换为交易所原生符号
	// 例: BTCUSDT -> BTC
	Common2Native(common string) string

	// SymbolSuffix 返回计价后缀
	// 例: USDT, USDC
	SymbolSuffix() string
}

// SuffixConverter 通用符号转换器，仅处理计价后缀
type SuffixConverter struct {
	suffix string
}

// NewSuffixConverter 创建通用符号转换器
func NewSuffixConverter(suffix string) *SuffixConverter {
	return &SuffixConverter{suffix: strings.ToUpper(strings.TrimSpace(suffix))}
}

// SymbolSuffix 返回计价后缀
func (c *SuffixConverter) SymbolSuffix() string {
	return c.suffix
}

// Native2Common 在币种后面补上计价后缀
// 例: BTC -> BTCUSDT, BTCUSDT -> BTCUSDT
func (c *SuffixConverter) Native2Common(native string) string {
	coin := strings.ToUpper(strings.TrimSpace(native))
	if coin == "" {
		return ""
	}
	if strings.HasSuffix(coin, c.suffix) {
		return coin
	}
	return coin + c.suffix
}

// Common2Native 去掉计价后缀，得到币种
// 例: BTCUSDT -> BTC
func (c *SuffixConverter) Common2Native(common string) string {
	sym := strings.ToUpper(strings.TrimSpace(common))
	if sym == "" {
		return ""
	}
	return strings.TrimSuffix(sym, c.suffix)
}

var _ SymbolConverter = (*SuffixConverter)(nil)

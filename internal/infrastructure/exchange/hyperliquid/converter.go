package hyperliquid

import (
	"strings"

	"spreadwatch/internal/infrastructure/exchange"
)

// Converter Hyperliquid 符号转换器
// 原生符号是裸币名 (BTC), 千倍梗币带小写 k 前缀
// 例: kPEPE <-> 1000PEPEUSDT
type Converter struct {
	suffix *exchange.SuffixConverter
}

// NewConverter 创建 Hyperliquid 符号转换器
func NewConverter() *Converter {
	return &Converter{suffix: exchange.NewSuffixConverter("USDT")}
}

// SymbolSuffix 返回计价后缀
func (c *Converter) SymbolSuffix() string {
	return c.suffix.SymbolSuffix()
}

// Native2Common 原生币名转通用交易对
// k 前缀要在大写化之前展开, 否则丢失
func (c *Converter) Native2Common(native string) string {
	coin := strings.TrimSpace(native)
	if strings.HasPrefix(coin, "k") {
		coin = "1000" + coin[1:]
	}
	return c.suffix.Native2Common(coin)
}

// Common2Native 通用交易对转原生币名
func (c *Converter) Common2Native(common string) string {
	coin := c.suffix.Common2Native(common)
	if rest := strings.TrimPrefix(coin, "1000"); rest != coin && rest != "" {
		return "k" + rest
	}
	return coin
}

var _ exchange.SymbolConverter = (*Converter)(nil)

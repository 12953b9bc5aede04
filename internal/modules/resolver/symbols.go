package resolver

// coinIDBySymbol maps common ticker symbols to the market-data provider's
// canonical coin ids. Identifiers already given as coin ids pass through
// CoinID unchanged.
//
// Precious metals are proxied by tokenized assets (gold via PAX Gold,
// silver via Kinesis Silver). Token prices track spot closely but carry a
// small premium, so metal valuations are an approximation.
var coinIDBySymbol = map[string]string{
	"btc":   "bitcoin",
	"eth":   "ethereum",
	"sol":   "solana",
	"ada":   "cardano",
	"xrp":   "ripple",
	"doge":  "dogecoin",
	"dot":   "polkadot",
	"ltc":   "litecoin",
	"bnb":   "binancecoin",
	"usdt":  "tether",
	"usdc":  "usd-coin",
	"avax":  "avalanche-2",
	"matic": "matic-network",
	"link":  "chainlink",
	"xlm":   "stellar",
	"atom":  "cosmos",

	"gold":   "pax-gold",
	"silver": "kinesis-silver",
}

// CoinID translates a normalized identifier into the provider coin id.
// Unknown identifiers are assumed to already be coin ids.
func CoinID(identifier string) string {
	if id, ok := coinIDBySymbol[identifier]; ok {
		return id
	}
	return identifier
}

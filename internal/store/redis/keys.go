package redis

const (
	// KeyPrefixCache is the prefix for cached previews, followed by the tier
	KeyPrefixCache = "unfurl:cache:"
	// KeyPrefixRate is the prefix for rate limit windows
	KeyPrefixRate = "unfurl:ratelimit:"
)

// CacheKey returns the Redis key for a cached value of a tier
func CacheKey(tier, key string) string {
	return KeyPrefixCache + tier + ":" + key
}

// RateKey returns the Redis key holding a client's window counter
func RateKey(client string) string {
	return KeyPrefixRate + client
}

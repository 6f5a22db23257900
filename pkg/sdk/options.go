package cardseer

import "go.uber.org/zap"

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "valkey" or "redis"
	addrs    []string
	password string

	embedder      Embedder
	queryEmbedder Embedder

	hnswM           int
	hnswEFConstruct int

	minRatio      int
	extraDenylist []string

	samplerSeed int64

	logger *zap.Logger
}

// WithValkey points the embedding cache at a Valkey instance. Without a
// database the client embeds every text through the provider.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis points the embedding cache at a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithEmbedder sets the text embedding provider. Required.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithQueryEmbedder sets a separate embedder for query text, for
// instruction-tuned models that prefix documents and queries differently.
// Defaults to the WithEmbedder provider.
func WithQueryEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.queryEmbedder = e
	})
}

// WithHNSW configures HNSW index parameters (M and EF construction).
// Defaults: M=16, EFConstruct=10000.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithMinRatio sets the fuzzy match acceptance threshold (0-100) for
// Annotate. Default: 85.
func WithMinRatio(ratio int) Option {
	return optionFunc(func(c *clientConfig) {
		c.minRatio = ratio
	})
}

// WithDenylist appends terms to the built-in mention denylist.
func WithDenylist(terms ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.extraDenylist = append(c.extraDenylist, terms...)
	})
}

// WithSamplerSeed fixes the weighted-sampling RNG seed. Default: time-based.
func WithSamplerSeed(seed int64) Option {
	return optionFunc(func(c *clientConfig) {
		c.samplerSeed = seed
	})
}

// WithLogger enables structured logging for client operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

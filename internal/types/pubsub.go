package types

// PubSubType defines the type of pubsub implementation
type PubSubType string

const (
	// MemoryPubSub uses in-memory implementation
	MemoryPubSub PubSubType = "memory"

	// KafkaPubSub uses Kafka implementation
	KafkaPubSub PubSubType = "kafka"
)

// LockBackend selects the implementation used for migration execution locks
type LockBackend string

const (
	LockBackendMemory LockBackend = "memory"
	LockBackendRedis  LockBackend = "redis"
)

// BillingProvider selects the billing gateway adapter
type BillingProvider string

const (
	BillingProviderNoop   BillingProvider = "noop"
	BillingProviderStripe BillingProvider = "stripe"
)

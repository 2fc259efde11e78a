package mqttendpoint

import "time"

// Config holds everything an Endpoint needs that isn't per-call: the
// protocol version, timing budgets, and the local limits this endpoint
// advertises to the broker. It is immutable after New; reconnect with
// different limits by constructing a new Endpoint.
type Config struct {
	Version Version

	ConnectTimeout  time.Duration
	ShutdownTimeout time.Duration

	// ReceiveMaximum records how many QoS 1/2 PUBLISH packets the broker
	// may have in-flight toward this endpoint at once. 0 means "not
	// limited" (65535). The endpoint does not copy it into CONNECT (set
	// ConnectPacket.ReceiveMaximum to advertise it), does not count inbound
	// PUBLISHes against it, and does not use it for its own send quota,
	// which follows the broker's CONNACK.
	ReceiveMaximum uint16

	// TopicAliasMaximum bounds which alias values the broker may use toward
	// this endpoint: a larger inbound alias is a protocol error. 0 disables
	// inbound topic aliasing entirely. The endpoint does not copy it into
	// CONNECT; set ConnectPacket.TopicAliasMaximum to advertise it.
	TopicAliasMaximum uint16

	// MaximumPacketSize caps both encoded and decoded frame size. 0 means
	// no local limit (the protocol's own 268,435,455-byte ceiling still
	// applies).
	MaximumPacketSize uint32

	// AutoPubResponse, when true (the default), makes the endpoint send
	// PUBACK/PUBREC/PUBCOMP automatically as it processes incoming
	// PUBLISH/PUBREL. When false, the caller is responsible for sending
	// those acknowledgements itself via Send.
	AutoPubResponse bool

	// AutoPingResponse, when true (the default), makes the endpoint send
	// PINGRESP automatically upon receiving PINGREQ. When false, the
	// caller is responsible for responding itself via Send.
	AutoPingResponse bool

	// PingreqSendInterval overrides the period between keep-alive PINGREQ
	// sends. Zero (the default) derives it from half the effective
	// keep-alive interval negotiated in CONNECT/CONNACK.
	PingreqSendInterval time.Duration

	// PingrespRecvTimeout overrides how long the endpoint waits for
	// PINGRESP after sending PINGREQ before treating the connection as
	// dead. Zero (the default) uses the full effective keep-alive interval.
	PingrespRecvTimeout time.Duration

	// AutoMapTopicAliasSend, when true (the default), lets the endpoint
	// assign a fresh topic alias (evicting the least recently used one if
	// the table is full) for an outbound PUBLISH whose topic has none yet.
	AutoMapTopicAliasSend bool

	// AutoReplaceTopicAliasSend, when true (the default), lets the
	// endpoint substitute an already-mapped topic with its alias on
	// outbound PUBLISH, sending the alias alone instead of the full topic.
	AutoReplaceTopicAliasSend bool

	Logger Logger
}

// Option configures a Config constructed by NewConfig.
type Option func(*Config)

// NewConfig builds a Config for the given protocol version with sensible
// defaults: a 30s connect timeout, a 10s shutdown timeout, automatic
// QoS 1/2 acknowledgement, and a no-op logger.
func NewConfig(version Version, opts ...Option) *Config {
	c := &Config{
		Version:                   version,
		ConnectTimeout:            30 * time.Second,
		ShutdownTimeout:           10 * time.Second,
		ReceiveMaximum:            0,
		AutoPubResponse:           true,
		AutoPingResponse:          true,
		AutoMapTopicAliasSend:     true,
		AutoReplaceTopicAliasSend: true,
		Logger:                    NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithConnectTimeout(d time.Duration) Option {
	return func(c *Config) { c.ConnectTimeout = d }
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(c *Config) { c.ShutdownTimeout = d }
}

func WithReceiveMaximum(n uint16) Option {
	return func(c *Config) { c.ReceiveMaximum = n }
}

func WithTopicAliasMaximum(n uint16) Option {
	return func(c *Config) { c.TopicAliasMaximum = n }
}

func WithMaximumPacketSize(n uint32) Option {
	return func(c *Config) { c.MaximumPacketSize = n }
}

func WithAutoPubResponse(enabled bool) Option {
	return func(c *Config) { c.AutoPubResponse = enabled }
}

func WithAutoPingResponse(enabled bool) Option {
	return func(c *Config) { c.AutoPingResponse = enabled }
}

func WithPingreqSendInterval(d time.Duration) Option {
	return func(c *Config) { c.PingreqSendInterval = d }
}

func WithPingrespRecvTimeout(d time.Duration) Option {
	return func(c *Config) { c.PingrespRecvTimeout = d }
}

func WithAutoMapTopicAliasSend(enabled bool) Option {
	return func(c *Config) { c.AutoMapTopicAliasSend = enabled }
}

func WithAutoReplaceTopicAliasSend(enabled bool) Option {
	return func(c *Config) { c.AutoReplaceTopicAliasSend = enabled }
}

func WithLogger(l Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

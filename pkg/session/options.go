package session

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/gregLibert/hwlink/pkg/eapdu"
)

// Config holds the session configuration.
type Config struct {
	// Logger receives phase transitions at Info and fragments at Debug.
	Logger zerolog.Logger

	// ReadTimeout bounds each receive of a plain exchange.
	ReadTimeout time.Duration

	// EnrollTimeout bounds each receive of an enrollment.
	EnrollTimeout time.Duration

	// FragmentDelay separates consecutive request fragments.
	FragmentDelay time.Duration

	// ReceiveDelay separates consecutive response reads.
	ReceiveDelay time.Duration

	// RequestID is written to the Lc field of every request.
	RequestID uint16

	Codec eapdu.Codec
}

func defaultConfig() Config {
	return Config{
		Logger:        zerolog.Nop(),
		ReadTimeout:   5 * time.Second,
		EnrollTimeout: 10 * time.Second,
		FragmentDelay: 50 * time.Millisecond,
		ReceiveDelay:  10 * time.Millisecond,
		Codec:         eapdu.Default,
	}
}

// Option is a functional option for configuring the Session.
type Option func(*Config)

// WithLogger sets the logger.
//
// Example:
//
//	s := session.New(driver, crypto, session.WithLogger(logger))
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithReadTimeout sets the per-receive timeout of plain exchanges.
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.ReadTimeout = timeout
		}
	}
}

// WithEnrollTimeout sets the per-receive timeout of enrollments.
func WithEnrollTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.EnrollTimeout = timeout
		}
	}
}

// WithFragmentDelay sets the pause between request fragments. Zero disables
// it.
func WithFragmentDelay(delay time.Duration) Option {
	return func(c *Config) {
		if delay >= 0 {
			c.FragmentDelay = delay
		}
	}
}

// WithReceiveDelay sets the pause between response reads. Zero disables it.
func WithReceiveDelay(delay time.Duration) Option {
	return func(c *Config) {
		if delay >= 0 {
			c.ReceiveDelay = delay
		}
	}
}

// WithRequestID sets the request id stamped on every request.
func WithRequestID(id uint16) Option {
	return func(c *Config) {
		c.RequestID = id
	}
}

// WithCodec selects the packet byte order.
//
// Example:
//
//	s := session.New(driver, crypto, session.WithCodec(eapdu.BigEndian))
func WithCodec(codec eapdu.Codec) Option {
	return func(c *Config) {
		c.Codec = codec
	}
}

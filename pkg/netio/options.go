package netio

import (
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/ajrodado/workcrew/pkg/types"
	"github.com/ajrodado/workcrew/pkg/wire"
)

// options holds the shared Server/Client configuration
type options struct {
	logger       *slog.Logger
	codec        wire.Codec
	clock        types.Clock
	maxFrameSize uint32
	inboundLimit rate.Limit
	inboundBurst int
}

func defaultOptions() options {
	return options{
		logger:       slog.Default(),
		codec:        &wire.BinaryCodec{},
		clock:        types.NewRealClock(),
		maxFrameSize: wire.DefaultMaxFrameSize,
	}
}

// Option configures a Server or Client.
type Option func(*options)

// WithLogger sets the structured logging sink. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCodec sets the message codec used on the wire. Both peers must
// agree on the codec. Defaults to the binary codec.
func WithCodec(codec wire.Codec) Option {
	return func(o *options) {
		if codec != nil {
			o.codec = codec
		}
	}
}

// WithClock sets the clock used for retry delays. Defaults to the real
// clock; tests inject a mock.
func WithClock(clock types.Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithMaxFrameSize bounds the size of accepted incoming frames. Frames
// announcing more than max bytes tear the connection down. Defaults to
// wire.DefaultMaxFrameSize.
func WithMaxFrameSize(max uint32) Option {
	return func(o *options) {
		if max > 0 {
			o.maxFrameSize = max
		}
	}
}

// WithInboundRate limits how fast frames are read from each connection.
// Zero (the default) disables limiting. A limiter needs at least one
// token of burst to ever admit a frame, so burst is clamped to 1.
func WithInboundRate(limit rate.Limit, burst int) Option {
	return func(o *options) {
		if limit > 0 && burst < 1 {
			burst = 1
		}
		o.inboundLimit = limit
		o.inboundBurst = burst
	}
}

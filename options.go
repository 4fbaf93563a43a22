// Copyright 2025 The indexed Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package indexed

import "go.uber.org/zap"

type config struct {
	codec  KeyCodec
	logger *zap.Logger
}

type Option func(*config)

// WithCodec selects the key codec; the default is StringCodec.
func WithCodec(c KeyCodec) Option {
	return func(cfg *config) {
		cfg.codec = c
	}
}

// WithLogger attaches a logger for structural events (create, open, grow,
// close); the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(cfg *config) {
		cfg.logger = l
	}
}

func newConfig(opts []Option) config {
	cfg := config{
		codec:  StringCodec{},
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

package logging

import "github.com/arloliu/shardkeeper/types"

// NopLogger discards every message. It is the coordinator's default
// logger when the embedder does not supply one.
type NopLogger struct{}

var _ types.Logger = (*NopLogger)(nil)

// NewNop creates a logger that performs no operations.
func NewNop() *NopLogger {
	return &NopLogger{}
}

func (n *NopLogger) Debug(_ string, _ ...any) {}
func (n *NopLogger) Info(_ string, _ ...any)  {}
func (n *NopLogger) Warn(_ string, _ ...any)  {}
func (n *NopLogger) Error(_ string, _ ...any) {}

// Fatal discards the message without calling os.Exit, unlike production
// loggers. Intentional: a coordinator library must never exit a host
// process on behalf of the embedder.
func (n *NopLogger) Fatal(_ string, _ ...any) {}

package shardkeeper

import "errors"

// Sentinel errors returned by the Coordinator's own lifecycle (Config
// validation, New, Start, Stop). The backing-table protocol layer has its
// own sentinel set in types/errors.go; the two are deliberately separate
// since no internal package needs to classify a Coordinator lifecycle
// error, and the Coordinator classifies lease/table errors only by
// wrapping them, never by re-exporting them here.
var (
	ErrInvalidConfig          = errors.New("invalid configuration")
	ErrNATSConnectionRequired = errors.New("NATS connection is required")
	ErrWorkerCommandRequired  = errors.New("worker command is required")
	ErrAlreadyStarted         = errors.New("coordinator already started")
	ErrNotStarted             = errors.New("coordinator not started")
	ErrBootstrapFailed        = errors.New("bootstrap failed")
)

package types

// StartingIteratorType selects where a fresh consumer begins reading a
// shard when no lease checkpoint exists yet.
type StartingIteratorType string

const (
	IteratorLatest              StartingIteratorType = "LATEST"
	IteratorTrimHorizon         StartingIteratorType = "TRIM_HORIZON"
	IteratorAtSequenceNumber    StartingIteratorType = "AT_SEQUENCE_NUMBER"
	IteratorAfterSequenceNumber StartingIteratorType = "AFTER_SEQUENCE_NUMBER"
)

// WorkerOptions is the opaque options blob the supervisor serializes into
// a worker process's environment. A worker decodes it, claims or resumes
// its shard's lease, and begins consuming.
type WorkerOptions struct {
	// TableName is the lease bucket the worker opens to perform its own
	// CAS against, independent of the coordinator process.
	TableName            string               `json:"tableName"`
	StreamConfig         string               `json:"streamConfig"`
	StreamName           string               `json:"streamName"`
	StartingIteratorType StartingIteratorType `json:"startingIteratorType"`
	ShardID              string               `json:"shardId"`
	// OwnerID is the coordinator instance id the worker writes as the
	// lease row's owner.
	OwnerID string `json:"ownerId"`
	// LeaseDurationMillis is the duration, in milliseconds, the worker
	// requests on each claim, take-over, and renew.
	LeaseDurationMillis int64 `json:"leaseDurationMillis"`
	// InitialLeaseCounter is nil when the worker must claim the shard
	// fresh rather than resume an existing lease.
	InitialLeaseCounter *int64 `json:"initialLeaseCounter"`
}

// ShutdownMessage is the structured message the supervisor writes to a
// worker's stdin to request a graceful stop.
type ShutdownMessage struct {
	Type string `json:"type"`
}

// ShutdownMessageType is the only ShutdownMessage.Type value defined.
const ShutdownMessageType = "shutdown"

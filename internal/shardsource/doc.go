// Package shardsource implements the Stream Client Adapter: a thin
// listShards(streamName) boundary the Allocation Controller reads from.
//
// Static serves a fixed, test-friendly shard list. Stream derives the
// shard list from a JetStream stream's durable consumer names, treating
// each consumer as one shard identity.
package shardsource

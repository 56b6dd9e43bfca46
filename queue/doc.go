// Package queue is the durable task channel between the API and the workers,
// backed by Kafka through segmentio/kafka-go.
//
// The producer writes one JSON Descriptor per task and waits for all in-sync
// replicas to acknowledge it. The consumer reads in a consumer group and
// processes strictly one message at a time: fetch, handle, commit. A message
// whose handler fails is still committed (dropped without requeue; the task
// has already been marked ERROR). Broker failures close the reader and a new
// one is created after a fixed delay, forever; uncommitted messages are
// redelivered by the group.
package queue

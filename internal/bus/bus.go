// Package bus is the task message bus: an append-only, bounded,
// multi-reader Redis stream. One well-known stream carries all task
// messages system-wide; consumers filter by job prefix client-side.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smallbodies/catch-api/pkg/models"
)

// StartCursor begins a read at "now"; history published before the first
// read is never replayed.
const StartCursor = "$"

// Publisher is the write side of the bus.
type Publisher interface {
	Publish(ctx context.Context, msg models.Message) error
}

// Reader is the read side of the bus.
type Reader interface {
	Read(ctx context.Context, cursor string, count int64, block time.Duration) ([]Entry, error)
}

// Entry is one stream record: the raw JSON message payload plus the
// cursor to resume reading after it.
type Entry struct {
	Cursor string
	Data   string
}

// Bus implements Publisher and Reader over a Redis stream.
type Bus struct {
	client *redis.Client
	stream string
	maxLen int64
}

// New creates a Bus on the named stream, trimmed approximately to maxLen
// entries.
func New(client *redis.Client, stream string, maxLen int64) *Bus {
	return &Bus{client: client, stream: stream, maxLen: maxLen}
}

// Publish appends a message to the stream. Messages with status "none"
// are published without a status field, matching the wire format
// consumed by stream clients.
func (b *Bus) Publish(ctx context.Context, msg models.Message) error {
	if msg.Status == models.TaskNone {
		msg.Status = ""
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	err = b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		MaxLen: b.maxLen,
		Approx: true,
		Values: map[string]any{"data": string(payload)},
	}).Err()
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// Read blocks up to the given duration for entries after cursor. An
// empty result with a nil error means the read timed out.
func (b *Bus) Read(ctx context.Context, cursor string, count int64, block time.Duration) ([]Entry, error) {
	streams, err := b.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{b.stream, cursor},
		Count:   count,
		Block:   block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read message stream: %w", err)
	}

	var entries []Entry
	for _, stream := range streams {
		for _, m := range stream.Messages {
			data, _ := m.Values["data"].(string)
			entries = append(entries, Entry{Cursor: m.ID, Data: data})
		}
	}
	return entries, nil
}

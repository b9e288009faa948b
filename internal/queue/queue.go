package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EventRecordCreated is published after a successful insert.
const EventRecordCreated = "record.created"

// Event describes something that happened to a stored record.
type Event struct {
	ID     string    `json:"id"`
	Type   string    `json:"type"`
	Entity string    `json:"entity"`
	At     time.Time `json:"at"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType, entity string) Event {
	return Event{
		ID:     uuid.NewString(),
		Type:   eventType,
		Entity: entity,
		At:     time.Now().UTC(),
	}
}

// Queue is the abstraction over different backends.
type Queue interface {
	Publish(ctx context.Context, evt Event) error
	Consume(ctx context.Context) (<-chan Event, error)
}

// New picks a backend by name: "redis", "memory" or "none".
func New(backend string, client *redis.Client, key string) (Queue, error) {
	switch backend {
	case "", "none":
		return Discard{}, nil
	case "memory":
		return NewInMemory(64), nil
	case "redis":
		if client == nil {
			return nil, errors.New("redis backend requires a client")
		}
		return NewRedisQueue(client, key), nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", backend)
	}
}

// Discard drops every event.
type Discard struct{}

// Publish accepts and drops evt.
func (Discard) Publish(context.Context, Event) error { return nil }

// Consume returns a channel that closes when ctx is done.
func (Discard) Consume(ctx context.Context) (<-chan Event, error) {
	out := make(chan Event)
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out, nil
}

// InMemory is a minimal channel-backed queue for dev/testing.
type InMemory struct {
	ch chan Event
}

// NewInMemory creates a bounded in-memory queue.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan Event, size)}
}

// Publish enqueues an event. It does not block when the buffer is full.
func (q *InMemory) Publish(ctx context.Context, evt Event) error {
	select {
	case q.ch <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.New("in-memory queue full")
	}
}

// Consume returns a channel for workers.
func (q *InMemory) Consume(ctx context.Context) (<-chan Event, error) {
	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			select {
			case evt := <-q.ch:
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// RedisQueue implements a Redis list-backed queue.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue builds a queue using LPUSH/BRPOP semantics.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = "tutoring:records"
	}
	return &RedisQueue{client: client, key: key}
}

// Publish enqueues an event.
func (q *RedisQueue) Publish(ctx context.Context, evt Event) error {
	payload, err := Encode(evt)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.key, payload).Err()
}

// Consume streams events using BRPOP. Undecodable entries are skipped.
func (q *RedisQueue) Consume(ctx context.Context) (<-chan Event, error) {
	out := make(chan Event)
	go func() {
		defer close(out)
		for {
			res, err := q.client.BRPop(ctx, 5*time.Second, q.key).Result()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if !errors.Is(err, redis.Nil) {
					// back off on connection trouble
					select {
					case <-time.After(time.Second):
					case <-ctx.Done():
						return
					}
				}
				continue
			}
			if len(res) != 2 {
				continue
			}
			evt, err := Decode(res[1])
			if err != nil {
				continue
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Encode serializes an event for the list.
func Encode(evt Event) (string, error) {
	b, err := json.Marshal(evt)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode parses a list entry written by Encode.
func Decode(s string) (Event, error) {
	var evt Event
	if err := json.Unmarshal([]byte(s), &evt); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if evt.Type == "" {
		return Event{}, errors.New("decode event: missing type")
	}
	return evt, nil
}

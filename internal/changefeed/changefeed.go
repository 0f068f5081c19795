// Package changefeed carries row-level change notifications between
// clients over Redis pub/sub. Repositories publish an event after every
// confirmed write; the timer service subscribes so that changes made by
// any client (including this process's own echo) reach the session
// registry in the backend's serialized order.
package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	TableSessions     = "tutoring_sessions"
	TableTimerRecords = "timer_records"

	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"

	channelPrefix = "feed:"
)

type Event struct {
	Table string          `json:"table"`
	Op    string          `json:"op"`
	Row   json.RawMessage `json:"row"`
}

func parseEvent(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, fmt.Errorf("malformed feed payload: %w", err)
	}
	if ev.Table == "" || ev.Op == "" {
		return Event{}, fmt.Errorf("feed payload missing table or op")
	}
	return ev, nil
}

type Publisher struct {
	redis *redis.Client
}

func NewPublisher(redisClient *redis.Client) *Publisher {
	return &Publisher{redis: redisClient}
}

// Publish fans a row change out to feed subscribers. Publish failures are
// logged, not returned: the write already succeeded and subscribers
// reconcile from the store on reconnect.
func (p *Publisher) Publish(ctx context.Context, table, op string, row interface{}) {
	rowJSON, err := json.Marshal(row)
	if err != nil {
		log.Printf("changefeed: failed to marshal %s row: %v", table, err)
		return
	}

	data, err := json.Marshal(Event{Table: table, Op: op, Row: rowJSON})
	if err != nil {
		log.Printf("changefeed: failed to marshal %s event: %v", table, err)
		return
	}

	if err := p.redis.Publish(ctx, channelPrefix+table, data).Err(); err != nil {
		log.Printf("changefeed: failed to publish %s %s: %v", op, table, err)
	}
}

type Subscriber struct {
	redis  *redis.Client
	tables []string
}

func NewSubscriber(redisClient *redis.Client, tables ...string) *Subscriber {
	return &Subscriber{redis: redisClient, tables: tables}
}

// Run subscribes to the configured table channels and delivers events to
// onEvent until ctx is cancelled. After every successful (re)subscription
// it calls onSubscribed so the consumer can reconcile state that changed
// while the feed was down. Dropped subscriptions are re-established with
// capped backoff.
func (s *Subscriber) Run(ctx context.Context, onEvent func(Event), onSubscribed func()) {
	channels := make([]string, len(s.tables))
	for i, table := range s.tables {
		channels[i] = channelPrefix + table
	}

	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		pubsub := s.redis.Subscribe(ctx, channels...)
		if _, err := pubsub.Receive(ctx); err != nil {
			pubsub.Close()
			if ctx.Err() != nil {
				return
			}
			log.Printf("changefeed: subscribe failed, retrying in %s: %v", backoff, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if onSubscribed != nil {
			onSubscribed()
		}

		ch := pubsub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				ev, err := parseEvent([]byte(msg.Payload))
				if err != nil {
					log.Printf("changefeed: dropping event: %v", err)
					continue
				}
				onEvent(ev)
			}
		}
		pubsub.Close()
		log.Printf("changefeed: subscription dropped, reconnecting")
	}
}

package policy

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/looplj/visgate/internal/log"
)

const (
	subscribeTimeout = 3 * time.Second
	minRetryDelay    = 100 * time.Millisecond
	maxRetryDelay    = 5 * time.Second
)

// Change announces that the grants of Subject were modified.
type Change struct {
	Subject string `json:"subject"`
}

// Watcher delivers changes on a best-effort basis: slow subscribers drop events.
// The stop function must be called exactly once.
type Watcher interface {
	Watch() (<-chan Change, func())
}

// Notifier is a Watcher that can also publish.
type Notifier interface {
	Watcher
	Notify(ctx context.Context, c Change) error
}

// fanout hands a change to every subscriber without blocking.
type fanout struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]chan Change
	buffer int
}

func (f *fanout) init(buffer int) {
	f.subs = make(map[uint64]chan Change)
	f.buffer = max(buffer, 1)
}

// subscribe must be called with mu held. onStop runs with mu held after the channel is closed.
func (f *fanout) subscribe(onStop func()) (<-chan Change, func()) {
	id := f.nextID
	f.nextID++

	ch := make(chan Change, f.buffer)
	f.subs[id] = ch

	return ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()

		sub, ok := f.subs[id]
		if !ok {
			return
		}

		delete(f.subs, id)
		close(sub)

		if onStop != nil {
			onStop()
		}
	}
}

func (f *fanout) deliver(c Change) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ch := range f.subs {
		select {
		case ch <- c:
		default:
		}
	}
}

type memoryNotifier struct {
	fanout
}

// NewMemoryNotifier delivers changes within the process.
func NewMemoryNotifier(buffer int) Notifier {
	n := &memoryNotifier{}
	n.init(buffer)

	return n
}

func (n *memoryNotifier) Watch() (<-chan Change, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.subscribe(nil)
}

func (n *memoryNotifier) Notify(_ context.Context, c Change) error {
	n.deliver(c)
	return nil
}

// redisNotifier publishes changes on a redis channel so every instance sharing the
// grant store hears about them. One subscription is held while anyone is watching.
type redisNotifier struct {
	fanout

	client  *redis.Client
	channel string

	pubsub *redis.PubSub
	cancel context.CancelFunc
}

func NewRedisNotifier(client *redis.Client, channel string, buffer int) (Notifier, error) {
	if client == nil {
		return nil, ErrRedisRequired
	}

	if channel == "" {
		return nil, errors.New("policy: change channel is required")
	}

	n := &redisNotifier{
		client:  client,
		channel: channel,
	}
	n.init(buffer)

	return n, nil
}

func (n *redisNotifier) Watch() (<-chan Change, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.subs) == 0 {
		n.startLocked()
	}

	return n.subscribe(func() {
		if len(n.subs) == 0 {
			n.stopLocked()
		}
	})
}

func (n *redisNotifier) Notify(ctx context.Context, c Change) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return err
	}

	return n.client.Publish(ctx, n.channel, payload).Err()
}

func (n *redisNotifier) startLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel

	n.pubsub = n.client.Subscribe(ctx, n.channel)

	// Wait for the subscription so changes published after Watch returns are not lost.
	// A failure is not fatal: go-redis resubscribes once the connection comes back.
	subCtx, subCancel := context.WithTimeout(ctx, subscribeTimeout)
	defer subCancel()

	if _, err := n.pubsub.Receive(subCtx); err != nil {
		log.Warn(ctx, "grant change subscribe failed, cached grants may go stale until redis is back",
			log.String("channel", n.channel),
			log.Cause(err))
	}

	go n.receive(ctx, n.pubsub)
}

// retryDelay doubles per consecutive failure up to maxRetryDelay.
func retryDelay(failures int) time.Duration {
	delay := minRetryDelay << min(failures-1, 6)
	return min(delay, maxRetryDelay)
}

func (n *redisNotifier) receive(ctx context.Context, ps *redis.PubSub) {
	failures := 0

	for {
		msg, err := ps.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.ErrClosed) || ctx.Err() != nil {
				return
			}

			failures++
			delay := retryDelay(failures)

			// Only the first failure of an outage is worth a warning.
			if failures == 1 {
				log.Warn(ctx, "grant change receive failed",
					log.String("channel", n.channel),
					log.Cause(err))
			} else {
				log.Debug(ctx, "grant change receive still failing",
					log.String("channel", n.channel),
					log.Int("failures", failures),
					log.Duration("retry_in", delay),
					log.Cause(err))
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}

			continue
		}

		if failures > 0 {
			log.Info(ctx, "grant change receive recovered",
				log.String("channel", n.channel),
				log.Int("failures", failures))

			failures = 0
		}

		var c Change
		if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
			log.Warn(ctx, "grant change decode failed",
				log.String("channel", n.channel),
				log.String("payload", msg.Payload),
				log.Cause(err))

			continue
		}

		n.deliver(c)
	}
}

func (n *redisNotifier) stopLocked() {
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}

	if n.pubsub != nil {
		_ = n.pubsub.Close()
		n.pubsub = nil
	}
}

// NewNotifier picks redis when the store is shared through redis, memory otherwise.
func NewNotifier(cfg Config, client *redis.Client) (Notifier, error) {
	if cfg.Backend == BackendRedis && client != nil {
		channel := cfg.Channel
		if channel == "" {
			channel = defaultChannel
		}

		return NewRedisNotifier(client, channel, 64)
	}

	return NewMemoryNotifier(64), nil
}

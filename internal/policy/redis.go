package policy

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"

	"github.com/looplj/visgate/internal/log"
)

// RedisStore keeps each subject's grants in a redis set at <prefix><subject>.
type RedisStore struct {
	client   redis.Cmdable
	prefix   string
	notifier Notifier
}

// NewRedisStore creates the store. A nil notifier disables change notifications.
func NewRedisStore(client redis.Cmdable, prefix string, notifier Notifier) *RedisStore {
	return &RedisStore{
		client:   client,
		prefix:   prefix,
		notifier: notifier,
	}
}

func (s *RedisStore) key(subject string) string {
	return s.prefix + subject
}

func (s *RedisStore) Grants(ctx context.Context, subject string) ([]string, error) {
	grants, err := s.client.SMembers(ctx, s.key(subject)).Result()
	if err != nil {
		return nil, fmt.Errorf("load grants of %s: %w", subject, err)
	}

	sort.Strings(grants)

	return grants, nil
}

// Grant adds grants to subject and announces the change.
func (s *RedisStore) Grant(ctx context.Context, subject string, grants ...string) error {
	if len(grants) == 0 {
		return nil
	}

	if err := s.client.SAdd(ctx, s.key(subject), lo.ToAnySlice(grants)...).Err(); err != nil {
		return fmt.Errorf("add grants to %s: %w", subject, err)
	}

	s.notify(ctx, subject)

	return nil
}

// Revoke removes grants from subject and announces the change.
func (s *RedisStore) Revoke(ctx context.Context, subject string, grants ...string) error {
	if len(grants) == 0 {
		return nil
	}

	if err := s.client.SRem(ctx, s.key(subject), lo.ToAnySlice(grants)...).Err(); err != nil {
		return fmt.Errorf("remove grants from %s: %w", subject, err)
	}

	s.notify(ctx, subject)

	return nil
}

func (s *RedisStore) notify(ctx context.Context, subject string) {
	if s.notifier == nil {
		return
	}

	// The write already happened; a lost notification only delays cache expiry.
	if err := s.notifier.Notify(ctx, Change{Subject: subject}); err != nil {
		log.Warn(ctx, "failed to publish grant change",
			log.String("subject", subject),
			log.Cause(err))
	}
}

package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticStore(t *testing.T) {
	s := NewStaticStore([]StaticGrant{
		{Subject: "bob", Grants: []string{"tag:finance", "doc-1"}},
		{Subject: "bob", Grants: []string{"doc-1", "doc-2"}},
		{Subject: "admin", Grants: []string{"*"}},
	})

	ctx := context.Background()

	grants, err := s.Grants(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-1", "doc-2", "tag:finance"}, grants)

	// Callers get their own copy.
	grants[0] = "mutated"
	again, err := s.Grants(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", again[0])

	none, err := s.Grants(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestNewStore(t *testing.T) {
	client, _ := newRedis(t)

	s, err := NewStore(Config{}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &StaticStore{}, s)

	s, err = NewStore(Config{Backend: BackendRedis}, client, nil)
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, s)

	_, err = NewStore(Config{Backend: BackendRedis}, nil, nil)
	assert.ErrorIs(t, err, ErrRedisRequired)

	_, err = NewStore(Config{Backend: "ldap"}, nil, nil)
	assert.Error(t, err)
}

package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRejectsBadConnString(t *testing.T) {
	err := Connect(context.Background(), "://not a conn string", PoolOptions{})
	require.Error(t, err)
	assert.Nil(t, Pool())
}

func TestStatusBeforeConnect(t *testing.T) {
	assert.Error(t, Status(context.Background()))
	assert.Nil(t, Stats())
}

func TestCloseIdempotent(t *testing.T) {
	Close()
	Close()
	assert.Nil(t, Pool())
}

func TestPoolOptionsDefaults(t *testing.T) {
	o := PoolOptions{}.withDefaults()
	assert.Equal(t, 25, o.MaxConns)
	assert.Equal(t, 5, o.MinConns)
	assert.Equal(t, time.Hour, o.MaxConnLifetime)
	assert.Equal(t, 30*time.Minute, o.MaxConnIdleTime)

	sized := PoolOptions{MaxConns: 4, MinConns: 1}.withDefaults()
	assert.Equal(t, 4, sized.MaxConns)
	assert.Equal(t, 1, sized.MinConns)
}

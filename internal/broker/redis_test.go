package broker

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQueueKeys(t *testing.T) {
	keys := queueKeys("critical")

	assert.Equal(t, []string{
		"curator:q:critical",
		"curator:q:critical:delayed",
		"curator:q:critical:seq",
		"curator:q:critical:proc",
		"curator:q:critical:procdl",
	}, keys)
}

func TestNewRedisBrokerDefaults(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	b := NewRedisBroker(nil, RedisOptions{}, logger)
	assert.Equal(t, DefaultMaxDepth, b.maxDepth)
	assert.Equal(t, DefaultVisibility, b.visibility)

	b = NewRedisBroker(nil, RedisOptions{MaxDepth: 50, Visibility: time.Minute}, logger)
	assert.Equal(t, int64(50), b.maxDepth)
	assert.Equal(t, time.Minute, b.visibility)
}

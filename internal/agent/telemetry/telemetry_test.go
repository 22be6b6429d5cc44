package telemetry

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/Natthapon12-yod/smartatsai/internal/core/error"
)

func TestRedisSourceLatest(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	mr.HSet(DefaultKey, "voltage", "229.4", "source", "grid")

	got, err := NewRedisSource(rdb, "").Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"voltage": "229.4", "source": "grid"}, got)
}

func TestRedisSourceMissingKeyIsEmpty(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	got, err := NewRedisSource(rdb, "other").Latest(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisSourceUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	mr.Close()

	_, err := NewRedisSource(rdb, "").Latest(context.Background())
	assert.ErrorIs(t, err, errx.ErrExternalServiceUnavailable)
}

func TestDescribe(t *testing.T) {
	assert.Empty(t, Describe(nil))
	assert.Equal(t,
		"ข้อมูลเซนเซอร์ล่าสุดจากระบบ Smart ATS:\n- source: grid\n- voltage: 229.4",
		Describe(map[string]string{"voltage": "229.4", "source": "grid"}))
}

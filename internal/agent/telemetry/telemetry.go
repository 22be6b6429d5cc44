// Package telemetry reads the latest Smart ATS sensor readings.
package telemetry

import (
	"context"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/Natthapon12-yod/smartatsai/internal/agent/model"
	errx "github.com/Natthapon12-yod/smartatsai/internal/core/error"
)

const DefaultKey = "smartats:telemetry:latest"

// RedisSource reads readings from a Redis hash written by the sensor gateway.
type RedisSource struct {
	rdb redis.Cmdable
	key string
}

func NewRedisSource(rdb redis.Cmdable, key string) *RedisSource {
	if key == "" {
		key = DefaultKey
	}
	return &RedisSource{rdb: rdb, key: key}
}

// Latest returns the current readings; an empty map means no data.
func (s *RedisSource) Latest(ctx context.Context) (map[string]string, error) {
	readings, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, errx.WrapExternal("telemetry", errx.WrapRedis(err))
	}
	return readings, nil
}

// Describe renders readings as a context block for the generation request.
// It returns "" when there is nothing to attach.
func Describe(readings map[string]string) string {
	if len(readings) == 0 {
		return ""
	}
	keys := make([]string, 0, len(readings))
	for k := range readings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("ข้อมูลเซนเซอร์ล่าสุดจากระบบ Smart ATS:")
	for _, k := range keys {
		b.WriteString("\n- ")
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(readings[k])
	}
	return b.String()
}

var _ model.TelemetrySource = (*RedisSource)(nil)

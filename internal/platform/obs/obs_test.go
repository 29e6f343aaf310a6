package obs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), zerolog.New(&buf).With().Str("req_id", "req-1").Logger())

	err := errors.New("upstream down")
	Time(ctx, "venues.fetch")(&err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "venues.fetch", entry["op"])
	assert.Equal(t, "req-1", entry["req_id"])
	assert.Equal(t, "upstream down", entry["error"])
}

func TestTimeSuccessIsDebug(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), zerolog.New(&buf).Level(zerolog.InfoLevel))

	var err error
	Time(ctx, "kv.redis.Get")(&err)

	assert.Empty(t, buf.String())
}

func TestLoggerWithoutCarriedLogger(t *testing.T) {
	l := Logger(context.Background())
	assert.Equal(t, zerolog.Disabled, l.GetLevel())
}

func TestLoggerChainsFromContext(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), zerolog.New(&buf).With().Str("req_id", "req-2").Logger())

	Logger(ctx).Info().Str("cell", "52.2:21.0:14").Msg("venues served from cache")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "req-2", entry["req_id"])
	assert.Equal(t, "52.2:21.0:14", entry["cell"])
}

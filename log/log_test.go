package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zerolog.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("bogus"))
}

func TestSetOutputComponentField(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "debug")
	t.Cleanup(func() { Init("info", false, "") })

	Broadcast.Info().Str("txid", "ab").Msg("broadcast ok")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "broadcast", entry["component"])
	assert.Equal(t, "ab", entry["txid"])
	assert.Equal(t, "broadcast ok", entry["message"])
}

func TestSetOutputRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "warn")
	t.Cleanup(func() { Init("info", false, "") })

	Builder.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())
}

func TestInitWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.log")
	Init("info", true, path)
	t.Cleanup(func() { Init("info", false, "") })

	Store.Info().Msg("to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"store"`)
}

package obslog

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitJSONOutputWritesParseableLines(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, JSONOutput: true, Output: &buf})

	Logger.Info().Str("provider", "zephyr").Msg("polling")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "zephyr", line["provider"])
	require.Equal(t, "polling", line["message"])
}

func TestInitConsoleOutputIsHumanReadable(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, Output: &buf})

	Logger.Info().Msg("hello")

	require.Contains(t, buf.String(), "hello")
}

func TestInitRespectsLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: ErrorLevel, JSONOutput: true, Output: &buf})

	Logger.Info().Msg("should be filtered")
	require.Empty(t, strings.TrimSpace(buf.String()))

	Logger.Error().Msg("should appear")
	require.Contains(t, buf.String(), "should appear")
}

func TestWithProviderTagsChildLogger(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, JSONOutput: true, Output: &buf})

	WithProvider("qtest").Info().Msg("tagged")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "qtest", line["provider"])
}

func TestWithOperationTagsProviderAndOperation(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: InfoLevel, JSONOutput: true, Output: &buf})

	WithOperation("hpalm", "GetTestCases").Info().Msg("tagged")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "hpalm", line["provider"])
	require.Equal(t, "GetTestCases", line["operation"])
}

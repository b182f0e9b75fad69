package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fixedClock(l *Logger) {
	l.sink.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New(WarnLevel, &buf)

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.Error("shown too")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "WARN", lines[0]["level"])
	assert.Equal(t, "ERROR", lines[1]["level"])
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(DebugLevel, &buf)
	fixedClock(l)

	child := l.WithField("service", "simplexopt").WithError(errors.New("boom"))
	child.Info("started", map[string]interface{}{"port": 8080, "cause": errors.New("wrapped")})
	l.Info("parent")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "started", lines[0]["message"])
	assert.Equal(t, "simplexopt", lines[0]["service"])
	assert.Equal(t, "boom", lines[0]["error"])
	assert.Equal(t, "wrapped", lines[0]["cause"])
	assert.Equal(t, float64(8080), lines[0]["port"])
	assert.Equal(t, "2024-05-06T07:08:09Z", lines[0]["timestamp"])
	assert.Contains(t, lines[0]["caller"], "logging/logger_test.go:")

	assert.NotContains(t, lines[1], "service", "parent logger is unchanged")
}

func TestLoggerTextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithFormat(InfoLevel, TextFormat, &buf)
	fixedClock(l)

	l.Info("run finished", map[string]interface{}{"calls": 62, "best": -0.0046})

	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "2024-05-06T07:08:09Z INFO  run finished "), line)
	assert.Contains(t, line, " best=-0.0046 ")
	assert.Contains(t, line, " calls=62")
}

func TestLoggerFatalExits(t *testing.T) {
	var buf bytes.Buffer
	l := New(InfoLevel, &buf)
	code := -1
	l.sink.exit = func(c int) { code = c }

	l.Fatal("giving up")
	assert.Equal(t, 1, code)
	assert.Len(t, decodeLines(t, &buf), 1)
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger(nil)
	require.NoError(t, err)
	assert.Equal(t, InfoLevel, l.level)

	l, err = NewLogger(&Config{Level: "debug", Format: "console", Output: "stdout"})
	require.NoError(t, err)
	assert.Equal(t, DebugLevel, l.level)
	assert.Equal(t, TextFormat, l.sink.format)

	_, err = NewLogger(&Config{Format: "xml"})
	assert.Error(t, err)

	assert.Equal(t, InfoLevel, parseLevel("verbose"))
	assert.Equal(t, WarnLevel, parseLevel("warning"))
}

func TestZapLogger(t *testing.T) {
	var buf bytes.Buffer
	base := New(DebugLevel, &buf)
	zl := NewZapLogger(base).Named("neldermead").With(zap.String("run", "abc"))

	zl.Debug("simplex iteration",
		zap.Int("iteration", 3),
		zap.Float64("spread", 0.25),
		zap.Bool("converged", false),
		zap.Float64s("point", []float64{1, 2}),
		zap.Error(errors.New("none")),
	)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	line := lines[0]
	assert.Equal(t, "DEBUG", line["level"])
	assert.Equal(t, "simplex iteration", line["message"])
	assert.Equal(t, "neldermead", line["logger"])
	assert.Equal(t, "abc", line["run"])
	assert.Equal(t, float64(3), line["iteration"])
	assert.Equal(t, 0.25, line["spread"])
	assert.Equal(t, false, line["converged"])
	assert.Equal(t, []interface{}{1.0, 2.0}, line["point"])
	assert.Equal(t, "none", line["error"])
	assert.Contains(t, line["caller"], "logging/logger_test.go:")
}

func TestZapLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	zl := NewZapLogger(New(WarnLevel, &buf))

	zl.Info("hidden")
	assert.False(t, zl.Core().Enabled(zap.InfoLevel))
	zl.Warn("shown")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["message"])
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	l := New(InfoLevel, &buf)

	h := Middleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/problems", FromContext(r.Context()).fields["path"])
		w.WriteHeader(http.StatusNotFound)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/problems", nil))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "WARN", lines[0]["level"])
	assert.Equal(t, float64(http.StatusNotFound), lines[0]["status"])
	assert.Equal(t, "GET", lines[0]["method"])
}

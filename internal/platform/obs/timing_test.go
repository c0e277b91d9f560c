package obs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

var errRoutine = errors.New("routine")

func captureDefault(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestTimeLevels(t *testing.T) {
	expected := func(err error) bool { return errors.Is(err, errRoutine) }

	tests := []struct {
		name      string
		err       error
		wantLevel string
	}{
		{name: "success", err: nil, wantLevel: `"level":"DEBUG"`},
		{name: "expected failure", err: errRoutine, wantLevel: `"level":"INFO"`},
		{name: "unexpected failure", err: errors.New("db down"), wantLevel: `"level":"WARN"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureDefault(t)

			ctx := WithRequestID(context.Background(), "req-1")
			err := tt.err
			TimeExpected(ctx, "estimate", expected)(&err)

			line := buf.String()
			if !strings.Contains(line, tt.wantLevel) {
				t.Fatalf("log line %q, want level %s", line, tt.wantLevel)
			}
			if !strings.Contains(line, `"req_id":"req-1"`) || !strings.Contains(line, `"op":"estimate"`) {
				t.Fatalf("log line %q is missing req_id or op", line)
			}
		})
	}
}

func TestTimeWithoutClassifierWarns(t *testing.T) {
	buf := captureDefault(t)

	err := errRoutine
	Time(context.Background(), "lookup")(&err)

	if !strings.Contains(buf.String(), `"level":"WARN"`) {
		t.Fatalf("log line %q, want WARN", buf.String())
	}
}

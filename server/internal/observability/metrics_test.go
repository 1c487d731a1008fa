package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordOp(t *testing.T) {
	m := NewMetrics(2)

	m.RecordOp(OpResolve, 10*time.Millisecond, nil)
	m.RecordOp(OpResolve, 20*time.Millisecond, errors.New("boom"))
	m.RecordOp(OpExtract, 30*time.Millisecond, nil)
	m.RecordSent()
	m.RecordDeliveryFailure()
	m.RecordCache(true)
	m.RecordCache(false)
	m.RecordCache(false)

	s := m.Snapshot()
	assert.Equal(t, OpSnapshot{Count: 2, Errors: 1}, s.Ops[OpResolve])
	assert.Equal(t, OpSnapshot{Count: 1}, s.Ops[OpExtract])
	assert.Equal(t, int64(1), s.MessagesSent)
	assert.Equal(t, int64(1), s.DeliveryFailures)
	assert.Equal(t, int64(1), s.CacheHits)
	assert.Equal(t, int64(2), s.CacheMisses)
	// Only the last two durations are kept.
	assert.Equal(t, 25*time.Millisecond, s.AvgDuration)
	assert.Equal(t, int64(30), m.Op(OpResolve).TotalDurationMs())
}

func TestMetrics_Concurrent(t *testing.T) {
	m := NewMetrics(0)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordOp(OpCommand, time.Millisecond, nil)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), m.Op(OpCommand).Count())
}

func TestQueryContext_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	q := NewQueryContextWithID(logger, "req-1", SourceBot, 42)
	q.Info("resolved", slog.Int(LogFieldSlots, 3))
	q.Error("send failed", errors.New("timeout"))

	out := buf.String()
	assert.Contains(t, out, "request_id=req-1")
	assert.Contains(t, out, "chat_id=42")
	assert.Contains(t, out, "source=bot")
	assert.Contains(t, out, "slots=3")
	assert.Contains(t, out, "error=timeout")
}

func TestQueryContext_FromContext(t *testing.T) {
	q := NewQueryContext(slog.New(slog.DiscardHandler), SourceCLI, 0)
	require.NotEmpty(t, q.RequestID)

	ctx := WithQueryContext(context.Background(), q)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, q, got)

	fresh := FromContextOr(context.Background(), nil, SourceRunner)
	assert.Equal(t, SourceRunner, fresh.Source)
	assert.NotEqual(t, q.RequestID, fresh.RequestID)
}

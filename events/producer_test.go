package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mockWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	wg       *sync.WaitGroup
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	m.messages = append(m.messages, msgs...)
	m.mu.Unlock()
	if m.wg != nil {
		m.wg.Done()
	}
	return nil
}

func (m *mockWriter) Close() error { return nil }

func TestKafkaProducerEmit(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(2)

	writer := &mockWriter{wg: &wg}
	p := NewWithWriter(writer, zaptest.NewLogger(t))
	defer p.Close()

	p.Emit(RequestApproved, Event{
		CompanyName:   "Acme",
		HREmail:       "hr@acme.test",
		EmployeeEmail: "emp@people.test",
		RequestID:     "req-1",
	})
	p.Emit(AssetReturned, Event{
		CompanyName:   "Acme",
		EmployeeEmail: "emp@people.test",
	})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("events were not delivered")
	}

	writer.mu.Lock()
	defer writer.mu.Unlock()
	require.Len(t, writer.messages, 2)

	var first Event
	require.NoError(t, json.Unmarshal(writer.messages[0].Value, &first))
	assert.Equal(t, RequestApproved, first.Type)
	assert.Equal(t, "Acme", first.CompanyName)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.OccurredAt.IsZero())
	assert.Equal(t, []byte("Acme"), writer.messages[0].Key)
}

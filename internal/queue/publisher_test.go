package queue

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDialTimeout(t *testing.T) {
	assert.Equal(t, maxDialTimeout, dialTimeout(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	d := dialTimeout(ctx)
	assert.LessOrEqual(t, d, 300*time.Millisecond)
	assert.Greater(t, d, time.Duration(0))

	expired, cancel2 := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel2()
	assert.Equal(t, time.Millisecond, dialTimeout(expired))
}

// A broker that accepts the TCP connection but never answers the handshake
// must not hold the caller past its deadline.
func TestPublishBenefitEvent_SilentBrokerHonoursDeadline(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()

	p := NewPublisher("amqp://guest:guest@"+ln.Addr().String()+"/", "takaful.events", zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = p.PublishBenefitEvent(ctx, BenefitEvent{Kind: EventCreated, BenefitID: "b1"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
}

package safego

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"gitlab.com/trektoo/api/trektoo-client-core/internal/adapters/logger"
)

func TestExecute_RunsFunction(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	ran := false
	Execute(context.Background(), logger.NewFromZap(zap.NewNop()), "worker", func() {
		defer wg.Done()
		ran = true
	})
	wg.Wait()
	assert.True(t, ran)
}

func TestExecute_RecoversPanic(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	Execute(ctx, logger.NewFromZap(zap.New(core)), "RemoteLogDispatcher", func() {
		panic("boom")
	})

	require.Eventually(t, func() bool { return logs.Len() == 1 }, time.Second, 5*time.Millisecond)
	entry := logs.All()[0]
	assert.Contains(t, entry.Message, "RemoteLogDispatcher")
	assert.Equal(t, "boom", entry.ContextMap()["panic_info"])
}

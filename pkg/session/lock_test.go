package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/intake"
	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/registry"
	"github.com/stretchr/testify/require"
)

func TestManager_LockLifecycle(t *testing.T) {
	b := registry.NewBuilder()
	b.Add("only")
	steps, err := b.Build()
	require.NoError(t, err)
	eng, err := intake.New(steps, intake.WithGateway(memory.NewGateway()))
	require.NoError(t, err)

	mgr := NewManager(eng)
	ctx := context.Background()
	count := 1000

	for i := 0; i < count; i++ {
		sid := fmt.Sprintf("session-%d", i)
		_, err := mgr.Start(ctx, sid)
		require.NoError(t, err)
		require.NoError(t, mgr.End(ctx, sid, true))
	}

	if n := len(mgr.locks); n != 0 {
		t.Errorf("memory leak: %d locks remaining after End", n)
	}
	if n := mgr.Len(); n != 0 {
		t.Errorf("expected no live sessions, got %d", n)
	}
}

package process

import (
	"context"
	"errors"
	"testing"

	"github.com/Deepreo/gorev/core"
	"github.com/stretchr/testify/assert"
)

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry()

	err := reg.Register("sync", func(ctx context.Context, op core.PendingOperation) error { return nil })
	assert.NoError(t, err)

	err = reg.Register("sync", func(ctx context.Context, op core.PendingOperation) error { return nil })
	assert.Error(t, err, "Should return error on duplicate registration")
	assert.Contains(t, err.Error(), "already registered")

	err = reg.Register("broken", nil)
	assert.Error(t, err)
}

func TestRegistry_Process(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		reg := NewRegistry()
		var got core.PendingOperation
		reg.Register("sync", func(ctx context.Context, op core.PendingOperation) error {
			got = op
			return nil
		})

		op := core.PendingOperation{ID: "1", OperationType: "sync"}
		err := reg.Process(context.Background(), op)

		assert.NoError(t, err)
		assert.Equal(t, op, got)
	})

	t.Run("Processor Error", func(t *testing.T) {
		reg := NewRegistry()
		expectedErr := errors.New("processor error")
		reg.Register("sync", func(ctx context.Context, op core.PendingOperation) error {
			return expectedErr
		})

		err := reg.Process(context.Background(), core.PendingOperation{ID: "2", OperationType: "sync"})

		assert.Error(t, err)
		assert.Equal(t, expectedErr, err)
	})

	t.Run("No Processor Found", func(t *testing.T) {
		reg := NewRegistry()

		err := reg.Process(context.Background(), core.PendingOperation{ID: "3", OperationType: "unknown"})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "no processor registered")
	})
}

func TestRegistry_Use(t *testing.T) {
	reg := NewRegistry()
	reg.Register("sync", func(ctx context.Context, op core.PendingOperation) error { return nil })

	callOrder := []string{}

	mw1 := func(next core.ProcessorFunc) core.ProcessorFunc {
		return func(ctx context.Context, op core.PendingOperation) error {
			callOrder = append(callOrder, "mw1 start")
			err := next(ctx, op)
			callOrder = append(callOrder, "mw1 end")
			return err
		}
	}

	mw2 := func(next core.ProcessorFunc) core.ProcessorFunc {
		return func(ctx context.Context, op core.PendingOperation) error {
			callOrder = append(callOrder, "mw2 start")
			err := next(ctx, op)
			callOrder = append(callOrder, "mw2 end")
			return err
		}
	}

	reg.Use(mw1, mw2)

	err := reg.Process(context.Background(), core.PendingOperation{ID: "1", OperationType: "sync"})

	assert.NoError(t, err)

	expectedOrder := []string{
		"mw1 start",
		"mw2 start",
		"mw2 end",
		"mw1 end",
	}

	assert.Equal(t, expectedOrder, callOrder)
}

package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimited(t *testing.T) {
	t.Run("passes through", func(t *testing.T) {
		fc := &fakeCompleter{answer: "{}"}
		rl := NewRateLimited(fc, 0, 0)

		for i := 0; i < 5; i++ {
			got, err := rl.Complete(context.Background(), Request{Name: NameEstimate})
			require.NoError(t, err)
			assert.Equal(t, "{}", got)
		}
		assert.Equal(t, 5, fc.calls)
	})

	t.Run("cancelled context stops the wait", func(t *testing.T) {
		fc := &fakeCompleter{answer: "{}"}
		rl := NewRateLimited(fc, 0.001, 1)

		_, err := rl.Complete(context.Background(), Request{Name: NameEstimate})
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = rl.Complete(ctx, Request{Name: NameEstimate})
		assert.Error(t, err)
		assert.Equal(t, 1, fc.calls)
	})
}

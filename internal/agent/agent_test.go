package agent

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The web server shares one Agent across handlers, so parallel calls with
// different system prompts must not write through the shared model.
func TestGenerateConcurrentPrompts(t *testing.T) {
	a, err := NewAgent(context.Background(), "test-key")
	require.NoError(t, err)
	require.NotNil(t, a)
	defer a.Close()
	a.maxRetries = 1

	// A cancelled context makes every invocation fail before any network
	// traffic; the point is exercising the per-call model setup in parallel.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := a.generate(ctx, fmt.Sprintf("system prompt %d", n), "payload")
			assert.Error(t, err)
		}(i)
	}
	wg.Wait()

	// The shared model must be untouched by per-call system prompts.
	assert.Nil(t, a.model.SystemInstruction)
}

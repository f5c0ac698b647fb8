//go:build unit

/*
Copyright 2024 Alexandre Mahdhaoui

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package gracefulshutdown_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexandremahdhaoui/nvp-probe/internal/util/gracefulshutdown"
)

// TestNew verifies that the context is live until a shutdown is requested.
func TestNew(t *testing.T) {
	gs := gracefulshutdown.New(context.Background(), "test")
	require.NotNil(t, gs)

	ctx := gs.Context()
	require.NotNil(t, ctx)
	assert.NoError(t, ctx.Err(), "context should not be cancelled initially")

	gs.Shutdown(0)

	<-ctx.Done()
	assert.Error(t, ctx.Err())
}

// TestGracefulShutdown_ParentCancel verifies that canceling the parent context yields exit code 0.
func TestGracefulShutdown_ParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	gs := gracefulshutdown.New(parent, "test")

	cancel()

	assert.Equal(t, 0, gs.Wait())
}

// TestGracefulShutdown_Go verifies that Wait awaits goroutines and reports their failure.
func TestGracefulShutdown_Go(t *testing.T) {
	t.Run("goroutine returning an error", func(t *testing.T) {
		gs := gracefulshutdown.New(context.Background(), "test")

		gs.Go("failing", func(_ context.Context) error {
			return errors.New("boom")
		})

		assert.Equal(t, 1, gs.Wait())
	})

	t.Run("goroutine stopping on cancel", func(t *testing.T) {
		gs := gracefulshutdown.New(context.Background(), "test")

		var stopped atomic.Bool

		gs.Go("worker", func(ctx context.Context) error {
			<-ctx.Done()
			time.Sleep(10 * time.Millisecond)
			stopped.Store(true)

			return nil
		})

		gs.Shutdown(0)

		assert.Equal(t, 0, gs.Wait())
		assert.True(t, stopped.Load(), "Wait should return only after the goroutine returned")
	})
}

// TestGracefulShutdown_FirstCodeWins verifies that only the first Shutdown call records its exit code.
func TestGracefulShutdown_FirstCodeWins(t *testing.T) {
	gs := gracefulshutdown.New(context.Background(), "test")

	gs.Shutdown(1)
	gs.Shutdown(0)

	assert.Equal(t, 1, gs.Wait())
}

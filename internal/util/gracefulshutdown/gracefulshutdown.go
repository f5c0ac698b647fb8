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

// Package gracefulshutdown ties long running goroutines to a signal-aware context.
package gracefulshutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// GracefulShutdown owns a context canceled by SIGTERM, SIGINT or Shutdown, and tracks the goroutines started with
// Go so that Wait returns only once all of them returned.
type GracefulShutdown struct {
	ctx    context.Context
	cancel context.CancelFunc
	name   string

	once sync.Once
	wg   sync.WaitGroup

	mu       sync.Mutex
	exitCode int
}

// New creates a GracefulShutdown whose context derives from parent.
func New(parent context.Context, name string) *GracefulShutdown {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGTERM, os.Interrupt)

	return &GracefulShutdown{
		ctx:    ctx,
		cancel: cancel,
		name:   name,
	}
}

// Context returns the context of the graceful shutdown.
func (s *GracefulShutdown) Context() context.Context {
	return s.ctx
}

// Go runs fn in a tracked goroutine. A non-nil error returned by fn initiates a shutdown with exit code 1.
func (s *GracefulShutdown) Go(name string, fn func(ctx context.Context) error) {
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		if err := fn(s.ctx); err != nil {
			slog.ErrorContext(s.ctx, "❌ received error", "goroutine", name, "error", err.Error())
			s.Shutdown(1)
		}
	}()
}

// Shutdown cancels the context and records exitCode. Only the first call has any effect.
func (s *GracefulShutdown) Shutdown(exitCode int) {
	s.once.Do(func() {
		slog.Info("⌛ gracefully shutting down", "name", s.name)

		s.mu.Lock()
		s.exitCode = exitCode
		s.mu.Unlock()

		s.cancel()
	})
}

// Wait blocks until the context is done and every goroutine started with Go returned, then returns the exit code.
// A context canceled by a signal yields exit code 0.
func (s *GracefulShutdown) Wait() int {
	<-s.ctx.Done()
	s.Shutdown(0)
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.exitCode
}

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

package httputil

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexandremahdhaoui/nvp-probe/internal/util/gracefulshutdown"
)

// ShutdownTimeout bounds how long a server may take to drain once the graceful shutdown started.
const ShutdownTimeout = 1 * time.Minute

// Serve runs each server in a goroutine tracked by gs and shuts it down when gs's context is done.
//
// A server failing to listen initiates a shutdown with exit code 1. Serve does not block.
func Serve(gs *gracefulshutdown.GracefulShutdown, servers map[string]*http.Server) {
	for name, server := range servers {
		name, server := name, server
		gs.Go(name, func(ctx context.Context) error {
			errCh := make(chan error, 1)

			go func() {
				slog.InfoContext(ctx, "starting server", "server", name, "addr", server.Addr)
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}

				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.ErrorContext(ctx, "❌ received error while shutting down server", "server", name, "error", err)

				return nil
			}

			slog.InfoContext(ctx, "✅ gracefully shut down server", "server", name)

			return nil
		})
	}
}

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

package controller

import (
	"context"
	"errors"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/alexandremahdhaoui/nvp-probe/internal/types"
)

var errIntervalMustBePositive = errors.New("watch interval must be positive")

// WatchFunc receives the outcome of each discovery run by Watch.
type WatchFunc func(result types.ProbeResult, err error)

// Watch runs a discovery immediately, then once per interval after the previous one returned, until ctx is done.
// Discovery failures are passed to fn and do not stop the loop.
func Watch(
	ctx context.Context,
	d Discovery,
	hosts []string,
	creds types.Credentials,
	interval time.Duration,
	fn WatchFunc,
) error {
	if interval <= 0 {
		return errIntervalMustBePositive
	}

	wait.UntilWithContext(ctx, func(ctx context.Context) {
		fn(d.Discover(ctx, hosts, creds))
	}, interval)

	return nil
}

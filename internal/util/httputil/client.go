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
	"crypto/tls"
	"net/http"
	"time"
)

// DefaultTimeout bounds every outbound request when ClientOptions.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// ClientOptions configures the http.Client used to talk to controller nodes.
type ClientOptions struct {
	// Timeout bounds a single request, including reading the response body.
	Timeout time.Duration
	// TLSConfig is used by the default transport. Ignored when Transport is set.
	TLSConfig *tls.Config
	// Transport overrides the default transport.
	Transport http.RoundTripper
}

// NewClient returns an http.Client configured from opts.
//
// The client never follows redirects: a 3xx response is returned to the caller, which decides where to send the
// request next.
func NewClient(opts ClientOptions) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := opts.Transport
	if transport == nil {
		base := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert
		base.TLSClientConfig = opts.TLSConfig
		transport = base
	}

	return &http.Client{ //nolint:exhaustruct
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

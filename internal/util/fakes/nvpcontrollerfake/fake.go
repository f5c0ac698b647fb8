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

// Package nvpcontrollerfake implements in-process controller cluster nodes for tests.
//
// A master node serves the transport-zone and control-cluster endpoints; any other node answers 401 to every
// authenticated request, like a non-master node of a real cluster. A redirector answers 307 to every request, pointing
// at the same path on another host.
package nvpcontrollerfake

import (
	"crypto/rand"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/alexandremahdhaoui/nvp-probe/internal/types"
	"github.com/alexandremahdhaoui/nvp-probe/internal/util/certutil"
	"github.com/alexandremahdhaoui/nvp-probe/internal/util/testutil"
)

// CookieName is the name of the session cookie issued on login.
const CookieName = "nvp-session"

const (
	loginPath         = "/ws.v1/login"
	clusterStatusPath = "/ws.v1/control-cluster/status"
	transportZonePath = "/ws.v1/transport-zone"
)

// ------------------------------------------------------ NODE ------------------------------------------------------ //

// Node is a fake controller node. It implements http.Handler.
type Node struct {
	mu sync.Mutex

	master      bool
	redirectTo  string
	zones       []types.TransportZone
	resultCount *int
	overrides   map[string]int
	sessions    map[string]struct{}
	requests    []string
}

// NewMaster returns a node acting as cluster master and reporting zones.
func NewMaster(zones ...types.TransportZone) *Node {
	return newNode(true, zones)
}

// NewSlave returns a node that is not the cluster master.
func NewSlave() *Node {
	return newNode(false, nil)
}

// NewRedirector returns a node redirecting every request to the same path on target.
func NewRedirector(target string) *Node {
	n := newNode(false, nil)
	n.redirectTo = target

	return n
}

func newNode(master bool, zones []types.TransportZone) *Node {
	return &Node{
		master:    master,
		zones:     zones,
		overrides: make(map[string]int),
		sessions:  make(map[string]struct{}),
	}
}

// WithStatus makes the node answer statusCode to any request on path, once the session is checked.
func (n *Node) WithStatus(path string, statusCode int) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.overrides[path] = statusCode

	return n
}

// WithResultCount makes the node report count in the transport-zone listing instead of the number of zones.
func (n *Node) WithResultCount(count int) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.resultCount = &count

	return n
}

// ExpireSessions forgets every session issued so far, so their cookies are answered 401.
func (n *Node) ExpireSessions() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.sessions = make(map[string]struct{})
}

// Requests returns the "METHOD /path" of every request received so far.
func (n *Node) Requests() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]string(nil), n.requests...)
}

// ServeHTTP implements http.Handler.
func (n *Node) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.requests = append(n.requests, r.Method+" "+r.URL.Path)

	if n.redirectTo != "" {
		http.Redirect(w, r, "https://"+n.redirectTo+r.URL.Path, http.StatusTemporaryRedirect)
		return
	}

	if r.URL.Path == loginPath {
		n.login(w, r)
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !n.hasSession(r) || !n.master {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	if code, ok := n.overrides[r.URL.Path]; ok {
		http.Error(w, fmt.Sprintf(`{"error":"forced status %d"}`, code), code)
		return
	}

	switch {
	case r.URL.Path == clusterStatusPath:
		writeJSON(w, types.ControlClusterStatus{ClusterStatus: "stable"})
	case r.URL.Path == transportZonePath:
		n.listTransportZones(w)
	default:
		n.getTransportZone(w, r.URL.Path)
	}
}

func (n *Node) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if code, ok := n.overrides[loginPath]; ok {
		http.Error(w, fmt.Sprintf("forced status %d", code), code)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if r.PostForm.Get("username") != testutil.TestUsername || r.PostForm.Get("password") != testutil.TestPassword {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token := newToken()
	n.sessions[token] = struct{}{}

	http.SetCookie(w, &http.Cookie{ //nolint:exhaustruct
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusOK)
}

func (n *Node) hasSession(r *http.Request) bool {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return false
	}

	_, ok := n.sessions[cookie.Value]

	return ok
}

func (n *Node) listTransportZones(w http.ResponseWriter) {
	list := types.TransportZoneList{
		ResultCount: len(n.zones),
		Results:     make([]types.TransportZoneRef, 0, len(n.zones)),
	}

	if n.resultCount != nil {
		list.ResultCount = *n.resultCount
	}

	for _, zone := range n.zones {
		list.Results = append(list.Results, types.TransportZoneRef{Href: zone.Href})
	}

	writeJSON(w, list)
}

func (n *Node) getTransportZone(w http.ResponseWriter, path string) {
	for _, zone := range n.zones {
		if zone.Href == path {
			writeJSON(w, zone)
			return
		}
	}

	http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
}

// ----------------------------------------------------- CLUSTER ---------------------------------------------------- //

// Cluster routes requests to fake nodes by host name. It implements http.RoundTripper, so tests can use arbitrary
// host names without listening on any port.
type Cluster struct {
	nodes map[string]http.Handler
}

// NewCluster returns a cluster whose nodes are addressed by the keys of nodes.
func NewCluster(nodes map[string]http.Handler) *Cluster {
	return &Cluster{nodes: nodes}
}

// RoundTrip implements http.RoundTripper. Unknown hosts fail like an unreachable address.
func (c *Cluster) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		defer func() { _ = req.Body.Close() }()
	}

	if err := req.Context().Err(); err != nil {
		return nil, err
	}

	node, ok := c.nodes[req.URL.Host]
	if !ok {
		return nil, fmt.Errorf("dial tcp %s: connect: connection refused", req.URL.Host)
	}

	rec := httptest.NewRecorder()
	node.ServeHTTP(rec, req)

	resp := rec.Result()
	resp.Request = req

	return resp, nil
}

// ------------------------------------------------------- TLS ------------------------------------------------------ //

// StartTLS serves node over HTTPS on a local port, with a certificate issued by ca for 127.0.0.1 and localhost.
// The server is closed when the test ends.
func StartTLS(t *testing.T, ca *certutil.CA, node *Node) *httptest.Server {
	t.Helper()

	kp := testutil.IssueKeyPair(t, ca, "127.0.0.1", "localhost")

	cert, err := kp.TLSCertificate()
	if err != nil {
		t.Fatalf("loading fake controller certificate: %v", err)
	}

	server := httptest.NewUnstartedServer(node)
	server.TLS = &tls.Config{ //nolint:exhaustruct
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	server.StartTLS()

	t.Cleanup(server.Close)

	return server
}

// --------------------------------------------------- UTILS -------------------------------------------------------- //

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}

func newToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)

	return hex.EncodeToString(b)
}

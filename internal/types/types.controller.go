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

package types

// -------------------------------------------------- CREDENTIALS --------------------------------------------------- //

// Credentials holds the username and password used to log into a controller node.
type Credentials struct {
	// Username is the login name.
	Username string
	// Password is the login password.
	Password string
}

// String never prints the password.
func (c Credentials) String() string {
	return "Credentials{Username: " + c.Username + ", Password: <redacted>}"
}

// ------------------------------------------------- TRANSPORT ZONE ------------------------------------------------- //

// TransportZoneRef is an entry of a transport-zone listing.
type TransportZoneRef struct {
	// Href is the API path of the transport zone, e.g. "/ws.v1/transport-zone/<uuid>".
	Href string `json:"_href"`
}

// TransportZoneList is the body returned by GET /ws.v1/transport-zone.
type TransportZoneList struct {
	// ResultCount is the number of transport zones reported by the controller.
	ResultCount int `json:"result_count"`
	// Results holds one reference per transport zone.
	Results []TransportZoneRef `json:"results"`
}

// TransportZone is the detail record of a transport zone.
type TransportZone struct {
	// UUID uniquely identifies the transport zone within the cluster.
	UUID string `json:"uuid"`
	// DisplayName is the human readable name, when the controller reports one.
	DisplayName string `json:"display_name,omitempty"`
	// Href is the API path of the transport zone.
	Href string `json:"_href,omitempty"`
}

// ------------------------------------------------- CLUSTER STATUS ------------------------------------------------- //

// ControlClusterStatus is the body returned by GET /ws.v1/control-cluster/status.
type ControlClusterStatus struct {
	ClusterStatus string `json:"cluster_status,omitempty"`
}

// -------------------------------------------------- PROBE MODE ---------------------------------------------------- //

// ProbeMode selects how a candidate host is identified as the cluster master.
type ProbeMode string

const (
	// TransportZoneProbeMode identifies the master with the status of the transport-zone listing.
	TransportZoneProbeMode ProbeMode = "transport-zone"
	// ClusterStatusProbeMode identifies the master with the status of the control-cluster status endpoint.
	ClusterStatusProbeMode ProbeMode = "cluster-status"
)

// IsValid reports whether m is a known probe mode.
func (m ProbeMode) IsValid() bool {
	switch m {
	case TransportZoneProbeMode, ClusterStatusProbeMode:
		return true
	default:
		return false
	}
}

// ------------------------------------------------- PROBE RESULT --------------------------------------------------- //

// ProbeResult is the outcome of a successful discovery.
type ProbeResult struct {
	// MasterHost is the first candidate that answered as cluster master.
	MasterHost string `json:"master"`
	// TransportZoneUUID is the uuid of the first transport zone listed by the master.
	TransportZoneUUID string `json:"transportZoneUUID"`
	// TransportZoneCount is the result_count reported by the master.
	TransportZoneCount int `json:"transportZoneCount"`
	// RedirectedTo is the node that answered in place of MasterHost after following redirects. Empty when no
	// redirect moved the session.
	RedirectedTo string `json:"redirectedTo,omitempty"`
}

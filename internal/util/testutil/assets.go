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

package testutil

import (
	"fmt"

	"github.com/alexandremahdhaoui/nvp-probe/internal/types"
)

const (
	// TestUsername and TestPassword are the credentials accepted by fake controllers.
	TestUsername = "admin"
	TestPassword = "s3cr3t"
)

// NewCredentials returns the credentials accepted by fake controllers.
func NewCredentials() types.Credentials {
	return types.Credentials{
		Username: TestUsername,
		Password: TestPassword,
	}
}

// TransportZoneHref returns the API path of the transport zone identified by uuid.
func TransportZoneHref(uuid string) string {
	return fmt.Sprintf("/ws.v1/transport-zone/%s", uuid)
}

// NewTransportZones returns one transport zone per uuid, in order.
func NewTransportZones(uuids ...string) []types.TransportZone {
	out := make([]types.TransportZone, 0, len(uuids))

	for i, id := range uuids {
		out = append(out, types.TransportZone{
			UUID:        id,
			DisplayName: fmt.Sprintf("tz-%d", i),
			Href:        TransportZoneHref(id),
		})
	}

	return out
}

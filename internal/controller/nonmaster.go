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
	"errors"
	"fmt"
)

// ErrNoNonMasterHost is returned when every candidate host is the master.
var ErrNoNonMasterHost = errors.New("no candidate host other than the master")

// SelectNonMaster returns a candidate host that is not master.
//
// When several candidates qualify, the last one in candidates order is returned. Such a host is the one a
// controller device should point to in order to verify that requests reach the master through a redirect.
func SelectNonMaster(candidates []string, master string) (string, error) {
	for i := len(candidates) - 1; i >= 0; i-- {
		if candidates[i] != "" && candidates[i] != master {
			return candidates[i], nil
		}
	}

	return "", errors.Join(ErrNoNonMasterHost, fmt.Errorf("master %q, candidates %v", master, candidates))
}

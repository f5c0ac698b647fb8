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

import "net/http"

// IsOK reports whether statusCode is 200. Other 2xx codes are not considered successful.
func IsOK(statusCode int) bool {
	return statusCode == http.StatusOK
}

// IsUnauthorized reports whether statusCode is 401.
func IsUnauthorized(statusCode int) bool {
	return statusCode == http.StatusUnauthorized
}

// IsRedirect reports whether statusCode is in the 300-307 range, 304 included.
func IsRedirect(statusCode int) bool {
	return statusCode >= http.StatusMultipleChoices && statusCode <= http.StatusTemporaryRedirect
}

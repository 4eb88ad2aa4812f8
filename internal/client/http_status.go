// Copyright 2026 Google LLC. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/s32k-flash/devices/ftfc"
	"github.com/google/s32k-flash/flash"
)

// ErrUnexpectedStatus is returned for HTTP responses with no flash error
// equivalent.
var ErrUnexpectedStatus = errors.New("unexpected HTTP status")

// errFromHTTPStatus maps an HTTP status back to the flash error the server
// reported.
func errFromHTTPStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return flash.ErrInvalidArgument
	case http.StatusGatewayTimeout:
		return ftfc.ErrTimeout
	case http.StatusInternalServerError:
		return ftfc.ErrIO
	case http.StatusRequestTimeout:
		return context.Canceled
	default:
		return ErrUnexpectedStatus
	}
}

func errFromRsp(m string, r *http.Response) error {
	if r.StatusCode == http.StatusOK {
		return nil
	}

	b, _ := io.ReadAll(r.Body) // Ignore any error, we want to ensure we return the right status code which we already know.

	return fmt.Errorf("%s: %w (%s): %s", m, errFromHTTPStatus(r.StatusCode), r.Status, b)
}

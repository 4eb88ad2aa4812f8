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

// Package client contains an HTTP client for the flash emulator.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/s32k-flash/api"
	"github.com/google/s32k-flash/flash"
)

// ErrChecksum is returned when read data does not match its checksum.
var ErrChecksum = errors.New("checksum mismatch")

// Client is a flash device served by the emulator.
type Client struct {
	url  *url.URL
	hc   *http.Client
	info api.Info
}

// New connects to the emulator at u and fetches the device geometry.
// If hc is nil, http.DefaultClient is used.
func New(ctx context.Context, u *url.URL, hc *http.Client) (*Client, error) {
	if hc == nil {
		hc = http.DefaultClient
	}
	c := &Client{url: u, hc: hc}
	info, err := c.GetInfo(ctx)
	if err != nil {
		return nil, err
	}
	c.info = info
	return c, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, in, out any) error {
	u, err := c.url.Parse(path)
	if err != nil {
		return err
	}
	if q != nil {
		u.RawQuery = q.Encode()
	}
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), &body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	r, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer r.Body.Close()
	if err := errFromRsp(fmt.Sprintf("%s %s", method, path), r); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(out)
}

// GetInfo fetches the geometry of the emulated device.
func (c *Client) GetInfo(ctx context.Context) (api.Info, error) {
	var info api.Info
	if err := c.do(ctx, http.MethodGet, api.HTTPInfo, nil, nil, &info); err != nil {
		return api.Info{}, err
	}
	return info, nil
}

// Read reads len(buf) bytes starting at offset, in requests of at most
// api.MaxReadLength bytes.
func (c *Client) Read(offset int64, buf []byte) error {
	if size := c.info.Size; offset < 0 || offset > size || int64(len(buf)) > size-offset {
		return fmt.Errorf("%w: range 0x%x+%d outside device of %d bytes", flash.ErrInvalidArgument, offset, len(buf), size)
	}
	for len(buf) > 0 {
		n := min(len(buf), api.MaxReadLength)
		var rsp api.ReadResponse
		q := url.Values{
			"offset": {strconv.FormatInt(offset, 10)},
			"length": {strconv.Itoa(n)},
		}
		if err := c.do(context.Background(), http.MethodGet, api.HTTPRead, q, nil, &rsp); err != nil {
			return err
		}
		if len(rsp.Data) != n || rsp.Offset != offset {
			return fmt.Errorf("asked for %d bytes at 0x%x, got %d at 0x%x", n, offset, len(rsp.Data), rsp.Offset)
		}
		if got := api.Checksum(rsp.Data); got != rsp.Checksum {
			return fmt.Errorf("%w: read 0x%x+%d has checksum 0x%04x, server sent 0x%04x", ErrChecksum, offset, n, got, rsp.Checksum)
		}
		copy(buf, rsp.Data)
		buf = buf[n:]
		offset += int64(n)
	}
	return nil
}

// Write programs data at offset.
func (c *Client) Write(ctx context.Context, offset int64, data []byte) error {
	return c.do(ctx, http.MethodPost, api.HTTPWrite, nil, api.WriteRequest{Offset: offset, Data: data}, nil)
}

// Erase erases size bytes starting at offset.
func (c *Client) Erase(ctx context.Context, offset, size int64) error {
	return c.do(ctx, http.MethodPost, api.HTTPErase, nil, api.EraseRequest{Offset: offset, Size: size}, nil)
}

// Parameters returns the device parameters fetched by New.
func (c *Client) Parameters() flash.Parameters {
	return flash.Parameters{WriteBlockSize: c.info.WriteBlockSize, EraseValue: c.info.EraseValue}
}

// Size returns the device size fetched by New.
func (c *Client) Size() int64 {
	return c.info.Size
}

// PageLayout returns the page layout fetched by New.
func (c *Client) PageLayout() []flash.PageLayout {
	var r []flash.PageLayout
	for _, p := range c.info.PageLayout {
		r = append(r, flash.PageLayout{Count: p.Count, Size: p.Size})
	}
	return r
}

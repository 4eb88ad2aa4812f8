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

// Package http contains private implementation details for the flash emulator server.
package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/golang/glog"
	"github.com/google/s32k-flash/api"
	"github.com/google/s32k-flash/devices/ftfc"
	"github.com/google/s32k-flash/flash"
	"github.com/gorilla/mux"
)

// Flash is the device served by the emulator.
type Flash interface {
	Read(offset int64, buf []byte) error
	Write(ctx context.Context, offset int64, data []byte) error
	Erase(ctx context.Context, offset, size int64) error
	Parameters() flash.Parameters
	Size() int64
	PageLayout() []flash.PageLayout
}

// Server is the core state & handler implementation of the flash emulator.
type Server struct {
	dev Flash
}

// NewServer creates a new server.
func NewServer(dev Flash) *Server {
	return &Server{
		dev: dev,
	}
}

// getInfo returns the geometry of the device.
func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	p := s.dev.Parameters()
	info := api.Info{
		Size:           s.dev.Size(),
		WriteBlockSize: p.WriteBlockSize,
		EraseValue:     p.EraseValue,
	}
	for _, l := range s.dev.PageLayout() {
		info.PageLayout = append(info.PageLayout, api.PageLayout{Count: l.Count, Size: l.Size})
	}
	writeJSON(w, info)
}

// read returns the requested range of the flash array with its checksum.
func (s *Server) read(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, err := strconv.ParseInt(q.Get("offset"), 0, 64)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid offset: %v", err), http.StatusBadRequest)
		return
	}
	length, err := strconv.ParseInt(q.Get("length"), 0, 64)
	if err != nil || length < 0 || length > api.MaxReadLength {
		http.Error(w, fmt.Sprintf("length must be between 0 and %d", api.MaxReadLength), http.StatusBadRequest)
		return
	}
	data := make([]byte, length)
	if err := s.dev.Read(offset, data); err != nil {
		http.Error(w, err.Error(), httpStatusForErr(err))
		return
	}
	writeJSON(w, api.ReadResponse{Offset: offset, Data: data, Checksum: api.Checksum(data)})
}

// maxRequestOverhead is the allowance for JSON framing around the data in a
// request body.
const maxRequestOverhead = 1 << 10

// decode reads a JSON request body no larger than a write covering the whole
// device.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	limit := int64(base64.StdEncoding.EncodedLen(int(s.dev.Size()))) + maxRequestOverhead
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit)).Decode(v)
	if err == nil {
		return true
	}
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		http.Error(w, fmt.Sprintf("request larger than %d bytes", tooBig.Limit), http.StatusRequestEntityTooLarge)
		return false
	}
	http.Error(w, fmt.Sprintf("failed to decode request: %v", err), http.StatusBadRequest)
	return false
}

// write programs the data in the request body.
func (s *Server) write(w http.ResponseWriter, r *http.Request) {
	var req api.WriteRequest
	if !s.decode(w, r, &req) {
		return
	}
	glog.V(1).Infof("write 0x%x+%d", req.Offset, len(req.Data))
	if err := s.dev.Write(r.Context(), req.Offset, req.Data); err != nil {
		glog.Warningf("write 0x%x+%d: %v", req.Offset, len(req.Data), err)
		http.Error(w, err.Error(), httpStatusForErr(err))
		return
	}
}

// erase erases the range in the request body.
func (s *Server) erase(w http.ResponseWriter, r *http.Request) {
	var req api.EraseRequest
	if !s.decode(w, r, &req) {
		return
	}
	glog.V(1).Infof("erase 0x%x+%d", req.Offset, req.Size)
	if err := s.dev.Erase(r.Context(), req.Offset, req.Size); err != nil {
		glog.Warningf("erase 0x%x+%d: %v", req.Offset, req.Size, err)
		http.Error(w, err.Error(), httpStatusForErr(err))
		return
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	js, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(js)
}

// httpStatusForErr maps flash errors to HTTP status codes.
func httpStatusForErr(e error) int {
	switch {
	case e == nil:
		return http.StatusOK
	case errors.Is(e, flash.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(e, ftfc.ErrTimeout), errors.Is(e, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(e, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// RegisterHandlers registers HTTP handlers for the flash emulator endpoints.
func (s *Server) RegisterHandlers(r *mux.Router) {
	r.HandleFunc(fmt.Sprintf("/%s", api.HTTPInfo), s.getInfo).Methods("GET")
	r.HandleFunc(fmt.Sprintf("/%s", api.HTTPRead), s.read).Methods("GET")
	r.HandleFunc(fmt.Sprintf("/%s", api.HTTPWrite), s.write).Methods("POST")
	r.HandleFunc(fmt.Sprintf("/%s", api.HTTPErase), s.erase).Methods("POST")
}

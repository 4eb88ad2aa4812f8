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

// Package ftfc drives the command interface of the FTFC flash memory
// controller found on NXP S32K1xx parts.
//
// Commands are issued by writing the opcode, address and data into the FCCOB
// registers and launching them through the CCIF flag of FSTAT. While a command
// runs the flash array may not be readable, so binaries calling into this
// package must execute from a memory region other than the flash bank being
// modified. That placement is checked when the board description is bound,
// see the board package.
package ftfc

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang/glog"
)

// DefaultMaxPolls bounds each busy-wait when no other policy is configured.
const DefaultMaxPolls = 1 << 20

var (
	// ErrIO is returned when the controller flags an error, either left over
	// from an earlier command or raised by the command just issued.
	ErrIO = errors.New("flash controller error")
	// ErrTimeout is returned when the controller does not signal command
	// completion within the configured polling policy or context deadline.
	ErrTimeout = errors.New("flash command timed out")

	errBusy = errors.New("command in progress")
)

// CommandError describes a failed controller interaction.
type CommandError struct {
	// Op names the step which failed.
	Op string
	// Addr is the flash address the command targeted.
	Addr uint32
	// Status is the last FSTAT value observed.
	Status Status
	// ErrStatus is the last FERSTAT value observed.
	ErrStatus uint8
	// Err is ErrIO, ErrTimeout, or a context error.
	Err error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s at 0x%06x: %v (FSTAT=%v FERSTAT=0x%02x)", e.Op, e.Addr, e.Err, e.Status, e.ErrStatus)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Controller issues commands to one FTFC instance.
//
// Controller does not serialise callers: the controller runs one command at a
// time, so concurrent use must be excluded at a higher level.
type Controller struct {
	regs       Registers
	newBackOff func() backoff.BackOff
}

// Option configures a Controller.
type Option func(*Controller)

// WithMaxPolls bounds each busy-wait to n status reads after the first.
func WithMaxPolls(n uint64) Option {
	return func(c *Controller) {
		c.newBackOff = func() backoff.BackOff {
			return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, n)
		}
	}
}

// WithBackOff sets the policy used between status reads while waiting for a
// command to complete. f is called once per wait.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(c *Controller) {
		c.newBackOff = f
	}
}

// New returns a controller driving the given register block.
func New(regs Registers, opts ...Option) *Controller {
	c := &Controller{regs: regs}
	WithMaxPolls(DefaultMaxPolls)(c)
	for _, o := range opts {
		o(c)
	}
	return c
}

// Init unconditionally clears the FSTAT error flags and FERSTAT.
// It is intended to be called once when the driver starts.
func (c *Controller) Init() error {
	c.regs.Write8(FSTAT, StatusErrors)
	c.regs.Write8(FERSTAT, c.regs.Read8(FERSTAT))
	glog.V(1).Info("FTFC error flags cleared")
	return nil
}

// Ready clears any stale error flags and waits for the controller to accept
// a new command.
// When no error is pending, Ready does not write to the controller.
func (c *Controller) Ready(ctx context.Context) error {
	if s, err := c.ready(ctx); err != nil {
		return &CommandError{Op: "ready", Status: s, Err: err}
	}
	return nil
}

func (c *Controller) status() Status {
	return Status(c.regs.Read8(FSTAT))
}

// ready implements Ready, returning the last status seen.
func (c *Controller) ready(ctx context.Context) (Status, error) {
	if s := c.status(); s.Errors() != 0 {
		c.regs.Write8(FSTAT, StatusErrors)
	}
	if s, err := c.waitComplete(ctx); err != nil {
		return s, err
	}
	s := c.status()
	if s.Errors() != 0 {
		c.regs.Write8(FSTAT, StatusErrors)
		return s, ErrIO
	}
	return s, nil
}

// launch starts the command loaded into FCCOB, waits for it to finish and
// checks both error registers. Error flags are cleared before returning.
func (c *Controller) launch(ctx context.Context) (Status, uint8, error) {
	c.regs.Write8(FSTAT, StatusCCIF)
	s, err := c.waitComplete(ctx)
	if err != nil {
		return s, 0, err
	}
	if s = c.status(); s.Errors() != 0 {
		c.regs.Write8(FSTAT, StatusErrors)
		return s, 0, ErrIO
	}
	if fe := c.regs.Read8(FERSTAT); fe != 0 {
		c.regs.Write8(FERSTAT, fe)
		return s, fe, ErrIO
	}
	return s, 0, nil
}

// waitComplete polls FSTAT until CCIF is set.
func (c *Controller) waitComplete(ctx context.Context) (Status, error) {
	var s Status
	poll := func() error {
		if s = c.status(); !s.Complete() {
			return errBusy
		}
		return nil
	}
	err := backoff.Retry(poll, backoff.WithContext(c.newBackOff(), ctx))
	switch {
	case err == nil:
		return s, nil
	case errors.Is(err, errBusy):
		return s, ErrTimeout
	case errors.Is(err, context.DeadlineExceeded):
		return s, fmt.Errorf("%w: %v", ErrTimeout, err)
	default:
		return s, err
	}
}

// go-busdev
// Copyright (c) 2026 The go-busdev Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-busdev.
//
// go-busdev is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-busdev is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-busdev; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package busdev

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this module matches exactly one of
// the first six with errors.Is; the remaining sentinels refine them.
var (
	// ErrOpen reports a port that is unavailable or already open elsewhere.
	ErrOpen = errors.New("port unavailable")
	// ErrTimeout reports that no bytes arrived within the configured deadline.
	ErrTimeout = errors.New("timeout")
	// ErrChecksum reports a checksum or CRC mismatch.
	ErrChecksum = errors.New("checksum mismatch")
	// ErrNack reports an echo mismatch or a negative acknowledgement.
	ErrNack = errors.New("negative acknowledgement")
	// ErrOutOfRange reports a value outside the device's declared domain.
	ErrOutOfRange = errors.New("value out of range")
	// ErrTooManyDevices reports a full device registry.
	ErrTooManyDevices = errors.New("too many devices")
)

// Refinements of the error kinds above.
var (
	ErrClosed         = fmt.Errorf("%w: port closed", ErrOpen)
	ErrAlreadyOpen    = fmt.Errorf("%w: already open", ErrOpen)
	ErrTransportRead  = fmt.Errorf("%w: read failed", ErrOpen)
	ErrTransportWrite = fmt.Errorf("%w: write failed", ErrOpen)
	ErrFrameCorrupted = fmt.Errorf("%w: frame corrupted", ErrChecksum)
	ErrShortFrame     = fmt.Errorf("%w: short frame", ErrChecksum)
)

// Session and codec errors that are not device failures.
var (
	ErrNotConnected     = errors.New("session not connected")
	ErrAlreadyConnected = errors.New("session already connected")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNotConverged     = errors.New("did not converge")
)

// ErrorType classifies errors for retry decisions
type ErrorType int

const (
	// ErrorTypePermanent errors are returned to the caller immediately
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient errors may succeed on a fresh attempt
	ErrorTypeTransient
	// ErrorTypeTimeout errors are transient errors caused by silence on the line
	ErrorTypeTimeout
)

// String returns a readable error type name
func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return "permanent"
	}
}

// TransportError carries the operation and port an error occurred on
type TransportError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s on %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a TransportError. Retryable follows the type.
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType != ErrorTypePermanent,
	}
}

// NewOpenError wraps an OS-level open failure.
func NewOpenError(port string, cause error) *TransportError {
	err := ErrOpen
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrOpen, cause)
	}
	return NewTransportError("open", port, err, ErrorTypePermanent)
}

// NewTimeoutError creates a retryable timeout error
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTimeout, ErrorTypeTimeout)
}

// NewChecksumError creates a retryable checksum mismatch error
func NewChecksumError(op, port string, want, got uint16) *TransportError {
	return NewTransportError(op, port,
		fmt.Errorf("%w: want 0x%04x, got 0x%04x", ErrChecksum, want, got), ErrorTypeTransient)
}

// NewFrameCorruptedError creates a retryable structural frame error
func NewFrameCorruptedError(op, port, detail string) *TransportError {
	return NewTransportError(op, port, fmt.Errorf("%w: %s", ErrFrameCorrupted, detail), ErrorTypeTransient)
}

// NewNackError creates a retryable echo/NACK error
func NewNackError(op, port, detail string) *TransportError {
	err := ErrNack
	if detail != "" {
		err = fmt.Errorf("%w: %s", ErrNack, detail)
	}
	return NewTransportError(op, port, err, ErrorTypeTransient)
}

// NewReadError wraps an OS-level read failure. It is not retried: a port
// that fails reads is unavailable.
func NewReadError(port string, cause error) *TransportError {
	return NewTransportError("read", port, fmt.Errorf("%w: %w", ErrTransportRead, cause), ErrorTypePermanent)
}

// NewWriteError wraps an OS-level write failure.
func NewWriteError(port string, cause error) *TransportError {
	return NewTransportError("write", port, fmt.Errorf("%w: %w", ErrTransportWrite, cause), ErrorTypePermanent)
}

// RangeError reports a parameter outside its declared domain
type RangeError struct {
	Value any
	Min   any
	Max   any
	Param string
}

// NewRangeError creates a RangeError
func NewRangeError(param string, value, lo, hi any) *RangeError {
	return &RangeError{Param: param, Value: value, Min: lo, Max: hi}
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%v: %s=%v not in [%v, %v]", ErrOutOfRange, e.Param, e.Value, e.Min, e.Max)
}

func (*RangeError) Unwrap() error {
	return ErrOutOfRange
}

// IsRetryable reports whether a fresh attempt may succeed. Only timeouts,
// NACKs and checksum failures qualify.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}

	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrNack) || errors.Is(err, ErrChecksum)
}

// GetErrorType returns the ErrorType of err
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Type
	}

	switch {
	case errors.Is(err, ErrTimeout):
		return ErrorTypeTimeout
	case errors.Is(err, ErrNack), errors.Is(err, ErrChecksum):
		return ErrorTypeTransient
	default:
		return ErrorTypePermanent
	}
}

/**
 * Copyright 2021 The IcecaneDB Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package common

import (
	"fmt"
)

// NotFoundError is returned when the required value is not found.
type NotFoundError struct {
	Message string
}

func (nf NotFoundError) Error() string {
	return nf.Message
}

// NewNotFoundError creates a new instance of NotFoundError with the given message.
func NewNotFoundError(message string) NotFoundError {
	return NotFoundError{
		Message: message,
	}
}

// InvalidStateError is returned when an operation is called on a txn that is not active.
type InvalidStateError struct {
	Message string
}

func (ise InvalidStateError) Error() string {
	return ise.Message
}

// NewInvalidStateError creates a new instance of InvalidStateError with the given message.
func NewInvalidStateError(message string) InvalidStateError {
	return InvalidStateError{
		Message: message,
	}
}

// ConflictError is returned when a commit touches a key that was committed
// by another txn after the committing txn's snapshot.
type ConflictError struct {
	Message string
	Key     []byte
}

func (ce ConflictError) Error() string {
	return ce.Message
}

// NewConflictError creates a new instance of ConflictError for the given key.
func NewConflictError(message string, key []byte) ConflictError {
	return ConflictError{
		Message: message,
		Key:     key,
	}
}

// TransactionCommitError is returned when a commit operation fails on a txn.
type TransactionCommitError struct {
	Message string
	Cause   error
}

func (tce TransactionCommitError) Error() string {
	if tce.Cause == nil {
		return tce.Message
	}
	return fmt.Sprintf("%s: %v", tce.Message, tce.Cause)
}

func (tce TransactionCommitError) Unwrap() error {
	return tce.Cause
}

// NewTransactionCommitError creates a new instance of TransactionCommitError with the given message.
func NewTransactionCommitError(message string, cause error) TransactionCommitError {
	return TransactionCommitError{
		Message: message,
		Cause:   cause,
	}
}

// InvalidPropertyError is returned when a property value is not a supported scalar.
type InvalidPropertyError struct {
	Message string
}

func (ipe InvalidPropertyError) Error() string {
	return ipe.Message
}

// NewInvalidPropertyError creates a new instance of InvalidPropertyError with the given message.
func NewInvalidPropertyError(message string) InvalidPropertyError {
	return InvalidPropertyError{
		Message: message,
	}
}

// WorkerFailureError is reported to the awaiting caller when a unit of work
// could not commit its transaction.
type WorkerFailureError struct {
	Message string
	Unit    string
	Cause   error
}

func (wfe WorkerFailureError) Error() string {
	return fmt.Sprintf("%s (unit %s): %v", wfe.Message, wfe.Unit, wfe.Cause)
}

func (wfe WorkerFailureError) Unwrap() error {
	return wfe.Cause
}

// NewWorkerFailureError creates a new instance of WorkerFailureError wrapping the cause.
func NewWorkerFailureError(message, unit string, cause error) WorkerFailureError {
	return WorkerFailureError{
		Message: message,
		Unit:    unit,
		Cause:   cause,
	}
}

// AwaitTimeoutError is returned when a unit of work does not finish within the await timeout.
type AwaitTimeoutError struct {
	Message string
}

func (ate AwaitTimeoutError) Error() string {
	return ate.Message
}

// NewAwaitTimeoutError creates a new instance of AwaitTimeoutError with the given message.
func NewAwaitTimeoutError(message string) AwaitTimeoutError {
	return AwaitTimeoutError{
		Message: message,
	}
}

// PoolClosedError is returned when work is submitted to a pool that has been shut down.
type PoolClosedError struct {
	Message string
}

func (pce PoolClosedError) Error() string {
	return pce.Message
}

// NewPoolClosedError creates a new instance of PoolClosedError with the given message.
func NewPoolClosedError(message string) PoolClosedError {
	return PoolClosedError{
		Message: message,
	}
}

// ScenarioMismatchError is returned when an observed query result differs from the expected one.
type ScenarioMismatchError struct {
	Message  string
	Expected []string
	Actual   []string
}

func (sme ScenarioMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %v, got %v", sme.Message, sme.Expected, sme.Actual)
}

// NewScenarioMismatchError creates a new instance of ScenarioMismatchError.
func NewScenarioMismatchError(message string, expected, actual []string) ScenarioMismatchError {
	return ScenarioMismatchError{
		Message:  message,
		Expected: expected,
		Actual:   actual,
	}
}

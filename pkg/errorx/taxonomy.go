// Copyright 2024 EMQ Technologies Co., Ltd.
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

package errorx

import "fmt"

// DuplicateNameError is returned when a stream, table or topic name is already registered.
type DuplicateNameError struct {
	Kind string
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("%s %s already exists", e.Kind, e.Name)
}

func (e *DuplicateNameError) Code() ErrorCode { return DuplicateName }

type UnknownSourceError struct {
	Name string
}

func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("source %s is not found", e.Name)
}

func (e *UnknownSourceError) Code() ErrorCode { return UnknownSource }

type UnknownTopicError struct {
	Name string
}

func (e *UnknownTopicError) Error() string {
	return fmt.Sprintf("topic %s is not found", e.Name)
}

func (e *UnknownTopicError) Code() ErrorCode { return UnknownSource }

type UnknownColumnError struct {
	Name string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("unknown column %s", e.Name)
}

func (e *UnknownColumnError) Code() ErrorCode { return UnknownColumn }

type UnknownFunctionError struct {
	Name string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("unknown function %s", e.Name)
}

func (e *UnknownFunctionError) Code() ErrorCode { return UnknownFunction }

type TypeMismatchError struct {
	Msg string
}

func NewTypeMismatch(format string, args ...any) error {
	return &TypeMismatchError{Msg: fmt.Sprintf(format, args...)}
}

func (e *TypeMismatchError) Error() string {
	return "type mismatch: " + e.Msg
}

func (e *TypeMismatchError) Code() ErrorCode { return TypeMismatch }

// InvalidStatementError reports a clause combination that cannot be planned.
type InvalidStatementError struct {
	Msg string
}

func NewInvalidStatement(format string, args ...any) error {
	return &InvalidStatementError{Msg: fmt.Sprintf(format, args...)}
}

func (e *InvalidStatementError) Error() string {
	return "invalid statement: " + e.Msg
}

func (e *InvalidStatementError) Code() ErrorCode { return InvalidStatement }

// DecodeError means one record could not be decoded against its schema.
// The record is skipped, the query keeps running.
type DecodeError struct {
	Topic     string
	Partition int
	Offset    int64
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode record %s[%d]@%d error: %v", e.Topic, e.Partition, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Code() ErrorCode { return DecodeErr }

// RuntimeEvaluationError is fatal to the query that raised it.
type RuntimeEvaluationError struct {
	Expr string
	Err  error
}

func (e *RuntimeEvaluationError) Error() string {
	return fmt.Sprintf("evaluate %s error: %v", e.Expr, e.Err)
}

func (e *RuntimeEvaluationError) Unwrap() error { return e.Err }

func (e *RuntimeEvaluationError) Code() ErrorCode { return RuntimeEvaluation }

// CompileError wraps the first error met while compiling a statement.
type CompileError struct {
	Statement string
	Err       error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %q error: %v", e.Statement, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

func (e *CompileError) Code() ErrorCode { return CompileErr }

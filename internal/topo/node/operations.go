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

package node

import (
	"context"

	"github.com/lf-edge/kql/internal/xsql"
	"github.com/lf-edge/kql/pkg/infra"
)

// UnOperation is a stateless per tuple operation. It returns nil to drop the
// tuple, an error to fail the query or the tuples to emit.
type UnOperation interface {
	Apply(ctx context.Context, data any) any
}

// UnFunc implements UnOperation as a function.
type UnFunc func(context.Context, any) any

func (f UnFunc) Apply(ctx context.Context, data any) any {
	return f(ctx, data)
}

type UnaryOperator struct {
	*defaultSinkNode
	op UnOperation
}

func New(queryID, name string, bufferLength int) *UnaryOperator {
	return &UnaryOperator{
		defaultSinkNode: newDefaultSinkNode(queryID, name, bufferLength),
	}
}

func (o *UnaryOperator) SetOperation(op UnOperation) {
	o.op = op
}

func (o *UnaryOperator) Exec(ctx context.Context, errCh chan<- error) {
	if o.op == nil {
		o.logger.Info("Unary operator missing operation")
		return
	}
	defer o.logger.Infof("unary operator %s done", o.name)
	for {
		select {
		case item := <-o.input:
			o.recordsIn.Inc()
			switch val := o.op.Apply(ctx, item).(type) {
			case nil:
				continue
			case error:
				o.logger.Errorf("Operation %s error: %s", o.name, val)
				infra.DrainError(ctx, val, errCh)
				return
			case []*xsql.Tuple:
				for _, t := range val {
					if !o.Broadcast(ctx, t) {
						return
					}
				}
			default:
				if !o.Broadcast(ctx, val) {
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

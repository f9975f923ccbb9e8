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

package infra

import (
	"context"
	"fmt"
)

// SafeRun runs fn and turns a panic into an error.
func SafeRun(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch x := r.(type) {
			case string:
				err = fmt.Errorf("%s", x)
			case error:
				err = x
			default:
				err = fmt.Errorf("%#v", x)
			}
		}
	}()
	return fn()
}

// DrainError sends err to errCh unless ctx is done first. A nil ctx always sends.
func DrainError(ctx context.Context, err error, errCh chan<- error) {
	if ctx == nil {
		errCh <- err
		return
	}
	select {
	case errCh <- err:
	case <-ctx.Done():
	}
}

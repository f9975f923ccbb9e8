// Copyright 2021-2024 EMQ Technologies Co., Ltd.
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

package conf

import (
	"time"

	"github.com/benbjohnson/clock"
)

var Clock clock.Clock

// InitClock uses a mock clock starting at the epoch for tests.
func InitClock() {
	if IsTesting {
		Log.Debugf("Mock clock activated")
		Clock = clock.NewMock()
	} else {
		Clock = clock.New()
	}
}

func GetNowInMilli() int64 {
	return Clock.Now().UnixMilli()
}

func GetNow() time.Time {
	return Clock.Now()
}

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

package converter

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/lf-edge/kql/internal/converter/cbor"
	"github.com/lf-edge/kql/internal/converter/delimited"
	"github.com/lf-edge/kql/internal/converter/json"
	"github.com/lf-edge/kql/internal/converter/msgpack"
	"github.com/lf-edge/kql/pkg/api"
	"github.com/lf-edge/kql/pkg/errorx"
)

const (
	FormatJson      = "json"
	FormatCbor      = "cbor"
	FormatMsgpack   = "msgpack"
	FormatDelimited = "delimited"
)

type Factory func() api.RecordCodec

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

func init() {
	RegisterCodec(FormatJson, func() api.RecordCodec { return json.NewConverter() })
	RegisterCodec(FormatCbor, func() api.RecordCodec { return cbor.NewConverter() })
	RegisterCodec(FormatMsgpack, func() api.RecordCodec { return msgpack.NewConverter() })
	RegisterCodec(FormatDelimited, func() api.RecordCodec { return delimited.NewConverter() })
}

// RegisterCodec adds or replaces the codec of a value format.
func RegisterCodec(format string, f Factory) {
	mu.Lock()
	factories[strings.ToLower(format)] = f
	mu.Unlock()
}

// GetCodec returns the codec of a format, json when empty. Formats are case-insensitive.
func GetCodec(format string) (api.RecordCodec, error) {
	t := strings.ToLower(format)
	if t == "" {
		t = FormatJson
	}
	mu.RLock()
	f, ok := factories[t]
	mu.RUnlock()
	if !ok {
		return nil, errorx.NewWithCode(errorx.ConverterErr, fmt.Sprintf("format type %s not supported", format))
	}
	return f(), nil
}

// IsSupported tells if a format has a registered codec.
func IsSupported(format string) bool {
	_, err := GetCodec(format)
	return err == nil
}

func Formats() []string {
	mu.RLock()
	defer mu.RUnlock()
	r := make([]string, 0, len(factories))
	for k := range factories {
		r = append(r, k)
	}
	sort.Strings(r)
	return r
}

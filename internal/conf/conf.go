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
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/sirupsen/logrus"
	rotatelogs "github.com/yisaer/file-rotatelogs"

	"github.com/lf-edge/kql/pkg/kv"
)

const ConfFileName = "kql.yaml"

var (
	Config    *KqlConf
	IsTesting bool
)

type KafkaConf struct {
	Brokers      []string `yaml:"brokers"`
	RequiredAcks int      `yaml:"requiredAcks"`
	MaxAttempts  int      `yaml:"maxAttempts"`
	// MinBytes and MaxBytes bound the fetch size of the readers
	MinBytes int `yaml:"minBytes"`
	MaxBytes int `yaml:"maxBytes"`
}

type LogConf struct {
	// Type is memory or kafka
	Type  string    `yaml:"type"`
	Kafka KafkaConf `yaml:"kafka"`
	// Partitions is the default partition count of new topics
	Partitions int `yaml:"partitions"`
}

type RetryConf struct {
	Attempts int `yaml:"attempts"`
	// Delay and MaxDelay are in milliseconds
	Delay    int `yaml:"delay"`
	MaxDelay int `yaml:"maxDelay"`
}

type EngineConf struct {
	BufferLength int `yaml:"bufferLength"`
	// Grace is the milliseconds a window stays open after its end
	Grace     int       `yaml:"grace"`
	SinkRetry RetryConf `yaml:"sinkRetry"`
	// DefaultFormat is the value format of derived topics without VALUE_FORMAT
	DefaultFormat string `yaml:"defaultFormat"`
}

type KqlConf struct {
	Basic struct {
		Debug      bool   `yaml:"debug"`
		ConsoleLog bool   `yaml:"consoleLog"`
		FileLog    bool   `yaml:"fileLog"`
		RotateTime int    `yaml:"rotateTime"`
		MaxAge     int    `yaml:"maxAge"`
		RestIp     string `yaml:"restIp"`
		RestPort   int    `yaml:"restPort"`
		Prometheus bool   `yaml:"prometheus"`
	}
	Log    LogConf    `yaml:"log"`
	Store  kv.Config  `yaml:"store"`
	Engine EngineConf `yaml:"engine"`
}

func defaultConf() KqlConf {
	kc := KqlConf{
		Log: LogConf{
			Type:       "memory",
			Partitions: 1,
			Kafka: KafkaConf{
				RequiredAcks: -1,
				MaxAttempts:  3,
				MinBytes:     1,
				MaxBytes:     10e6,
			},
		},
		Store: kv.Config{Type: "memory"},
		Engine: EngineConf{
			BufferLength:  1024,
			DefaultFormat: "json",
			SinkRetry: RetryConf{
				Attempts: 3,
				Delay:    100,
				MaxDelay: 5000,
			},
		},
	}
	kc.Basic.RestIp = "0.0.0.0"
	kc.Basic.RestPort = 9081
	kc.Basic.ConsoleLog = true
	kc.Basic.RotateTime = 24
	kc.Basic.MaxAge = 72
	return kc
}

// InitConf loads etc/kql.yaml over the defaults. A missing file keeps the defaults.
func InitConf() {
	kc := defaultConf()
	cpath, err := GetConfLoc()
	if err != nil {
		Log.Warnf("conf dir is not found, use the default configuration: %v", err)
	} else if err := LoadConfigFromPath(path.Join(cpath, ConfFileName), &kc); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			Log.Warnf("%s is not found, use the default configuration", ConfFileName)
		} else {
			Log.Fatal(err)
		}
	}
	SetConf(&kc)
}

// LoadConf loads the file at p over the defaults and validates it.
func LoadConf(p string) (*KqlConf, error) {
	kc := defaultConf()
	if err := LoadConfigFromPath(p, &kc); err != nil {
		return nil, err
	}
	if err := kc.Validate(); err != nil {
		Log.Warnf("configuration is corrected: %v", err)
	}
	return &kc, nil
}

// SetConf installs the configuration and applies its log settings.
func SetConf(kc *KqlConf) {
	_ = kc.Validate()
	Config = kc
	if Config.Basic.Debug {
		Log.SetLevel(logrus.DebugLevel)
	}
	if Config.Basic.FileLog {
		logDir, err := GetLogLoc()
		if err != nil {
			Log.Errorf("Failed to log to file: %v", err)
			return
		}
		file := path.Join(logDir, logFileName)
		logWriter, err := rotatelogs.New(
			file+".%Y-%m-%d_%H-%M-%S",
			rotatelogs.WithLinkName(file),
			rotatelogs.WithRotationTime(time.Hour*time.Duration(Config.Basic.RotateTime)),
			rotatelogs.WithMaxAge(time.Hour*time.Duration(Config.Basic.MaxAge)),
		)
		if err != nil {
			fmt.Println("Failed to init log file settings..." + err.Error())
			Log.Infof("Failed to log to file, using default stderr.")
		} else if Config.Basic.ConsoleLog {
			Log.SetOutput(io.MultiWriter(os.Stdout, logWriter))
		} else {
			Log.SetOutput(logWriter)
		}
	} else if Config.Basic.ConsoleLog {
		Log.SetOutput(os.Stdout)
	}
}

// Validate the configuration and reset to the default value for invalid values.
func (kc *KqlConf) Validate() error {
	var errs error
	if kc.Basic.RestPort <= 0 || kc.Basic.RestPort > 65535 {
		Log.Warnf("invalid basic.restPort configuration %d, set to 9081", kc.Basic.RestPort)
		errs = errors.Join(errs, errors.New("invalidRestPort:restPort must between 0 and 65535"))
		kc.Basic.RestPort = 9081
	}
	switch kc.Log.Type {
	case "memory", "kafka":
	default:
		Log.Warnf("unknown log type %s, set to memory", kc.Log.Type)
		errs = errors.Join(errs, fmt.Errorf("invalidLogType:log type %s is not memory or kafka", kc.Log.Type))
		kc.Log.Type = "memory"
	}
	if kc.Log.Type == "kafka" && len(kc.Log.Kafka.Brokers) == 0 {
		errs = errors.Join(errs, errors.New("missingBrokers:kafka log requires brokers"))
	}
	if kc.Log.Partitions <= 0 {
		Log.Warnf("log partitions is not positive, set to 1")
		errs = errors.Join(errs, errors.New("invalidPartitions:partitions must be positive"))
		kc.Log.Partitions = 1
	}
	if kc.Engine.BufferLength <= 0 {
		kc.Engine.BufferLength = 1024
		Log.Warnf("bufferLength is not positive, set to 1024")
		errs = errors.Join(errs, errors.New("invalidBufferLength:bufferLength must be greater than 0"))
	}
	if kc.Engine.Grace < 0 {
		kc.Engine.Grace = 0
		Log.Warnf("grace is negative, set to 0")
		errs = errors.Join(errs, errors.New("invalidGrace:grace must not be negative"))
	}
	if kc.Engine.SinkRetry.Attempts < 0 {
		kc.Engine.SinkRetry.Attempts = 0
		Log.Warnf("sink retry attempts is negative, set to 0")
		errs = errors.Join(errs, errors.New("invalidRetryAttempts:retry attempts must not be negative"))
	}
	if kc.Engine.SinkRetry.Delay <= 0 {
		kc.Engine.SinkRetry.Delay = 100
		Log.Warnf("sink retry delay is not positive, set to 100")
		errs = errors.Join(errs, errors.New("invalidRetryDelay:retry delay must be greater than 0"))
	}
	if kc.Engine.SinkRetry.MaxDelay < kc.Engine.SinkRetry.Delay {
		kc.Engine.SinkRetry.MaxDelay = kc.Engine.SinkRetry.Delay
		Log.Warnf("sink retry maxDelay is less than delay, set to %d", kc.Engine.SinkRetry.Delay)
		errs = errors.Join(errs, errors.New("invalidRetryMaxDelay:retry maxDelay must not be less than delay"))
	}
	if kc.Engine.DefaultFormat == "" {
		kc.Engine.DefaultFormat = "json"
	}
	return errs
}

func init() {
	InitLogger()
	InitClock()
}

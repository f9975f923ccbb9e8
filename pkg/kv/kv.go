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

package kv

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// KeyValue is a named table of gob encoded values.
type KeyValue interface {
	// Setnx sets key to hold value if key does not exist otherwise return an error
	Setnx(key string, value interface{}) error
	// Set key to hold the value. If key already holds a value, it is overwritten
	Set(key string, value interface{}) error
	// Get decodes the value of key into val and reports whether it exists
	Get(key string, val interface{}) (bool, error)
	// Delete must return *errorx.Error with NOT_FOUND error
	Delete(key string) error
	// Keys returns the keys in ascending order
	Keys() (keys []string, err error)
	Clean() error
	Drop() error
}

// Config selects and configures the backing database.
type Config struct {
	Type   string       `yaml:"type"`
	Sqlite SqliteConfig `yaml:"sqlite"`
	Redis  RedisConfig  `yaml:"redis"`
}

type SqliteConfig struct {
	Path string `yaml:"path"`
	Name string `yaml:"name"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	// Timeout is in milliseconds
	Timeout int `yaml:"timeout"`
}

// StoreBuilder creates the tables of one database.
type StoreBuilder interface {
	CreateStore(table string) (KeyValue, error)
	Close() error
}

// NewStoreBuilder connects the database named by c.Type.
func NewStoreBuilder(c Config) (StoreBuilder, error) {
	switch c.Type {
	case "", "memory":
		return NewMemoryStoreBuilder(), nil
	case "sqlite":
		db, err := NewSqliteDatabase(c.Sqlite)
		if err != nil {
			return nil, err
		}
		if err := db.Connect(); err != nil {
			return nil, err
		}
		return NewSqlStoreBuilder(db), nil
	case "redis":
		db := NewRedis(c.Redis)
		if err := db.Connect(); err != nil {
			return nil, err
		}
		return NewRedisStoreBuilder(db), nil
	default:
		return nil, fmt.Errorf("unknown database type: %s", c.Type)
	}
}

func Encode(value interface{}) ([]byte, error) {
	var buff bytes.Buffer
	gob.Register(value)
	enc := gob.NewEncoder(&buff)
	if err := enc.Encode(value); err != nil {
		return nil, err
	}
	return buff.Bytes(), nil
}

func Decode(b []byte, value interface{}) error {
	return gob.NewDecoder(bytes.NewBuffer(b)).Decode(value)
}

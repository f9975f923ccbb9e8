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
	"database/sql"
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/lf-edge/kql/pkg/errorx"
)

type Database struct {
	db   *sql.DB
	Path string
	mu   sync.Mutex
}

func NewSqliteDatabase(c SqliteConfig) (*Database, error) {
	dir := c.Path
	name := "sqliteKV.db"
	if c.Name != "" {
		name = c.Name
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, err
		}
	}
	return &Database{
		Path: path.Join(dir, name),
	}, nil
}

func (d *Database) Connect() error {
	db, err := sql.Open("sqlite", connectionString(d.Path))
	if err != nil {
		return err
	}
	db.SetMaxIdleConns(1)
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(-1)
	d.db = db
	return nil
}

func connectionString(dpath string) string {
	return fmt.Sprintf("file:%s?cache=shared", dpath)
}

func (d *Database) Disconnect() error {
	return d.db.Close()
}

func (d *Database) Apply(f func(db *sql.DB) error) error {
	d.mu.Lock()
	err := f(d.db)
	d.mu.Unlock()
	return err
}

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

type sqlKvStore struct {
	database *Database
	table    string
}

func createSqlKvStore(database *Database, table string) (*sqlKvStore, error) {
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %s", table)
	}
	store := &sqlKvStore{
		database: database,
		table:    table,
	}
	err := store.database.Apply(func(db *sql.DB) error {
		query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS '%s'('key' VARCHAR(255) PRIMARY KEY, 'val' BLOB);", table)
		_, err := db.Exec(query)
		return err
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (kv *sqlKvStore) Setnx(key string, value interface{}) error {
	b, err := Encode(value)
	if nil != err {
		return err
	}
	return kv.database.Apply(func(db *sql.DB) error {
		query := fmt.Sprintf("INSERT INTO '%s'(key,val) values(?,?);", kv.table)
		_, err := db.Exec(query, key, b)
		if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("key %s already exists", key)
		}
		return err
	})
}

func (kv *sqlKvStore) Set(key string, value interface{}) error {
	b, err := Encode(value)
	if nil != err {
		return err
	}
	return kv.database.Apply(func(db *sql.DB) error {
		query := fmt.Sprintf("REPLACE INTO '%s'(key,val) values(?,?);", kv.table)
		_, err := db.Exec(query, key, b)
		return err
	})
}

func (kv *sqlKvStore) Get(key string, value interface{}) (bool, error) {
	result := false
	err := kv.database.Apply(func(db *sql.DB) error {
		query := fmt.Sprintf("SELECT val FROM '%s' WHERE key=?;", kv.table)
		var tmp []byte
		if err := db.QueryRow(query, key).Scan(&tmp); err != nil {
			if err == sql.ErrNoRows {
				return nil
			}
			return err
		}
		if err := Decode(tmp, value); err != nil {
			return err
		}
		result = true
		return nil
	})
	return result, err
}

func (kv *sqlKvStore) Delete(key string) error {
	return kv.database.Apply(func(db *sql.DB) error {
		query := fmt.Sprintf("DELETE FROM '%s' WHERE key=?;", kv.table)
		r, err := db.Exec(query, key)
		if err != nil {
			return err
		}
		if n, _ := r.RowsAffected(); n == 0 {
			return errorx.NewWithCode(errorx.NOT_FOUND, fmt.Sprintf("%s is not found", key))
		}
		return nil
	})
}

func (kv *sqlKvStore) Keys() ([]string, error) {
	keys := make([]string, 0)
	err := kv.database.Apply(func(db *sql.DB) error {
		query := fmt.Sprintf("SELECT key FROM '%s' ORDER BY key", kv.table)
		row, err := db.Query(query)
		if nil != err {
			return err
		}
		defer row.Close()
		for row.Next() {
			var val string
			if err := row.Scan(&val); err != nil {
				return err
			}
			keys = append(keys, val)
		}
		return row.Err()
	})
	return keys, err
}

func (kv *sqlKvStore) Clean() error {
	return kv.database.Apply(func(db *sql.DB) error {
		query := fmt.Sprintf("DELETE FROM '%s'", kv.table)
		_, err := db.Exec(query)
		return err
	})
}

func (kv *sqlKvStore) Drop() error {
	return kv.database.Apply(func(db *sql.DB) error {
		query := fmt.Sprintf("Drop table '%s';", kv.table)
		_, err := db.Exec(query)
		return err
	})
}

type sqlStoreBuilder struct {
	database *Database
}

func NewSqlStoreBuilder(d *Database) StoreBuilder {
	return &sqlStoreBuilder{database: d}
}

func (b *sqlStoreBuilder) CreateStore(table string) (KeyValue, error) {
	return createSqlKvStore(b.database, table)
}

func (b *sqlStoreBuilder) Close() error {
	return b.database.Disconnect()
}

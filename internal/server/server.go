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

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/lf-edge/kql/internal/conf"
	"github.com/lf-edge/kql/internal/io/kafka"
	"github.com/lf-edge/kql/internal/io/memory"
	"github.com/lf-edge/kql/internal/meta"
	"github.com/lf-edge/kql/internal/processor"
	"github.com/lf-edge/kql/pkg/api"
	"github.com/lf-edge/kql/pkg/kv"
)

const registryTable = "registry"

var logger = conf.Log

// Runtime is the log, the registry and the query engine of one process.
type Runtime struct {
	Log     api.Log
	Store   *meta.Store
	Engine  *processor.QueryEngine
	builder kv.StoreBuilder
}

func newLog(c conf.LogConf) (api.Log, error) {
	switch c.Type {
	case "kafka":
		return kafka.NewLog(c.Kafka)
	default:
		return memory.NewLog(), nil
	}
}

// NewRuntime connects the log and the registry mirror named by the
// configuration and loads the registered streams.
func NewRuntime(ctx context.Context, kc *conf.KqlConf) (*Runtime, error) {
	l, err := newLog(kc.Log)
	if err != nil {
		return nil, fmt.Errorf("create %s log error: %w", kc.Log.Type, err)
	}
	builder, err := kv.NewStoreBuilder(kc.Store)
	if err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("create registry store error: %w", err)
	}
	rt := &Runtime{Log: l, builder: builder}
	mirror, err := builder.CreateStore(registryTable)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("create registry table error: %w", err)
	}
	rt.Store, err = meta.Load(mirror)
	if err != nil {
		rt.Close()
		return nil, err
	}
	for _, t := range rt.Store.ListTopics() {
		if err := l.CreateTopic(ctx, t.Name, t.Partitions); err != nil {
			rt.Close()
			return nil, fmt.Errorf("restore topic %s error: %w", t.Name, err)
		}
	}
	rt.Engine = processor.NewQueryEngine(rt.Store, l, processor.OptionsFromConf(kc))
	return rt, nil
}

// Close terminates the queries then releases the log and the registry store.
func (rt *Runtime) Close() {
	if rt.Engine != nil {
		rt.Engine.Close()
	}
	if err := rt.Log.Close(); err != nil {
		logger.Warnf("close log error: %v", err)
	}
	if err := rt.builder.Close(); err != nil {
		logger.Warnf("close registry store error: %v", err)
	}
}

// getStoreConfig resolves an empty sqlite path to the data dir.
func getStoreConfig(c kv.Config) (kv.Config, error) {
	if c.Type != "sqlite" || c.Sqlite.Path != "" {
		return c, nil
	}
	dataDir, err := conf.GetDataLoc()
	if err != nil {
		return c, err
	}
	c.Sqlite.Path = dataDir
	return c, nil
}

// StartUp runs the statements of script, if any, then serves the REST api
// until the process is interrupted.
func StartUp(version string, script string) {
	conf.InitConf()
	sc, err := getStoreConfig(conf.Config.Store)
	if err != nil {
		logger.Fatal(err)
	}
	conf.Config.Store = sc
	undo, _ := maxprocs.Set(maxprocs.Logger(conf.Log.Infof))
	defer undo()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rt, err := NewRuntime(ctx, conf.Config)
	if err != nil {
		logger.Fatal(err)
	}
	defer rt.Close()
	if script != "" {
		results, err := rt.Engine.ExecuteAll(ctx, script)
		for _, r := range results {
			fmt.Println(r)
		}
		if err != nil {
			logger.Fatalf("execute statements error: %v", err)
		}
	}

	srvRest := createRestServer(conf.Config.Basic.RestIp, conf.Config.Basic.RestPort, rt.Engine)
	ln, err := net.Listen("tcp", srvRest.Addr)
	if err != nil {
		logger.Fatal(err)
	}
	go func() {
		if err := srvRest.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Error serving rest service: ", err)
		}
	}()
	msg := fmt.Sprintf("Serving kql (version - %s) with %s log, and restful api on http://%s.", version, conf.Config.Log.Type, srvRest.Addr)
	logger.Info(msg)
	fmt.Println(msg)

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
	ss := <-sigint
	conf.Log.Infof("kql stopped by %v", ss)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer shutdownCancel()
	if err := srvRest.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("rest server shutdown error: %v", err)
	}
	logger.Info("rest server successfully shutdown.")
}

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

package rule

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/lf-edge/kql/internal/conf"
	"github.com/lf-edge/kql/internal/topo"
	"github.com/lf-edge/kql/metrics"
)

type RunState int

const (
	Created RunState = iota
	Running
	Terminated
	Failed
)

var StateName = map[RunState]string{
	Created:    "created",
	Running:    "running",
	Terminated: "terminated",
	Failed:     "failed",
}

func (s RunState) String() string {
	return StateName[s]
}

var ErrAlreadyStarted = errors.New("query is already started")

// State drives the topo of one persistent query through
// created, running and then terminated or failed. A query never restarts.
type State struct {
	ID       string
	topology *topo.Topo
	logger   *logrus.Entry

	mu                 sync.RWMutex
	currentState       RunState
	lastWill           string
	lastStartTimestamp int64
	lastStopTimestamp  int64
	stop               chan struct{}
	watchDone          chan struct{}
	onChange           func(id string, s RunState)
}

func NewState(id string, tp *topo.Topo) *State {
	s := &State{
		ID:       id,
		topology: tp,
		logger:   conf.Log.WithField("query", id),
	}
	metrics.SetQueryStatus(id, int(Created))
	return s
}

// OnChange registers a hook called after every transition, outside the lock.
func (s *State) OnChange(f func(id string, s RunState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = f
}

// Start opens the topo. It can only be called once.
func (s *State) Start() error {
	s.mu.Lock()
	if s.currentState != Created {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	errCh := s.topology.Open()
	s.stop = make(chan struct{})
	s.watchDone = make(chan struct{})
	go s.watch(errCh, s.stop, s.watchDone)
	hook := s.transit(Running, nil)
	s.mu.Unlock()
	hook()
	return nil
}

func (s *State) watch(errCh <-chan error, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	select {
	case err := <-errCh:
		s.fail(err)
	case <-stop:
	}
}

func (s *State) fail(err error) {
	s.mu.Lock()
	if s.currentState != Running {
		s.mu.Unlock()
		return
	}
	hook := s.transit(Failed, err)
	s.mu.Unlock()
	s.topology.Cancel()
	hook()
}

// Stop terminates a running query and returns after all its nodes exited.
// Stopping a query which is not running does nothing.
func (s *State) Stop() {
	s.mu.Lock()
	if s.currentState != Running {
		s.mu.Unlock()
		return
	}
	hook := s.transit(Terminated, nil)
	close(s.stop)
	done := s.watchDone
	s.mu.Unlock()
	s.topology.Cancel()
	<-done
	hook()
}

// Clean stops the query and drops the state held by its nodes. The query
// must not be started afterwards.
func (s *State) Clean() {
	s.Stop()
	s.topology.Cancel()
	s.topology.ClearState()
}

// Wait blocks until the query is no longer running, used when a failure
// must be observed.
func (s *State) Wait() {
	s.mu.RLock()
	done := s.watchDone
	s.mu.RUnlock()
	if done != nil {
		<-done
	}
}

// transit must be called with the lock held. The returned hook runs the
// change callback and must be called after unlocking.
func (s *State) transit(newState RunState, err error) func() {
	s.currentState = newState
	if err != nil {
		s.lastWill = err.Error()
	}
	switch newState {
	case Running:
		s.lastStartTimestamp = conf.GetNowInMilli()
	case Terminated, Failed:
		s.lastStopTimestamp = conf.GetNowInMilli()
	}
	metrics.SetQueryStatus(s.ID, int(newState))
	if err != nil {
		s.logger.Errorf("query %s transit to state %s: %v", s.ID, newState, err)
	} else {
		s.logger.Infof("query %s transit to state %s", s.ID, newState)
	}
	f := s.onChange
	return func() {
		if f != nil {
			f(s.ID, newState)
		}
	}
}

func (s *State) GetState() RunState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentState
}

// GetLastWill returns the error which failed the query.
func (s *State) GetLastWill() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastWill
}

type Status struct {
	State              string `json:"status"`
	Message            string `json:"message,omitempty"`
	LastStartTimestamp int64  `json:"lastStartTimestamp"`
	LastStopTimestamp  int64  `json:"lastStopTimestamp"`
}

func (s *State) GetStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		State:              s.currentState.String(),
		Message:            s.lastWill,
		LastStartTimestamp: s.lastStartTimestamp,
		LastStopTimestamp:  s.lastStopTimestamp,
	}
}

func (s *State) GetTopoGraph() *topo.PrintableTopo {
	return s.topology.GetTopo()
}

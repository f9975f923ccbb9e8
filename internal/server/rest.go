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
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/lf-edge/kql/internal/conf"
	"github.com/lf-edge/kql/internal/meta"
	"github.com/lf-edge/kql/internal/processor"
	"github.com/lf-edge/kql/internal/topo"
	"github.com/lf-edge/kql/pkg/ast"
	"github.com/lf-edge/kql/pkg/errorx"
)

const (
	ContentType     = "Content-Type"
	ContentTypeJSON = "application/json"
)

type statementDescriptor struct {
	Sql string `json:"sql,omitempty"`
}

func decodeStatementDescriptor(reader io.ReadCloser) (statementDescriptor, error) {
	sd := statementDescriptor{}
	err := json.NewDecoder(reader).Decode(&sd)
	if err != nil {
		return sd, fmt.Errorf("Error decoding the statement descriptor: %v", err)
	}
	if sd.Sql == "" {
		return sd, fmt.Errorf("sql is required")
	}
	return sd, nil
}

type queryInfo struct {
	ID        string `json:"id"`
	Statement string `json:"statement"`
	Source    string `json:"source"`
	Sink      string `json:"sink"`
	State     string `json:"status"`
}

type queryDetail struct {
	queryInfo
	Message            string              `json:"message,omitempty"`
	LastStartTimestamp int64               `json:"lastStartTimestamp"`
	LastStopTimestamp  int64               `json:"lastStopTimestamp"`
	Appended           int64               `json:"appended"`
	Explain            string              `json:"explain"`
	Topo               *topo.PrintableTopo `json:"topo"`
}

type fieldInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Key  bool   `json:"key,omitempty"`
}

type sourceInfo struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Topic  string `json:"topic"`
	Format string `json:"format,omitempty"`
}

type sourceDetail struct {
	sourceInfo
	Timestamp string      `json:"timestamp,omitempty"`
	Query     string      `json:"query,omitempty"`
	Fields    []fieldInfo `json:"fields"`
}

// handleError writes the error as {"error":code,"message":msg}. Unknown
// names are reported as 404.
func handleError(w http.ResponseWriter, err error, prefix string, logger *logrus.Entry) {
	message := prefix
	if message != "" {
		message += ": "
	}
	message += err.Error()
	logger.Error(message)
	ec := http.StatusBadRequest
	code, ok := errorx.GetErrorCode(err)
	if !ok {
		code = errorx.Undefined_Err
	}
	switch code {
	case errorx.NOT_FOUND, errorx.UnknownSource:
		ec = http.StatusNotFound
	case errorx.DuplicateName:
		ec = http.StatusConflict
	}
	http.Error(w, fmt.Sprintf(`{"error":%v,"message":%q}`, code, message), ec)
}

func jsonResponse(i interface{}, w http.ResponseWriter, logger *logrus.Entry) {
	jsonByte, err := json.Marshal(i)
	if err != nil {
		handleError(w, err, "", logger)
		return
	}
	w.Header().Add(ContentType, ContentTypeJSON)
	w.Header().Add("Content-Length", strconv.Itoa(len(jsonByte)))
	if _, err = w.Write(jsonByte); err != nil {
		logger.Errorf("write response error: %v", err)
	}
}

type restServer struct {
	engine *processor.QueryEngine
	logger *logrus.Entry
}

// NewRouter registers the statement, query and stream endpoints of the engine.
func NewRouter(engine *processor.QueryEngine) *mux.Router {
	s := &restServer{
		engine: engine,
		logger: conf.Log.WithField("module", "rest"),
	}
	r := mux.NewRouter()
	r.HandleFunc("/ping", s.pingHandler).Methods(http.MethodGet)
	r.HandleFunc("/statements", s.statementsHandler).Methods(http.MethodPost)
	r.HandleFunc("/queries", s.queriesHandler).Methods(http.MethodGet)
	r.HandleFunc("/queries/{id}", s.queryHandler).Methods(http.MethodGet, http.MethodDelete)
	r.HandleFunc("/streams", s.streamsHandler).Methods(http.MethodGet)
	r.HandleFunc("/streams/{name}", s.streamHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

func createRestServer(ip string, port int, engine *processor.QueryEngine) *http.Server {
	r := NewRouter(engine)
	return &http.Server{
		Addr:         net.JoinHostPort(ip, strconv.Itoa(port)),
		WriteTimeout: time.Second * 60 * 5,
		ReadTimeout:  time.Second * 60 * 5,
		IdleTimeout:  time.Second * 60,
		Handler: handlers.CORS(
			handlers.AllowedHeaders([]string{"Accept", "Accept-Language", "Content-Type", "Content-Language", "Origin"}),
			handlers.AllowedMethods([]string{"POST", "GET", "DELETE", "HEAD"}),
		)(handlers.CombinedLoggingHandler(conf.Log.Writer(), r)),
	}
}

func (s *restServer) pingHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// statementsHandler executes a script and replies the message of every statement.
func (s *restServer) statementsHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	sd, err := decodeStatementDescriptor(r.Body)
	if err != nil {
		handleError(w, err, "Invalid body", s.logger)
		return
	}
	results, err := s.engine.ExecuteAll(r.Context(), sd.Sql)
	if err != nil {
		handleError(w, err, "Execute statements error", s.logger)
		return
	}
	jsonResponse(results, w, s.logger)
}

func toQueryInfo(q *processor.PersistentQuery) queryInfo {
	return queryInfo{
		ID:        q.ID,
		Statement: q.Statement,
		Source:    q.Source,
		Sink:      q.Sink,
		State:     q.State().String(),
	}
}

func (s *restServer) queriesHandler(w http.ResponseWriter, _ *http.Request) {
	queries := s.engine.List()
	result := make([]queryInfo, 0, len(queries))
	for _, q := range queries {
		result = append(result, toQueryInfo(q))
	}
	jsonResponse(result, w, s.logger)
}

func (s *restServer) queryHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	q, ok := s.engine.Get(id)
	if !ok {
		handleError(w, errorx.NewWithCode(errorx.NOT_FOUND, fmt.Sprintf("query %s is not found", id)), "", s.logger)
		return
	}
	switch r.Method {
	case http.MethodGet:
		st := q.Status()
		jsonResponse(queryDetail{
			queryInfo:          toQueryInfo(q),
			Message:            st.Message,
			LastStartTimestamp: st.LastStartTimestamp,
			LastStopTimestamp:  st.LastStopTimestamp,
			Appended:           q.Appended(),
			Explain:            q.Explain(),
			Topo:               q.Topo(),
		}, w, s.logger)
	case http.MethodDelete:
		cleanup := false
		if v := r.URL.Query().Get("cleanup"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				handleError(w, fmt.Errorf("invalid cleanup parameter %s", v), "Terminate query error", s.logger)
				return
			}
			cleanup = b
		}
		if err := s.engine.Terminate(q.ID, cleanup); err != nil {
			handleError(w, err, "Terminate query error", s.logger)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "Query %s is terminated.", q.ID)
	}
}

func (s *restServer) toSourceInfo(src *meta.Source) sourceInfo {
	info := sourceInfo{Name: src.Name, Type: src.Kind.String(), Topic: src.Topic}
	if t, err := s.engine.Store().GetTopic(src.Topic); err == nil {
		info.Format = t.Format
	}
	return info
}

// streamsHandler lists the streams then the tables.
func (s *restServer) streamsHandler(w http.ResponseWriter, _ *http.Request) {
	store := s.engine.Store()
	result := make([]sourceInfo, 0)
	for _, kind := range []ast.StreamType{ast.TypeStream, ast.TypeTable} {
		for _, src := range store.ListSources(kind) {
			result = append(result, s.toSourceInfo(src))
		}
	}
	jsonResponse(result, w, s.logger)
}

func (s *restServer) streamHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	src, err := s.engine.Store().GetSource(name)
	if err != nil {
		handleError(w, err, "describe stream error", s.logger)
		return
	}
	d := sourceDetail{
		sourceInfo: s.toSourceInfo(src),
		Timestamp:  src.TimestampColumn,
		Query:      src.Query,
		Fields:     make([]fieldInfo, 0, src.Schema.Len()),
	}
	for i, c := range src.Schema.Columns {
		d.Fields = append(d.Fields, fieldInfo{Name: c.Name, Type: c.Type.String(), Key: i == src.Schema.Key})
	}
	jsonResponse(d, w, s.logger)
}

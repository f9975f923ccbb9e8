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

package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/lf-edge/kql/internal/conf"
	"github.com/lf-edge/kql/metrics"
	"github.com/lf-edge/kql/pkg/api"
	"github.com/lf-edge/kql/pkg/errorx"
)

const lblKafka = "kafka"

// Log is an api.Log over a kafka cluster. Appends go through a kafka client
// and subscriptions run one reader per partition from the first offset.
type Log struct {
	conf     conf.KafkaConf
	clientID string
	client   *kafkago.Client
	balancer kafkago.Balancer

	mu   sync.Mutex
	subs map[*subscription]struct{}
}

func NewLog(c conf.KafkaConf) (*Log, error) {
	if len(c.Brokers) == 0 {
		return nil, fmt.Errorf("brokers can not be empty")
	}
	id := "kql-" + uuid.New().String()
	return &Log{
		conf:     c,
		clientID: id,
		client: &kafkago.Client{
			Addr:      kafkago.TCP(c.Brokers...),
			Timeout:   10 * time.Second,
			Transport: &kafkago.Transport{ClientID: id},
		},
		balancer: &kafkago.Murmur2Balancer{},
		subs:     make(map[*subscription]struct{}),
	}, nil
}

func (l *Log) CreateTopic(ctx context.Context, topic string, partitions int) error {
	if partitions <= 0 {
		partitions = 1
	}
	resp, err := l.client.CreateTopics(ctx, &kafkago.CreateTopicsRequest{
		Topics: []kafkago.TopicConfig{{
			Topic:             topic,
			NumPartitions:     partitions,
			ReplicationFactor: -1,
		}},
	})
	if err != nil {
		return errorx.NewIOErr(fmt.Sprintf("create kafka topic %s error: %v", topic, err))
	}
	if err := resp.Errors[topic]; err != nil && !errors.Is(err, kafkago.TopicAlreadyExists) {
		return fmt.Errorf("create kafka topic %s error: %w", topic, err)
	}
	conf.Log.Infof("kafka topic %s is ready", topic)
	return nil
}

func (l *Log) DeleteTopic(ctx context.Context, topic string) error {
	resp, err := l.client.DeleteTopics(ctx, &kafkago.DeleteTopicsRequest{Topics: []string{topic}})
	if err != nil {
		return errorx.NewIOErr(fmt.Sprintf("delete kafka topic %s error: %v", topic, err))
	}
	if err := resp.Errors[topic]; err != nil {
		if errors.Is(err, kafkago.UnknownTopicOrPartition) {
			return &errorx.UnknownTopicError{Name: topic}
		}
		return err
	}
	return nil
}

func (l *Log) partitions(ctx context.Context, topic string) ([]int, error) {
	resp, err := l.client.Metadata(ctx, &kafkago.MetadataRequest{Topics: []string{topic}})
	if err != nil {
		return nil, errorx.NewIOErr(fmt.Sprintf("read kafka metadata of %s error: %v", topic, err))
	}
	for _, t := range resp.Topics {
		if t.Name != topic {
			continue
		}
		if t.Error != nil {
			if errors.Is(t.Error, kafkago.UnknownTopicOrPartition) {
				return nil, &errorx.UnknownTopicError{Name: topic}
			}
			return nil, t.Error
		}
		ids := make([]int, len(t.Partitions))
		for i, p := range t.Partitions {
			ids[i] = p.ID
		}
		if len(ids) > 0 {
			return ids, nil
		}
	}
	return nil, &errorx.UnknownTopicError{Name: topic}
}

func (l *Log) Append(ctx context.Context, topic string, key, value []byte) (int64, error) {
	start := time.Now()
	offset, err := l.append(ctx, topic, key, value)
	metrics.LogIOCounter.WithLabelValues(lblKafka, metrics.LblSinkIO, metrics.GetStatusValue(err)).Inc()
	metrics.LogIODurationHist.WithLabelValues(lblKafka, metrics.LblSinkIO).Observe(float64(time.Since(start).Microseconds()))
	return offset, err
}

func (l *Log) append(ctx context.Context, topic string, key, value []byte) (int64, error) {
	ids, err := l.partitions(ctx, topic)
	if err != nil {
		return -1, err
	}
	p := l.balancer.Balance(kafkago.Message{Key: key}, ids...)
	resp, err := l.client.Produce(ctx, &kafkago.ProduceRequest{
		Topic:        topic,
		Partition:    p,
		RequiredAcks: kafkago.RequiredAcks(l.conf.RequiredAcks),
		Records: kafkago.NewRecordReader(kafkago.Record{
			Time:  conf.GetNow(),
			Key:   kafkago.NewBytes(key),
			Value: kafkago.NewBytes(value),
		}),
	})
	if err != nil {
		return -1, errorx.NewIOErr(fmt.Sprintf("produce to kafka topic %s error: %v", topic, err))
	}
	if resp.Error != nil {
		return -1, fmt.Errorf("produce to kafka topic %s error: %w", topic, resp.Error)
	}
	return resp.BaseOffset, nil
}

func (l *Log) Subscribe(ctx context.Context, topic string) (api.Subscription, error) {
	ids, err := l.partitions(ctx, topic)
	if err != nil {
		return nil, err
	}
	readers := make([]messageReader, len(ids))
	for i, id := range ids {
		r := kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:     l.conf.Brokers,
			Topic:       topic,
			Partition:   id,
			MinBytes:    l.conf.MinBytes,
			MaxBytes:    l.conf.MaxBytes,
			MaxAttempts: l.conf.MaxAttempts,
			Dialer: &kafkago.Dialer{
				ClientID:  l.clientID,
				Timeout:   10 * time.Second,
				DualStack: true,
			},
		})
		if err := r.SetOffset(kafkago.FirstOffset); err != nil {
			_ = r.Close()
			for _, o := range readers[:i] {
				_ = o.Close()
			}
			return nil, err
		}
		readers[i] = r
	}
	s := newSubscription(topic, readers, func(s *subscription) {
		l.mu.Lock()
		delete(l.subs, s)
		l.mu.Unlock()
	})
	l.mu.Lock()
	l.subs[s] = struct{}{}
	l.mu.Unlock()
	conf.Log.Infof("subscribe kafka topic %s with %d partitions", topic, len(ids))
	return s, nil
}

func (l *Log) Close() error {
	l.mu.Lock()
	subs := make([]*subscription, 0, len(l.subs))
	for s := range l.subs {
		subs = append(subs, s)
	}
	l.mu.Unlock()
	for _, s := range subs {
		_ = s.Close()
	}
	return nil
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafkago.Message, error)
	Close() error
}

// subscription merges the per partition readers into one channel. Each
// reader keeps its partition order.
type subscription struct {
	topic   string
	readers []messageReader
	ch      chan *api.Record
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	once    sync.Once
	onClose func(*subscription)
}

func newSubscription(topic string, readers []messageReader, onClose func(*subscription)) *subscription {
	ctx, cancel := context.WithCancel(context.Background())
	s := &subscription{
		topic:   topic,
		readers: readers,
		ch:      make(chan *api.Record),
		cancel:  cancel,
		onClose: onClose,
	}
	for _, r := range readers {
		s.wg.Add(1)
		go s.run(ctx, r)
	}
	return s
}

func (s *subscription) run(ctx context.Context, r messageReader) {
	defer s.wg.Done()
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0
	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			metrics.LogIOCounter.WithLabelValues(lblKafka, metrics.LblSourceIO, metrics.LblException).Inc()
			wait := bo.NextBackOff()
			conf.Log.Warnf("read kafka topic %s error: %v, retry in %s", s.topic, err, wait)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}
		bo.Reset()
		metrics.LogIOCounter.WithLabelValues(lblKafka, metrics.LblSourceIO, metrics.LblSuccess).Inc()
		rec := &api.Record{
			Topic:     msg.Topic,
			Partition: msg.Partition,
			Offset:    msg.Offset,
			Key:       msg.Key,
			Value:     msg.Value,
			Timestamp: msg.Time,
		}
		select {
		case s.ch <- rec:
		case <-ctx.Done():
			return
		}
	}
}

func (s *subscription) Next(ctx context.Context) (*api.Record, error) {
	select {
	case rec, ok := <-s.ch:
		if !ok {
			return nil, fmt.Errorf("subscription of topic %s is closed", s.topic)
		}
		return rec, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		s.wg.Wait()
		close(s.ch)
		for _, r := range s.readers {
			if e := r.Close(); e != nil && err == nil {
				err = e
			}
		}
		if s.onClose != nil {
			s.onClose(s)
		}
	})
	return err
}

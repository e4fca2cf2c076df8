package cleanedstream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/corpussearch/engine/pkg/config"
	appkafka "github.com/corpussearch/engine/pkg/kafka"
	applog "github.com/corpussearch/engine/pkg/logger"
)

// KafkaReader feeds Records off a Kafka topic instead of a local file, for
// deployments where the cleaner publishes its output rather than writing
// it to disk. This is an ingestion transport choice, not a distribution
// of the indexing computation itself: block building still happens in a
// single process against the channel this reader feeds.
type KafkaReader struct {
	consumer *appkafka.Consumer
	out      chan Record
	errc     chan error
}

// NewKafkaReader starts consuming topic in the background and returns a
// reader whose Next drains the decoded records in arrival order.
func NewKafkaReader(ctx context.Context, cfg config.KafkaConfig, topic string) *KafkaReader {
	kr := &KafkaReader{
		out:  make(chan Record, 256),
		errc: make(chan error, 1),
	}
	log := applog.WithComponent("cleanedstream.kafka")
	kr.consumer = appkafka.NewConsumer(cfg, topic, func(ctx context.Context, key, value []byte) error {
		var jr jsonlRecord
		if err := json.Unmarshal(value, &jr); err != nil {
			log.Warn("skipping malformed record", "error", err)
			return nil
		}
		if jr.DocKey == "" {
			log.Warn("skipping record with empty doc_key")
			return nil
		}
		select {
		case kr.out <- toRecord(jr):
		case <-ctx.Done():
		}
		return nil
	})
	go func() {
		if err := kr.consumer.Start(ctx); err != nil {
			kr.errc <- err
		}
		close(kr.out)
	}()
	return kr
}

// Next returns the next Record, blocking until one arrives, the stream
// closes, or the consumer fails.
func (r *KafkaReader) Next() (Record, error) {
	select {
	case rec, ok := <-r.out:
		if !ok {
			select {
			case err := <-r.errc:
				return Record{}, fmt.Errorf("cleanedstream: kafka consumer: %w", err)
			default:
				return Record{}, errStreamClosed
			}
		}
		return rec, nil
	}
}

// Close releases the underlying Kafka consumer.
func (r *KafkaReader) Close() error {
	return r.consumer.Close()
}

var errStreamClosed = fmt.Errorf("cleanedstream: stream closed")

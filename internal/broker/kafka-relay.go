// Package broker relays the fetched records into Kafka so a downstream
// ingestion environment can consume the backup as an event stream in
// addition to the archives. The relay is synchronous: a backup run must know
// every message was accepted before reporting success.
package broker

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/claresloggett/nightscout-backup/internal/model"
)

const publishChunk = 500

type Relay struct {
	writer *kafka.Writer
	runID  string
	logger *log.Logger
}

func NewRelay(brokers []string, topic, runID string, logger *log.Logger) *Relay {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},

		BatchSize:    1000,
		BatchBytes:   1 << 20,
		BatchTimeout: 5 * time.Millisecond,

		RequiredAcks: kafka.RequireOne,
		Compression:  kafka.Snappy,
	}
	return &Relay{writer: w, runID: runID, logger: logger}
}

// PublishRecords sends every record of one collection as a JSON message,
// keyed by collection name so a collection's records stay in one partition.
func (r *Relay) PublishRecords(ctx context.Context, collection string, records []*model.Record) error {
	headers := []kafka.Header{
		{Key: "runId", Value: []byte(r.runID)},
		{Key: "collection", Value: []byte(collection)},
	}

	sent := 0
	for start := 0; start < len(records); start += publishChunk {
		end := start + publishChunk
		if end > len(records) {
			end = len(records)
		}
		msgs := make([]kafka.Message, 0, end-start)
		for _, rec := range records[start:end] {
			value, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			msgs = append(msgs, kafka.Message{
				Key:     []byte(collection),
				Value:   value,
				Headers: headers,
			})
		}
		if err := r.writer.WriteMessages(ctx, msgs...); err != nil {
			return err
		}
		sent += len(msgs)
	}
	r.logger.Printf("[kafka] relayed %d %s records to %s", sent, collection, r.writer.Topic)
	return nil
}

func (r *Relay) Close() error {
	return r.writer.Close()
}

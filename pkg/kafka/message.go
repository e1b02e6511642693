package kafka

import (
	"encoding/json"
	"time"

	"github.com/Ramsey-B/clover/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Parsed content
	Record     *models.IngestRecordRequest
	TouchPoint *models.IngestTouchPointRequest
}

// ParseRecord parses the message value as a collector ingest payload
func (m *IncomingMessage) ParseRecord() error {
	var record models.IngestRecordRequest
	if err := json.Unmarshal(m.Value, &record); err != nil {
		return err
	}
	m.Record = &record
	return nil
}

// ParseTouchPoint parses the message value as a collector touch point payload
func (m *IncomingMessage) ParseTouchPoint() error {
	var point models.IngestTouchPointRequest
	if err := json.Unmarshal(m.Value, &point); err != nil {
		return err
	}
	m.TouchPoint = &point
	return nil
}

// GetSource returns the source system, preferring the parsed payload over the
// message headers
func (m *IncomingMessage) GetSource() string {
	if m.Record != nil && m.Record.Source != "" {
		return m.Record.Source
	}
	return m.Headers["source"]
}

// GetSourceID returns the source-native record identifier
func (m *IncomingMessage) GetSourceID() string {
	if m.Record != nil && m.Record.SourceID != "" {
		return m.Record.SourceID
	}
	return m.Key
}

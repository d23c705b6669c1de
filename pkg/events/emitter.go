package events

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	TokenEventType = "token"
	PoolEventType  = "pool"
	ErrorEventType = "error"
)

// ScraperEvent wraps every record published to the queue.
type ScraperEvent struct {
	Type      string `json:"type"`
	Chain     string `json:"chain"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

type Emitter interface {
	EmitToken(chain string, token any) error
	EmitPool(chain string, pool any) error
	EmitError(chain string, err error) error
	Emit(event ScraperEvent) error
	Close()
}

type emitter struct {
	conn          *nats.Conn
	subjectPrefix string
}

func NewEmitter(conn *nats.Conn, subjectPrefix string) Emitter {
	if subjectPrefix == "" {
		subjectPrefix = "scraper"
	}
	return &emitter{
		conn:          conn,
		subjectPrefix: subjectPrefix,
	}
}

func (e *emitter) EmitToken(chain string, token any) error {
	return e.Emit(ScraperEvent{
		Type:      TokenEventType,
		Chain:     chain,
		Data:      token,
		Timestamp: time.Now().UTC().Unix(),
	})
}

func (e *emitter) EmitPool(chain string, pool any) error {
	return e.Emit(ScraperEvent{
		Type:      PoolEventType,
		Chain:     chain,
		Data:      pool,
		Timestamp: time.Now().UTC().Unix(),
	})
}

func (e *emitter) EmitError(chain string, err error) error {
	payload := map[string]string{}
	if err != nil {
		payload["message"] = err.Error()
	}
	return e.Emit(ScraperEvent{
		Type:      ErrorEventType,
		Chain:     chain,
		Data:      payload,
		Timestamp: time.Now().UTC().Unix(),
	})
}

func (e *emitter) Emit(event ScraperEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return e.conn.Publish(e.subjectPrefix+"."+event.Type, data)
}

func (e *emitter) Close() {
	if e.conn != nil {
		_ = e.conn.Drain()
	}
}

package lockerclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
)

// Status is the server-reported outcome of the last operation on a lock.
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "error"
)

// Payload keys the server fills in.
const (
	FieldOwnershipToken = "uuid"
	FieldTTL            = "ttl"
	FieldMessage        = "message"
	FieldTimeout        = "timeout"
)

// Lock is the observed state of a lock as returned by one successful round
// trip. It is never modified after construction; every operation returns a
// fresh Lock.
type Lock struct {
	id     string
	status Status
	data   map[string]any
}

type lockBody struct {
	LockID string         `json:"lock_id"`
	Status Status         `json:"status"`
	Data   map[string]any `json:"data"`
}

// NewLock builds a Lock from a response body. lockID is authoritative and
// replaces whatever id the body carries.
func NewLock(lockID string, body []byte) (*Lock, error) {
	var b lockBody
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("decoding lock %q: %w", lockID, err)
	}

	if b.Data == nil {
		b.Data = map[string]any{}
	}
	for k, v := range b.Data {
		b.Data[k] = normalizeNumbers(v)
	}

	return &Lock{id: lockID, status: b.Status, data: b.Data}, nil
}

// LockID returns the lock's identifier.
func (l *Lock) LockID() string { return l.id }

// Status returns the status reported with the lock.
func (l *Lock) Status() Status { return l.status }

// Data returns a copy of the full payload.
func (l *Lock) Data() map[string]any { return maps.Clone(l.data) }

// Field returns a single payload value, or nil when the field is absent.
// Integral JSON numbers come back as int, all others as float64.
func (l *Lock) Field(name string) any { return l.data[name] }

// OwnershipToken returns the token proving ownership, or "" if the payload has none.
func (l *Lock) OwnershipToken() string {
	s, _ := l.data[FieldOwnershipToken].(string)
	return s
}

// TTL returns the lease length in seconds, or 0 if absent.
func (l *Lock) TTL() int {
	return intField(l.data, FieldTTL)
}

// Timeout returns the server's timeout field in seconds, or 0 if absent.
func (l *Lock) Timeout() int {
	return intField(l.data, FieldTimeout)
}

// Message returns the message stored with the lock.
func (l *Lock) Message() string {
	s, _ := l.data[FieldMessage].(string)
	return s
}

// String returns the lock id.
func (l *Lock) String() string { return l.id }

// MarshalJSON renders the lock in the server's response shape.
func (l *Lock) MarshalJSON() ([]byte, error) {
	return json.Marshal(lockBody{LockID: l.id, Status: l.status, Data: l.data})
}

func intField(data map[string]any, name string) int {
	switch v := data[name].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n)
		}
		f, _ := x.Float64()
		return f
	case map[string]any:
		for k, e := range x {
			x[k] = normalizeNumbers(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = normalizeNumbers(e)
		}
		return x
	default:
		return v
	}
}

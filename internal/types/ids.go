// internal/types/ids.go
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// EventID is the backend's opaque event identifier. The wire value may be a
// JSON string or a JSON number; both decode to the same textual form so an
// event delivered by the snapshot and by the push path compares equal.
type EventID string

type ToastID string
type SubscriberID string
type TaskID string

func NewToastID() ToastID {
	return ToastID(uuid.New().String())
}

func NewSubscriberID() SubscriberID {
	return SubscriberID(uuid.New().String())
}

func NewTaskID() TaskID {
	return TaskID(uuid.New().String())
}

// UnmarshalJSON accepts both "123" and 123.
func (id *EventID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode event id: %w", err)
		}
		*id = EventID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode event id: %w", err)
	}
	*id = EventID(n.String())
	return nil
}

// Compare orders ids numerically when both are integers, otherwise
// lexically. It returns -1, 0 or 1.
func (id EventID) Compare(other EventID) int {
	a, errA := strconv.ParseInt(string(id), 10, 64)
	b, errB := strconv.ParseInt(string(other), 10, 64)
	if errA == nil && errB == nil {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	}
	switch {
	case id < other:
		return -1
	case id > other:
		return 1
	}
	return 0
}

package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const (
	// TotalSteps is the number of pipeline stages reported to observers.
	TotalSteps = 5

	// FailureProgress is the sentinel progress value for a failed run.
	FailureProgress = -1
)

// Message is one progress update for a job. Messages are ephemeral: they
// travel over the pub/sub channel and are never persisted. Observers that
// need durable state read the document's status column instead.
type Message struct {
	Step       int    `json:"step"`
	TotalSteps int    `json:"total_steps"`
	Message    string `json:"message"`
	Progress   int    `json:"progress"`
}

// Terminal reports whether this message ends the stream: the run
// completed (100) or failed (-1).
func (m Message) Terminal() bool {
	return m.Progress == 100 || m.Progress == FailureProgress
}

// ChannelName is the pub/sub channel for a job's progress updates.
func ChannelName(jobID string) string {
	return fmt.Sprintf("job:%s", jobID)
}

// Encode renders the wire format: a UTF-8 JSON object.
func (m Message) Encode() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode progress message: %w", err)
	}
	return string(data), nil
}

// Decode parses a wire payload back into a Message.
func Decode(payload string) (Message, error) {
	var m Message
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return Message{}, fmt.Errorf("decode progress message: %w", err)
	}
	return m, nil
}

// Publisher is the pipeline's side of the channel. Publish is
// fire-and-forget: messages sent while nobody is subscribed are lost.
type Publisher interface {
	Publish(ctx context.Context, jobID string, msg Message) error
}

// Subscription delivers payloads for one job until closed.
type Subscription interface {
	// Receive waits up to timeout for the next payload. The second
	// return is false when the wait timed out with nothing pending.
	Receive(ctx context.Context, timeout time.Duration) (string, bool, error)
	Close() error
}

// Broker is the full channel transport: publish plus subscribe.
type Broker interface {
	Publisher
	Subscribe(ctx context.Context, jobID string) (Subscription, error)
}

package progress

import (
	"context"
	"sync"
	"time"
)

// MemoryBroker is an in-process Broker for tests and single-node
// development runs. Delivery matches the pub/sub contract: messages go
// only to subscribers registered at publish time, and slow subscribers
// drop messages rather than block the publisher.
type MemoryBroker struct {
	mu   sync.RWMutex
	subs map[string]map[*memorySubscription]struct{}
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		subs: make(map[string]map[*memorySubscription]struct{}),
	}
}

func (b *MemoryBroker) Publish(ctx context.Context, jobID string, msg Message) error {
	payload, err := msg.Encode()
	if err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs[ChannelName(jobID)] {
		select {
		case sub.ch <- payload:
		default:
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, jobID string) (Subscription, error) {
	sub := &memorySubscription{
		broker:  b,
		channel: ChannelName(jobID),
		ch:      make(chan string, 16),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[sub.channel] == nil {
		b.subs[sub.channel] = make(map[*memorySubscription]struct{})
	}
	b.subs[sub.channel][sub] = struct{}{}
	return sub, nil
}

func (b *MemoryBroker) remove(sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set := b.subs[sub.channel]
	delete(set, sub)
	if len(set) == 0 {
		delete(b.subs, sub.channel)
	}
}

type memorySubscription struct {
	broker  *MemoryBroker
	channel string
	ch      chan string

	closeOnce sync.Once
}

func (s *memorySubscription) Receive(ctx context.Context, timeout time.Duration) (string, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case payload := <-s.ch:
		return payload, true, nil
	case <-timer.C:
		return "", false, nil
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

func (s *memorySubscription) Close() error {
	s.closeOnce.Do(func() {
		s.broker.remove(s)
	})
	return nil
}

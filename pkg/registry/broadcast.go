package registry

import (
	"context"
	"sync"
)

// streamBuffer is how many pending updates a subscriber may lag behind
// before old updates are discarded in favor of new ones.
const streamBuffer = 16

// streamHub fans saved records out to Stream subscribers. Both store
// implementations publish through a hub after a successful write, which
// keeps Stream's snapshot-then-updates contract independent of the
// backing storage.
type streamHub struct {
	mu   sync.Mutex
	subs map[uint64]*streamSub
	next uint64
}

type streamSub struct {
	ownerID string
	updates chan Record
}

func newStreamHub() *streamHub {
	return &streamHub{subs: make(map[uint64]*streamSub)}
}

// publish delivers a saved record to matching subscribers. A subscriber
// that has fallen streamBuffer updates behind loses its oldest pending
// update; the newest state always stays visible.
func (h *streamHub) publish(rec Record) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs {
		if sub.ownerID != "" && sub.ownerID != rec.OwnerID {
			continue
		}

		select {
		case sub.updates <- rec:
		default:
			select {
			case <-sub.updates:
			default:
			}
			select {
			case sub.updates <- rec:
			default:
			}
		}
	}
}

// stream subscribes before taking the snapshot so no save between the
// two is lost, then pumps snapshot followed by updates until ctx ends.
func (h *streamHub) stream(ctx context.Context, ownerID string, snapshot func() ([]Record, error)) (<-chan Record, error) {
	h.mu.Lock()
	id := h.next
	h.next++
	sub := &streamSub{ownerID: ownerID, updates: make(chan Record, streamBuffer)}
	h.subs[id] = sub
	h.mu.Unlock()

	recs, err := snapshot()
	if err != nil {
		h.unsubscribe(id)
		return nil, err
	}

	out := make(chan Record)
	go func() {
		defer close(out)
		defer h.unsubscribe(id)

		for _, rec := range recs {
			select {
			case out <- rec:
			case <-ctx.Done():
				return
			}
		}

		for {
			select {
			case rec := <-sub.updates:
				select {
				case out <- rec:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (h *streamHub) unsubscribe(id uint64) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

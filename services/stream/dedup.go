package stream

import (
	models "Rally/models/postgres"
	"sort"
)

// Dedup is the receiving side's id-based merge: at-least-once delivery
// means the same message can arrive twice (reconnects, history overlap
// with the live feed), and display state must only change once per id.
// Messages are kept in server order regardless of arrival order.
type Dedup struct {
	seen map[string]struct{}
	msgs []models.Message
}

func NewDedup() *Dedup {
	return &Dedup{seen: make(map[string]struct{})}
}

// Add merges a message into the ordered set. Returns false when the id
// was already present (a redelivery, to be ignored by the caller).
func (d *Dedup) Add(msg models.Message) bool {
	if _, dup := d.seen[msg.ID]; dup {
		return false
	}
	d.seen[msg.ID] = struct{}{}

	i := sort.Search(len(d.msgs), func(i int) bool {
		return msg.Before(&d.msgs[i])
	})
	d.msgs = append(d.msgs, models.Message{})
	copy(d.msgs[i+1:], d.msgs[i:])
	d.msgs[i] = msg
	return true
}

// AddAll merges a batch (e.g. a history page) and reports how many were
// actually new.
func (d *Dedup) AddAll(msgs []models.Message) int {
	added := 0
	for _, m := range msgs {
		if d.Add(m) {
			added++
		}
	}
	return added
}

// Messages returns the merged view, oldest to newest.
func (d *Dedup) Messages() []models.Message {
	return d.msgs
}

func (d *Dedup) Len() int {
	return len(d.msgs)
}

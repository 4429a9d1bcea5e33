// Package scancache keeps a bounded, most-recently-seen set of advertising
// reports observed during a scan.
//
// A Cache is not safe for concurrent use. It is meant to be owned by a
// single goroutine that feeds it reports and sweep ticks.
package scancache

import (
	"bytes"
	"errors"
	"fmt"
)

// DefaultCapacity matches the ring size used by the scanning examples.
const DefaultCapacity = 8

var (
	ErrAllocation      = errors.New("scancache: no room for record")
	ErrInvalidCapacity = errors.New("scancache: capacity must be positive")
)

// Report is one advertising or scan response packet as delivered by the
// controller. Payload is borrowed; the cache copies it on insert.
type Report struct {
	Address     [6]byte
	AddressType uint8
	PacketType  uint8
	RSSI        int8
	Payload     []byte
}

// Record is a cached report. Payload is owned by the cache and must not be
// modified by callers.
type Record struct {
	Address     [6]byte
	AddressType uint8
	PacketType  uint8
	RSSI        int8
	Payload     []byte
	LastSeen    uint64
}

func (r *Record) matches(q *Report) bool {
	return r.Address == q.Address &&
		r.AddressType == q.AddressType &&
		r.PacketType == q.PacketType &&
		len(r.Payload) == len(q.Payload) &&
		bytes.Equal(r.Payload, q.Payload)
}

func (r Record) String() string {
	a := r.Address
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x/%d type=%d rssi=%d len=%d seen=%d",
		a[5], a[4], a[3], a[2], a[1], a[0], r.AddressType, r.PacketType, r.RSSI, len(r.Payload), r.LastSeen)
}

const nilSlot = -1

type slot struct {
	rec        Record
	prev, next int
}

// Cache is a fixed-capacity ring of records ordered from most to least
// recently seen. Slots live in an arena and are linked by index; head is
// the MRU slot and head's prev is the LRU slot.
type Cache struct {
	slots    []slot
	free     []int
	head     int
	n        int
	counter  uint64
	maxBytes int
	bytes    int
}

type Option func(*Cache)

// WithMaxBytes bounds the total payload bytes held by the cache. Reports
// whose payload alone exceeds the bound fail with ErrAllocation.
func WithMaxBytes(n int) Option {
	return func(c *Cache) {
		c.maxBytes = n
	}
}

func New(capacity int, opts ...Option) (*Cache, error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}
	c := &Cache{
		slots: make([]slot, capacity),
		free:  make([]int, 0, capacity),
		head:  nilSlot,
	}
	for i := capacity - 1; i >= 0; i-- {
		c.free = append(c.free, i)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Cache) Len() int { return c.n }

func (c *Cache) Cap() int { return len(c.slots) }

// Bytes returns the total payload bytes currently held.
func (c *Cache) Bytes() int { return c.bytes }

func (c *Cache) Counter() uint64 { return c.counter }

// SetCounter moves the sweep counter forward to n. Smaller values are
// ignored so stamps never decrease from head to tail.
func (c *Cache) SetCounter(n uint64) {
	if n > c.counter {
		c.counter = n
	}
}

// Advance increments the sweep counter and returns the new value.
func (c *Cache) Advance() uint64 {
	c.counter++
	return c.counter
}

func (c *Cache) tail() int {
	if c.head == nilSlot {
		return nilSlot
	}
	return c.slots[c.head].prev
}

func (c *Cache) lookup(r *Report) int {
	if c.head == nilSlot {
		return nilSlot
	}
	i := c.head
	for {
		if c.slots[i].rec.matches(r) {
			return i
		}
		i = c.slots[i].next
		if i == c.head {
			return nilSlot
		}
	}
}

// Find returns the record matching r on address, address type, packet type
// and payload. The ring order is not changed.
func (c *Cache) Find(r Report) (Record, bool) {
	i := c.lookup(&r)
	if i == nilSlot {
		return Record{}, false
	}
	return c.slots[i].rec, true
}

func (c *Cache) unlink(i int) {
	s := &c.slots[i]
	if s.next == i {
		c.head = nilSlot
	} else {
		c.slots[s.prev].next = s.next
		c.slots[s.next].prev = s.prev
		if c.head == i {
			c.head = s.next
		}
	}
	s.prev, s.next = nilSlot, nilSlot
}

func (c *Cache) pushFront(i int) {
	s := &c.slots[i]
	if c.head == nilSlot {
		s.prev, s.next = i, i
	} else {
		h := &c.slots[c.head]
		s.next = c.head
		s.prev = h.prev
		c.slots[h.prev].next = i
		h.prev = i
	}
	c.head = i
}

func (c *Cache) release(i int) {
	c.unlink(i)
	c.bytes -= len(c.slots[i].rec.Payload)
	c.slots[i].rec = Record{}
	c.free = append(c.free, i)
	c.n--
}

// TouchOrInsert records an observation of r. A matching record is moved to
// the head and restamped. Otherwise a new record is inserted at the head,
// evicting least recently seen records when the ring or the byte budget is
// full. On ErrAllocation the cache is unchanged.
func (c *Cache) TouchOrInsert(r Report) error {
	if i := c.lookup(&r); i != nilSlot {
		s := &c.slots[i]
		s.rec.LastSeen = c.counter
		s.rec.RSSI = r.RSSI
		if i != c.head {
			c.unlink(i)
			c.pushFront(i)
		}
		return nil
	}

	if c.maxBytes > 0 && len(r.Payload) > c.maxBytes {
		return ErrAllocation
	}
	for c.n == len(c.slots) || (c.maxBytes > 0 && c.bytes+len(r.Payload) > c.maxBytes) {
		c.release(c.tail())
	}

	i := c.free[len(c.free)-1]
	c.free = c.free[:len(c.free)-1]
	payload := make([]byte, len(r.Payload))
	copy(payload, r.Payload)
	c.slots[i].rec = Record{
		Address:     r.Address,
		AddressType: r.AddressType,
		PacketType:  r.PacketType,
		RSSI:        r.RSSI,
		Payload:     payload,
		LastSeen:    c.counter,
	}
	c.pushFront(i)
	c.bytes += len(payload)
	c.n++
	return nil
}

// SweepAndExpire advances the counter to current and drops records from the
// tail whose miss count (current - LastSeen) exceeds missThreshold. It stops
// at the first fresh record and returns the number of records dropped.
func (c *Cache) SweepAndExpire(current, missThreshold uint64) int {
	c.SetCounter(current)
	expired := 0
	for c.head != nilSlot {
		t := c.tail()
		seen := c.slots[t].rec.LastSeen
		if seen > current || current-seen <= missThreshold {
			break
		}
		c.release(t)
		expired++
	}
	return expired
}

// Walk calls fn for each record from most to least recently seen until fn
// returns false. fn must not modify the cache.
func (c *Cache) Walk(fn func(Record) bool) {
	if c.head == nilSlot {
		return
	}
	i := c.head
	for {
		if !fn(c.slots[i].rec) {
			return
		}
		i = c.slots[i].next
		if i == c.head {
			return
		}
	}
}

// Records returns a snapshot of the ring, most recently seen first. Payloads
// are copied.
func (c *Cache) Records() []Record {
	records := make([]Record, 0, c.n)
	c.Walk(func(r Record) bool {
		r.Payload = append([]byte(nil), r.Payload...)
		records = append(records, r)
		return true
	})
	return records
}

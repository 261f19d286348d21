/*
 * Copyright 2020 Tero Vierimaa
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package bus holds the two channel primitives the Model is built on: a
// bounded multi-producer single-consumer Request queue and a broadcast State
// bus with independent subscriber cursors. Both are owned by the Model but
// referenced by every other subsystem (PrefetchCache, ApiWorker, Player,
// UiAdapter), so they live in their own package to keep those subsystems
// from having to import the model package just for its plumbing types.
//
// The broadcaster's subscription-map-plus-mutex shape follows the same
// pattern as the 19box notification.Manager, adapted from its
// interface{ Send } push model to plain Go channels since our subscribers
// are cooperative select loops rather than gRPC streams.
package bus

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tvierimaa/panharmonicon/messages"
)

// RequestQueueCapacity is the bound on the Model's inbound Request queue
// (spec: capacity 256, non-blocking try_send from synchronous producers).
const RequestQueueCapacity = 256

// StateBusCapacity is the per-subscriber buffer on the State broadcast
// (spec: capacity 64; late subscribers miss events prior to subscription).
const StateBusCapacity = 64

// ErrRequestQueueFull is returned by TrySend when the Model isn't draining
// its Request queue fast enough. The spec's policy is: the producer drops
// the request and logs, which is what every TrySend caller in this module
// does with the returned error.
var ErrRequestQueueFull = errors.New("bus: request queue full")

// RequestQueue is the bounded mpsc channel subsystems send Requests to. The
// Model is the sole consumer.
type RequestQueue struct {
	ch chan messages.Request
}

func NewRequestQueue() *RequestQueue {
	return &RequestQueue{ch: make(chan messages.Request, RequestQueueCapacity)}
}

// TrySend enqueues a Request without blocking. Callers outside the Model's
// own task must use this rather than a blocking send.
func (q *RequestQueue) TrySend(r messages.Request) error {
	select {
	case q.ch <- r:
		return nil
	default:
		logrus.Warnf("bus: dropping request %s, queue full", r.Kind)
		return ErrRequestQueueFull
	}
}

// Receive returns the consumer side of the queue. Only the Model reads it.
func (q *RequestQueue) Receive() <-chan messages.Request {
	return q.ch
}

// Len reports the number of requests currently queued, for diagnostics.
func (q *RequestQueue) Len() int {
	return len(q.ch)
}

// RequestSender is the narrow interface handed to producers (PrefetchCache,
// UiAdapters) that only need to publish, never consume.
type RequestSender interface {
	TrySend(r messages.Request) error
}

// StateBus fans a single stream of State events out to any number of
// subscribers, each with its own buffered channel and read cursor.
type StateBus struct {
	mu     sync.RWMutex
	subs   map[int]chan messages.State
	nextID int
}

func NewStateBus() *StateBus {
	return &StateBus{subs: make(map[int]chan messages.State)}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function. Events published before Subscribe is called are not
// visible to the new channel.
func (b *StateBus) Subscribe() (<-chan messages.State, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan messages.State, StateBusCapacity)
	b.subs[id] = ch
	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
	return ch, unsubscribe
}

// Publish fans the event out to every current subscriber. A subscriber that
// isn't keeping up has its event dropped rather than blocking the Model;
// this is the Go analogue of the spec's "late subscribers miss events"
// broadcast semantics extended to slow subscribers too.
func (b *StateBus) Publish(s messages.State) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs {
		select {
		case ch <- s:
		default:
			logrus.Warnf("bus: subscriber %d lagging, dropping state event %s", id, s.Kind)
		}
	}
}

// SubscriberCount reports the number of active State subscribers.
func (b *StateBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

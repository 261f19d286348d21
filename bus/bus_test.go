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

package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tvierimaa/panharmonicon/messages"
)

func TestRequestQueue_TrySendAndReceive(t *testing.T) {
	q := NewRequestQueue()
	err := q.TrySend(messages.Connect())
	assert.NoError(t, err)
	assert.Equal(t, 1, q.Len())

	got := <-q.Receive()
	assert.Equal(t, messages.ReqConnect, got.Kind)
}

func TestRequestQueue_FullQueueDropsAndErrors(t *testing.T) {
	q := &RequestQueue{ch: make(chan messages.Request, 1)}
	assert.NoError(t, q.TrySend(messages.Connect()))
	err := q.TrySend(messages.Quit())
	assert.ErrorIs(t, err, ErrRequestQueueFull)
}

func TestStateBus_PublishReachesSubscriber(t *testing.T) {
	b := NewStateBus()
	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()

	b.Publish(messages.StateConnected())
	got := <-ch
	assert.Equal(t, messages.StConnected, got.Kind)
}

func TestStateBus_LateSubscriberMissesEarlierEvents(t *testing.T) {
	b := NewStateBus()
	b.Publish(messages.StateConnected())

	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()

	b.Publish(messages.StateDisconnected())
	got := <-ch
	assert.Equal(t, messages.StDisconnected, got.Kind)
}

func TestStateBus_UnsubscribeStopsDelivery(t *testing.T) {
	b := NewStateBus()
	_, unsubscribe := b.Subscribe()
	assert.Equal(t, 1, b.SubscriberCount())
	unsubscribe()
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestStateBus_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := NewStateBus()
	ch, unsubscribe := b.Subscribe()
	defer unsubscribe()

	for i := 0; i < StateBusCapacity+10; i++ {
		b.Publish(messages.StateBuffering())
	}
	assert.LessOrEqual(t, len(ch), StateBusCapacity)
}

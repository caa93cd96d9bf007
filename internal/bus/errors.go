// If you are AI: This file defines PubChannel's sentinel errors.

package bus

import "errors"

var (
	// ErrPublisherExists is returned by CreatePublisher when another
	// process already publishes under the same name.
	ErrPublisherExists = errors.New("bus: publisher already exists for this channel")

	// ErrChannelNotFound is returned by Open, Purge and Delete when the
	// named channel has no shared-memory segment.
	ErrChannelNotFound = errors.New("bus: channel not found")

	// ErrPayloadTooLarge is returned by Publish when the payload exceeds
	// the channel's configured maximum.
	ErrPayloadTooLarge = errors.New("bus: payload exceeds channel max_payload")

	// ErrSlotsFull is returned by Open when every subscriber slot is
	// occupied by a live subscriber.
	ErrSlotsFull = errors.New("bus: all subscriber slots are occupied")

	// ErrPublisherGone is returned by Receive/Peek once the publisher has
	// exited and no further frames will arrive.
	ErrPublisherGone = errors.New("bus: publisher has exited")

	// ErrChannelInUse is returned by Delete when a live publisher still
	// holds the channel.
	ErrChannelInUse = errors.New("bus: channel still has a live publisher")

	// ErrClosed is returned by operations on a Subscription or Publisher
	// after Close has been called.
	ErrClosed = errors.New("bus: handle is closed")
)

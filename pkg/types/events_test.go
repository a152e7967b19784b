package types

import (
	"errors"
	"testing"
	"time"
)

func TestBaseEvent(t *testing.T) {
	evt := NewBaseEvent("test_event")

	if evt.Type() != "test_event" {
		t.Errorf("Type() = %q, want %q", evt.Type(), "test_event")
	}
	if evt.Timestamp().IsZero() {
		t.Error("Timestamp() is zero")
	}
	if time.Since(evt.Timestamp()) > time.Second {
		t.Error("Timestamp() is too old")
	}
}

func TestEvtChannelClosed(t *testing.T) {
	evt := EvtChannelClosed{
		BaseEvent: NewBaseEvent("channel.closed"),
		Channel:   ChannelID(3),
		Blocks:    12,
		Bytes:     4096,
	}

	if evt.Type() != "channel.closed" {
		t.Errorf("Type() = %q", evt.Type())
	}
	if evt.Channel != 3 {
		t.Errorf("Channel = %v", evt.Channel)
	}
	if evt.Failed {
		t.Error("Failed = true, want false")
	}
	if evt.Err != nil {
		t.Errorf("Err = %v, want nil", evt.Err)
	}
}

func TestEvtChannelClosedFailed(t *testing.T) {
	cause := errors.New("peer 2 gone")
	evt := EvtChannelClosed{
		BaseEvent: NewBaseEvent("channel.closed"),
		Channel:   ChannelID(0),
		Failed:    true,
		Err:       cause,
	}

	if !evt.Failed {
		t.Error("Failed = false, want true")
	}
	if !errors.Is(evt.Err, cause) {
		t.Errorf("Err = %v, want %v", evt.Err, cause)
	}
}

func TestEvtChannelOpened(t *testing.T) {
	evt := EvtChannelOpened{
		BaseEvent: NewBaseEvent("channel.opened"),
		Channel:   ChannelID(7),
		Peers:     4,
	}

	if evt.Type() != "channel.opened" {
		t.Errorf("Type() = %q", evt.Type())
	}
	if evt.Peers != 4 {
		t.Errorf("Peers = %d", evt.Peers)
	}
}

func TestEvtPeerFailed(t *testing.T) {
	cause := errors.New("connection reset")
	evt := EvtPeerFailed{
		BaseEvent: NewBaseEvent("peer.failed"),
		Peer:      Rank(2),
		Err:       cause,
	}

	if evt.Type() != "peer.failed" {
		t.Errorf("Type() = %q", evt.Type())
	}
	if evt.Peer != 2 {
		t.Errorf("Peer = %v", evt.Peer)
	}
	if !errors.Is(evt.Err, cause) {
		t.Errorf("Err = %v, want %v", evt.Err, cause)
	}
}

package types

import "testing"

func TestChannelState(t *testing.T) {
	tests := []struct {
		s    ChannelState
		want string
	}{
		{ChannelOpen, "open"},
		{ChannelClosed, "closed"},
		{ChannelFailed, "failed"},
		{ChannelState(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.s.String(); got != tt.want {
				t.Errorf("ChannelState(%d).String() = %q, want %q", tt.s, got, tt.want)
			}
		})
	}
}

func TestChannelStateTerminal(t *testing.T) {
	tests := []struct {
		s    ChannelState
		want bool
	}{
		{ChannelOpen, false},
		{ChannelClosed, true},
		{ChannelFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.s.String(), func(t *testing.T) {
			if got := tt.s.Terminal(); got != tt.want {
				t.Errorf("ChannelState(%s).Terminal() = %v, want %v", tt.s, got, tt.want)
			}
		})
	}
}

func TestWorkerState(t *testing.T) {
	tests := []struct {
		s    WorkerState
		want string
	}{
		{WorkerIdle, "idle"},
		{WorkerInitializing, "initializing"},
		{WorkerRunning, "running"},
		{WorkerStopping, "stopping"},
		{WorkerStopped, "stopped"},
		{WorkerState(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.s.String(); got != tt.want {
				t.Errorf("WorkerState(%d).String() = %q, want %q", tt.s, got, tt.want)
			}
		})
	}
}

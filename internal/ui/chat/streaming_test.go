// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"testing"
)

func TestBufferHoldsBelowThreshold(t *testing.T) {
	sb := NewStreamingBuffer()
	sb.Write("a")
	sb.Write("b")

	if _, ok := sb.Flush(); ok {
		t.Error("flush should not fire below the batch threshold")
	}
	if sb.Pending() != 2 {
		t.Errorf("pending = %d, want 2", sb.Pending())
	}
}

func TestBufferFlushesAtThreshold(t *testing.T) {
	sb := NewStreamingBuffer()
	for i := 0; i < defaultBatchSize; i++ {
		sb.Write("x")
	}

	chunk, ok := sb.Flush()
	if !ok {
		t.Fatal("flush should fire at the batch threshold")
	}
	if len(chunk) != defaultBatchSize {
		t.Errorf("chunk length = %d, want %d", len(chunk), defaultBatchSize)
	}
	if sb.Pending() != 0 {
		t.Errorf("pending = %d after flush, want 0", sb.Pending())
	}
}

func TestForceFlushDrainsEverything(t *testing.T) {
	sb := NewStreamingBuffer()
	sb.Write("hello ")
	sb.Write("world")

	chunk, ok := sb.ForceFlush()
	if !ok {
		t.Fatal("force flush should drain pending tokens")
	}
	if chunk != "hello world" {
		t.Errorf("chunk = %q, want %q", chunk, "hello world")
	}

	if _, ok := sb.ForceFlush(); ok {
		t.Error("second force flush should report nothing pending")
	}
}

func TestResetDiscardsPending(t *testing.T) {
	sb := NewStreamingBuffer()
	sb.Write("stale")
	sb.Reset()

	if sb.Pending() != 0 {
		t.Errorf("pending = %d after reset, want 0", sb.Pending())
	}
	if _, ok := sb.ForceFlush(); ok {
		t.Error("reset buffer should have nothing to flush")
	}
}

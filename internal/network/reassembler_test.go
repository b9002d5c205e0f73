package network

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/energizer-project/bnetchat/internal/protocol"
)

func encode(t *testing.T, kind protocol.Kind, id byte, payload []byte) []byte {
	t.Helper()
	frame, err := protocol.EncodeFrame(kind, id, payload)
	require.NoError(t, err)
	return frame
}

func testStream(t *testing.T) []byte {
	var stream []byte
	stream = append(stream, encode(t, protocol.KindChat, protocol.SidPing, []byte{1, 2, 3, 4})...)
	stream = append(stream, encode(t, protocol.KindChat, protocol.SidNull, nil)...)
	stream = append(stream, encode(t, protocol.KindChat, protocol.SidChatEvent, []byte("some event body\x00"))...)
	return stream
}

func TestReassemblerSplitAtEveryOffset(t *testing.T) {
	stream := testStream(t)

	for cut := 0; cut <= len(stream); cut++ {
		r := NewReassembler(protocol.KindChat)

		r.Feed(stream[:cut])
		first, err := r.Drain()
		require.NoError(t, err)

		r.Feed(stream[cut:])
		second, err := r.Drain()
		require.NoError(t, err)

		frames := append(first, second...)
		require.Len(t, frames, 3, "cut at %d", cut)
		assert.Equal(t, protocol.SidPing, frames[0].ID)
		assert.Equal(t, []byte{1, 2, 3, 4}, frames[0].Payload)
		assert.Equal(t, protocol.SidNull, frames[1].ID)
		assert.Empty(t, frames[1].Payload)
		assert.Equal(t, protocol.SidChatEvent, frames[2].ID)
		assert.Equal(t, 0, r.Buffered())
	}
}

func TestReassemblerLargestFrame(t *testing.T) {
	body := make([]byte, protocol.MaxFrameSize-protocol.ChatHeaderSize)
	for i := range body {
		body[i] = 'x'
	}
	stream := encode(t, protocol.KindChat, protocol.SidWriteUserData, body)
	stream = append(stream, encode(t, protocol.KindChat, protocol.SidNull, nil)...)

	r := NewReassembler(protocol.KindChat)
	r.Feed(stream)
	frames, err := r.Drain()
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Len(t, frames[0].Payload, len(body))
	assert.Equal(t, protocol.SidNull, frames[1].ID)
}

func TestReassemblerByteAtATime(t *testing.T) {
	stream := encode(t, protocol.KindRelay, protocol.RelayChooseNLSRevision, []byte{1, 0, 0, 0})
	r := NewReassembler(protocol.KindRelay)

	var frames []protocol.Frame
	for _, b := range stream {
		r.Feed([]byte{b})
		got, err := r.Drain()
		require.NoError(t, err)
		frames = append(frames, got...)
	}

	require.Len(t, frames, 1)
	assert.Equal(t, protocol.KindRelay, frames[0].Kind)
	assert.Equal(t, protocol.RelayChooseNLSRevision, frames[0].ID)
	assert.Equal(t, []byte{1, 0, 0, 0}, frames[0].Payload)
}

func TestReassemblerDesync(t *testing.T) {
	tests := []struct {
		name  string
		kind  protocol.Kind
		input []byte
	}{
		{name: "bad chat sentinel", kind: protocol.KindChat, input: []byte{0xFE, 0x25, 0x08, 0x00}},
		{name: "chat length below header", kind: protocol.KindChat, input: []byte{0xFF, 0x25, 0x02, 0x00}},
		{name: "relay length below header", kind: protocol.KindRelay, input: []byte{0x01, 0x00, 0x0D}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReassembler(tt.kind)
			r.Feed(tt.input)
			_, err := r.Drain()
			var desync *protocol.ProtocolDesyncError
			assert.ErrorAs(t, err, &desync)
		})
	}
}

func TestReassemblerKeepsPartialTail(t *testing.T) {
	stream := testStream(t)
	r := NewReassembler(protocol.KindChat)
	r.Feed(stream[:len(stream)-3])

	frames, err := r.Drain()
	require.NoError(t, err)
	assert.Len(t, frames, 2)
	assert.Greater(t, r.Buffered(), 0)
}

func TestConnectionPump(t *testing.T) {
	client, server := net.Pipe()
	conn := NewConnection(client, protocol.KindChat)

	out := make(chan protocol.Frame, 8)
	errc := make(chan error, 1)
	go func() { errc <- conn.Pump(context.Background(), out) }()

	stream := testStream(t)
	go func() {
		server.Write(stream[:5])
		server.Write(stream[5:])
		server.Close()
	}()

	for i := 0; i < 3; i++ {
		select {
		case <-out:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for frame")
		}
	}

	select {
	case err := <-errc:
		var nerr *NetworkError
		require.ErrorAs(t, err, &nerr)
		assert.Equal(t, "closed", nerr.Op)
		assert.Equal(t, "bncs server closed the connection", nerr.Error())
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not return after peer close")
	}
}

func TestConnectionLocalCloseIsClean(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	conn := NewConnection(client, protocol.KindRelay)

	errc := make(chan error, 1)
	go func() { errc <- conn.Pump(context.Background(), make(chan protocol.Frame)) }()

	require.NoError(t, conn.Close())
	assert.True(t, conn.IsClosed())

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not return after local close")
	}

	var nerr *NetworkError
	assert.ErrorAs(t, conn.Write([]byte{1}), &nerr)
}

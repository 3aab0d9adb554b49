// Copyright (c) 2026 by Koanworks

package signal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/koanworks/presence/peerlink"
)

// relayServer is a minimal room relay: every inbound message is forwarded to
// all other connections.
type relayServer struct {
	mx    sync.Mutex
	conns []*websocket.Conn
}

func (s *relayServer) handler(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mx.Lock()
	s.conns = append(s.conns, conn)
	s.mx.Unlock()

	go func() {
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}

			s.mx.Lock()
			for _, other := range s.conns {
				if other != conn {
					_ = other.WriteMessage(msgType, data)
				}
			}
			s.mx.Unlock()
		}
	}()
}

func startRelay(t *testing.T) string {
	t.Helper()

	relay := &relayServer{}
	srv := httptest.NewServer(http.HandlerFunc(relay.handler))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClientRelaysEnvelopes(t *testing.T) {
	url := startRelay(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a, err := Dial(ctx, url, "room-1", WithClientID("peer-a"))
	if err != nil {
		t.Fatalf("dial a: %v", err)
	}
	defer func() { _ = a.Close() }()

	b, err := Dial(ctx, url, "room-1", WithClientID("peer-b"))
	if err != nil {
		t.Fatalf("dial b: %v", err)
	}
	defer func() { _ = b.Close() }()

	sent := peerlink.SignalEnvelope{
		Kind:    peerlink.SignalOffer,
		To:      "peer-b",
		Payload: []byte(`{"type":"offer","sdp":"v=0"}`),
	}
	if err := a.Send(ctx, sent); err != nil {
		t.Fatalf("send: %v", err)
	}

	got, err := b.Receive(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}

	if got.Kind != peerlink.SignalOffer {
		t.Errorf("kind = %q", got.Kind)
	}
	if got.From != "peer-a" {
		t.Errorf("from = %q", got.From)
	}
	if string(got.Payload) != string(sent.Payload) {
		t.Errorf("payload = %s", got.Payload)
	}
}

func TestClientSkipsMembershipAndForeignMessages(t *testing.T) {
	url := startRelay(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a, err := Dial(ctx, url, "room-1", WithClientID("peer-a"))
	if err != nil {
		t.Fatalf("dial a: %v", err)
	}
	defer func() { _ = a.Close() }()

	b, err := Dial(ctx, url, "room-1", WithClientID("peer-b"))
	if err != nil {
		t.Fatalf("dial b: %v", err)
	}
	defer func() { _ = b.Close() }()

	// c's join is a membership notice and must be skipped by b's Receive,
	// and the answer addressed to peer-c must not surface at peer-b.
	c, err := Dial(ctx, url, "room-1", WithClientID("peer-c"))
	if err != nil {
		t.Fatalf("dial c: %v", err)
	}
	defer func() { _ = c.Close() }()

	if err := a.Send(ctx, peerlink.SignalEnvelope{Kind: peerlink.SignalAnswer, To: "peer-c"}); err != nil {
		t.Fatalf("send to c: %v", err)
	}
	if err := a.Send(ctx, peerlink.SignalEnvelope{Kind: peerlink.SignalOffer, To: "peer-b"}); err != nil {
		t.Fatalf("send to b: %v", err)
	}

	got, err := b.Receive(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if got.Kind != peerlink.SignalOffer || got.To != "peer-b" {
		t.Errorf("got %+v, want the offer addressed to peer-b", got)
	}
}

func TestClientReceiveDeadline(t *testing.T) {
	url := startRelay(t)

	dialCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a, err := Dial(dialCtx, url, "room-1")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = a.Close() }()

	recvCtx, recvCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer recvCancel()

	if _, err := a.Receive(recvCtx); err == nil {
		t.Error("receive with nothing inbound did not time out")
	}
}

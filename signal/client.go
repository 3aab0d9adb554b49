// Copyright (c) 2026 by Koanworks.
// Licensed under the Apache License, Version 2.0.
// See the LICENSE file or http://www.apache.org/licenses/LICENSE-2.0 for details.

package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/koanworks/presence/peerlink"
)

// Client is a websocket signaling client speaking a room-based protocol:
// every message carries a type, a room, and optional from/to peer routing.
// It relays offers and answers between the peers of one room.
type Client struct {
	conn *websocket.Conn
	room string
	id   string
	log  *slog.Logger
}

type roomMessage struct {
	Type    string          `json:"type"`
	From    string          `json:"from,omitempty"`
	To      string          `json:"to,omitempty"`
	RoomID  string          `json:"roomId"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

const (
	msgJoin  = "join"
	msgLeave = "leave"
	msgError = "error"
)

// Dial connects to the signaling server and joins the given room.
func Dial(ctx context.Context, serverURL, room string, opts ...func(*Client)) (*Client, error) {
	c := &Client{
		room: room,
		id:   uuid.NewString(),
		log:  slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, serverURL, nil)
	if err != nil {
		return nil, fmt.Errorf("signal: failed to dial %s: %w", serverURL, err)
	}
	c.conn = conn

	join := roomMessage{Type: msgJoin, From: c.id, RoomID: room}
	if err := c.write(ctx, join); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("signal: failed to join room: %w", err)
	}

	c.log = c.log.With("room", room, "peer", c.id)
	c.log.Debug("joined signaling room")

	return c, nil
}

var WithClientLogger = func(log *slog.Logger) func(*Client) {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

var WithClientID = func(id string) func(*Client) {
	return func(c *Client) {
		if id != "" {
			c.id = id
		}
	}
}

// ID returns the peer identifier this client joined the room under.
func (c *Client) ID() string {
	return c.id
}

func (c *Client) Send(ctx context.Context, env peerlink.SignalEnvelope) error {
	msg := roomMessage{
		Type:    string(env.Kind),
		From:    c.id,
		To:      env.To,
		RoomID:  c.room,
		Payload: env.Payload,
	}

	if err := c.write(ctx, msg); err != nil {
		return fmt.Errorf("signal: failed to send %s: %w", env.Kind, err)
	}

	return nil
}

// Receive blocks for the next handshake message addressed to this peer.
// Room housekeeping messages (join/leave notifications) are skipped; a
// server-reported error ends the receive.
func (c *Client) Receive(ctx context.Context) (peerlink.SignalEnvelope, error) {
	deadline := time.Time{}
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return peerlink.SignalEnvelope{}, fmt.Errorf("signal: failed to set read deadline: %w", err)
	}

	for {
		var msg roomMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return peerlink.SignalEnvelope{}, fmt.Errorf("signal: failed to receive: %w", err)
		}

		switch msg.Type {
		case msgJoin, msgLeave:
			c.log.Debug("room membership changed", "kind", msg.Type, "peer", msg.From)
			continue
		case msgError:
			return peerlink.SignalEnvelope{}, fmt.Errorf("signal: server error: %s", msg.Error)
		}

		if msg.To != "" && msg.To != c.id {
			continue
		}

		return peerlink.SignalEnvelope{
			Kind:    peerlink.SignalKind(msg.Type),
			From:    msg.From,
			To:      msg.To,
			Payload: msg.Payload,
		}, nil
	}
}

// Close announces departure from the room (best effort) and drops the
// connection. Safe to call more than once.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}

	leaveCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = c.write(leaveCtx, roomMessage{Type: msgLeave, From: c.id, RoomID: c.room})

	err := c.conn.Close()
	c.conn = nil
	if err != nil {
		return fmt.Errorf("signal: failed to close connection: %w", err)
	}

	return nil
}

func (c *Client) write(ctx context.Context, msg roomMessage) error {
	deadline := time.Time{}
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}

	return c.conn.WriteJSON(msg)
}

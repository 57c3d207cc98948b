package scheduler

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/sourcegraph/jsonrpc2"
)

// Client talks to a running daemon over its control socket.
type Client struct {
	conn *jsonrpc2.Conn
}

func Dial(ctx context.Context, socketPath string) (*Client, error) {
	var d net.Dialer
	d.Timeout = 3 * time.Second

	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("daemon not reachable at %s: %w", socketPath, err)
	}

	stream := jsonrpc2.NewBufferedStream(conn, jsonrpc2.VSCodeObjectCodec{})
	return &Client{conn: jsonrpc2.NewConn(ctx, stream, noopHandler{})}, nil
}

func (c *Client) Status(ctx context.Context) (*StatusInfo, error) {
	var info StatusInfo
	if err := c.conn.Call(ctx, "status", nil, &info); err != nil {
		return nil, fmt.Errorf("status call failed: %w", err)
	}
	return &info, nil
}

func (c *Client) Run(ctx context.Context) error {
	var ack ackResult
	if err := c.conn.Call(ctx, "run", nil, &ack); err != nil {
		return fmt.Errorf("run call failed: %w", err)
	}
	return nil
}

func (c *Client) Stop(ctx context.Context) error {
	var ack ackResult
	if err := c.conn.Call(ctx, "stop", nil, &ack); err != nil {
		return fmt.Errorf("stop call failed: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

type noopHandler struct{}

func (noopHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {}

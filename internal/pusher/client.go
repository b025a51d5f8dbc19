// Package pusher is a minimal client for the push channel the judge uses to
// stream grading progress.
package pusher

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"
)

// DefaultURL is the public application endpoint of the judge.
const DefaultURL = "wss://ws-ap1.pusher.com/app/a2cb611847131e062b32?protocol=7&client=js&version=4.2.2&flash=false"

const (
	eventSubscribe = "pusher:subscribe"
	eventPing      = "pusher:ping"
	eventPong      = "pusher:pong"
)

// ErrIdleTimeout is returned when nothing arrives within the idle timeout.
var ErrIdleTimeout = errors.New("push channel idle timeout")

// Config controls the connection.
type Config struct {
	URL         string
	DialTimeout time.Duration
	// IdleTimeout bounds the wait for each message. Zero waits forever.
	IdleTimeout time.Duration
}

// Client is one connection to the push service. Receive must not be called
// concurrently; writes are serialized internally.
type Client struct {
	cfg    Config
	conn   net.Conn
	rw     io.ReadWriter
	logger *zap.Logger

	writeMu sync.Mutex
	once    sync.Once
}

// ChannelForSolution names the channel that carries progress for a solution.
func ChannelForSolution(solutionID int) string {
	return "solution-" + strconv.Itoa(solutionID)
}

// Dial opens a websocket to cfg.URL.
func Dial(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	dialer := ws.Dialer{Timeout: cfg.DialTimeout}
	conn, br, _, err := dialer.Dial(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial push channel: %w", err)
	}
	return &Client{
		cfg:    cfg,
		conn:   conn,
		rw:     bufferedConn(conn, br),
		logger: logger,
	}, nil
}

// bufferedConn drains frames the server sent along with the handshake.
func bufferedConn(conn net.Conn, br *bufio.Reader) io.ReadWriter {
	if br == nil {
		return conn
	}
	return struct {
		io.Reader
		io.Writer
	}{io.MultiReader(br, conn), conn}
}

type message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Subscribe joins channel.
func (c *Client) Subscribe(ctx context.Context, channel string) error {
	c.logger.Debug("subscribing to push channel", zap.String("channel", channel))
	return c.send(ctx, message{Event: eventSubscribe, Data: map[string]string{"channel": channel}})
}

func (c *Client) send(ctx context.Context, msg message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Event, err)
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
		defer func() { _ = c.conn.SetWriteDeadline(time.Time{}) }()
	}
	if err := wsutil.WriteClientMessage(c.rw, ws.OpText, payload); err != nil {
		return fmt.Errorf("write %s: %w", msg.Event, err)
	}
	return nil
}

// Receive blocks for the next application message. Pings are answered and
// not returned. A nil message with a nil error means the server closed the
// connection.
func (c *Client) Receive(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		if c.cfg.IdleTimeout > 0 {
			_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.IdleTimeout))
		} else {
			_ = c.conn.SetReadDeadline(time.Time{})
		}
		// Checked after arming the deadline so a cancellation racing the
		// reset above is never lost.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, op, err := wsutil.ReadServerData(c.rw)
		if err != nil {
			return nil, c.readError(ctx, err)
		}
		if op != ws.OpText {
			continue
		}
		if isPing(data) {
			if err := c.send(ctx, message{Event: eventPong, Data: map[string]string{}}); err != nil {
				return nil, err
			}
			continue
		}
		return data, nil
	}
}

func (c *Client) readError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var closed wsutil.ClosedError
	if errors.As(err, &closed) || errors.Is(err, io.EOF) {
		c.logger.Debug("push channel closed", zap.Error(err))
		return nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w after %s", ErrIdleTimeout, c.cfg.IdleTimeout)
	}
	return fmt.Errorf("read push channel: %w", err)
}

func isPing(data []byte) bool {
	var msg struct {
		Event string `json:"event"`
	}
	return json.Unmarshal(data, &msg) == nil && msg.Event == eventPing
}

// Close sends a close frame and releases the connection.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		c.writeMu.Lock()
		_ = wsutil.WriteClientMessage(c.conn, ws.OpClose, ws.NewCloseFrameBody(ws.StatusNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

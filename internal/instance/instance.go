// Package instance keeps a single launcher running per user. The first
// launcher listens on a loopback port; later ones ask it over JSON-RPC to
// raise its window and then exit.
package instance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	"go.uber.org/zap"
)

const (
	// DefaultAddr is the loopback address the primary instance listens on.
	DefaultAddr = "127.0.0.1:21110"
	// MethodShow asks the primary to bring its window to the front.
	MethodShow = "instance.show"

	dialTimeout = 2 * time.Second
)

// ErrAlreadyRunning is returned by Acquire when another launcher answered.
var ErrAlreadyRunning = errors.New("launcher already running")

// ShowParams accompanies MethodShow.
type ShowParams struct {
	PID  int      `json:"pid"`
	Args []string `json:"args,omitempty"`
}

// ShowResult is the primary's reply to MethodShow.
type ShowResult struct {
	PID int `json:"pid"`
}

// Primary is the listening side held by the first launcher.
type Primary struct {
	listener net.Listener
	onShow   func(ShowParams)
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc

	mu    sync.Mutex
	conns map[*jsonrpc2.Conn]struct{}
	wg    sync.WaitGroup
}

// Option configures Acquire.
type Option func(*options)

type options struct {
	logger *zap.Logger
	args   []string
}

// WithLogger sets the logger used for connection errors.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithArgs forwards the secondary's command line to the primary.
func WithArgs(args []string) Option {
	return func(o *options) { o.args = args }
}

// Acquire claims addr for this process. If another launcher already holds it,
// that launcher is asked to show itself and ErrAlreadyRunning is returned.
func Acquire(ctx context.Context, addr string, onShow func(ShowParams), opts ...Option) (*Primary, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	ln, listenErr := net.Listen("tcp", addr)
	if listenErr == nil {
		return serve(ln, onShow, o.logger), nil
	}
	if err := notify(ctx, addr, o.args); err != nil {
		return nil, fmt.Errorf("listen %s: %w (notify existing: %v)", addr, listenErr, err)
	}
	return nil, ErrAlreadyRunning
}

func serve(ln net.Listener, onShow func(ShowParams), logger *zap.Logger) *Primary {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Primary{
		listener: ln,
		onShow:   onShow,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		conns:    make(map[*jsonrpc2.Conn]struct{}),
	}
	p.wg.Add(1)
	go p.accept()
	return p
}

// Addr returns the address the primary listens on.
func (p *Primary) Addr() string { return p.listener.Addr().String() }

func (p *Primary) accept() {
	defer p.wg.Done()
	for {
		nc, err := p.listener.Accept()
		if err != nil {
			if p.ctx.Err() == nil {
				p.logger.Warn("instance listener stopped", zap.Error(err))
			}
			return
		}
		stream := jsonrpc2.NewBufferedStream(nc, jsonrpc2.VSCodeObjectCodec{})
		conn := jsonrpc2.NewConn(p.ctx, stream, jsonrpc2.HandlerWithError(p.handle))
		p.mu.Lock()
		if p.ctx.Err() != nil {
			p.mu.Unlock()
			conn.Close()
			return
		}
		p.conns[conn] = struct{}{}
		p.mu.Unlock()
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			<-conn.DisconnectNotify()
			p.mu.Lock()
			delete(p.conns, conn)
			p.mu.Unlock()
		}()
	}
}

func (p *Primary) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	switch req.Method {
	case MethodShow:
		var params ShowParams
		if req.Params != nil {
			if err := json.Unmarshal(*req.Params, &params); err != nil {
				return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
			}
		}
		p.logger.Info("second launcher started, showing window", zap.Int("pid", params.PID))
		if p.onShow != nil {
			p.onShow(params)
		}
		return ShowResult{PID: os.Getpid()}, nil
	default:
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not handled"}
	}
}

// Close stops accepting and drops open connections.
func (p *Primary) Close() error {
	if p == nil {
		return nil
	}
	p.cancel()
	err := p.listener.Close()
	p.mu.Lock()
	for conn := range p.conns {
		conn.Close()
	}
	p.mu.Unlock()
	p.wg.Wait()
	return err
}

func notify(ctx context.Context, addr string, args []string) error {
	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	stream := jsonrpc2.NewBufferedStream(nc, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(
		func(context.Context, *jsonrpc2.Conn, *jsonrpc2.Request) (interface{}, error) {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not handled"}
		}))
	defer conn.Close()
	var result ShowResult
	return conn.Call(ctx, MethodShow, ShowParams{PID: os.Getpid(), Args: args}, &result)
}

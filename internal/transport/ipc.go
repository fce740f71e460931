// Package transport exposes the engine to other processes: a unix-socket
// control channel for the CLI and a websocket stream of break events.
package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/break_mon/internal/domain"
)

// Commands accepted on the control socket.
const (
	CmdStatus       = "status"
	CmdPause        = "pause"
	CmdResume       = "resume"
	CmdStartMini    = "start_mini"
	CmdStartWork    = "start_work"
	CmdSkipMini     = "skip_mini"
	CmdSkipWork     = "skip_work"
	CmdPostpone     = "postpone"
	CmdResetTimings = "reset_timings"
	CmdResetConfig  = "reset_config"
	CmdSetConfig    = "set_config"
)

const (
	statusOK    = "ok"
	statusError = "error"

	defaultIPCTimeout = 5 * time.Second
)

// ErrDaemonNotRunning is returned by the client when nothing listens on the socket.
var ErrDaemonNotRunning = errors.New("daemon not running")

// Request is one line sent by a client.
type Request struct {
	Command string              `json:"command"`
	Natural bool                `json:"natural,omitempty"`
	Config  *domain.ConfigPatch `json:"config,omitempty"`
}

// Response is one line sent back by the server.
type Response struct {
	Status string       `json:"status"`
	Error  string       `json:"error,omitempty"`
	View   *domain.View `json:"view,omitempty"`
}

// Controller is the engine surface the control socket drives.
type Controller interface {
	Dispatch(ctx context.Context, action domain.Action) (domain.View, error)
	Skip(ctx context.Context, kind domain.BreakKind) (domain.View, error)
	View() domain.View
}

// IPCServer serves line-delimited JSON commands on a unix socket.
type IPCServer struct {
	socketPath string
	controller Controller
	logger     *zap.Logger
	timeout    time.Duration
}

// NewIPCServer creates a control socket server.
func NewIPCServer(socketPath string, controller Controller, logger *zap.Logger) *IPCServer {
	return &IPCServer{
		socketPath: socketPath,
		controller: controller,
		logger:     logger,
		timeout:    defaultIPCTimeout,
	}
}

// Run listens until ctx is canceled, then removes the socket file.
func (s *IPCServer) Run(ctx context.Context) error {
	if err := os.RemoveAll(s.socketPath); err != nil {
		return fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.socketPath, err)
	}
	defer os.Remove(s.socketPath)
	defer listener.Close()

	// owner only
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}

	s.logger.Info("control socket listening", zap.String("socket", s.socketPath))

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.logger.Debug("control socket closed")
				return nil
			}
			s.logger.Warn("control socket accept failed", zap.Error(err))
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *IPCServer) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	encoder := json.NewEncoder(conn)

	for scanner.Scan() {
		var req Request
		var resp Response
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			resp = errorResponse(fmt.Errorf("parse request: %w", err))
		} else {
			resp = s.Handle(ctx, req)
		}

		if err := encoder.Encode(resp); err != nil {
			s.logger.Debug("control socket write failed", zap.Error(err))
			return
		}
	}
}

// Handle executes one request against the controller.
func (s *IPCServer) Handle(ctx context.Context, req Request) Response {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.logger.Debug("control command", zap.String("command", req.Command))

	var (
		view domain.View
		err  error
	)
	switch req.Command {
	case CmdStatus:
		view = s.controller.View()
	case CmdPause:
		view, err = s.controller.Dispatch(ctx, domain.SetUserPaused{Paused: true})
	case CmdResume:
		view, err = s.controller.Dispatch(ctx, domain.SetUserPaused{Paused: false})
	case CmdStartMini:
		view, err = s.controller.Dispatch(ctx, domain.StartMiniBreak{})
	case CmdStartWork:
		view, err = s.controller.Dispatch(ctx, domain.StartWorkBreak{NaturalContinuation: req.Natural})
	case CmdSkipMini:
		view, err = s.controller.Skip(ctx, domain.BreakMini)
	case CmdSkipWork:
		view, err = s.controller.Skip(ctx, domain.BreakWork)
	case CmdPostpone:
		view, err = s.controller.Dispatch(ctx, domain.PostponeWorkBreak{})
	case CmdResetTimings:
		view, err = s.controller.Dispatch(ctx, domain.ResetTimings{})
	case CmdResetConfig:
		view, err = s.controller.Dispatch(ctx, domain.ResetConfig{})
	case CmdSetConfig:
		if req.Config == nil || req.Config.IsEmpty() {
			return errorResponse(errors.New("set_config requires a non-empty config"))
		}
		view, err = s.controller.Dispatch(ctx, domain.SetConfig{Patch: *req.Config})
	default:
		return errorResponse(fmt.Errorf("unknown command %q", req.Command))
	}

	if err != nil {
		return errorResponse(err)
	}
	return Response{Status: statusOK, View: &view}
}

func errorResponse(err error) Response {
	return Response{Status: statusError, Error: err.Error()}
}

// SendCommand sends one request to the daemon and returns the resulting view.
func SendCommand(socketPath string, req Request) (*domain.View, error) {
	conn, err := net.DialTimeout("unix", socketPath, defaultIPCTimeout)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED) {
			return nil, ErrDaemonNotRunning
		}
		return nil, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(defaultIPCTimeout))

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != statusOK {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}
	return resp.View, nil
}

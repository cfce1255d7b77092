package ipc

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/screenmask/internal/engine"
	"github.com/1broseidon/screenmask/internal/runtimepath"
)

// Controller is the daemon surface the server drives.
type Controller interface {
	Start() engine.Outcome
	Restart(reason string) (engine.Outcome, bool)
	Stop() int
	Suspended() bool
	Uptime() time.Duration
	Status() engine.Status
	LiveRuleIDs() []string
	PermissionGranted() bool
}

// ReloadFunc re-reads configuration and returns the rules file now in use.
type ReloadFunc func() (rulesFile string, err error)

// MonitorFunc lists the connected monitors.
type MonitorFunc func() ([]MonitorInfo, error)

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	ctl          Controller
	reload       ReloadFunc
	monitors     MonitorFunc
	logger       *slog.Logger
	rulesFile    string
	rulesMu      sync.RWMutex
	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a new IPC server. reload and monitors may be nil.
func NewServer(ctl Controller, rulesFile string, reload ReloadFunc, monitors MonitorFunc, logger *slog.Logger) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Remove existing socket if present
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		ctl:        ctl,
		reload:     reload,
		monitors:   monitors,
		logger:     logger,
		rulesFile:  rulesFile,
	}, nil
}

// SocketPath returns the socket the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	go s.acceptLoop()

	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)

	// Read the request (expect JSON on a single line)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("IPC read error", "error", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.sendError(conn, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	resp := s.handleCommand(req)

	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Error("failed to marshal IPC response", "error", err)
		return
	}

	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Warn("failed to send IPC response", "error", err)
	}
}

func (s *Server) handleCommand(req *Request) *Response {
	s.logger.Debug("IPC command", "command", req.Command)
	switch req.Command {
	case CommandActivate:
		return s.handleActivate()
	case CommandDeactivate:
		return s.handleDeactivate()
	case CommandGetStatus:
		return s.handleGetStatus()
	case CommandGetMonitors:
		return s.handleGetMonitors()
	case CommandReload:
		return s.handleReload()
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func (s *Server) handleActivate() *Response {
	out := s.ctl.Start()
	resp, err := NewOKResponse(OutcomeData{Outcome: out})
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

func (s *Server) handleDeactivate() *Response {
	resp, err := NewOKResponse(DeactivateData{Cleared: s.ctl.Stop()})
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

// handleReload re-reads the configuration, then re-applies the rules unless
// masks were deactivated.
func (s *Server) handleReload() *Response {
	if s.reload != nil {
		rulesFile, err := s.reload()
		if err != nil {
			return NewErrorResponse(fmt.Sprintf("Failed to reload config: %v", err))
		}
		s.rulesMu.Lock()
		s.rulesFile = rulesFile
		s.rulesMu.Unlock()
	}

	out, restarted := s.ctl.Restart("reload requested")
	resp, err := NewOKResponse(OutcomeData{Outcome: out, Suspended: !restarted})
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

func (s *Server) handleGetStatus() *Response {
	st := s.ctl.Status()
	s.rulesMu.RLock()
	rulesFile := s.rulesFile
	s.rulesMu.RUnlock()

	status := StatusData{
		State:             st.State,
		Suspended:         s.ctl.Suspended(),
		LiveSurfaces:      st.LiveSurfaces,
		LiveRuleIDs:       s.ctl.LiveRuleIDs(),
		Activations:       st.Activations,
		LastActivated:     st.LastActivated,
		LastOutcome:       st.LastOutcome,
		PermissionGranted: s.ctl.PermissionGranted(),
		RulesFile:         rulesFile,
		UptimeSeconds:     int64(s.ctl.Uptime().Seconds()),
		DaemonRunning:     true,
	}

	resp, err := NewOKResponse(status)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

func (s *Server) handleGetMonitors() *Response {
	if s.monitors == nil {
		return NewErrorResponse("monitor information unavailable")
	}
	monitors, err := s.monitors()
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Failed to get monitors: %v", err))
	}

	resp, err := NewOKResponse(MonitorsData{Monitors: monitors})
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

func (s *Server) sendError(conn net.Conn, errMsg string) {
	resp := NewErrorResponse(errMsg)
	data, _ := resp.Marshal()
	data = append(data, '\n')
	conn.Write(data)
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	os.Remove(s.socketPath)
}

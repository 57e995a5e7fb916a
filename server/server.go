package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nixxel-company-limited/ql-print-server/bitmap"
	"github.com/nixxel-company-limited/ql-print-server/driver"
	"github.com/nixxel-company-limited/ql-print-server/journal"
	"github.com/nixxel-company-limited/ql-print-server/protocol"
)

const (
	DefaultMaxJobSize  = 16 << 20
	DefaultReadTimeout = 30 * time.Second
)

// Printer prints one bitmap at a time.
type Printer interface {
	PrintImage(img driver.Image) (protocol.PrinterStatus, error)
	Recover() error
}

// Renderer turns a received document into a bitmap.
type Renderer interface {
	Render(data []byte) (*bitmap.Bitmap, error)
}

// Recorder keeps a record of every job.
type Recorder interface {
	Start(client string, size int) (journal.Job, error)
	Finish(id uuid.UUID, res journal.Result) error
}

// Option configures a Server.
type Option func(*Server)

// WithRecorder journals every job.
func WithRecorder(r Recorder) Option {
	return func(s *Server) { s.recorder = r }
}

// WithMaxJobSize caps the size of one document.
func WithMaxJobSize(n int64) Option {
	return func(s *Server) { s.maxJobSize = n }
}

// WithReadTimeout bounds the time a client may take to send its document.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) { s.readTimeout = d }
}

// Server is a raw TCP print server. Each connection delivers one document
// and closes its write side; the server answers with "OK <job-id>" or
// "ERROR <message>" and closes the connection.
type Server struct {
	printer     Printer
	renderer    Renderer
	recorder    Recorder
	listener    net.Listener
	address     string
	maxJobSize  int64
	readTimeout time.Duration
	mu          sync.Mutex
	jobMu       sync.Mutex
	running     bool
	wg          sync.WaitGroup
	logger      zerolog.Logger
}

// New creates a new server instance
func New(printer Printer, renderer Renderer, address string, opts ...Option) *Server {
	return NewWithLogger(printer, renderer, address, zerolog.Nop(), opts...)
}

// NewWithLogger creates a new server instance with a custom logger
func NewWithLogger(printer Printer, renderer Renderer, address string, logger zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		printer:     printer,
		renderer:    renderer,
		address:     address,
		maxJobSize:  DefaultMaxJobSize,
		readTimeout: DefaultReadTimeout,
		logger:      logger.With().Str("component", "server").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start starts the TCP server and blocks until Stop is called
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.address).Msg("Starting server (blocking mode)")

	if err := s.listen(); err != nil {
		return err
	}

	s.logger.Info().Msg("Ready to accept connections")
	s.wg.Add(1)
	s.acceptConnections()
	return nil
}

// StartAsync starts the TCP server in a goroutine (non-blocking)
func (s *Server) StartAsync() error {
	s.logger.Info().Str("address", s.address).Msg("Starting server (async mode)")

	if err := s.listen(); err != nil {
		return err
	}

	s.wg.Add(1)
	go s.acceptConnections()
	s.logger.Info().Msg("Server started in background, ready to accept connections")
	return nil
}

func (s *Server) listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Error().Msg("Server already running")
		return errors.New("server already running")
	}

	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to start server")
		return fmt.Errorf("failed to start server: %w", err)
	}

	s.listener = listener
	s.running = true
	s.logger.Info().Str("address", listener.Addr().String()).Msg("Server listening")
	return nil
}

// acceptConnections handles incoming client connections
func (s *Server) acceptConnections() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.IsRunning() {
				s.logger.Debug().Msg("Server shutting down, stopping accept loop")
				return
			}
			s.logger.Warn().Err(err).Msg("Error accepting connection")
			continue
		}

		s.logger.Debug().Stringer("client", conn.RemoteAddr()).Msg("Client connected")
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// handleConnection reads one document, prints it and writes the reply
func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	client := conn.RemoteAddr().String()
	log := s.logger.With().Str("client", client).Logger()

	if s.readTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(s.readTimeout)); err != nil {
			log.Debug().Err(err).Msg("Failed to set read deadline")
		}
	}

	data, err := io.ReadAll(io.LimitReader(conn, s.maxJobSize+1))
	if err != nil {
		log.Warn().Err(err).Msg("Error reading job")
		reply(conn, "", err)
		return
	}

	switch {
	case len(data) == 0:
		log.Debug().Msg("Client closed connection without a job")
		reply(conn, "", errors.New("empty job"))
		return
	case int64(len(data)) > s.maxJobSize:
		log.Warn().Int64("limit", s.maxJobSize).Msg("Job too large")
		reply(conn, "", fmt.Errorf("job exceeds %d bytes", s.maxJobSize))
		return
	}

	log.Info().Int("bytes", len(data)).Msg("Received job")
	id, err := s.runJob(client, data)
	reply(conn, id, err)
}

func reply(w io.Writer, id string, err error) {
	if err != nil {
		fmt.Fprintf(w, "ERROR %v\n", err)
		return
	}
	fmt.Fprintf(w, "OK %s\n", id)
}

// runJob renders and prints data and returns the job ID.
func (s *Server) runJob(client string, data []byte) (string, error) {
	id := uuid.New()
	if s.recorder != nil {
		job, err := s.recorder.Start(client, len(data))
		if err != nil {
			s.logger.Warn().Err(err).Msg("Failed to journal job")
		} else {
			id = job.ID
		}
	}
	log := s.logger.With().Str("job", id.String()).Logger()

	var res journal.Result
	res.Err = s.printJob(log, data, &res)
	if res.Err != nil {
		log.Error().Err(res.Err).Msg("Job failed")
	} else {
		log.Info().Int("lines", res.Lines).Str("media", res.Media).Msg("Job printed")
	}

	if s.recorder != nil {
		if err := s.recorder.Finish(id, res); err != nil && !errors.Is(err, journal.ErrNotFound) {
			log.Warn().Err(err).Msg("Failed to journal job result")
		}
	}
	return id.String(), res.Err
}

func (s *Server) printJob(log zerolog.Logger, data []byte, res *journal.Result) error {
	img, err := s.renderer.Render(data)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	res.Width, res.Lines = img.Width(), img.Lines()

	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	status, err := s.printer.PrintImage(img)
	res.Media = status.MediaType.String()
	if err != nil {
		if rerr := s.printer.Recover(); rerr != nil {
			log.Error().Err(rerr).Msg("Printer recovery failed")
		}
		return err
	}
	return nil
}

// Stop stops the TCP server and waits for running jobs
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.logger.Debug().Msg("Stop called but server is not running")
		return nil
	}

	s.logger.Info().Msg("Stopping server...")
	s.running = false
	listener := s.listener
	s.mu.Unlock()

	err := listener.Close()

	s.logger.Debug().Msg("Waiting for active connections to close...")
	s.wg.Wait()
	s.logger.Info().Msg("Server stopped successfully")
	return err
}

// IsRunning returns whether the server is running
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Address returns the configured listen address
func (s *Server) Address() string {
	return s.address
}

// ListenAddr returns the bound address while the server is running.
func (s *Server) ListenAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tafl-backend/internal/apperror"
	"github.com/rocketscienceinc/tafl-backend/internal/entity"
	"github.com/rocketscienceinc/tafl-backend/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 64 << 10

	shutdownTimeout = 5 * time.Second
)

type gameManager interface {
	CreateGame(ctx context.Context, creatorID string, board entity.Board, lengthMinutes float64) (*entity.Game, error)
	JoinGame(ctx context.Context, gameID, clientID string, requested entity.Side) (*entity.Game, error)
	SetReady(ctx context.Context, gameID, clientID string) (bool, error)
	ApplyMove(ctx context.Context, gameID, clientID string, from, to entity.Coordinate) error
	ClientDisconnected(clientID string)
	ClientRemoved(clientID string)
}

type sessionRegistry interface {
	Register(transport service.Transport) (string, string)
	Resume(clientID, token string, transport service.Transport, gameID string) (string, error)
	Owns(clientID string, transport service.Transport) bool
	Disconnect(clientID string, transport service.Transport) bool
	Remove(clientID string)
	SetGame(clientID, gameID string)
}

type admission interface {
	TryAddConnection(origin string) bool
	RemoveConnection(origin string)
}

type handlerFunc func(ctx context.Context, conn *connection, req *Request) error

type Server struct {
	logger   *slog.Logger
	games    gameManager
	sessions sessionRegistry
	guard    admission
	upgrader websocket.Upgrader
	now      func() time.Time

	handlers map[string]handlerFunc
}

func New(logger *slog.Logger, games gameManager, sessions sessionRegistry, guard admission) *Server {
	server := &Server{
		logger:   logger,
		games:    games,
		sessions: sessions,
		guard:    guard,
		now:      time.Now,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 5 * time.Second,
			ReadBufferSize:   2048,
			WriteBufferSize:  2048,
			CheckOrigin:      func(*http.Request) bool { return true },
		},
		handlers: make(map[string]handlerFunc),
	}

	server.handlers[methodNewConnection] = server.handleNewConnection
	server.handlers[methodResume] = server.handleResume
	server.handlers[methodCreate] = server.handleCreate
	server.handlers[methodJoin] = server.handleJoin
	server.handlers[methodReady] = server.handleReady
	server.handlers[methodMove] = server.handleMove

	return server
}

// Handler serves the websocket endpoint on /ws.
func (that *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /ws", that)

	return mux
}

// Start runs the websocket server until ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down websocket server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "ServeHTTP")

	ws, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Info("websocket upgrade failed", "error", err)
		return
	}

	conn := newConnection(ws)
	origin := originOf(r)

	if !that.guard.TryAddConnection(origin) {
		log.Warn("connection limit reached", "origin", origin)

		that.sendError(conn, apperror.ErrConnectionLimitReached, errorDetails{})
		conn.closeWith(websocket.ClosePolicyViolation, "connection limit reached")

		return
	}

	defer that.guard.RemoveConnection(origin)

	that.serve(r.Context(), conn)
}

// serve reads messages until the connection fails, then settles the session of the client.
func (that *Server) serve(ctx context.Context, conn *connection) {
	stopPing := conn.keepAlive()
	defer stopPing()

	for {
		_, payload, err := conn.ws.ReadMessage()
		if err != nil {
			that.closed(conn, err)
			return
		}

		that.dispatch(ctx, conn, payload)
	}
}

func (that *Server) closed(conn *connection, readErr error) {
	log := that.logger.With("method", "closed", "clientID", conn.clientID)

	_ = conn.Close()

	if conn.clientID == "" {
		return
	}

	if isFatal(readErr) {
		if !that.sessions.Owns(conn.clientID, conn) {
			return
		}

		log.Info("connection failed, session removed", "error", readErr)

		that.sessions.Remove(conn.clientID)
		that.games.ClientRemoved(conn.clientID)

		return
	}

	if that.sessions.Disconnect(conn.clientID, conn) {
		log.Info("connection lost", "error", readErr)
		that.games.ClientDisconnected(conn.clientID)
	}
}

func (that *Server) dispatch(ctx context.Context, conn *connection, payload []byte) {
	log := that.logger.With("method", "dispatch")

	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		that.sendError(conn, fmt.Errorf("%w: %w", apperror.ErrMalformedMessage, err), errorDetails{})
		return
	}

	details := errorDetails{Method: req.Method, GameID: req.GameID}

	if req.Method == "" {
		that.sendError(conn, fmt.Errorf("%w: method is required", apperror.ErrMalformedMessage), details)
		return
	}

	handler, ok := that.handlers[req.Method]
	if !ok {
		that.sendError(conn, fmt.Errorf("%w: %s", apperror.ErrUnknownMethod, req.Method), details)
		return
	}

	if req.Method != methodNewConnection && req.Method != methodResume {
		if req.ClientID == "" {
			that.sendError(conn, fmt.Errorf("%w: client_id is required", apperror.ErrMalformedMessage), details)
			return
		}

		if !that.sessions.Owns(req.ClientID, conn) {
			that.sendError(conn, apperror.ErrUnauthorized, details)
			return
		}
	}

	if err := handler(ctx, conn, &req); err != nil {
		log.Info("request rejected", "request", req.Method, "clientID", req.ClientID, "error", err)
		that.sendError(conn, err, details)
	}
}

func (that *Server) sendError(conn *connection, err error, details errorDetails) {
	event := entity.NewErrorEvent(apperror.Type(err), err.Error(), details, that.now())

	if sendErr := conn.Send(event); sendErr != nil {
		that.logger.Debug("failed to send error", "method", "sendError", "error", sendErr)
	}
}

// isFatal tells a broken or misbehaving client apart from one that just went away.
func isFatal(err error) bool {
	if errors.Is(err, websocket.ErrReadLimit) {
		return true
	}

	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		return false
	}

	switch closeErr.Code {
	case websocket.CloseProtocolError,
		websocket.CloseUnsupportedData,
		websocket.CloseInvalidFramePayloadData,
		websocket.ClosePolicyViolation,
		websocket.CloseMessageTooBig,
		websocket.CloseInternalServerErr:
		return true
	default:
		return false
	}
}

func originOf(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}

// connection is the session transport of one websocket. Writes are serialized,
// clientID is only touched by the read loop.
type connection struct {
	ws          *websocket.Conn
	writeMu     sync.Mutex
	clientID    string
	resumeToken string
}

func newConnection(ws *websocket.Conn) *connection {
	ws.SetReadLimit(maxMessageSize)

	return &connection{ws: ws}
}

func (that *connection) Send(message any) error {
	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	if err := that.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if err := that.ws.WriteJSON(message); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

func (that *connection) Close() error {
	return that.ws.Close()
}

func (that *connection) closeWith(code int, text string) {
	that.writeMu.Lock()
	_ = that.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(writeWait))
	that.writeMu.Unlock()

	_ = that.ws.Close()
}

// keepAlive pings the peer and extends the read deadline on every pong.
func (that *connection) keepAlive() func() {
	_ = that.ws.SetReadDeadline(time.Now().Add(pongWait))
	that.ws.SetPongHandler(func(string) error {
		return that.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				that.writeMu.Lock()
				err := that.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
				that.writeMu.Unlock()

				if err != nil {
					return
				}
			}
		}
	}()

	return func() { close(done) }
}

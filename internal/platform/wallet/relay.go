package wallet

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medipay/medipay/internal/platform/auth"
)

// Bridge methods forwarded to the browser.
const (
	MethodRequestAccounts = "requestAccounts"
	MethodGetAccounts     = "getAccounts"
	MethodSignAndExecute  = "signAndExecuteTransactionBlock"
)

const (
	relayWriteWait  = 10 * time.Second
	relayPongWait   = 60 * time.Second
	relayPingPeriod = (relayPongWait * 9) / 10
	relayReadLimit  = 1 << 20
)

// RelayRequest is sent to the browser page hosting the wallet extension.
type RelayRequest struct {
	ID     string      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// RelayResponse is the browser's answer to a RelayRequest.
type RelayResponse struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *BridgeError    `json:"error,omitempty"`
}

type relayConn struct {
	ws      *gorillawebsocket.Conn
	writeMu sync.Mutex
	done    chan struct{}

	mu      sync.Mutex
	pending map[string]chan RelayResponse
}

func (rc *relayConn) write(v interface{}) error {
	rc.writeMu.Lock()
	defer rc.writeMu.Unlock()
	rc.ws.SetWriteDeadline(time.Now().Add(relayWriteWait))
	return rc.ws.WriteJSON(v)
}

func (rc *relayConn) ping() error {
	rc.writeMu.Lock()
	defer rc.writeMu.Unlock()
	rc.ws.SetWriteDeadline(time.Now().Add(relayWriteWait))
	return rc.ws.WriteMessage(gorillawebsocket.PingMessage, nil)
}

func (rc *relayConn) deliver(resp RelayResponse) {
	rc.mu.Lock()
	ch, ok := rc.pending[resp.ID]
	delete(rc.pending, resp.ID)
	rc.mu.Unlock()
	if ok {
		ch <- resp
	}
}

// Relay forwards bridge calls over a websocket to the user's open dashboard
// page, which talks to the wallet extension. One connection per user; a
// newer connection replaces the older one.
type Relay struct {
	upgrader *gorillawebsocket.Upgrader
	logger   zerolog.Logger
	nextID   atomic.Int64

	mu    sync.RWMutex
	conns map[string]*relayConn
}

func NewRelay(upgrader *gorillawebsocket.Upgrader, logger zerolog.Logger) *Relay {
	return &Relay{
		upgrader: upgrader,
		logger:   logger.With().Str("component", "wallet-relay").Logger(),
		conns:    make(map[string]*relayConn),
	}
}

func (r *Relay) RegisterRoutes(g *echo.Group) {
	g.GET("/wallet", r.HandleConnect, auth.RequireAuth())
}

// Connected reports whether userID has a page attached.
func (r *Relay) Connected(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[userID]
	return ok
}

func (r *Relay) HandleConnect(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	ws, err := r.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	rc := &relayConn{ws: ws, done: make(chan struct{}), pending: make(map[string]chan RelayResponse)}
	r.mu.Lock()
	old := r.conns[p.UserID]
	r.conns[p.UserID] = rc
	r.mu.Unlock()
	if old != nil {
		old.ws.Close()
	}
	r.logger.Info().Str("user_id", p.UserID).Msg("wallet bridge attached")

	go r.pingLoop(rc)
	go r.readLoop(p.UserID, rc)
	return nil
}

func (r *Relay) readLoop(userID string, rc *relayConn) {
	defer func() {
		r.mu.Lock()
		if r.conns[userID] == rc {
			delete(r.conns, userID)
		}
		r.mu.Unlock()
		close(rc.done)
		rc.ws.Close()
		r.logger.Info().Str("user_id", userID).Msg("wallet bridge detached")
	}()

	rc.ws.SetReadLimit(relayReadLimit)
	rc.ws.SetReadDeadline(time.Now().Add(relayPongWait))
	rc.ws.SetPongHandler(func(string) error {
		return rc.ws.SetReadDeadline(time.Now().Add(relayPongWait))
	})

	for {
		_, message, err := rc.ws.ReadMessage()
		if err != nil {
			return
		}
		var resp RelayResponse
		if err := json.Unmarshal(message, &resp); err != nil || resp.ID == "" {
			r.logger.Warn().Str("user_id", userID).Msg("dropping malformed bridge message")
			continue
		}
		rc.deliver(resp)
	}
}

func (r *Relay) pingLoop(rc *relayConn) {
	ticker := time.NewTicker(relayPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-rc.done:
			return
		case <-ticker.C:
			if err := rc.ping(); err != nil {
				return
			}
		}
	}
}

func (r *Relay) call(ctx context.Context, userID, method string, params, out interface{}) error {
	r.mu.RLock()
	rc := r.conns[userID]
	r.mu.RUnlock()
	if rc == nil {
		return ErrNoBridge
	}

	id := strconv.FormatInt(r.nextID.Add(1), 10)
	ch := make(chan RelayResponse, 1)
	rc.mu.Lock()
	rc.pending[id] = ch
	rc.mu.Unlock()
	defer func() {
		rc.mu.Lock()
		delete(rc.pending, id)
		rc.mu.Unlock()
	}()

	if err := rc.write(RelayRequest{ID: id, Method: method, Params: params}); err != nil {
		return ErrNoBridge
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-rc.done:
		return ErrNoBridge
	case resp := <-ch:
		if resp.Error != nil {
			return resp.Error
		}
		if out == nil || len(resp.Result) == 0 {
			return nil
		}
		return json.Unmarshal(resp.Result, out)
	}
}

// BridgeFor returns the bridge of userID. It resolves the connection on every
// call, so it survives page reloads.
func (r *Relay) BridgeFor(userID string) Bridge {
	return &relayBridge{relay: r, userID: userID}
}

type relayBridge struct {
	relay  *Relay
	userID string
}

func (b *relayBridge) RequestAccounts(ctx context.Context) ([]Account, error) {
	var accounts []Account
	err := b.relay.call(ctx, b.userID, MethodRequestAccounts, nil, &accounts)
	return accounts, err
}

func (b *relayBridge) GetAccounts(ctx context.Context) ([]Account, error) {
	var accounts []Account
	err := b.relay.call(ctx, b.userID, MethodGetAccounts, nil, &accounts)
	return accounts, err
}

func (b *relayBridge) SignAndExecuteTransactionBlock(ctx context.Context, req SignRequest) (SignResult, error) {
	var res SignResult
	err := b.relay.call(ctx, b.userID, MethodSignAndExecute, req, &res)
	return res, err
}

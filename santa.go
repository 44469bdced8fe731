// santabox Secret Santa exchange
//
// One exchange is run on one shared device that is passed from person to
// person. Each person reveals who they are buying for, then hides it and
// passes the device on.
//
// Features:
// - WebSockets per exchange ID: /santa/:exchangeid and /santa/:exchangeid/ws
// - First cookie to connect holds the device; only it may reveal, advance
//   or redraw, and only it is ever sent recipient names
// - Other connections follow progress without seeing recipients
// - Players identified by cookie (playerID)
// - Exchanges auto-reaped after configurable idle timeout once nobody is connected
// - Random 8-char exchange IDs via crypto/rand, with server-side collision check
// - Markdown and HTML export of the full pairing once everyone has looked
// - QR code of the exchange URL, backed by go-qrcode

package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Seednode/santabox/exchange"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// Messages coming from clients
type ClientMessage struct {
	Type string `json:"type"` // "reveal", "advance", "reset"
}

// StateMessage describes what the device should show. Recipient is only
// ever filled in for the holder.
type StateMessage struct {
	Type        string         `json:"type"` // "state"
	Holder      bool           `json:"holder"`
	Phase       exchange.Phase `json:"phase"`
	Step        int            `json:"step"`
	Total       int            `json:"total"`
	Participant string         `json:"participant,omitempty"`
	Recipient   string         `json:"recipient,omitempty"`
	Next        string         `json:"next,omitempty"`
	Last        bool           `json:"last,omitempty"`
	Generation  int            `json:"generation"`
	Error       string         `json:"error,omitempty"`
}

// SimpleMessage is for generic notifications ("not_holder", etc.)
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

type Hub struct {
	id      string
	clients map[*Client]bool

	mu sync.Mutex

	lastActive time.Time
	holderID   string // cookie/playerID allowed to drive the exchange

	session *exchange.Session
	metrics *exchangeMetrics
}

func newHub(cfg *Config, exchangeID string, m *exchangeMetrics) *Hub {
	h := &Hub{
		id:         exchangeID,
		clients:    make(map[*Client]bool),
		lastActive: time.Now(),
		session:    exchange.NewSession(cfg.participants, cfg.exclusions, cfg.matcher()),
		metrics:    m,
	}

	m.created.Inc()
	logf(cfg, "GAMES: Started exchange %s for %d participant(s)", exchangeID, h.session.Roster().Len())
	h.observeDrawLocked(cfg)

	return h
}

func (h *Hub) observeDrawLocked(cfg *Config) {
	err := h.session.Err()

	attempts := 0
	if a := h.session.Assignment(); a != nil {
		attempts = a.Attempts()
	}

	h.metrics.observeDraw(attempts, err)

	if err != nil {
		logf(cfg, "GAMES: Draw %d for %s failed: %v", h.session.Generation(), h.id, err)

		return
	}

	logf(cfg, "GAMES: Draw %d for %s found a pairing after %d attempt(s)", h.session.Generation(), h.id, attempts)
}

// sendLocked drops clients whose buffers are full.
func (h *Hub) sendLocked(c *Client, msg any) {
	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) stateForLocked(c *Client) StateMessage {
	v := h.session.View()
	isHolder := c.playerID != "" && c.playerID == h.holderID

	msg := StateMessage{
		Type:        "state",
		Holder:      isHolder,
		Phase:       v.Phase,
		Step:        v.Step,
		Total:       v.Total,
		Participant: v.Participant,
		Next:        v.Next,
		Last:        v.Last,
		Generation:  h.session.Generation(),
	}

	if isHolder {
		msg.Recipient = v.Recipient
	}

	if v.Err != nil {
		msg.Error = "Could not generate a valid Secret Santa pairing."
	}

	return msg
}

func (h *Hub) broadcastStateLocked() {
	for client := range h.clients {
		h.sendLocked(client, h.stateForLocked(client))
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	// First connection holds the device
	if h.holderID == "" {
		h.holderID = c.playerID
	}

	h.clients[c] = true

	h.sendLocked(c, h.stateForLocked(c))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// handle applies one device action. Each call is atomic with respect to
// every other action on this exchange.
func (h *Hub) handle(cfg *Config, c *Client, msg ClientMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	if h.holderID == "" || c.playerID != h.holderID {
		if _, ok := h.clients[c]; ok {
			h.sendLocked(c, SimpleMessage{
				Type:    "not_holder",
				Message: "Only the device running this exchange can do that.",
			})
		}

		return
	}

	changed := false

	switch msg.Type {
	case "reveal":
		changed = h.session.Reveal()
		if changed {
			h.metrics.reveals.Inc()
		}
	case "advance":
		changed = h.session.Advance()
		if changed && h.session.View().Phase == exchange.PhaseDone {
			h.metrics.completed.Inc()
			logf(cfg, "GAMES: Everyone in %s has seen their person", h.id)
		}
	case "reset":
		_ = h.session.Reset()
		h.metrics.resets.Inc()
		h.observeDrawLocked(cfg)
		changed = true
	default:
		return
	}

	if changed {
		h.broadcastStateLocked()
	}
}

func (h *Hub) isHolder(playerID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return playerID != "" && playerID == h.holderID
}

func (h *Hub) export() ([]exchange.Pair, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	return h.session.Export()
}

// closeAll disconnects all clients of this hub (used by reaper).
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
		delete(h.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const playerCookieName = "santabox_id"

func getPlayerID(r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil {
		return c.Value
	}

	return ""
}

func getOrSetPlayerID(cfg *Config, w http.ResponseWriter, r *http.Request) string {
	if id := getPlayerID(r); id != "" {
		return id
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Println("rand.Read error:", err)
		return ""
	}
	id := hex.EncodeToString(buf)

	path := cfg.prefix
	if path == "" {
		path = "/"
	}

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     path,
		HttpOnly: true,
		Secure:   cfg.scheme() == "https",
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// ExchangeManager holds a set of hubs keyed by exchange ID, so each
// $path/$exchangeid is its own isolated session.
type ExchangeManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration
	metrics     *exchangeMetrics
}

// newExchangeManager starts the idle reaper, which runs until ctx is done.
func newExchangeManager(ctx context.Context, idleTimeout time.Duration, m *exchangeMetrics) *ExchangeManager {
	em := &ExchangeManager{
		hubs:        make(map[string]*Hub),
		idleTimeout: idleTimeout,
		metrics:     m,
	}

	if idleTimeout > 0 {
		go em.reaperLoop(ctx)
	}

	return em
}

func (em *ExchangeManager) lookup(exchangeID string) (*Hub, bool) {
	em.mu.Lock()
	defer em.mu.Unlock()

	hub, ok := em.hubs[exchangeID]

	return hub, ok
}

// create reserves a new collision-free ID and starts its exchange.
func (em *ExchangeManager) create(cfg *Config) string {
	for {
		id := newExchangeID()

		em.mu.Lock()
		if _, exists := em.hubs[id]; !exists {
			em.hubs[id] = newHub(cfg, id, em.metrics)
			em.metrics.active.Set(float64(len(em.hubs)))
			em.mu.Unlock()

			return id
		}
		em.mu.Unlock()
	}
}

func newExchangeID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}

	out := make([]byte, 8)
	for i := range out {
		out[i] = letters[int(buf[i])%len(letters)]
	}

	return string(out)
}

// reap removes hubs idle since before cutoff and reports how many went.
// Hubs with a connected client are never reaped.
func (em *ExchangeManager) reap(cutoff time.Time) int {
	em.mu.Lock()
	defer em.mu.Unlock()

	removed := 0
	for id, hub := range em.hubs {
		hub.mu.Lock()
		last := hub.lastActive
		connected := len(hub.clients)
		hub.mu.Unlock()

		if connected == 0 && last.Before(cutoff) {
			delete(em.hubs, id)
			go hub.closeAll()
			removed++
		}
	}

	em.metrics.active.Set(float64(len(em.hubs)))

	return removed
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (em *ExchangeManager) reaperLoop(ctx context.Context) {
	ticker := time.NewTicker(em.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			em.reap(now.Add(-em.idleTimeout))
		}
	}
}

// WebSocket handler that picks the hub based on :exchangeid
func serveWSForManager(cfg *Config, em *ExchangeManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		exchangeID := ps.ByName("exchangeid")
		if exchangeID == "" {
			http.Error(w, "missing exchange id", http.StatusBadRequest)
			return
		}

		playerID := getOrSetPlayerID(cfg, w, r)
		if playerID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		hub, ok := em.lookup(exchangeID)
		if !ok {
			serveExpired(cfg, w, r, exchangeID)
			return
		}

		// Carries a freshly issued player cookie, if any, on the handshake response.
		conn, err := upgrader.Upgrade(w, r, w.Header())
		if err != nil {
			logf(cfg, "ERROR: websocket upgrade for %s from %s: %v", exchangeID, realIP(r), err)
			return
		}
		conn.SetReadLimit(512)

		client := &Client{
			conn:     conn,
			send:     make(chan any, 8),
			playerID: playerID,
		}

		hub.register(client)
		go client.writePump()
		client.readPump(cfg, hub)
	}
}

// serveExpired tells a client of an unknown or reaped exchange that it has
// ended. An ID is never reused for a new draw.
func serveExpired(cfg *Config, w http.ResponseWriter, r *http.Request, exchangeID string) {
	conn, err := upgrader.Upgrade(w, r, w.Header())
	if err != nil {
		logf(cfg, "ERROR: websocket upgrade for %s from %s: %v", exchangeID, realIP(r), err)
		return
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(timeout))
	_ = conn.WriteJSON(SimpleMessage{
		Type:    "expired",
		Message: "This exchange has ended.",
	})
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "expired"))

	logf(cfg, "GAMES: Turned away %s from ended exchange %s", realIP(r), exchangeID)
}

func (c *Client) readPump(cfg *Config, h *Hub) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "reveal", "advance", "reset":
			h.handle(cfg, c, msg)
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the current exchange URL using go-qrcode.
func qrHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if ps.ByName("exchangeid") == "" {
			http.Error(w, "missing exchange id", http.StatusBadRequest)
			return
		}

		scheme := cfg.scheme()
		if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
			scheme = proto
		}

		// We are at /.../:exchangeid/qr; strip trailing "/qr" to get the exchange URL.
		path := strings.TrimSuffix(r.URL.Path, "/qr")
		url := scheme + "://" + r.Host + path

		const qrSize = 320
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(png)))
		securityHeaders(cfg, w)
		_, _ = w.Write(png)
	}
}

// exportPairs resolves the hub and enforces that only the holder can
// download, and only once everyone has had their turn.
func exportPairs(em *ExchangeManager, w http.ResponseWriter, r *http.Request, ps httprouter.Params) ([]exchange.Pair, bool) {
	hub, ok := em.lookup(ps.ByName("exchangeid"))
	if !ok {
		http.Error(w, "no such exchange", http.StatusNotFound)
		return nil, false
	}

	if !hub.isHolder(getPlayerID(r)) {
		http.Error(w, "only the device running this exchange can export it", http.StatusForbidden)
		return nil, false
	}

	pairs, ok := hub.export()
	if !ok {
		http.Error(w, "not everyone has seen their person yet", http.StatusConflict)
		return nil, false
	}

	return pairs, true
}

func serveMarkdownExport(cfg *Config, em *ExchangeManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		pairs, ok := exportPairs(em, w, r, ps)
		if !ok {
			return
		}

		data := renderMarkdown(cfg.title, pairs)

		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename+`.md"`)
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		written, err := w.Write(data)
		if err != nil {
			errs <- err

			return
		}

		em.metrics.exports.WithLabelValues("markdown").Inc()

		logf(cfg, "SERVE: Markdown export of %s (%s) to %s in %s",
			ps.ByName("exchangeid"),
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func serveHTMLExport(cfg *Config, em *ExchangeManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		pairs, ok := exportPairs(em, w, r, ps)
		if !ok {
			return
		}

		data, err := renderHTML(cfg, cfg.title, pairs)
		if err != nil {
			http.Error(w, "export failed", http.StatusInternalServerError)
			errs <- err

			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		written, err := w.Write(data)
		if err != nil {
			errs <- err

			return
		}

		em.metrics.exports.WithLabelValues("html").Inc()

		logf(cfg, "SERVE: HTML export of %s (%s) to %s in %s",
			ps.ByName("exchangeid"),
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func getIndexHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		securityHeaders(cfg, w)
		_ = getOrSetPlayerID(cfg, w, r)

		data, _ := assets.ReadFile("assets/santa/index.html")
		_, _ = w.Write(data)
	}
}

// redirectNewExchange handles GET /path by starting a new exchange and
// redirecting to /path/:exchangeid.
func redirectNewExchange(cfg *Config, path string, em *ExchangeManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		exchangeID := em.create(cfg)
		logf(cfg, "GAMES: Created exchange %s/%s for %s", path, exchangeID, realIP(r))
		http.Redirect(w, r, cfg.prefix+path+"/"+exchangeID, http.StatusTemporaryRedirect)
	}
}

// registerSantaGame sets up routes so that:
//   - $path                       → redirects to new random exchange (8-char ID)
//   - $path/:exchangeid           → HTML client
//   - $path/:exchangeid/ws        → WebSocket for that exchange
//   - $path/:exchangeid/qr        → PNG QR code for that exchange URL
//   - $path/:exchangeid/export    → Markdown pairing list, once finished
//   - $path/:exchangeid/print     → HTML pairing list, once finished
func registerSantaGame(cfg *Config, path string, mux *httprouter.Router, em *ExchangeManager, errs chan<- error) {
	mux.GET(cfg.prefix+path, redirectNewExchange(cfg, path, em))

	mux.GET(cfg.prefix+path+"/:exchangeid", getIndexHandler(cfg))

	mux.GET(cfg.prefix+path+"/:exchangeid/ws", serveWSForManager(cfg, em))

	mux.GET(cfg.prefix+path+"/:exchangeid/qr", qrHandler(cfg))

	mux.GET(cfg.prefix+path+"/:exchangeid/export", serveMarkdownExport(cfg, em, errs))

	mux.GET(cfg.prefix+path+"/:exchangeid/print", serveHTMLExport(cfg, em, errs))
}

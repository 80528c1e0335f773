// hitline timeline game
//
// A song clip plays and the players drag its card into a timeline of songs
// whose years are already revealed. A card placed between the right neighbours
// scores a point and stays on the timeline; a misplaced card costs a life and is
// discarded. The game ends when the catalog runs out or the lives do.
//
// Features:
// - WebSockets per game ID: /path/:gameid and /path/:gameid/ws
// - First connection to a game becomes host; only the host starts new games
// - Every connected player sees the same timeline and may place the card
// - Playback commands are pushed to every browser, which report back whether
//   the clip is still playing so replay never double-starts
// - Correct cards stay highlighted for --reveal-delay before the next round
// - Players identified by cookie (playerID)
// - Games auto-reaped after configurable idle timeout
// - Random 8-char game IDs via crypto/rand, with server-side collision check
// - Finished games recorded to the optional sqlite scoreboard
// - In-browser QR button to share the current session, backed by go-qrcode

package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/hitline/catalog"
	"github.com/Seednode/hitline/game"
	"github.com/Seednode/hitline/store"
)

const maxTeamLength = 40

// Messages coming from clients
type ClientMessage struct {
	Type    string `json:"type"`               // "start", "place", "replay", "playback_state"
	Team    string `json:"team,omitempty"`     // start
	Index   *int   `json:"index,omitempty"`    // place
	Playing *bool  `json:"playing,omitempty"`  // playback_state
	MediaID string `json:"media_id,omitempty"` // playback_state
}

// command maps a player intent onto the game. playback_state is not a
// game command and maps to ErrUnknownCommand like any other type.
func (m ClientMessage) command() (game.Command, error) {
	switch m.Type {
	case "start":
		return game.Start{}, nil
	case "place":
		if m.Index == nil {
			return nil, game.ErrInvalidPlacement
		}
		return game.Place{Index: *m.Index}, nil
	case "replay":
		return game.Replay{}, nil
	default:
		return nil, game.ErrUnknownCommand
	}
}

// Card is a song as shown to players. Year is zero while hidden.
type Card struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Year   int    `json:"year,omitempty"`
}

// SessionInfoMessage is sent immediately on connect.
type SessionInfoMessage struct {
	Type   string `json:"type"` // "session_info"
	GameID string `json:"game_id"`
	IsHost bool   `json:"is_host"`
}

// StateMessage is broadcast after every processed command.
type StateMessage struct {
	Type      string `json:"type"` // "state"
	Phase     string `json:"phase"`
	Team      string `json:"team,omitempty"`
	Lives     int    `json:"lives"`
	Points    int    `json:"points"`
	Round     int    `json:"round"`
	Remaining int    `json:"remaining"`
	Timeline  []Card `json:"timeline"`
	Hand      *Card  `json:"hand,omitempty"`
	Outcome   string `json:"outcome,omitempty"`
}

type RoundMessage struct {
	Type  string `json:"type"` // "round"
	Round int    `json:"round"`
	Card  Card   `json:"card"`
}

// ResultMessage reveals the card after a placement, right or wrong.
type ResultMessage struct {
	Type    string `json:"type"` // "result"
	Correct bool   `json:"correct"`
	Index   int    `json:"index"`
	Card    Card   `json:"card"`
	Lives   int    `json:"lives"`
	Points  int    `json:"points"`
	Message string `json:"message"`
}

type GameOverMessage struct {
	Type    string `json:"type"`    // "game_over"
	Outcome string `json:"outcome"` // "completed" or "lost"
	Points  int    `json:"points"`
	Placed  int    `json:"placed"`
	Rounds  int    `json:"rounds"`
	Message string `json:"message"`
}

// PlaybackMessage drives the browser's media player.
type PlaybackMessage struct {
	Type    string `json:"type"`   // "playback"
	Action  string `json:"action"` // "load", "play", "stop"
	MediaID string `json:"media_id,omitempty"`
	Start   int    `json:"start,omitempty"`
}

// SimpleMessage is for generic notifications ("error", etc.)
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

type commandRequest struct {
	client *Client
	msg    ClientMessage
}

type Hub struct {
	id     string
	cfg    *Config
	songs  *catalog.Catalog
	scores scoreboard

	// recording tracks score writes still in flight.
	recording *sync.WaitGroup

	clients map[*Client]bool

	register chan *Client
	unreg    chan *Client
	commands chan commandRequest
	deferred chan func()
	done     chan struct{}
	stopOnce sync.Once

	mu sync.RWMutex

	createdAt    time.Time
	lastActive   time.Time
	hostPlayerID string // cookie/playerID of the host
	team         string
	playing      bool

	game *game.Controller
}

func newHub(cfg *Config, gameID string, songs *catalog.Catalog, scores scoreboard, recording *sync.WaitGroup) *Hub {
	now := time.Now()
	h := &Hub{
		id:         gameID,
		cfg:        cfg,
		songs:      songs,
		scores:     scores,
		recording:  recording,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		commands:   make(chan commandRequest),
		deferred:   make(chan func()),
		done:       make(chan struct{}),
		createdAt:  now,
		lastActive: now,
	}
	h.game = h.newGame()

	return h
}

// newGame builds a controller that presents and plays through this hub.
func (h *Hub) newGame() *game.Controller {
	return game.New(h.songs.Songs(), game.Options{
		Lives:       h.cfg.lives,
		RevealDelay: h.cfg.revealDelay,
		Player:      h,
		Presenter:   h,
		Scheduler:   game.SchedulerFunc(h.schedule),
	})
}

// schedule hands fn back to the run loop once d has elapsed, so delayed
// continuations are serialized with every other command.
func (h *Hub) schedule(d time.Duration, fn func()) {
	time.AfterFunc(d, func() {
		select {
		case h.deferred <- fn:
		case <-h.done:
		}
	})
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			return

		case c := <-h.register:
			h.mu.Lock()
			if h.stopped() {
				h.mu.Unlock()
				_ = c.conn.Close()
				return
			}

			h.lastActive = time.Now()

			// First connection becomes host
			if h.hostPlayerID == "" {
				h.hostPlayerID = c.playerID
			}

			h.clients[c] = true

			h.sendLocked(c, SessionInfoMessage{
				Type:   "session_info",
				GameID: h.id,
				IsHost: h.hostPlayerID == c.playerID,
			})
			h.sendLocked(c, h.stateLocked())

			// Late joiners pick up the clip that is already playing.
			if hand, ok := h.game.Hand(); ok {
				h.sendLocked(c, PlaybackMessage{Type: "playback", Action: "load", MediaID: hand.ID, Start: hand.Offset})
				if !h.playing {
					h.sendLocked(c, PlaybackMessage{Type: "playback", Action: "stop"})
				}
			}

			h.mu.Unlock()

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()
			h.dropLocked(c)
			h.mu.Unlock()

		case req := <-h.commands:
			h.handleCommand(req)

		case fn := <-h.deferred:
			h.mu.Lock()
			if h.stopped() {
				h.mu.Unlock()
				return
			}

			h.lastActive = time.Now()
			fn()
			h.broadcastStateLocked()
			h.mu.Unlock()
		}
	}
}

// stopped reports whether closeAll has run.
func (h *Hub) stopped() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// handleCommand applies one client message to the game.
func (h *Hub) handleCommand(req commandRequest) {
	c := req.client
	msg := req.msg

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped() {
		return
	}

	h.lastActive = time.Now()

	if msg.Type == "playback_state" {
		h.playbackReportedLocked(msg)
		return
	}

	cmd, err := msg.command()
	if errors.Is(err, game.ErrUnknownCommand) {
		// ignore unknown types
		return
	}
	if err != nil {
		h.sendLocked(c, SimpleMessage{Type: "error", Message: userMessage(err)})
		return
	}

	if _, ok := cmd.(game.Start); ok {
		if c.playerID != h.hostPlayerID {
			h.sendLocked(c, SimpleMessage{Type: "error", Message: "Only the host can start a game."})
			return
		}

		switch h.game.Phase() {
		case game.Idle:
		case game.GameOver:
			h.game = h.newGame()
		default:
			h.sendLocked(c, SimpleMessage{Type: "error", Message: "A game is already in progress."})
			return
		}

		h.team = cleanTeam(msg.Team)
	}

	res, err := h.game.Handle(cmd)
	if err != nil {
		h.sendLocked(c, SimpleMessage{Type: "error", Message: userMessage(err)})
		return
	}

	switch cmd.(type) {
	case game.Start:
		logf(h.cfg, "GAMES: Started game %s for team %q", h.id, h.team)
	case game.Place:
		logf(h.cfg, "GAMES: Placed %q (%d) at %d in %s, correct=%t", res.Song.Title, res.Song.Year, res.Index, h.id, res.Correct)
	case game.Replay:
		return
	}

	h.broadcastStateLocked()
}

// playbackReportedLocked records what a browser says about the clip in hand.
// Reports about any other clip are stale and ignored.
func (h *Hub) playbackReportedLocked(msg ClientMessage) {
	hand, ok := h.game.Hand()
	if !ok || msg.Playing == nil || msg.MediaID != hand.ID {
		return
	}

	h.playing = *msg.Playing
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, game.ErrInvalidPlacement):
		return "Drag the card onto the timeline first."
	case errors.Is(err, game.ErrNotStarted):
		return "The game has not started yet."
	case errors.Is(err, game.ErrGameOver):
		return "The game is over. Start a new one."
	case errors.Is(err, game.ErrEmptyCatalog):
		return "There are no songs to play."
	default:
		return err.Error()
	}
}

func cleanTeam(team string) string {
	team = strings.TrimSpace(team)
	if r := []rune(team); len(r) > maxTeamLength {
		team = string(r[:maxTeamLength])
	}
	return team
}

func revealed(s game.Song) Card {
	return Card{ID: s.ID, Title: s.Title, Artist: s.Artist, Year: s.Year}
}

func hidden(s game.Song) Card {
	return Card{ID: s.ID, Title: s.Title, Artist: s.Artist}
}

// stateLocked assumes h.mu is already held.
func (h *Hub) stateLocked() StateMessage {
	timeline := h.game.Timeline()
	cards := make([]Card, 0, len(timeline))
	for _, s := range timeline {
		cards = append(cards, revealed(s))
	}

	msg := StateMessage{
		Type:      "state",
		Phase:     h.game.Phase().String(),
		Team:      h.team,
		Lives:     h.game.Lives(),
		Points:    h.game.Points(),
		Round:     h.game.Round(),
		Remaining: h.game.Remaining(),
		Timeline:  cards,
	}

	if hand, ok := h.game.Hand(); ok {
		card := hidden(hand)
		msg.Hand = &card
	}

	if h.game.Phase() == game.GameOver {
		msg.Outcome = h.game.Outcome().String()
	}

	return msg
}

func (h *Hub) broadcastStateLocked() {
	h.broadcastLocked(h.stateLocked())
}

func (h *Hub) broadcastLocked(msg any) {
	for client := range h.clients {
		h.sendLocked(client, msg)
	}
}

// sendLocked drops clients whose buffers are full. Clients already dropped
// have a closed send channel and are skipped.
func (h *Hub) sendLocked(c *Client, msg any) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	select {
	case c.send <- msg:
	default:
		h.dropLocked(c)
	}
}

func (h *Hub) dropLocked(c *Client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Load, Play, Stop and IsPlaying make the hub the game's media player.
// The controller only calls them from the run loop, with h.mu held.
func (h *Hub) Load(mediaID string, startOffset int) {
	h.playing = false
	h.broadcastLocked(PlaybackMessage{Type: "playback", Action: "load", MediaID: mediaID, Start: startOffset})
}

func (h *Hub) Play() {
	h.playing = true
	h.broadcastLocked(PlaybackMessage{Type: "playback", Action: "play"})
}

func (h *Hub) Stop() {
	h.playing = false
	h.broadcastLocked(PlaybackMessage{Type: "playback", Action: "stop"})
}

func (h *Hub) IsPlaying() bool {
	return h.playing
}

func (h *Hub) RoundStarted(r game.Round) {
	h.broadcastLocked(RoundMessage{
		Type:  "round",
		Round: r.Number,
		Card:  hidden(r.Song),
	})
}

func (h *Hub) PlacementResolved(r game.Result) {
	text := fmt.Sprintf("Wrong! %q is from %d. The card is discarded.", r.Song.Title, r.Song.Year)
	if r.Correct {
		text = fmt.Sprintf("Correct! %q is from %d.", r.Song.Title, r.Song.Year)
	}

	h.broadcastLocked(ResultMessage{
		Type:    "result",
		Correct: r.Correct,
		Index:   r.Index,
		Card:    revealed(r.Song),
		Lives:   r.Lives,
		Points:  r.Points,
		Message: text,
	})
}

func (h *Hub) GameEnded(s game.Summary) {
	text := fmt.Sprintf("Out of lives! Final score: %d.", s.Points)
	if s.Outcome == game.Completed {
		text = fmt.Sprintf("You made it through every song! Final score: %d.", s.Points)
	}

	h.broadcastLocked(GameOverMessage{
		Type:    "game_over",
		Outcome: s.Outcome.String(),
		Points:  s.Points,
		Placed:  s.Placed,
		Rounds:  s.Rounds,
		Message: text,
	})

	logf(h.cfg, "GAMES: Game %s %s with %d points", h.id, s.Outcome, s.Points)

	if h.scores == nil {
		return
	}

	score := store.Score{
		GameID:  h.id,
		Team:    h.team,
		Points:  s.Points,
		Placed:  s.Placed,
		Rounds:  s.Rounds,
		Outcome: s.Outcome.String(),
	}

	h.recording.Go(func() {
		recorded, err := h.scores.Record(score)
		if err != nil {
			errorf("could not record score for %s: %v", h.id, err)
			return
		}

		logf(h.cfg, "SCORES: Recorded %s for game %s", recorded.ID, h.id)
	})
}

// closeAll stops the run loop and disconnects all clients (used by reaper).
func (h *Hub) closeAll() {
	h.stopOnce.Do(func() {
		close(h.done)
	})

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		h.dropLocked(c)
		_ = c.conn.Close()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const playerCookieName = "hitline_id"

func getOrSetPlayerID(cfg *Config, w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Println("rand.Read error:", err)
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     cfg.prefix + "/",
		HttpOnly: true,
		Secure:   cfg.scheme() == "https",
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// GameManager holds a set of hubs keyed by game ID, so each $path/$gameid
// is its own isolated session.
type GameManager struct {
	cfg    *Config
	songs  *catalog.Catalog
	scores scoreboard

	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration
	reaper      *gocron.Scheduler
	recording   sync.WaitGroup
}

func newGameManager(cfg *Config, songs *catalog.Catalog, scores scoreboard) *GameManager {
	gm := &GameManager{
		cfg:         cfg,
		songs:       songs,
		scores:      scores,
		hubs:        make(map[string]*Hub),
		idleTimeout: cfg.sessionTimeout,
	}

	if gm.idleTimeout > 0 {
		gm.reaper = gocron.NewScheduler(time.UTC)

		if _, err := gm.reaper.Every(gm.idleTimeout / 2).Do(gm.reap); err != nil {
			errorf("could not schedule session reaper: %v", err)
		} else {
			gm.reaper.StartAsync()
		}
	}

	return gm
}

func validGameID(id string) bool {
	if id == "" || len(id) > 32 {
		return false
	}
	for _, r := range id {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

func (gm *GameManager) getHub(gameID string) *Hub {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[gameID]; ok {
		return hub
	}

	hub := newHub(gm.cfg, gameID, gm.songs, gm.scores, &gm.recording)
	gm.hubs[gameID] = hub
	go hub.run()
	return hub
}

// newGameID generates a crypto-random game ID and ensures it doesn't
// collide with existing games.
func (gm *GameManager) newGameID() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	for {
		buf := make([]byte, 8)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, 8)
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		gm.mu.Lock()
		_, exists := gm.hubs[id]
		gm.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reap removes hubs that have been idle longer than idleTimeout.
func (gm *GameManager) reap() {
	cutoff := time.Now().Add(-gm.idleTimeout)

	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, hub := range gm.hubs {
		hub.mu.RLock()
		last := hub.lastActive
		hub.mu.RUnlock()

		if last.Before(cutoff) {
			delete(gm.hubs, id)
			hub.closeAll()

			logf(gm.cfg, "GAMES: Reaped idle game %s", id)
		}
	}
}

// Stop halts the reaper, ends every game and waits for pending score writes.
func (gm *GameManager) Stop() {
	if gm.reaper != nil {
		gm.reaper.Stop()
	}

	gm.mu.Lock()
	for id, hub := range gm.hubs {
		delete(gm.hubs, id)
		hub.closeAll()
	}
	gm.mu.Unlock()

	gm.recording.Wait()
}

// WebSocket handler that picks the hub based on :gameid
func serveWSForManager(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if !validGameID(gameID) {
			http.Error(w, "invalid game id", http.StatusBadRequest)
			return
		}

		playerID := getOrSetPlayerID(cfg, w, r)
		if playerID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		hub := gm.getHub(gameID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 16),
			playerID: playerID,
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		select {
		case h.commands <- commandRequest{client: c, msg: msg}:
		case <-h.done:
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the current game URL using go-qrcode.
func qrHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !validGameID(ps.ByName("gameid")) {
			http.Error(w, "invalid game id", http.StatusBadRequest)
			return
		}

		// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
			scheme = proto
		}

		// We are at /.../:gameid/qr; strip trailing "/qr" to get the game URL.
		path := strings.TrimSuffix(r.URL.Path, "/qr")

		url := scheme + "://" + r.Host + path

		const qrSize = 320 // mobile-friendly size
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)
		_, _ = w.Write(png)
	}
}

func getIndexHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !validGameID(ps.ByName("gameid")) {
			http.NotFound(w, r)
			return
		}

		data, err := assets.ReadFile("assets/hitline/index.html")
		if err != nil {
			http.Error(w, "missing client", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)
		cspGame(cfg, w)

		_ = getOrSetPlayerID(cfg, w, r)

		_, _ = w.Write(data)
	}
}

// redirectNewGame handles GET /path by generating a new random game ID
// (with server-side collision detection) and redirecting to /path/:gameid.
func redirectNewGame(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gameID := gm.newGameID()
		logf(cfg, "GAMES: Created game %s/%s", path, gameID)
		http.Redirect(w, r, cfg.prefix+path+"/"+gameID, http.StatusTemporaryRedirect)
	}
}

// registerHitlineGame sets up routes so that:
//   - $path                  → redirects to new random game (8-char ID)
//   - $path/:gameid          → HTML client
//   - $path/:gameid/ws       → WebSocket for that game
//   - $path/:gameid/qr       → PNG QR code for that game URL
func registerHitlineGame(cfg *Config, path string, mux *httprouter.Router, songs *catalog.Catalog, scores scoreboard) *GameManager {
	gm := newGameManager(cfg, songs, scores)

	mux.GET(cfg.prefix+path, redirectNewGame(cfg, path, gm))

	mux.GET(cfg.prefix+path+"/:gameid", getIndexHandler(cfg))

	mux.GET(cfg.prefix+path+"/:gameid/ws", serveWSForManager(cfg, gm))

	mux.GET(cfg.prefix+path+"/:gameid/qr", qrHandler(cfg))

	return gm
}

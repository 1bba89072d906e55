// Package server is the websocket gateway: it maps client JSON messages onto
// match core calls and pushes perspective-normalized snapshots back out. The
// core itself has no wire protocol; everything here is translation.
package server

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/cardarena/arena-server-go/internal/catalog"
	"github.com/cardarena/arena-server-go/internal/config"
	"github.com/cardarena/arena-server-go/internal/match"
	"github.com/cardarena/arena-server-go/internal/user"
)

// Inbound message types.
const (
	msgFindMatch  = "find_match"
	msgStatus     = "status"
	msgAssignDeck = "assign_deck"
	msgDraw       = "draw"
	msgSubmitTurn = "submit_turn"
	msgState      = "state"
	msgSaveDeck   = "save_deck"
)

// Outbound message types.
const (
	msgMatchmaking = "matchmaking"
	msgSnapshot    = "snapshot"
	msgError       = "error"
	msgRejected    = "rejected"
)

// Envelope is the wire frame for both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type assignDeckRequest struct {
	Deck []string `json:"deck"`
	Draw int      `json:"draw"`
}

type drawRequest struct {
	Count int `json:"count"`
}

// Gateway wires the hub to the match core managers.
type Gateway struct {
	cfg      config.GameConfig
	hub      *Hub
	store    *match.Store
	queue    *match.Queue
	phases   *match.PhaseMachine
	validate *match.Validator
	resolver *match.Resolver
	registry *catalog.Registry
	users    *user.Manager

	rng   *rand.Rand
	rngMu sync.Mutex

	logger *zap.Logger
}

// NewGateway creates the gateway.
func NewGateway(
	cfg config.GameConfig,
	hub *Hub,
	store *match.Store,
	queue *match.Queue,
	phases *match.PhaseMachine,
	validator *match.Validator,
	resolver *match.Resolver,
	registry *catalog.Registry,
	users *user.Manager,
	seed int64,
	logger *zap.Logger,
) *Gateway {
	return &Gateway{
		cfg:      cfg,
		hub:      hub,
		store:    store,
		queue:    queue,
		phases:   phases,
		validate: validator,
		resolver: resolver,
		registry: registry,
		users:    users,
		rng:      rand.New(rand.NewSource(seed)),
		logger:   logger,
	}
}

// ServeWS upgrades an HTTP request to a websocket connection. The player
// identity arrives pre-validated (the identity service is a separate
// concern); the gateway only requires it to be present.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	playerID := strings.TrimSpace(r.URL.Query().Get("player"))
	if playerID == "" {
		http.Error(w, "player query parameter is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:      g.hub,
		conn:     conn,
		send:     make(chan []byte, 16),
		playerID: playerID,
	}
	g.hub.register <- client

	go client.writePump()
	go client.readPump(g)
}

func (g *Gateway) handleMessage(c *Client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		g.sendError(c.playerID, "malformed message")
		return
	}

	switch env.Type {
	case msgFindMatch:
		g.send(c.playerID, msgMatchmaking, g.queue.FindMatch(c.playerID))

	case msgStatus:
		g.send(c.playerID, msgMatchmaking, g.queue.Status(c.playerID))

	case msgAssignDeck:
		g.handleAssignDeck(c, env.Payload)

	case msgDraw:
		g.handleDraw(c, env.Payload)

	case msgSubmitTurn:
		g.handleSubmitTurn(c, env.Payload)

	case msgState:
		g.pushSnapshot(c.playerID)

	case msgSaveDeck:
		g.handleSaveDeck(c, env.Payload)

	default:
		g.sendError(c.playerID, "unrecognized message type "+env.Type)
	}
}

func (g *Gateway) handleAssignDeck(c *Client, payload json.RawMessage) {
	var req assignDeckRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		g.sendError(c.playerID, "malformed assign_deck payload")
		return
	}

	m, ok := g.store.FindByPlayer(c.playerID)
	if !ok {
		g.sendError(c.playerID, "no live match for player")
		return
	}
	if err := g.store.AssignDeck(m, c.playerID, req.Deck, g.registry); err != nil {
		g.sendError(c.playerID, err.Error())
		return
	}
	if req.Draw > 0 {
		if _, err := g.store.DrawCards(m, c.playerID, req.Draw); err != nil {
			g.sendError(c.playerID, err.Error())
			return
		}
	}
	g.pushSnapshot(c.playerID)
}

func (g *Gateway) handleSaveDeck(c *Client, payload json.RawMessage) {
	var req assignDeckRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		g.sendError(c.playerID, "malformed save_deck payload")
		return
	}
	rec, err := g.users.SaveDeck(c.playerID, req.Deck)
	if err != nil {
		g.sendError(c.playerID, err.Error())
		return
	}
	g.send(c.playerID, msgSaveDeck, rec)
}

func (g *Gateway) handleDraw(c *Client, payload json.RawMessage) {
	var req drawRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		g.sendError(c.playerID, "malformed draw payload")
		return
	}

	m, ok := g.store.FindByPlayer(c.playerID)
	if !ok {
		g.sendError(c.playerID, "no live match for player")
		return
	}
	if _, err := g.store.DrawCards(m, c.playerID, req.Count); err != nil {
		g.sendError(c.playerID, err.Error())
		return
	}
	g.pushSnapshot(c.playerID)
}

func (g *Gateway) handleSubmitTurn(c *Client, payload json.RawMessage) {
	var sub match.TurnSubmission
	if err := json.Unmarshal(payload, &sub); err != nil {
		g.sendError(c.playerID, "malformed submit_turn payload")
		return
	}

	m, ok := g.store.FindByPlayer(c.playerID)
	if !ok {
		g.sendError(c.playerID, "no live match for player")
		return
	}
	prior, ok := m.Player(c.playerID)
	if !ok {
		g.sendError(c.playerID, "player not part of match")
		return
	}

	normalized, verr := g.validate.ValidateTurnPayload(&sub, m, c.playerID, prior, m.TurnNow())
	if verr != nil {
		g.send(c.playerID, msgRejected, verr)
		return
	}
	if err := g.phases.ReadyTurn(m, c.playerID, normalized); err != nil {
		g.sendError(c.playerID, err.Error())
		return
	}

	if m.PhaseNow() == match.PhaseCommit {
		g.driveCycle(m)
	}

	g.pushSnapshot(m.HostID)
	g.pushSnapshot(m.GuestID)
}

// driveCycle rolls initiative for every pending attack, then walks the match
// through Resolution and Cleanup back into the next Decision phase. Rolls are
// server-authoritative; the dice endpoints clients see are presentation glue.
func (g *Gateway) driveCycle(m *match.Match) {
	for _, req := range m.PendingRollRequirements() {
		kinds := []string{match.RollKindSpeed}
		if req.NeedsEffect {
			kinds = append(kinds, match.RollKindEffect)
		}
		for _, kind := range kinds {
			if _, rolled := m.Roll(req.AttackID, kind); rolled {
				continue
			}
			if err := m.RecordRoll(req.AttackID, kind, g.rollDie()); err != nil {
				g.logger.Warn("failed to record roll",
					zap.String("attack_id", req.AttackID),
					zap.String("kind", kind),
					zap.Error(err),
				)
			}
		}
	}

	if !g.phases.TryBeginResolution(m) {
		return
	}
	g.resolver.ApplyCommitEffects(m)
	if err := g.phases.FinishResolution(m); err != nil {
		g.logger.Error("failed to finish resolution",
			zap.String("match_id", m.ID),
			zap.Error(err),
		)
		return
	}
	g.phases.AdvanceToDecision(m)
}

func (g *Gateway) rollDie() int {
	g.rngMu.Lock()
	defer g.rngMu.Unlock()
	return g.rng.Intn(g.cfg.DiceSides) + 1
}

func (g *Gateway) pushSnapshot(playerID string) {
	view, err := g.store.PhaseStatusForPlayer(playerID)
	if err != nil {
		g.logger.Debug("no snapshot to push",
			zap.String("player", playerID),
			zap.Error(err),
		)
		return
	}
	g.send(playerID, msgSnapshot, view)
}

func (g *Gateway) send(playerID, msgType string, payload any) {
	raw, err := json.Marshal(outbound{Type: msgType, Payload: payload})
	if err != nil {
		g.logger.Error("failed to marshal outbound message", zap.Error(err))
		return
	}
	g.hub.SendTo(playerID, raw)
}

func (g *Gateway) sendError(playerID, message string) {
	g.send(playerID, msgError, map[string]string{"message": message})
}

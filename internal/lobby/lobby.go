// Package lobby implements the rendezvous matchmaker of spec.md §4.4: a
// stateful server pairing a lobby host with a prospective joiner over
// two framed, bidirectional websocket stream types ("create" and
// "join"). Lock ordering is always registry -> lobby -> pending player,
// per spec.md §5, to avoid deadlocking a host's accept against a
// concurrent joiner's teardown.
package lobby

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"nitro-core-dx/internal/debug"
)

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
const idLength = 32

// generateID produces a 32-character alphanumeric random string, the Go
// analogue of the original's generate_id(): a UUID's 16 random bytes are
// used purely as a CSPRNG entropy source, folded through idAlphabet
// rather than rendered in UUID's own dashed hex form.
func generateID() string {
	out := make([]byte, idLength)
	filled := 0
	for filled < idLength {
		u := uuid.New()
		raw := u[:]
		for _, b := range raw {
			if filled == idLength {
				break
			}
			out[filled] = idAlphabet[int(b)%len(idAlphabet)]
			filled++
		}
	}
	return string(out)
}

// GameInfo is the opaque (to the lobby) descriptor exchanged in
// CreateReq/JoinReq/JoinInd/JoinResp: the ROM identity and version the
// two sides must agree on before a session can start.
type GameInfo struct {
	Title      string `json:"title"`
	CRC32      uint32 `json:"crc32"`
	RevisionID string `json:"revision_id"`
}

// envelope is the one-message-per-frame wire shape every lobby message
// travels in: a type tag plus its JSON-encoded payload.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Message payloads, named after spec.md §6.2's table.
type (
	CreateReq struct {
		GameInfo GameInfo `json:"game_info"`
		SaveData []byte   `json:"save_data"`
	}
	CreateResp struct {
		LobbyID string `json:"lobby_id"`
	}
	JoinInd struct {
		OpponentID string   `json:"opponent_id"`
		GameInfo   GameInfo `json:"game_info"`
		SaveData   []byte   `json:"save_data"`
	}
	AcceptReq struct {
		OpponentID string `json:"opponent_id"`
	}
	AcceptResp struct {
		SessionID string `json:"session_id"`
	}
	RejectReq struct {
		OpponentID string `json:"opponent_id"`
	}
	RejectResp struct{}
	JoinReq    struct {
		LobbyID  string   `json:"lobby_id"`
		GameInfo GameInfo `json:"game_info"`
		SaveData []byte   `json:"save_data"`
	}
	JoinResp struct {
		OpponentID string   `json:"opponent_id"`
		GameInfo   GameInfo `json:"game_info"`
		SaveData   []byte   `json:"save_data"`
	}
	AcceptInd struct {
		SessionID string `json:"session_id"`
	}
)

func writeEnvelope(conn *websocket.Conn, writeMu *sync.Mutex, msgType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("lobby: marshal %s: %w", msgType, err)
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	return conn.WriteJSON(envelope{Type: msgType, Payload: raw})
}

func readEnvelope(conn *websocket.Conn) (envelope, error) {
	var e envelope
	if err := conn.ReadJSON(&e); err != nil {
		return envelope{}, err
	}
	return e, nil
}

// PendingPlayer is one joiner waiting on a lobby's host to accept or
// reject it. accepted carries the AcceptInd payload exactly once;
// closing it without a send (via close(p.accepted)) signals rejection
// or host teardown.
type PendingPlayer struct {
	Conn     *websocket.Conn
	GameInfo GameInfo
	SaveData []byte

	accepted chan AcceptInd
}

// Lobby is one host's open create stream: its connection, the game
// info/save data it advertised, and every joiner currently waiting on
// an accept/reject decision.
type Lobby struct {
	ID       string
	GameInfo GameInfo
	SaveData []byte

	hostConn    *websocket.Conn
	hostWriteMu sync.Mutex

	mu      sync.Mutex
	pending map[string]*PendingPlayer
	closed  bool
}

// Server is the matchmaker: a registry of open lobbies keyed by ID.
type Server struct {
	log *debug.Logger

	mu      sync.Mutex
	lobbies map[string]*Lobby
}

// NewServer builds an empty lobby registry.
func NewServer(log *debug.Logger) *Server {
	return &Server{log: log, lobbies: make(map[string]*Lobby)}
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Logf(debug.ComponentLobby, debug.LogLevelInfo, format, args...)
	}
}

// registerLobby inserts l into the registry under a freshly generated,
// collision-free ID.
func (s *Server) registerLobby(l *Lobby) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		id := generateID()
		if _, exists := s.lobbies[id]; !exists {
			l.ID = id
			s.lobbies[id] = l
			return
		}
	}
}

func (s *Server) lookupLobby(id string) (*Lobby, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lobbies[id]
	return l, ok
}

func (s *Server) removeLobby(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lobbies, id)
}

// teardown closes every pending joiner without an accept, per spec.md
// §4.4's "Teardown of a host stream closes all pending joiners."
func (l *Lobby) teardown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	for _, p := range l.pending {
		close(p.accepted)
		p.Conn.Close()
	}
	l.pending = nil
}

// HandleCreate drives one host's create stream end to end: read the
// initial CreateReq, register the lobby, reply with CreateResp, then
// loop reading AcceptReq/RejectReq from the host until the connection
// closes. JoinInd is pushed onto this same connection asynchronously by
// HandleJoin, guarded by hostWriteMu.
func (s *Server) HandleCreate(conn *websocket.Conn) error {
	e, err := readEnvelope(conn)
	if err != nil {
		return fmt.Errorf("lobby: read create request: %w", err)
	}
	if e.Type != "CreateReq" {
		return fmt.Errorf("lobby: expected CreateReq, got %s", e.Type)
	}
	var req CreateReq
	if err := json.Unmarshal(e.Payload, &req); err != nil {
		return fmt.Errorf("lobby: decode CreateReq: %w", err)
	}

	l := &Lobby{
		GameInfo: req.GameInfo,
		SaveData: req.SaveData,
		hostConn: conn,
		pending:  make(map[string]*PendingPlayer),
	}
	s.registerLobby(l)
	defer func() {
		s.removeLobby(l.ID)
		l.teardown()
	}()
	s.logf("lobby %s created", l.ID)

	if err := writeEnvelope(conn, &l.hostWriteMu, "CreateResp", CreateResp{LobbyID: l.ID}); err != nil {
		return fmt.Errorf("lobby: send CreateResp: %w", err)
	}

	for {
		e, err := readEnvelope(conn)
		if err != nil {
			return fmt.Errorf("lobby: create stream closed: %w", err)
		}
		switch e.Type {
		case "AcceptReq":
			var req AcceptReq
			if err := json.Unmarshal(e.Payload, &req); err != nil {
				return fmt.Errorf("lobby: decode AcceptReq: %w", err)
			}
			if err := s.acceptJoiner(l, req.OpponentID); err != nil {
				return err
			}
		case "RejectReq":
			var req RejectReq
			if err := json.Unmarshal(e.Payload, &req); err != nil {
				return fmt.Errorf("lobby: decode RejectReq: %w", err)
			}
			s.rejectJoiner(l, req.OpponentID)
			if err := writeEnvelope(conn, &l.hostWriteMu, "RejectResp", RejectResp{}); err != nil {
				return fmt.Errorf("lobby: send RejectResp: %w", err)
			}
		default:
			return fmt.Errorf("lobby: unexpected message on create stream: %s", e.Type)
		}
	}
}

// acceptJoiner resolves one accept decision: it generates the session
// ID, replies to the host, signals the joiner, and closes the lobby
// (every other pending joiner is rejected by teardown).
func (s *Server) acceptJoiner(l *Lobby, opponentID string) error {
	l.mu.Lock()
	p, ok := l.pending[opponentID]
	if ok {
		delete(l.pending, opponentID)
	}
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("lobby: accept: unknown opponent %s", opponentID)
	}

	sessionID := generateID()
	p.accepted <- AcceptInd{SessionID: sessionID}

	if err := writeEnvelope(l.hostConn, &l.hostWriteMu, "AcceptResp", AcceptResp{SessionID: sessionID}); err != nil {
		return fmt.Errorf("lobby: send AcceptResp: %w", err)
	}

	s.removeLobby(l.ID)
	l.teardown()
	return nil
}

func (s *Server) rejectJoiner(l *Lobby, opponentID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.pending[opponentID]
	if !ok {
		return
	}
	delete(l.pending, opponentID)
	close(p.accepted)
	p.Conn.Close()
}

// HandleJoin drives one joiner's join stream: read JoinReq, look up the
// lobby, register a PendingPlayer, notify the host with JoinInd, reply
// with JoinResp, then wait for the host's accept (or a rejection/host
// teardown, surfaced as an error).
func (s *Server) HandleJoin(conn *websocket.Conn) error {
	e, err := readEnvelope(conn)
	if err != nil {
		return fmt.Errorf("lobby: read join request: %w", err)
	}
	if e.Type != "JoinReq" {
		return fmt.Errorf("lobby: expected JoinReq, got %s", e.Type)
	}
	var req JoinReq
	if err := json.Unmarshal(e.Payload, &req); err != nil {
		return fmt.Errorf("lobby: decode JoinReq: %w", err)
	}

	l, ok := s.lookupLobby(req.LobbyID)
	if !ok {
		return fmt.Errorf("lobby: unknown lobby %s", req.LobbyID)
	}

	opponentID := generateID()
	p := &PendingPlayer{Conn: conn, GameInfo: req.GameInfo, SaveData: req.SaveData, accepted: make(chan AcceptInd, 1)}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return fmt.Errorf("lobby: %s is already closed", l.ID)
	}
	l.pending[opponentID] = p
	l.mu.Unlock()

	if err := writeEnvelope(l.hostConn, &l.hostWriteMu, "JoinInd", JoinInd{OpponentID: opponentID, GameInfo: req.GameInfo, SaveData: req.SaveData}); err != nil {
		return fmt.Errorf("lobby: send JoinInd: %w", err)
	}
	if err := writeEnvelope(conn, &sync.Mutex{}, "JoinResp", JoinResp{OpponentID: opponentID, GameInfo: l.GameInfo, SaveData: l.SaveData}); err != nil {
		return fmt.Errorf("lobby: send JoinResp: %w", err)
	}

	ind, ok := <-p.accepted
	if !ok {
		return fmt.Errorf("lobby: %s was rejected or the lobby closed", opponentID)
	}
	return writeEnvelope(conn, &sync.Mutex{}, "AcceptInd", ind)
}

package main

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand/v2"
	"time"
)

type RoomStatus string

const (
	StatusWaiting    RoomStatus = "waiting"
	StatusInProgress RoomStatus = "in_progress"
	StatusFinished   RoomStatus = "finished"
)

type RoundPhase string

const (
	PhaseSubmitting RoundPhase = "submitting"
	PhaseJudging    RoundPhase = "judging"
	PhaseResults    RoundPhase = "results"
)

type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
	IsHost bool   `json:"isHost"`
}

type Submission struct {
	PlayerID string `json:"playerId"`
	Input    string `json:"input"`
	ImageURL string `json:"imageUrl"`
}

type Round struct {
	Prompt            string       `json:"prompt"`
	JudgeID           string       `json:"judgeId"`
	Phase             RoundPhase   `json:"phase"`
	Submissions       []Submission `json:"submissions"`
	Winner            string       `json:"winner,omitempty"`
	WinningSubmission *Submission  `json:"winningSubmission,omitempty"`
}

// submissionFrom returns the player's submission for this round, if any.
func (r *Round) submissionFrom(playerID string) *Submission {
	for i := range r.Submissions {
		if r.Submissions[i].PlayerID == playerID {
			return &r.Submissions[i]
		}
	}
	return nil
}

type Room struct {
	Code         string
	Players      []*Player
	Status       RoomStatus
	CurrentRound int
	PlayerOrder  []string
	JudgeIndex   int
	Rounds       []*Round

	// epoch increments whenever a round starts or the room leaves
	// in_progress, so a stale deferred round start can be detected.
	epoch      int
	lastActive time.Time
	clients    map[*Client]bool
}

func (room *Room) findPlayer(playerID string) *Player {
	for _, p := range room.Players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

// currentRound returns the active round, or nil if none has started.
func (room *Room) currentRound() *Round {
	if room.CurrentRound == 0 || room.CurrentRound > len(room.Rounds) {
		return nil
	}
	return room.Rounds[room.CurrentRound-1]
}

// expectedSubmissions is everyone except the judge.
func (room *Room) expectedSubmissions() int {
	return len(room.Players) - 1
}

// shuffleOrder freezes the judge rotation: a Fisher-Yates shuffle of
// PlayerOrder, performed once when the game starts.
func (room *Room) shuffleOrder(rng *mrand.Rand) {
	for i := len(room.PlayerOrder) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		room.PlayerOrder[i], room.PlayerOrder[j] = room.PlayerOrder[j], room.PlayerOrder[i]
	}
}

// nextJudge returns the judge for the round being started and advances the
// rotation. The rotation is strictly round-robin over the frozen order; it
// never re-shuffles and never skips disconnected players.
func (room *Room) nextJudge() string {
	judgeID := room.PlayerOrder[room.JudgeIndex]
	room.JudgeIndex = (room.JudgeIndex + 1) % len(room.PlayerOrder)
	return judgeID
}

func (room *Room) touch() {
	room.lastActive = time.Now()
}

// snapshotPlayers copies the roster for outgoing messages. Write pumps
// marshal concurrently with the event loop, so they never get handed live
// state.
func (room *Room) snapshotPlayers() []*Player {
	players := make([]*Player, 0, len(room.Players))
	for _, p := range room.Players {
		cp := *p
		players = append(players, &cp)
	}
	return players
}

// Registry owns every Room in the process. It is only ever touched from the
// game's event loop, so it carries no locking of its own.
type Registry struct {
	rooms map[string]*Room
}

func newRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
	}
}

func (reg *Registry) get(code string) (*Room, bool) {
	room, ok := reg.rooms[code]
	return room, ok
}

const (
	roomCodeLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	roomCodeLength  = 4
)

// newRoomCode generates a crypto-random room code and ensures it doesn't
// collide with an existing room.
func (reg *Registry) newRoomCode() string {
	max := big.NewInt(int64(len(roomCodeLetters)))
	for {
		out := make([]byte, roomCodeLength)
		for i := range out {
			n, err := rand.Int(rand.Reader, max)
			if err != nil {
				panic("crypto/rand failure: " + err.Error())
			}
			out[i] = roomCodeLetters[n.Int64()]
		}
		code := string(out)

		if _, exists := reg.rooms[code]; !exists {
			return code
		}
	}
}

// createRoom registers a new room containing only the host player.
func (reg *Registry) createRoom(playerName, playerID string) *Room {
	room := &Room{
		Code: reg.newRoomCode(),
		Players: []*Player{{
			ID:     playerID,
			Name:   playerName,
			IsHost: true,
		}},
		Status:      StatusWaiting,
		PlayerOrder: []string{playerID},
		clients:     make(map[*Client]bool),
	}
	room.touch()

	reg.rooms[room.Code] = room
	return room
}

// joinRoom adds a player to a waiting room. A player ID already present in
// the room is treated as a reconnect (rejoined=true): no new entry is
// created and no duplicate appears in PlayerOrder.
func (reg *Registry) joinRoom(code, playerName, playerID string) (room *Room, rejoined bool, err error) {
	room, ok := reg.rooms[code]
	if !ok {
		return nil, false, errRoomNotFound
	}
	if room.Status != StatusWaiting {
		return nil, false, errGameInProgress
	}

	room.touch()

	if room.findPlayer(playerID) != nil {
		return room, true, nil
	}

	room.Players = append(room.Players, &Player{
		ID:   playerID,
		Name: playerName,
	})
	room.PlayerOrder = append(room.PlayerOrder, playerID)

	return room, false, nil
}

// removePlayer drops a player from a waiting room. If the departing player
// was the original host (index 0 of the pre-removal list), the whole room is
// torn down and removePlayer reports closed=true. Removal is only permitted
// while the room is waiting; mid-game departures leave the roster untouched.
func (reg *Registry) removePlayer(code, playerID string) (room *Room, closed bool) {
	room, ok := reg.rooms[code]
	if !ok || room.Status != StatusWaiting {
		return nil, false
	}

	if room.findPlayer(playerID) == nil {
		return nil, false
	}

	wasHost := len(room.Players) > 0 && room.Players[0].ID == playerID

	players := room.Players[:0]
	for _, p := range room.Players {
		if p.ID != playerID {
			players = append(players, p)
		}
	}
	room.Players = players

	order := room.PlayerOrder[:0]
	for _, id := range room.PlayerOrder {
		if id != playerID {
			order = append(order, id)
		}
	}
	room.PlayerOrder = order

	room.touch()

	if wasHost {
		delete(reg.rooms, code)
		return room, true
	}

	return room, false
}

func (reg *Registry) delete(code string) {
	delete(reg.rooms, code)
}

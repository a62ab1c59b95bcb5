// Promptbox Prompt Party Game
//
// Each round, every player except a rotating judge answers a ridiculous
// theme ("The world's worst birthday party theme") with an AI image
// generation prompt. The resulting images are shown to the judge, who picks
// a winner; the first player to reach the winning score takes the game.
//
// Features:
// - Rooms identified by short join codes, created and joined over a single
//   websocket endpoint
// - Judge rotation over a player order shuffled once at game start
// - Rounds progress submitting -> judging -> results, with the next round
//   starting automatically after a short delay
// - Players identified by a client-supplied ID, stable across reconnects
// - Image URLs produced server-side when a client submits a bare prompt
// - Host leaving a waiting room closes it; rooms auto-reaped when idle
// - In-browser QR button to share the current room, backed by go-qrcode
//
// All room state lives behind a single event loop goroutine: every mutation
// runs to completion before the next command is handled, so the registry
// needs no locking. Image production is the only suspending operation and
// runs off-loop, re-entering the loop with a completion task that is
// re-validated before it commits anything.

package main

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
)

type request struct {
	client *Client
	msg    ClientMessage
}

type PartyGame struct {
	cfg      *Config
	reg      *Registry
	pool     *PromptPool
	producer ImageProducer
	rng      *rand.Rand

	clients map[*Client]bool

	register chan *Client
	unreg    chan *Client
	requests chan request
	tasks    chan func()

	// after schedules a deferred call; swapped for a manual trigger in tests.
	after func(time.Duration, func())
}

func newPartyGame(cfg *Config, pool *PromptPool, producer ImageProducer, rng *rand.Rand) *PartyGame {
	return &PartyGame{
		cfg:      cfg,
		reg:      newRegistry(),
		pool:     pool,
		producer: producer,
		rng:      rng,
		clients:  make(map[*Client]bool),
		register: make(chan *Client),
		unreg:    make(chan *Client),
		requests: make(chan request),
		tasks:    make(chan func()),
		after: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

func newRNG() *rand.Rand {
	var seed [16]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	return rand.New(rand.NewPCG(
		binary.LittleEndian.Uint64(seed[:8]),
		binary.LittleEndian.Uint64(seed[8:]),
	))
}

// run is the event loop. It exclusively owns the registry and every room in
// it for the lifetime of the process.
func (g *PartyGame) run(ctx context.Context) {
	var reap <-chan time.Time
	if g.cfg.sessionTimeout > 0 {
		ticker := time.NewTicker(g.cfg.sessionTimeout / 2)
		defer ticker.Stop()
		reap = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-g.register:
			g.clients[c] = true
		case c := <-g.unreg:
			g.handleUnregister(c)
		case r := <-g.requests:
			g.dispatch(r.client, r.msg)
		case f := <-g.tasks:
			f()
		case <-reap:
			g.reapIdle()
		}
	}
}

func (g *PartyGame) dispatch(c *Client, msg ClientMessage) {
	switch msg.Type {
	case "create_room":
		g.handleCreate(c, msg)
	case "join_room":
		g.handleJoin(c, msg)
	case "get_game_state":
		g.handleState(c, msg)
	case "start_game":
		g.handleStart(msg)
	case "submit_prompt":
		g.handleSubmit(c, msg)
	case "judge_selection":
		g.handleJudge(c, msg)
	case "get_game_results":
		g.handleResults(c, msg)
	}
}

// sendTo queues a message for a single client, dropping the client if its
// send buffer is full.
func (g *PartyGame) sendTo(c *Client, msg any) {
	if !g.clients[c] {
		return
	}

	select {
	case c.send <- msg:
	default:
		g.drop(c)
	}
}

func (g *PartyGame) broadcast(room *Room, msg any) {
	for c := range room.clients {
		g.sendTo(c, msg)
	}
}

// drop forgets a client and closes its send channel, which unwinds both of
// its pump goroutines.
func (g *PartyGame) drop(c *Client) {
	if !g.clients[c] {
		return
	}
	delete(g.clients, c)
	if room, ok := g.reg.get(c.roomCode); ok {
		delete(room.clients, c)
	}
	close(c.send)
}

// bind associates a connection with a room and player after a successful
// create or join.
func (g *PartyGame) bind(c *Client, room *Room, playerID string) {
	if old, ok := g.reg.get(c.roomCode); ok && old != room {
		delete(old.clients, c)
	}
	c.roomCode = room.Code
	c.playerID = playerID
	room.clients[c] = true
}

func (g *PartyGame) handleCreate(c *Client, msg ClientMessage) {
	playerID := msg.PlayerID
	if playerID == "" {
		playerID = uuid.NewString()
	}

	room := g.reg.createRoom(msg.PlayerName, playerID)
	g.bind(c, room, playerID)

	log.Info().Str("room", room.Code).Str("player", msg.PlayerName).Msg("room created")

	g.sendTo(c, RoomCreatedMessage{
		Type:     "room_created",
		RoomCode: room.Code,
		PlayerID: playerID,
	})
	g.broadcast(room, PlayerJoinedMessage{
		Type:    "player_joined",
		Players: room.snapshotPlayers(),
	})
}

func (g *PartyGame) handleJoin(c *Client, msg ClientMessage) {
	playerID := msg.PlayerID
	if playerID == "" {
		playerID = uuid.NewString()
	}

	room, rejoined, err := g.reg.joinRoom(msg.RoomCode, msg.PlayerName, playerID)
	if err != nil {
		g.sendTo(c, JoinResultMessage{
			Type:  "join_result",
			Error: err.Error(),
		})
		return
	}

	g.bind(c, room, playerID)

	g.sendTo(c, JoinResultMessage{
		Type:    "join_result",
		Success: true,
		Players: room.snapshotPlayers(),
	})

	// A reconnect does not change the roster, so nothing to announce.
	if rejoined {
		log.Debug().Str("room", room.Code).Str("player", playerID).Msg("player reconnected")
		return
	}

	log.Info().Str("room", room.Code).Str("player", msg.PlayerName).Msg("player joined")

	g.broadcast(room, PlayerJoinedMessage{
		Type:    "player_joined",
		Players: room.snapshotPlayers(),
	})
}

func (g *PartyGame) handleState(c *Client, msg ClientMessage) {
	room, ok := g.reg.get(msg.RoomCode)
	if !ok {
		g.sendTo(c, GameStateMessage{Type: "game_state", Error: errRoomNotFound.Error()})
		return
	}

	round := room.currentRound()
	if round == nil {
		g.sendTo(c, GameStateMessage{Type: "game_state", Error: errNoRoundInProgress.Error()})
		return
	}

	room.touch()

	g.sendTo(c, GameStateMessage{
		Type:         "game_state",
		CurrentRound: room.CurrentRound,
		Prompt:       round.Prompt,
		JudgeID:      round.JudgeID,
		Players:      room.snapshotPlayers(),
		Phase:        room.Status,
	})
}

func (g *PartyGame) handleStart(msg ClientMessage) {
	room, ok := g.reg.get(msg.RoomCode)
	if !ok || room.Status != StatusWaiting || len(room.Players) < g.cfg.minPlayers {
		return
	}

	room.Status = StatusInProgress
	room.shuffleOrder(g.rng)

	log.Info().Str("room", room.Code).Int("players", len(room.Players)).Msg("game started")

	g.startRound(room)
}

// startRound enters the submitting phase: pick a prompt, rotate the judge,
// announce the round.
func (g *PartyGame) startRound(room *Room) {
	room.CurrentRound++
	room.epoch++
	room.touch()

	round := &Round{
		Prompt:      g.pool.pick(g.rng),
		JudgeID:     room.nextJudge(),
		Phase:       PhaseSubmitting,
		Submissions: []Submission{},
	}
	room.Rounds = append(room.Rounds, round)

	log.Debug().
		Str("room", room.Code).
		Int("round", room.CurrentRound).
		Str("judge", round.JudgeID).
		Str("prompt", round.Prompt).
		Msg("round started")

	g.broadcast(room, RoundStartMessage{
		Type:        "round_start",
		RoundNumber: room.CurrentRound,
		Prompt:      round.Prompt,
		JudgeID:     round.JudgeID,
		Players:     room.snapshotPlayers(),
	})
}

func (g *PartyGame) handleSubmit(c *Client, msg ClientMessage) {
	room, ok := g.reg.get(msg.RoomCode)
	if !ok || room.Status != StatusInProgress {
		return
	}

	round := room.currentRound()
	if round == nil || round.Phase != PhaseSubmitting {
		return
	}

	// The judge never submits, nobody submits twice, and unknown players
	// submit nothing. Clients gate all of these in the UI, so a violation
	// here is stale or hostile input and is dropped without comment.
	if msg.PlayerID == "" || msg.PlayerID == round.JudgeID {
		return
	}
	if room.findPlayer(msg.PlayerID) == nil || round.submissionFrom(msg.PlayerID) != nil {
		return
	}

	if msg.ImageURL != "" {
		g.commitSubmission(room, room.CurrentRound, c, msg.PlayerID, msg.Prompt, msg.ImageURL)
		return
	}

	// No image yet: produce one off-loop, then re-enter the loop with a
	// completion task. The room may have moved on in the meantime, so the
	// task re-validates before committing.
	code := room.Code
	roundNum := room.CurrentRound
	playerID := msg.PlayerID
	prompt := msg.Prompt

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), produceTimeout)
		defer cancel()

		imageURL, err := g.producer.Produce(ctx, prompt)

		g.tasks <- func() {
			if err != nil {
				log.Debug().Err(err).Str("room", code).Str("player", playerID).Msg("image production failed")
				g.sendTo(c, SubmissionErrorMessage{
					Type:    "submission_error",
					Message: "Failed to process submission. Please try again.",
				})
				return
			}

			room, ok := g.reg.get(code)
			if !ok || room.Status != StatusInProgress || room.CurrentRound != roundNum {
				return
			}
			g.commitSubmission(room, roundNum, c, playerID, prompt, imageURL)
		}
	}()
}

// commitSubmission records a submission and advances the round to judging
// once everyone but the judge is in. Guards are re-checked here because the
// image producer may have suspended between validation and commit.
func (g *PartyGame) commitSubmission(room *Room, roundNum int, c *Client, playerID, input, imageURL string) {
	round := room.currentRound()
	if round == nil || room.CurrentRound != roundNum || round.Phase != PhaseSubmitting {
		return
	}
	if playerID == round.JudgeID || round.submissionFrom(playerID) != nil {
		return
	}

	round.Submissions = append(round.Submissions, Submission{
		PlayerID: playerID,
		Input:    input,
		ImageURL: imageURL,
	})
	room.touch()

	expected := room.expectedSubmissions()

	log.Debug().
		Str("room", room.Code).
		Str("player", playerID).
		Int("count", len(round.Submissions)).
		Int("expected", expected).
		Msg("submission received")

	g.broadcast(room, SubmissionUpdateMessage{
		Type:                "submission_update",
		SubmissionCount:     len(round.Submissions),
		ExpectedSubmissions: expected,
	})

	g.sendTo(c, SubmissionSuccessMessage{
		Type:     "submission_success",
		ImageURL: imageURL,
	})

	if len(round.Submissions) == expected {
		round.Phase = PhaseJudging
		g.broadcast(room, AllSubmissionsReadyMessage{
			Type:        "all_submissions_ready",
			Submissions: append([]Submission(nil), round.Submissions...),
		})
	}
}

func (g *PartyGame) handleJudge(c *Client, msg ClientMessage) {
	room, ok := g.reg.get(msg.RoomCode)
	if !ok || room.Status != StatusInProgress {
		return
	}

	round := room.currentRound()
	if round == nil || round.Winner != "" {
		return
	}

	// Connections bound to a player other than the judge don't get a vote.
	if c != nil && c.playerID != "" && c.playerID != round.JudgeID {
		return
	}

	sub := round.submissionFrom(msg.WinningSubmissionID)
	if sub == nil {
		return
	}
	winner := room.findPlayer(sub.PlayerID)
	if winner == nil {
		return
	}

	snapshot := *sub
	round.Winner = sub.PlayerID
	round.WinningSubmission = &snapshot
	round.Phase = PhaseResults
	winner.Score++
	room.touch()

	log.Info().
		Str("room", room.Code).
		Int("round", room.CurrentRound).
		Str("winner", winner.ID).
		Int("score", winner.Score).
		Msg("round winner picked")

	if winner.Score >= g.cfg.winScore {
		room.Status = StatusFinished
		room.epoch++

		log.Info().Str("room", room.Code).Str("winner", winner.ID).Msg("game over")

		champion := *winner
		g.broadcast(room, GameOverMessage{
			Type:   "game_over",
			Winner: &champion,
			Rounds: roundSummaries(room),
		})
		return
	}

	scores := make([]PlayerScore, 0, len(room.Players))
	for _, p := range room.Players {
		scores = append(scores, PlayerScore{ID: p.ID, Score: p.Score})
	}

	g.broadcast(room, RoundWinnerMessage{
		Type:     "round_winner",
		WinnerID: sub.PlayerID,
		Scores:   scores,
	})

	// Give clients a moment to show the result, then start the next round.
	code := room.Code
	epoch := room.epoch
	g.after(g.cfg.roundDelay, func() {
		g.tasks <- func() {
			g.deferredRoundStart(code, epoch)
		}
	})
}

// deferredRoundStart is the round-delay timer firing. The timer is not
// cancellable, so the room is re-validated: it must still exist, still be
// in progress, and still be in the same epoch the timer was scheduled in.
func (g *PartyGame) deferredRoundStart(code string, epoch int) {
	room, ok := g.reg.get(code)
	if !ok || room.Status != StatusInProgress || room.epoch != epoch {
		log.Debug().Str("room", code).Msg("dropping stale round timer")
		return
	}
	g.startRound(room)
}

func roundSummaries(room *Room) []RoundSummary {
	rounds := make([]RoundSummary, 0, len(room.Rounds))
	for _, r := range room.Rounds {
		rounds = append(rounds, RoundSummary{
			Prompt:      r.Prompt,
			Winner:      r.Winner,
			Submissions: append([]Submission(nil), r.Submissions...),
			JudgeID:     r.JudgeID,
		})
	}
	return rounds
}

func (g *PartyGame) handleResults(c *Client, msg ClientMessage) {
	room, ok := g.reg.get(msg.RoomCode)
	if !ok {
		g.sendTo(c, GameResultsMessage{Type: "game_results", Error: errRoomNotFound.Error()})
		return
	}

	room.touch()

	// Highest score wins; ties go to whoever joined first.
	var winner *Player
	for _, p := range room.Players {
		if winner == nil || p.Score > winner.Score {
			winner = p
		}
	}

	var champion *Player
	if winner != nil {
		cp := *winner
		champion = &cp
	}

	g.sendTo(c, GameResultsMessage{
		Type:    "game_results",
		Players: room.snapshotPlayers(),
		Rounds:  roundSummaries(room),
		Winner:  champion,
	})
}

// handleUnregister maps a dropped connection to registry changes. Players
// are only removed while the room is still waiting; anyone who vanishes
// mid-game stays on the roster, and the round simply waits on them.
func (g *PartyGame) handleUnregister(c *Client) {
	if !g.clients[c] {
		return
	}
	delete(g.clients, c)
	close(c.send)

	room, ok := g.reg.get(c.roomCode)
	if !ok {
		return
	}
	delete(room.clients, c)

	if c.playerID == "" || room.Status != StatusWaiting {
		return
	}

	// If the same player already reconnected on another socket, this is a
	// stale connection going away, not a departure.
	for other := range room.clients {
		if other.playerID == c.playerID {
			return
		}
	}

	left, closed := g.reg.removePlayer(room.Code, c.playerID)
	if left == nil {
		return
	}

	if closed {
		log.Info().Str("room", left.Code).Msg("host left; room closed")
		g.broadcast(left, RoomClosedMessage{Type: "room_closed"})
		return
	}

	log.Info().Str("room", left.Code).Str("player", c.playerID).Msg("player left")
	g.broadcast(left, PlayerJoinedMessage{
		Type:    "player_joined",
		Players: left.snapshotPlayers(),
	})
}

// reapIdle tears down rooms that have seen no activity for the configured
// session timeout.
func (g *PartyGame) reapIdle() {
	cutoff := time.Now().Add(-g.cfg.sessionTimeout)

	for code, room := range g.reg.rooms {
		if !room.lastActive.Before(cutoff) {
			continue
		}
		for c := range room.clients {
			g.drop(c)
		}
		g.reg.delete(code)
		log.Info().Str("room", code).Msg("reaped idle room")
	}
}

// registerPromptParty sets up routes so that:
//   - $path            → client page (create/join form)
//   - $path/:code      → client page with the room code pre-filled
//   - $path/:code/qr   → PNG QR code for that room URL
//   - /ws              → the game websocket
func registerPromptParty(ctx context.Context, cfg *Config, path string, mux *httprouter.Router) error {
	pool, err := newPromptPool(cfg.promptFile)
	if err != nil {
		return err
	}

	log.Debug().Int("prompts", pool.size()).Msg("prompt pool loaded")

	g := newPartyGame(cfg, pool, newPollinationsProducer(cfg, newRNG()), newRNG())
	go g.run(ctx)

	mux.GET(cfg.prefix+path, servePlayPage(cfg))
	mux.GET(cfg.prefix+path+"/:code", servePlayPage(cfg))
	mux.GET(cfg.prefix+path+"/:code/qr", qrHandler)
	mux.GET(cfg.prefix+"/ws", serveWS(g))

	return nil
}

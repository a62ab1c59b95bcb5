package main

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRNG() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestNewRoomCodeUnique(t *testing.T) {
	reg := newRegistry()

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		room := reg.createRoom("host", "host-id")

		require.Len(t, room.Code, roomCodeLength)
		for _, r := range room.Code {
			require.True(t, strings.ContainsRune(roomCodeLetters, r), "unexpected rune %q in room code", r)
		}

		require.False(t, seen[room.Code], "duplicate room code %q", room.Code)
		seen[room.Code] = true
	}
}

func TestCreateRoom(t *testing.T) {
	reg := newRegistry()

	room := reg.createRoom("alice", "a")

	require.Len(t, room.Players, 1)
	assert.Equal(t, "alice", room.Players[0].Name)
	assert.True(t, room.Players[0].IsHost)
	assert.Equal(t, 0, room.Players[0].Score)
	assert.Equal(t, StatusWaiting, room.Status)
	assert.Equal(t, 0, room.CurrentRound)
	assert.Equal(t, []string{"a"}, room.PlayerOrder)

	got, ok := reg.get(room.Code)
	require.True(t, ok)
	assert.Same(t, room, got)
}

func TestJoinRoomUnknownCode(t *testing.T) {
	reg := newRegistry()

	_, _, err := reg.joinRoom("ZZZZ", "bob", "b")
	assert.ErrorIs(t, err, errRoomNotFound)
}

func TestJoinRoomAlreadyStarted(t *testing.T) {
	reg := newRegistry()
	room := reg.createRoom("alice", "a")
	room.Status = StatusInProgress

	_, _, err := reg.joinRoom(room.Code, "bob", "b")
	assert.ErrorIs(t, err, errGameInProgress)
}

func TestJoinRoom(t *testing.T) {
	reg := newRegistry()
	room := reg.createRoom("alice", "a")

	joined, rejoined, err := reg.joinRoom(room.Code, "bob", "b")
	require.NoError(t, err)
	assert.False(t, rejoined)
	require.Len(t, joined.Players, 2)
	assert.False(t, joined.Players[1].IsHost)
	assert.Equal(t, []string{"a", "b"}, joined.PlayerOrder)
}

func TestJoinRoomReconnect(t *testing.T) {
	reg := newRegistry()
	room := reg.createRoom("alice", "a")

	_, _, err := reg.joinRoom(room.Code, "bob", "b")
	require.NoError(t, err)

	// Same ID again is a reconnect: no duplicate roster or order entry.
	joined, rejoined, err := reg.joinRoom(room.Code, "bob", "b")
	require.NoError(t, err)
	assert.True(t, rejoined)
	assert.Len(t, joined.Players, 2)
	assert.Equal(t, []string{"a", "b"}, joined.PlayerOrder)
}

func TestRemovePlayer(t *testing.T) {
	reg := newRegistry()
	room := reg.createRoom("alice", "a")
	_, _, err := reg.joinRoom(room.Code, "bob", "b")
	require.NoError(t, err)

	left, closed := reg.removePlayer(room.Code, "b")
	require.NotNil(t, left)
	assert.False(t, closed)
	assert.Len(t, left.Players, 1)
	assert.Equal(t, []string{"a"}, left.PlayerOrder)

	_, ok := reg.get(room.Code)
	assert.True(t, ok)
}

func TestRemovePlayerHostClosesRoom(t *testing.T) {
	reg := newRegistry()
	room := reg.createRoom("alice", "a")
	_, _, err := reg.joinRoom(room.Code, "bob", "b")
	require.NoError(t, err)

	left, closed := reg.removePlayer(room.Code, "a")
	require.NotNil(t, left)
	assert.True(t, closed)

	_, ok := reg.get(room.Code)
	assert.False(t, ok)
}

func TestRemovePlayerInProgressIsNoop(t *testing.T) {
	reg := newRegistry()
	room := reg.createRoom("alice", "a")
	_, _, err := reg.joinRoom(room.Code, "bob", "b")
	require.NoError(t, err)
	room.Status = StatusInProgress

	left, closed := reg.removePlayer(room.Code, "b")
	assert.Nil(t, left)
	assert.False(t, closed)
	assert.Len(t, room.Players, 2)
	assert.Equal(t, []string{"a", "b"}, room.PlayerOrder)
}

func TestShuffleOrderIsPermutation(t *testing.T) {
	room := &Room{
		PlayerOrder: []string{"a", "b", "c", "d", "e"},
	}

	room.shuffleOrder(testRNG())

	assert.ElementsMatch(t, []string{"a", "b", "c", "d", "e"}, room.PlayerOrder)
}

func TestNextJudgeRoundRobin(t *testing.T) {
	room := &Room{
		PlayerOrder: []string{"a", "b", "c"},
	}

	var judges []string
	for i := 0; i < 6; i++ {
		judges = append(judges, room.nextJudge())
	}

	// Each player judges exactly once every N consecutive rounds, and the
	// same player never judges twice in a row.
	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c"}, judges)
	for i := 1; i < len(judges); i++ {
		assert.NotEqual(t, judges[i-1], judges[i])
	}
}

func TestExpectedSubmissions(t *testing.T) {
	room := &Room{
		Players: []*Player{{ID: "a"}, {ID: "b"}, {ID: "c"}},
	}

	assert.Equal(t, 2, room.expectedSubmissions())

	room.Players = append(room.Players, &Player{ID: "d"})
	assert.Equal(t, 3, room.expectedSubmissions())
}

func TestCurrentRound(t *testing.T) {
	room := &Room{}
	assert.Nil(t, room.currentRound())

	round := &Round{Prompt: "p"}
	room.Rounds = append(room.Rounds, round)
	room.CurrentRound = 1
	assert.Same(t, round, room.currentRound())
}

func TestSubmissionFrom(t *testing.T) {
	round := &Round{
		Submissions: []Submission{
			{PlayerID: "a", Input: "first"},
			{PlayerID: "b", Input: "second"},
		},
	}

	sub := round.submissionFrom("b")
	require.NotNil(t, sub)
	assert.Equal(t, "second", sub.Input)
	assert.Nil(t, round.submissionFrom("z"))
}

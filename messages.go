package main

// Wire protocol for the prompt party game. Clients send a single tagged
// envelope; the server answers with direct acknowledgements on the sender's
// connection and broadcasts to everyone bound to the room.

// ClientMessage is everything a client can send.
type ClientMessage struct {
	Type                string `json:"type"`                          // "create_room", "join_room", "get_game_state", "start_game", "submit_prompt", "judge_selection", "get_game_results"
	RoomCode            string `json:"roomCode,omitempty"`            // all but create_room
	PlayerName          string `json:"playerName,omitempty"`          // create_room / join_room
	PlayerID            string `json:"playerId,omitempty"`            // create_room / join_room / submit_prompt
	Prompt              string `json:"prompt,omitempty"`              // submit_prompt
	ImageURL            string `json:"imageUrl,omitempty"`            // submit_prompt (optional, produced server-side when absent)
	WinningSubmissionID string `json:"winningSubmissionId,omitempty"` // judge_selection
}

// RoomCreatedMessage acknowledges create_room.
type RoomCreatedMessage struct {
	Type     string `json:"type"` // "room_created"
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
}

// JoinResultMessage acknowledges join_room.
type JoinResultMessage struct {
	Type    string    `json:"type"` // "join_result"
	Success bool      `json:"success"`
	Error   string    `json:"error,omitempty"`
	Players []*Player `json:"players,omitempty"`
}

// PlayerJoinedMessage broadcasts the updated roster.
type PlayerJoinedMessage struct {
	Type    string    `json:"type"` // "player_joined"
	Players []*Player `json:"players"`
}

// RoomClosedMessage broadcasts that the host left and the room is gone.
type RoomClosedMessage struct {
	Type string `json:"type"` // "room_closed"
}

// GameStateMessage answers get_game_state, used by reconnecting clients to
// resynchronize mid-game.
type GameStateMessage struct {
	Type         string     `json:"type"` // "game_state"
	Error        string     `json:"error,omitempty"`
	CurrentRound int        `json:"currentRound,omitempty"`
	Prompt       string     `json:"prompt,omitempty"`
	JudgeID      string     `json:"judgeId,omitempty"`
	Players      []*Player  `json:"players,omitempty"`
	Phase        RoomStatus `json:"phase,omitempty"`
}

// RoundStartMessage broadcasts a new round entering the submitting phase.
type RoundStartMessage struct {
	Type        string    `json:"type"` // "round_start"
	RoundNumber int       `json:"roundNumber"`
	Prompt      string    `json:"prompt"`
	JudgeID     string    `json:"judgeId"`
	Players     []*Player `json:"players"`
}

// SubmissionUpdateMessage broadcasts submission progress.
type SubmissionUpdateMessage struct {
	Type                string `json:"type"` // "submission_update"
	SubmissionCount     int    `json:"submissionCount"`
	ExpectedSubmissions int    `json:"expectedSubmissions"`
}

// SubmissionSuccessMessage acknowledges a submission to its sender only.
type SubmissionSuccessMessage struct {
	Type     string `json:"type"` // "submission_success"
	ImageURL string `json:"imageUrl"`
}

// SubmissionErrorMessage reports an image production failure to the sender
// only; other players and room state are unaffected.
type SubmissionErrorMessage struct {
	Type    string `json:"type"` // "submission_error"
	Message string `json:"message"`
}

// AllSubmissionsReadyMessage broadcasts the full submission set once the
// quota is met and the round enters judging.
type AllSubmissionsReadyMessage struct {
	Type        string       `json:"type"` // "all_submissions_ready"
	Submissions []Submission `json:"submissions"`
}

type PlayerScore struct {
	ID    string `json:"id"`
	Score int    `json:"score"`
}

// RoundWinnerMessage broadcasts the round result and current scores.
type RoundWinnerMessage struct {
	Type     string        `json:"type"` // "round_winner"
	WinnerID string        `json:"winnerId"`
	Scores   []PlayerScore `json:"scores"`
}

// RoundSummary is one round of history, formatted for the results screen.
type RoundSummary struct {
	Prompt      string       `json:"prompt"`
	Winner      string       `json:"winner"`
	Submissions []Submission `json:"submissions"`
	JudgeID     string       `json:"judgeId"`
}

// GameOverMessage broadcasts the end of the game with full round history.
type GameOverMessage struct {
	Type   string         `json:"type"` // "game_over"
	Winner *Player        `json:"winner"`
	Rounds []RoundSummary `json:"rounds"`
}

// GameResultsMessage answers get_game_results.
type GameResultsMessage struct {
	Type    string         `json:"type"` // "game_results"
	Error   string         `json:"error,omitempty"`
	Players []*Player      `json:"players,omitempty"`
	Rounds  []RoundSummary `json:"rounds,omitempty"`
	Winner  *Player        `json:"winner,omitempty"`
}

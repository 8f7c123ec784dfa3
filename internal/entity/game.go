package entity

import (
	"errors"
	"fmt"
)

// BoardSize is the number of cells on the 3x3 board.
const BoardSize = 9

var (
	ErrUnknownRole    = errors.New("unknown role")
	ErrUnknownMark    = errors.New("unknown mark")
	ErrUnknownOutcome = errors.New("unknown outcome")
)

// Role is the seat a participant occupies in a session.
type Role string

const (
	FirstPlayer  Role = "first"
	SecondPlayer Role = "second"
)

// Mark is the content of a single board cell.
type Mark string

const (
	EmptyCell  Mark = ""
	MarkFirst  Mark = "X"
	MarkSecond Mark = "O"
)

// Outcome is the terminal state of a game, or InProgress.
type Outcome string

const (
	InProgress       Outcome = "in_progress"
	FirstPlayerWins  Outcome = "first_player_wins"
	SecondPlayerWins Outcome = "second_player_wins"
	Draw             Outcome = "draw"
)

// Board is laid out row-major: 0,1,2 / 3,4,5 / 6,7,8.
type Board [BoardSize]Mark

// Game is the shared document of one session. The store owns it, clients only cache snapshots.
type Game struct {
	ID             string  `json:"id"`
	Board          Board   `json:"board"`
	Turn           Role    `json:"turn"`
	FirstPlayerID  string  `json:"first_player_id"`
	SecondPlayerID string  `json:"second_player_id,omitempty"`
	Outcome        Outcome `json:"outcome"`
}

// NewGame - builds the initial document for a session created by firstPlayerID.
// The ID is left empty until the store assigns one.
func NewGame(firstPlayerID string) Game {
	return Game{
		Board:         Board{},
		Turn:          FirstPlayer,
		FirstPlayerID: firstPlayerID,
		Outcome:       InProgress,
	}
}

func (that Game) IsReady() bool {
	return that.FirstPlayerID != "" && that.SecondPlayerID != ""
}

func (that Game) IsFinished() bool {
	return that.Outcome.IsTerminal()
}

// RoleOf - returns the seat held by participantID, if any.
func (that Game) RoleOf(participantID string) (Role, bool) {
	switch {
	case participantID == "":
		return "", false
	case participantID == that.FirstPlayerID:
		return FirstPlayer, true
	case participantID == that.SecondPlayerID:
		return SecondPlayer, true
	default:
		return "", false
	}
}

// Opponent - returns the other role.
func (r Role) Opponent() Role {
	if r == FirstPlayer {
		return SecondPlayer
	}
	return FirstPlayer
}

// Mark - returns the mark the role places on the board.
func (r Role) Mark() Mark {
	switch r {
	case FirstPlayer:
		return MarkFirst
	case SecondPlayer:
		return MarkSecond
	default:
		return EmptyCell
	}
}

// Glyph - returns the symbol used to render the role.
func (r Role) Glyph() string {
	return r.Mark().Glyph()
}

func (r Role) Valid() bool {
	return r == FirstPlayer || r == SecondPlayer
}

func (r Role) String() string {
	return string(r)
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, string(r))
	}
	return []byte(r), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	role := Role(text)
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownRole, string(text))
	}
	*r = role
	return nil
}

// Owner - returns the role that placed the mark.
func (m Mark) Owner() (Role, bool) {
	switch m {
	case MarkFirst:
		return FirstPlayer, true
	case MarkSecond:
		return SecondPlayer, true
	default:
		return "", false
	}
}

func (m Mark) Glyph() string {
	return string(m)
}

func (m Mark) Valid() bool {
	return m == EmptyCell || m == MarkFirst || m == MarkSecond
}

func (m Mark) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMark, string(m))
	}
	return []byte(m), nil
}

func (m *Mark) UnmarshalText(text []byte) error {
	mark := Mark(text)
	if !mark.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownMark, string(text))
	}
	*m = mark
	return nil
}

func (o Outcome) IsTerminal() bool {
	return o == FirstPlayerWins || o == SecondPlayerWins || o == Draw
}

// Winner - returns the winning role for a win outcome.
func (o Outcome) Winner() (Role, bool) {
	switch o {
	case FirstPlayerWins:
		return FirstPlayer, true
	case SecondPlayerWins:
		return SecondPlayer, true
	default:
		return "", false
	}
}

// WinFor - returns the win outcome of the role.
func WinFor(r Role) Outcome {
	if r == SecondPlayer {
		return SecondPlayerWins
	}
	return FirstPlayerWins
}

func (o Outcome) Valid() bool {
	return o == InProgress || o.IsTerminal()
}

func (o Outcome) String() string {
	return string(o)
}

func (o Outcome) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOutcome, string(o))
	}
	return []byte(o), nil
}

func (o *Outcome) UnmarshalText(text []byte) error {
	outcome := Outcome(text)
	if !outcome.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownOutcome, string(text))
	}
	*o = outcome
	return nil
}

// Count - returns how many cells hold the mark.
func (b Board) Count(mark Mark) int {
	n := 0
	for _, cell := range b {
		if cell == mark {
			n++
		}
	}
	return n
}

// Filled - returns the number of non-empty cells.
func (b Board) Filled() int {
	return BoardSize - b.Count(EmptyCell)
}

func (b Board) IsFull() bool {
	return b.Filled() == BoardSize
}

package entity

// Snapshot is one update delivered by a session subscription.
// A nil Game with a nil Err means the document does not exist.
type Snapshot struct {
	Game *Game
	Err  error
}

package session

import "fmt"

const (
	StatusWaiting         = "Waiting for player..."
	StatusPlayerJoined    = "Player 2 connected!"
	StatusConnected       = "Connected! Starting game..."
	StatusConnectionError = "Connection error. Please try again."
	StatusJoinFailed      = "Failed to connect. Check the room code."
	StatusOpponentLeft    = "Opponent disconnected!"
)

// Status is what the player should be told. Retryable statuses mean
// hosting or joining again may work; nothing retries on its own.
type Status struct {
	Message   string
	Retryable bool
	Err       error
}

func winnerStatus(winner int) Status {
	return Status{Message: fmt.Sprintf("Player %d Wins!", winner)}
}

package ajedrezdto

type CreateSessionRequest struct {
	WhitePlayer int64 `json:"white_player"`
	BlackPlayer int64 `json:"black_player"`
}

// MoveRequest is posted to /api/ajedrez/sessions/{id}/moves.
type MoveRequest struct {
	PlayerID int64  `json:"player_id"`
	Move     string `json:"move"`
}

// MoveResponse carries the outcome tag name and its description.
type MoveResponse struct {
	SessionID   int64  `json:"session_id"`
	Result      string `json:"result"`
	Description string `json:"description"`
}

package game

import "github.com/rocketscienceinc/versus-backend/internal/entity"

// HighestScore - picks the player with the strictly highest score. A tie yields an empty id.
func HighestScore(players []*entity.Player, score func(playerID string) int) string {
	winnerID := ""
	best := 0
	tie := false

	for i, player := range players {
		value := score(player.ID)
		switch {
		case i == 0 || value > best:
			winnerID, best, tie = player.ID, value, false
		case value == best:
			tie = true
		}
	}

	if tie {
		return ""
	}

	return winnerID
}

// LastStanding - returns the single alive player, or ok=false while more than one is alive.
func LastStanding(players []*entity.Player) (winnerID string, ok bool) {
	alive := 0
	for _, player := range players {
		if player.Alive {
			alive++
			winnerID = player.ID
		}
	}

	if alive > 1 {
		return "", false
	}

	return winnerID, true
}

// EndByScore - ends the game in favour of the highest score, as a draw on a tie.
func EndByScore(room Room, reason string, score func(playerID string) int) {
	winnerID := HighestScore(room.Players(), score)
	if winnerID == "" {
		room.End("", ReasonDraw)
		return
	}

	room.End(winnerID, reason)
}

package entity

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxNicknameLength = 12
	DefaultNickname   = "Player"
)

type Player struct {
	ID       string    `json:"id"`
	Nickname string    `json:"nickname"`
	IsHost   bool      `json:"isHost"`
	Ready    bool      `json:"ready"`
	Alive    bool      `json:"alive"`
	Finished bool      `json:"finished"`
	JoinedAt time.Time `json:"joinedAt"`
}

func NewPlayer(id, nickname string) *Player {
	return &Player{
		ID:       id,
		Nickname: SanitizeNickname(nickname),
		JoinedAt: time.Now(),
	}
}

// SanitizeNickname - trims the nickname and cuts it to MaxNicknameLength runes.
func SanitizeNickname(nickname string) string {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return DefaultNickname
	}

	if utf8.RuneCountInString(nickname) > MaxNicknameLength {
		nickname = strings.TrimSpace(string([]rune(nickname)[:MaxNicknameLength]))
	}

	return nickname
}

// ResetForGame - puts the common flags into their in-game zero state.
func (that *Player) ResetForGame() {
	that.Alive = true
	that.Finished = false
}

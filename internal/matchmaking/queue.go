// Package matchmaking pairs players that poll for an opponent of the same game.
//
// There is no push channel: the player who gets matched on someone else's poll finds
// the outcome stored under its id and picks it up on its next poll.
package matchmaking

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/rocketscienceinc/versus-backend/internal/entity"
)

const (
	DefaultStaleAfter = 30 * time.Second
	DefaultResultTTL  = 30 * time.Second
)

// RoomAllocator - provisions the room a new pair is sent to.
type RoomAllocator interface {
	Allocate(ctx context.Context, gameType entity.GameType, settings entity.Settings) (string, error)
}

type Result struct {
	Matched          bool
	RoomID           string
	OpponentNickname string
}

type Options struct {
	StaleAfter time.Duration
	ResultTTL  time.Duration
}

type entry struct {
	playerID string
	nickname string
	gameType entity.GameType
	settings entity.Settings
	joinedAt time.Time
}

type resultKey struct {
	playerID string
	gameType entity.GameType
}

type storedResult struct {
	result    Result
	createdAt time.Time
}

type Queue struct {
	logger    *slog.Logger
	allocator RoomAllocator
	opts      Options

	mu      sync.Mutex
	waiting []entry
	results map[resultKey]storedResult

	now func() time.Time
}

func New(logger *slog.Logger, allocator RoomAllocator, opts Options) *Queue {
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = DefaultStaleAfter
	}
	if opts.ResultTTL <= 0 {
		opts.ResultTTL = DefaultResultTTL
	}

	return &Queue{
		logger:    logger.With("component", "matchmaking"),
		allocator: allocator,
		opts:      opts,
		results:   make(map[resultKey]storedResult),
		now:       time.Now,
	}
}

// Enqueue - one poll. It returns a stored match, pairs the caller with the oldest
// waiting player of the same game, or (re)registers the caller as waiting.
// The room of a new pair takes the waiting player's settings; the caller's only fill
// the fields the waiting player left unset.
func (that *Queue) Enqueue(ctx context.Context, playerID, nickname string, gameType entity.GameType, settings entity.Settings) (Result, error) {
	logger := that.logger.With("method", "Enqueue", "player", playerID, "game", gameType)
	nickname = entity.SanitizeNickname(nickname)

	that.mu.Lock()
	defer that.mu.Unlock()

	now := that.now()
	that.purge(now)

	key := resultKey{playerID: playerID, gameType: gameType}
	if stored, ok := that.results[key]; ok {
		delete(that.results, key)
		logger.Debug("match picked up", "room", stored.result.RoomID)
		return stored.result, nil
	}

	index := slices.IndexFunc(that.waiting, func(e entry) bool {
		return e.gameType == gameType && e.playerID != playerID
	})
	if index < 0 {
		that.upsert(entry{playerID: playerID, nickname: nickname, gameType: gameType, settings: settings, joinedAt: now})
		return Result{}, nil
	}

	opponent := that.waiting[index]
	that.waiting = slices.Delete(that.waiting, index, index+1)

	roomID, err := that.allocator.Allocate(ctx, gameType, opponent.settings.WithDefaults(settings))
	if err != nil {
		that.waiting = slices.Insert(that.waiting, index, opponent)
		return Result{}, fmt.Errorf("failed to allocate room: %w", err)
	}

	that.remove(playerID, gameType)
	that.results[resultKey{playerID: opponent.playerID, gameType: gameType}] = storedResult{
		result:    Result{Matched: true, RoomID: roomID, OpponentNickname: nickname},
		createdAt: now,
	}

	logger.Info("players matched", "opponent", opponent.playerID, "room", roomID)

	return Result{Matched: true, RoomID: roomID, OpponentNickname: opponent.nickname}, nil
}

// Cancel - drops every waiting entry and pending result of the player.
func (that *Queue) Cancel(playerID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.waiting = slices.DeleteFunc(that.waiting, func(e entry) bool {
		return e.playerID == playerID
	})

	for key := range that.results {
		if key.playerID == playerID {
			delete(that.results, key)
		}
	}

	that.logger.Debug("queue cancelled", "player", playerID)
}

// Waiting - number of players currently waiting for gameType.
func (that *Queue) Waiting(gameType entity.GameType) int {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.purge(that.now())

	count := 0
	for _, e := range that.waiting {
		if e.gameType == gameType {
			count++
		}
	}

	return count
}

func (that *Queue) purge(now time.Time) {
	that.waiting = slices.DeleteFunc(that.waiting, func(e entry) bool {
		return now.Sub(e.joinedAt) > that.opts.StaleAfter
	})

	for key, stored := range that.results {
		if now.Sub(stored.createdAt) > that.opts.ResultTTL {
			delete(that.results, key)
		}
	}
}

// upsert - refreshes an existing entry in place so the player keeps its position.
func (that *Queue) upsert(e entry) {
	for i := range that.waiting {
		if that.waiting[i].playerID == e.playerID && that.waiting[i].gameType == e.gameType {
			that.waiting[i].nickname = e.nickname
			that.waiting[i].settings = e.settings
			that.waiting[i].joinedAt = e.joinedAt
			return
		}
	}

	that.waiting = append(that.waiting, e)
}

func (that *Queue) remove(playerID string, gameType entity.GameType) {
	that.waiting = slices.DeleteFunc(that.waiting, func(e entry) bool {
		return e.playerID == playerID && e.gameType == gameType
	})
}

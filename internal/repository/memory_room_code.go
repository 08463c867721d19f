package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rocketscienceinc/versus-backend/internal/apperror"
	"github.com/rocketscienceinc/versus-backend/internal/entity"
)

type reservation struct {
	gameType  entity.GameType
	expiresAt time.Time
}

// MemoryRoomCodes - the in-process code store used when Redis is disabled.
type MemoryRoomCodes struct {
	mu    sync.Mutex
	codes map[string]reservation
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryRoomCodes(ttl time.Duration) *MemoryRoomCodes {
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}

	return &MemoryRoomCodes{
		codes: make(map[string]reservation),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (that *MemoryRoomCodes) Reserve(_ context.Context, code string, gameType entity.GameType) (bool, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.lookup(code); ok {
		return false, nil
	}

	that.codes[code] = reservation{gameType: gameType, expiresAt: that.now().Add(that.ttl)}

	return true, nil
}

func (that *MemoryRoomCodes) GameType(_ context.Context, code string) (entity.GameType, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	entry, ok := that.lookup(code)
	if !ok {
		return "", fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, code)
	}

	return entry.gameType, nil
}

func (that *MemoryRoomCodes) Touch(_ context.Context, code string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if entry, ok := that.lookup(code); ok {
		entry.expiresAt = that.now().Add(that.ttl)
		that.codes[code] = entry
	}

	return nil
}

func (that *MemoryRoomCodes) Release(_ context.Context, code string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.codes, code)

	return nil
}

// lookup - expired entries are dropped on access. Callers hold the lock.
func (that *MemoryRoomCodes) lookup(code string) (reservation, bool) {
	entry, ok := that.codes[code]
	if !ok {
		return reservation{}, false
	}

	if that.now().After(entry.expiresAt) {
		delete(that.codes, code)
		return reservation{}, false
	}

	return entry, true
}

// Package directory maps room codes to live rooms and hands out new codes.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/versus-backend/internal/apperror"
	"github.com/rocketscienceinc/versus-backend/internal/entity"
	"github.com/rocketscienceinc/versus-backend/internal/game"
	"github.com/rocketscienceinc/versus-backend/internal/room"
)

const (
	DefaultMaxCodeAttempts = 10
	DefaultIdleTTL         = 5 * time.Minute
	DefaultSweepInterval   = time.Minute

	infoTimeout    = 2 * time.Second
	releaseTimeout = 2 * time.Second
)

// CodeStore - reservations of room codes shared beyond this process.
type CodeStore interface {
	// Reserve claims code for gameType. It reports false when the code is taken.
	Reserve(ctx context.Context, code string, gameType entity.GameType) (bool, error)
	// GameType returns apperror.ErrRoomNotFound for unknown codes.
	GameType(ctx context.Context, code string) (entity.GameType, error)
	Touch(ctx context.Context, code string) error
	Release(ctx context.Context, code string) error
}

type extensionFactory interface {
	New(gameType entity.GameType) (game.Extension, error)
}

type Options struct {
	Room            room.Options
	Defaults        map[entity.GameType]entity.Settings
	MaxCodeAttempts int
	IdleTTL         time.Duration
	SweepInterval   time.Duration
}

type Directory struct {
	base       *slog.Logger
	logger     *slog.Logger
	store      CodeStore
	extensions extensionFactory
	opts       Options

	mu    sync.Mutex
	rooms map[string]*room.Room

	generate func() (string, error)
	now      func() time.Time
}

func New(logger *slog.Logger, store CodeStore, extensions extensionFactory, opts Options) *Directory {
	if opts.MaxCodeAttempts <= 0 {
		opts.MaxCodeAttempts = DefaultMaxCodeAttempts
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultIdleTTL
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}

	return &Directory{
		base:       logger,
		logger:     logger.With("component", "directory"),
		store:      store,
		extensions: extensions,
		opts:       opts,
		rooms:      make(map[string]*room.Room),
		generate:   GenerateCode,
		now:        time.Now,
	}
}

// Create - allocates a fresh code and starts a waiting room behind it.
func (that *Directory) Create(ctx context.Context, gameType entity.GameType, settings entity.Settings) (*room.Room, error) {
	logger := that.logger.With("method", "Create", "game", gameType)

	ext, err := that.extensions.New(gameType)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= that.opts.MaxCodeAttempts; attempt++ {
		code, err := that.generate()
		if err != nil {
			return nil, err
		}

		if that.registered(code) {
			logger.Debug("code collision in memory", "code", code, "attempt", attempt)
			continue
		}

		reserved, err := that.store.Reserve(ctx, code, gameType)
		if err != nil {
			return nil, fmt.Errorf("failed to reserve room code: %w", err)
		}
		if !reserved {
			logger.Debug("code collision in store", "code", code, "attempt", attempt)
			continue
		}

		r := that.register(code, ext, settings)
		logger.Info("room created", "code", code)

		return r, nil
	}

	logger.Error("room code space exhausted", "attempts", that.opts.MaxCodeAttempts)

	return nil, apperror.ErrCodeSpaceExhausted
}

// Provision - Create for callers that only need the code.
func (that *Directory) Provision(ctx context.Context, gameType entity.GameType, settings entity.Settings) (string, error) {
	r, err := that.Create(ctx, gameType, settings)
	if err != nil {
		return "", err
	}

	return r.ID(), nil
}

// Allocate - provisions the room of a matchmaking pair.
func (that *Directory) Allocate(ctx context.Context, gameType entity.GameType, settings entity.Settings) (string, error) {
	return that.Provision(ctx, gameType, settings)
}

// Lookup - resolves a code. A code known to the store but not to this process is
// brought back as a fresh waiting room.
func (that *Directory) Lookup(ctx context.Context, code string) (*room.Room, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrRoomNotFound, err)
	}

	that.mu.Lock()
	r, ok := that.rooms[code]
	that.mu.Unlock()
	if ok {
		return r, nil
	}

	gameType, err := that.store.GameType(ctx, code)
	if err != nil {
		return nil, err
	}

	ext, err := that.extensions.New(gameType)
	if err != nil {
		return nil, err
	}

	that.logger.Info("room rehydrated", "code", code, "game", gameType)

	return that.register(code, ext, entity.Settings{}), nil
}

// Info - snapshot of the room behind code.
func (that *Directory) Info(ctx context.Context, code string) (entity.RoomInfo, error) {
	r, err := that.Lookup(ctx, code)
	if err != nil {
		return entity.RoomInfo{}, err
	}

	return roomInfo(ctx, r)
}

// ValidateJoin - checks that a room can take one more player of gameType.
func (that *Directory) ValidateJoin(ctx context.Context, gameType entity.GameType, code string) (entity.RoomInfo, error) {
	r, err := that.Lookup(ctx, code)
	if err != nil {
		return entity.RoomInfo{}, err
	}

	if r.GameType() != gameType {
		return entity.RoomInfo{}, fmt.Errorf("%w: %s is a %s room", apperror.ErrGameTypeMismatch, r.ID(), r.GameType())
	}

	info, err := roomInfo(ctx, r)
	if err != nil {
		return entity.RoomInfo{}, err
	}

	if info.IsFull() {
		return info, apperror.ErrRoomFull
	}

	if !info.IsWaiting() {
		return info, apperror.ErrGameInProgress
	}

	return info, nil
}

// Remove - forgets a room, stops it and releases its code.
func (that *Directory) Remove(code string) {
	that.mu.Lock()
	r, ok := that.rooms[code]
	delete(that.rooms, code)
	that.mu.Unlock()

	if !ok {
		return
	}

	r.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	if err := that.store.Release(ctx, code); err != nil {
		that.logger.Warn("failed to release room code", "code", code, "error", err)
	}

	that.logger.Info("room removed", "code", code)
}

// Len - number of live rooms.
func (that *Directory) Len() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.rooms)
}

// Run - sweeps idle rooms until ctx is done, then stops every room.
func (that *Directory) Run(ctx context.Context) {
	ticker := time.NewTicker(that.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			that.Close()
			return
		case <-ticker.C:
			that.Sweep(ctx)
		}
	}
}

// Sweep - removes rooms nobody is connected to once they outlive the idle TTL and
// refreshes the store reservation of the others.
func (that *Directory) Sweep(ctx context.Context) {
	that.mu.Lock()
	rooms := make([]*room.Room, 0, len(that.rooms))
	for _, r := range that.rooms {
		rooms = append(rooms, r)
	}
	that.mu.Unlock()

	now := that.now()
	for _, r := range rooms {
		infoCtx, cancel := context.WithTimeout(ctx, infoTimeout)
		info, err := r.Info(infoCtx)
		cancel()

		if err != nil || (info.Sessions == 0 && now.Sub(info.CreatedAt) > that.opts.IdleTTL) {
			that.logger.Info("sweeping idle room", "code", r.ID())
			that.Remove(r.ID())
			continue
		}

		if err = that.store.Touch(ctx, r.ID()); err != nil {
			that.logger.Warn("failed to refresh room code", "code", r.ID(), "error", err)
		}
	}
}

// Close - stops every room. Codes stay reserved until they expire in the store.
func (that *Directory) Close() {
	that.mu.Lock()
	defer that.mu.Unlock()

	for code, r := range that.rooms {
		r.Stop()
		delete(that.rooms, code)
	}
}

// roomInfo - a room that closed in the meantime counts as not found.
func roomInfo(ctx context.Context, r *room.Room) (entity.RoomInfo, error) {
	info, err := r.Info(ctx)
	if err != nil {
		if errors.Is(err, apperror.ErrRoomClosed) {
			return entity.RoomInfo{}, fmt.Errorf("%w: %w", apperror.ErrRoomNotFound, err)
		}
		return entity.RoomInfo{}, err
	}

	return info, nil
}

func (that *Directory) registered(code string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	_, ok := that.rooms[code]

	return ok
}

// register - starts a room, unless a concurrent lookup already did.
func (that *Directory) register(code string, ext game.Extension, settings entity.Settings) *room.Room {
	that.mu.Lock()
	defer that.mu.Unlock()

	if r, ok := that.rooms[code]; ok {
		return r
	}

	opts := that.opts.Room
	opts.Defaults = that.opts.Defaults[ext.Type()]
	opts.OnClose = func(roomID string) {
		go that.Remove(roomID)
	}

	r := room.New(that.base, code, ext, settings, opts)
	that.rooms[code] = r
	r.Start()

	return r
}

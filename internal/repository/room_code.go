package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/versus-backend/internal/apperror"
	"github.com/rocketscienceinc/versus-backend/internal/entity"
)

const roomCodePrefix = "room:"

// DefaultCodeTTL - how long a code survives in Redis without being refreshed.
const DefaultCodeTTL = 30 * time.Minute

// RoomCodeRepository - room code reservations in Redis, keyed room:<code> and holding the game type.
type RoomCodeRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRoomCodeRepository(client *redis.Client, ttl time.Duration) *RoomCodeRepository {
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}

	return &RoomCodeRepository{
		client: client,
		ttl:    ttl,
	}
}

func (that *RoomCodeRepository) Reserve(ctx context.Context, code string, gameType entity.GameType) (bool, error) {
	reserved, err := that.client.SetNX(ctx, roomCodePrefix+code, string(gameType), that.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve room code: %w", err)
	}

	return reserved, nil
}

func (that *RoomCodeRepository) GameType(ctx context.Context, code string) (entity.GameType, error) {
	response, err := that.client.Get(ctx, roomCodePrefix+code).Result()

	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, code)
	}

	if err != nil {
		return "", fmt.Errorf("failed to get room code: %w", err)
	}

	return entity.ParseGameType(response)
}

func (that *RoomCodeRepository) Touch(ctx context.Context, code string) error {
	if err := that.client.Expire(ctx, roomCodePrefix+code, that.ttl).Err(); err != nil {
		return fmt.Errorf("failed to refresh room code: %w", err)
	}

	return nil
}

func (that *RoomCodeRepository) Release(ctx context.Context, code string) error {
	if err := that.client.Del(ctx, roomCodePrefix+code).Err(); err != nil {
		return fmt.Errorf("failed to release room code: %w", err)
	}

	return nil
}

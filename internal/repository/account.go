package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ttglive/ttg-backend/internal/apperror"
	"github.com/ttglive/ttg-backend/internal/entity"
)

const (
	ResultWin  = "wins"
	ResultLoss = "losses"
	ResultDraw = "draws"

	leaderboardKey = "leaderboard"
)

// AccountRepository is the record store for identities: profile snapshot,
// point balance and win/loss/draw counters. Balance changes go through
// ApplyDelta so concurrent settlements never lose updates.
type AccountRepository interface {
	SaveProfile(ctx context.Context, player *entity.Player, ttl time.Duration) error
	GetProfile(ctx context.Context, id string) (*entity.Player, error)

	Balance(ctx context.Context, id string) (int, error)
	SetBalance(ctx context.Context, id string, amount int, ttl time.Duration) error
	ApplyDelta(ctx context.Context, id string, delta int) (int, error)

	RecordResult(ctx context.Context, id, result string) error
	TopPlayers(ctx context.Context, limit int) ([]*entity.Player, error)
}

type dbAccount struct {
	client *redis.Client
}

func NewAccountRepository(client *redis.Client) AccountRepository {
	return &dbAccount{
		client: client,
	}
}

func (that *dbAccount) SaveProfile(ctx context.Context, player *entity.Player, ttl time.Duration) error {
	playerJSON, err := json.Marshal(player)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}

	if err = that.client.Set(ctx, accountKey(player.ID), playerJSON, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set account: %w", err)
	}

	return nil
}

func (that *dbAccount) GetProfile(ctx context.Context, id string) (*entity.Player, error) {
	response, err := that.client.Get(ctx, accountKey(id)).Result()

	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrAccountNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get account by id: %w", err)
	}

	var player entity.Player
	if err = json.Unmarshal([]byte(response), &player); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}

	if player.Points, err = that.Balance(ctx, id); err != nil {
		return nil, err
	}

	if err = that.fillStats(ctx, &player); err != nil {
		return nil, err
	}

	return &player, nil
}

func (that *dbAccount) Balance(ctx context.Context, id string) (int, error) {
	balance, err := that.client.Get(ctx, balanceKey(id)).Int()

	if errors.Is(err, redis.Nil) {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}

	return balance, nil
}

func (that *dbAccount) SetBalance(ctx context.Context, id string, amount int, ttl time.Duration) error {
	if err := that.client.Set(ctx, balanceKey(id), amount, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set balance: %w", err)
	}

	return nil
}

// ApplyDelta atomically adds delta to the balance and returns the new value.
func (that *dbAccount) ApplyDelta(ctx context.Context, id string, delta int) (int, error) {
	balance, err := that.client.IncrBy(ctx, balanceKey(id), int64(delta)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to apply balance delta: %w", err)
	}

	return int(balance), nil
}

// RecordResult bumps the seat's win/loss/draw counter; wins also feed the
// leaderboard score.
func (that *dbAccount) RecordResult(ctx context.Context, id, result string) error {
	if err := that.client.HIncrBy(ctx, statsKey(id), result, 1).Err(); err != nil {
		return fmt.Errorf("failed to record result: %w", err)
	}

	if result == ResultWin {
		if err := that.client.ZIncrBy(ctx, leaderboardKey, 1, id).Err(); err != nil {
			return fmt.Errorf("failed to update leaderboard: %w", err)
		}
	}

	return nil
}

func (that *dbAccount) TopPlayers(ctx context.Context, limit int) ([]*entity.Player, error) {
	ids, err := that.client.ZRevRange(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	players := make([]*entity.Player, 0, len(ids))
	for _, id := range ids {
		player, err := that.GetProfile(ctx, id)
		if errors.Is(err, apperror.ErrAccountNotFound) {
			// stale leaderboard entry for an expired guest
			continue
		}
		if err != nil {
			return nil, err
		}
		players = append(players, player)
	}

	return players, nil
}

func (that *dbAccount) fillStats(ctx context.Context, player *entity.Player) error {
	stats, err := that.client.HGetAll(ctx, statsKey(player.ID)).Result()
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	parse := func(field string) int {
		n, _ := strconv.Atoi(stats[field])
		return n
	}

	player.Wins = parse(ResultWin)
	player.Losses = parse(ResultLoss)
	player.Draws = parse(ResultDraw)

	return nil
}

func accountKey(id string) string { return "account:" + id }
func balanceKey(id string) string { return "balance:" + id }
func statsKey(id string) string   { return "stats:" + id }

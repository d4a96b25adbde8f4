package storage

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"dreambot/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	categoryCharacters = "characters"
	categoryRules      = "rules"
	categoryWords      = "words"
)

var statisticColumns = map[string]struct{}{
	"top_penalties":     {},
	"total_quits":       {},
	"top_score":         {},
	"top_score_buka":    {},
	"top_score_fairy":   {},
	"top_score_sandman": {},
	"top_score_dreamer": {},
	"total_wins":        {},
}

var achievementColumns = map[string]struct{}{
	"nightmare":     {},
	"dream_master":  {},
	"top_penalties": {},
	"top_dreamer":   {},
	"top_buka":      {},
	"top_fairy":     {},
	"top_sandman":   {},
	"top_score":     {},
}

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRepo(ctx context.Context, connString string) (*PostgresRepo, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	return &PostgresRepo{pool: pool}, nil
}

func (pgr *PostgresRepo) Close() {
	pgr.pool.Close()
}

func wrapDatabaseError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.DatabaseError, err)
}

// RegisterUser inserts the telegram user or refreshes its names, and makes
// sure the statistic and achievement rows exist.
func (pgr *PostgresRepo) RegisterUser(ctx context.Context, user domain.User) (domain.User, error) {
	err := pgx.BeginFunc(ctx, pgr.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO users (id_telegram, first_name, last_name, username)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id_telegram) DO UPDATE
			SET first_name = EXCLUDED.first_name,
			    last_name = EXCLUDED.last_name,
			    username = EXCLUDED.username
			RETURNING id, message_main_last_id, created_at`,
			user.TelegramId, user.FirstName, user.LastName, user.Username)

		if err := row.Scan(&user.Id, &user.LastMainMenuId, &user.CreatedAt); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, "INSERT INTO user_statistic (user_id) VALUES ($1) ON CONFLICT DO NOTHING", user.Id); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, "INSERT INTO user_achievement (user_id) VALUES ($1) ON CONFLICT DO NOTHING", user.Id)
		return err
	})
	if err != nil {
		return domain.User{}, wrapDatabaseError(err)
	}
	return user, nil
}

func (pgr *PostgresRepo) GetUserByTelegramId(ctx context.Context, telegramId int64) (domain.User, error) {
	user := domain.User{TelegramId: telegramId}

	row := pgr.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, username, message_main_last_id, created_at
		FROM users WHERE id_telegram = $1`, telegramId)

	err := row.Scan(&user.Id, &user.FirstName, &user.LastName, &user.Username, &user.LastMainMenuId, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, wrapDatabaseError(err)
	}
	return user, nil
}

func (pgr *PostgresRepo) SetMainMenuMessage(ctx context.Context, telegramId int64, messageId int) error {
	tag, err := pgr.pool.Exec(ctx, "UPDATE users SET message_main_last_id = $2 WHERE id_telegram = $1", telegramId, messageId)
	if err != nil {
		return wrapDatabaseError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func incrementQuery(table string, allowed map[string]struct{}, deltas map[string]int) (string, []any, error) {
	columns := slices.Sorted(maps.Keys(deltas))
	sets := make([]string, 0, len(columns))
	args := make([]any, 1, len(columns)+1)

	for _, column := range columns {
		if _, ok := allowed[column]; !ok {
			return "", nil, fmt.Errorf("%w: %s.%s", domain.ErrUnknownColumn, table, column)
		}
		args = append(args, deltas[column])
		sets = append(sets, fmt.Sprintf("%s = %s + $%d", column, column, len(args)))
	}

	return fmt.Sprintf("UPDATE %s SET %s WHERE user_id = $1", table, strings.Join(sets, ", ")), args, nil
}

func (pgr *PostgresRepo) increment(ctx context.Context, table string, allowed map[string]struct{}, userRef int64, deltas map[string]int) error {
	if len(deltas) == 0 {
		return nil
	}
	query, args, err := incrementQuery(table, allowed, deltas)
	if err != nil {
		return err
	}
	args[0] = userRef

	tag, err := pgr.pool.Exec(ctx, query, args...)
	if err != nil {
		return wrapDatabaseError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// IncrementUserStatistic adds deltas to the lifetime statistic counters of a user.
func (pgr *PostgresRepo) IncrementUserStatistic(ctx context.Context, userRef int64, deltas map[string]int) error {
	return pgr.increment(ctx, "user_statistic", statisticColumns, userRef, deltas)
}

func (pgr *PostgresRepo) IncrementUserAchievements(ctx context.Context, userRef int64, deltas map[string]int) error {
	return pgr.increment(ctx, "user_achievement", achievementColumns, userRef, deltas)
}

func (pgr *PostgresRepo) TouchLastGame(ctx context.Context, userRefs []int64, at time.Time) error {
	if len(userRefs) == 0 {
		return nil
	}
	_, err := pgr.pool.Exec(ctx, "UPDATE user_statistic SET last_game_datetime = $2 WHERE user_id = ANY($1)", userRefs, at)
	if err != nil {
		return wrapDatabaseError(err)
	}
	return nil
}

// DrawWordDeck returns every word card in random order.
func (pgr *PostgresRepo) DrawWordDeck(ctx context.Context) ([]domain.Card, error) {
	rows, err := pgr.pool.Query(ctx, "SELECT id_telegram, name FROM images WHERE category = $1 ORDER BY RANDOM()", categoryWords)
	if err != nil {
		return nil, wrapDatabaseError(err)
	}

	cards, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Card, error) {
		var card domain.Card
		err := row.Scan(&card.FileId, &card.Word)
		return card, err
	})
	if err != nil {
		return nil, wrapDatabaseError(err)
	}
	return cards, nil
}

func (pgr *PostgresRepo) RoleImage(ctx context.Context, role string) (string, error) {
	var fileId string
	row := pgr.pool.QueryRow(ctx, "SELECT id_telegram FROM images WHERE category = $1 AND name = $2", categoryCharacters, role)
	if err := row.Scan(&fileId); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", wrapDatabaseError(err)
	}
	return fileId, nil
}

func (pgr *PostgresRepo) RulesImages(ctx context.Context) ([]string, error) {
	rows, err := pgr.pool.Query(ctx, `SELECT id_telegram FROM images WHERE category = $1 ORDER BY "order", name`, categoryRules)
	if err != nil {
		return nil, wrapDatabaseError(err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, wrapDatabaseError(err)
	}
	return ids, nil
}

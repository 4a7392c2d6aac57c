package credstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"donorlink/internal/client/clienterr"
)

type entry struct {
	bun.BaseModel `bun:"table:kv_entries"`

	Name      string    `bun:"name,pk"`
	Value     string    `bun:"value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// SQLStore keeps entries in a SQLite file.
type SQLStore struct {
	db     *bun.DB
	logger zerolog.Logger
	now    func() time.Time
}

// Open opens (or creates) the store at path. Use ":memory:" for a throwaway store.
func Open(ctx context.Context, path string, logger zerolog.Logger) (*SQLStore, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}
	// ":memory:" databases live per connection.
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if _, err := db.NewCreateTable().Model((*entry)(nil)).IfNotExists().Exec(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create kv_entries: %w", err)
	}

	return &SQLStore{
		db:     db,
		logger: logger.With().Str("component", "credstore").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close releases the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// upsert writes rows, replacing existing values by name.
func (s *SQLStore) upsert(ctx context.Context, db bun.IDB, rows []entry) error {
	_, err := db.NewInsert().
		Model(&rows).
		On("CONFLICT (name) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

// Save writes the token and user in one transaction.
func (s *SQLStore) Save(ctx context.Context, c Credentials) error {
	const op = "credstore.Save"
	if !c.Valid() {
		return clienterr.Wrap(op, clienterr.KindValidation, "Incomplete session.", ErrInvalidCredentials)
	}
	rawUser, err := encodeUser(c.User)
	if err != nil {
		return clienterr.Persistence(op, err)
	}

	now := s.now()
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return s.upsert(ctx, tx, []entry{
			{Name: KeyToken, Value: c.Token, UpdatedAt: now},
			{Name: KeyUser, Value: rawUser, UpdatedAt: now},
		})
	})
	if err != nil {
		return clienterr.Persistence(op, err)
	}
	return nil
}

// Load reads the pair in one transaction and clears a half-written one.
func (s *SQLStore) Load(ctx context.Context) (Credentials, bool, error) {
	const op = "credstore.Load"
	var (
		creds  Credentials
		ok     bool
		broken bool
	)

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var rows []entry
		if err := tx.NewSelect().
			Model(&rows).
			Where("name IN (?)", bun.In([]string{KeyToken, KeyUser})).
			Scan(ctx); err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		var token, rawUser string
		for _, r := range rows {
			switch r.Name {
			case KeyToken:
				token = r.Value
			case KeyUser:
				rawUser = r.Value
			}
		}

		creds, ok = decodePair(token, rawUser)
		if ok {
			return nil
		}

		broken = true
		_, err := tx.NewDelete().
			Model((*entry)(nil)).
			Where("name IN (?)", bun.In([]string{KeyToken, KeyUser})).
			Exec(ctx)
		return err
	})
	if err != nil {
		return Credentials{}, false, clienterr.Persistence(op, err)
	}
	if broken {
		s.logger.Warn().Msg("Discarded incomplete stored session")
	}
	return creds, ok, nil
}

// Clear deletes the token and user in one transaction. Other keys are kept.
func (s *SQLStore) Clear(ctx context.Context) error {
	_, err := s.db.NewDelete().
		Model((*entry)(nil)).
		Where("name IN (?)", bun.In([]string{KeyToken, KeyUser})).
		Exec(ctx)
	if err != nil {
		return clienterr.Persistence("credstore.Clear", err)
	}
	return nil
}

// get reads one key through db, which may be a transaction.
func (s *SQLStore) get(ctx context.Context, db bun.IDB, key string) (string, bool, error) {
	var e entry
	err := db.NewSelect().Model(&e).Where("name = ?", key).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return e.Value, true, nil
}

// Get returns the value stored under key.
func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := s.get(ctx, s.db, key)
	if err != nil {
		return "", false, clienterr.Persistence("credstore.Get", err)
	}
	return v, ok, nil
}

// Set stores value under key, replacing any previous value.
func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	if err := s.upsert(ctx, s.db, []entry{{Name: key, Value: value, UpdatedAt: s.now()}}); err != nil {
		return clienterr.Persistence("credstore.Set", err)
	}
	return nil
}

// Delete removes key. A missing key is not an error.
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.NewDelete().Model((*entry)(nil)).Where("name = ?", key).Exec(ctx); err != nil {
		return clienterr.Persistence("credstore.Delete", err)
	}
	return nil
}

// Take returns the value under key and deletes it in the same transaction.
func (s *SQLStore) Take(ctx context.Context, key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		value, found, err = s.get(ctx, tx, key)
		if err != nil || !found {
			return err
		}
		_, err = tx.NewDelete().Model((*entry)(nil)).Where("name = ?", key).Exec(ctx)
		return err
	})
	if err != nil {
		return "", false, clienterr.Persistence("credstore.Take", err)
	}
	return value, found, nil
}

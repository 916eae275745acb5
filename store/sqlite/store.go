// Package sqlite implements store.Store on SQLite through the grove ORM.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/iou"
	"github.com/xraph/iou/id"
	"github.com/xraph/iou/journal"
	ioustore "github.com/xraph/iou/store"
)

// compile-time interface check
var _ ioustore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("iou/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("iou/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Journal ====================

func (s *Store) AppendEntry(ctx context.Context, e *journal.Entry) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("%w: %w", iou.ErrInvalidInput, err)
	}

	m, err := toEntryModel(e)
	if err != nil {
		return err
	}
	res, err := s.sdb.NewInsert(m).
		OnConflict("(contract_id, seq) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s seq %d", iou.ErrAlreadyExists, e.ContractID, e.Seq)
	}
	return nil
}

func (s *Store) ListEntries(ctx context.Context, contractID id.ContractID, afterSeq int64) ([]*journal.Entry, error) {
	var models []entryModel
	err := s.sdb.NewSelect(&models).
		Where("contract_id = ?", contractID.String()).
		Where("seq > ?", afterSeq).
		OrderExpr("seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return fromEntryModels(models)
}

func (s *Store) ListIssuances(ctx context.Context, opts journal.ListOpts) ([]*journal.Entry, error) {
	var models []entryModel
	q := s.sdb.NewSelect(&models).Where("op = ?", string(journal.OpIssue))

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("recorded_at ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromEntryModels(models)
}

// ==================== Checkpoints ====================

func (s *Store) SaveCheckpoint(ctx context.Context, cp *journal.Checkpoint) error {
	m, err := toCheckpointModel(cp)
	if err != nil {
		return err
	}
	_, err = s.sdb.NewInsert(m).
		OnConflict("(contract_id) DO UPDATE").
		Set("seq = EXCLUDED.seq").
		Set("state = EXCLUDED.state").
		Set("taken_at = EXCLUDED.taken_at").
		Exec(ctx)
	return err
}

func (s *Store) GetCheckpoint(ctx context.Context, contractID id.ContractID) (*journal.Checkpoint, error) {
	m := new(checkpointModel)
	err := s.sdb.NewSelect(m).
		Where("contract_id = ?", contractID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, iou.ErrCheckpointNotFound
		}
		return nil, err
	}
	return fromCheckpointModel(m)
}

func fromEntryModels(models []entryModel) ([]*journal.Entry, error) {
	result := make([]*journal.Entry, len(models))
	for i := range models {
		e, err := fromEntryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

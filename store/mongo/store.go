// Package mongo implements store.Store on MongoDB through the grove ORM.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/iou"
	"github.com/xraph/iou/id"
	"github.com/xraph/iou/journal"
	ioustore "github.com/xraph/iou/store"
)

// Collection name constants.
const (
	colJournal     = "iou_journal"
	colCheckpoints = "iou_checkpoints"
)

// compile-time interface check
var _ ioustore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all IOU collections. The unique
// (contract_id, seq) index is what detects concurrent writers.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("iou/mongo: migrate %s indexes: %w", col, err)
		}
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

	_, err := s.mdb.NewInsert(toEntryModel(e)).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s seq %d", iou.ErrAlreadyExists, e.ContractID, e.Seq)
		}
		return fmt.Errorf("iou/mongo: append entry: %w", err)
	}
	return nil
}

func (s *Store) ListEntries(ctx context.Context, contractID id.ContractID, afterSeq int64) ([]*journal.Entry, error) {
	var models []entryModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{
			"contract_id": contractID.String(),
			"seq":         bson.M{"$gt": afterSeq},
		}).
		Sort(bson.D{{Key: "seq", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("iou/mongo: list entries: %w", err)
	}
	return fromEntryModels(models)
}

func (s *Store) ListIssuances(ctx context.Context, opts journal.ListOpts) ([]*journal.Entry, error) {
	var models []entryModel
	q := s.mdb.NewFind(&models).
		Filter(bson.M{"op": string(journal.OpIssue)}).
		Sort(bson.D{{Key: "recorded_at", Value: 1}, {Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("iou/mongo: list issuances: %w", err)
	}
	return fromEntryModels(models)
}

// ==================== Checkpoints ====================

// SaveCheckpoint upserts cp unless a newer checkpoint is already stored. In
// that case the filter misses, the upsert collides on _id and the older
// checkpoint is dropped.
func (s *Store) SaveCheckpoint(ctx context.Context, cp *journal.Checkpoint) error {
	m := toCheckpointModel(cp)

	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ContractID, "seq": bson.M{"$lt": m.Seq}}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":        m.ContractID,
			"seq":        m.Seq,
			"record":     m.Record,
			"balances":   m.Balances,
			"allowances": m.Allowances,
			"taken_at":   m.TakenAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("iou/mongo: save checkpoint: %w", err)
	}
	return nil
}

func (s *Store) GetCheckpoint(ctx context.Context, contractID id.ContractID) (*journal.Checkpoint, error) {
	var m checkpointModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": contractID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, iou.ErrCheckpointNotFound
		}
		return nil, fmt.Errorf("iou/mongo: get checkpoint: %w", err)
	}
	return fromCheckpointModel(&m)
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

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all IOU collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colJournal: {
			{
				Keys:    bson.D{{Key: "contract_id", Value: 1}, {Key: "seq", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "op", Value: 1}, {Key: "recorded_at", Value: 1}}},
		},
		colCheckpoints: {},
	}
}

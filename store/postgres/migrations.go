package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the IOU store.
var Migrations = migrate.NewGroup("iou")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_iou_journal",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS iou_journal (
    id          TEXT PRIMARY KEY,
    contract_id TEXT NOT NULL,
    seq         BIGINT NOT NULL,
    op          TEXT NOT NULL,
    caller      TEXT NOT NULL DEFAULT '',
    args        JSONB NOT NULL DEFAULT '{}',
    events      JSONB NOT NULL DEFAULT '[]',
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT iou_journal_contract_seq UNIQUE (contract_id, seq),
    CONSTRAINT iou_journal_seq_positive CHECK (seq > 0)
);

CREATE INDEX IF NOT EXISTS idx_iou_journal_issuances ON iou_journal (recorded_at, id) WHERE op = 'issue';
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS iou_journal`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_iou_checkpoints",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS iou_checkpoints (
    contract_id TEXT PRIMARY KEY,
    seq         BIGINT NOT NULL,
    record      JSONB NOT NULL,
    balances    JSONB NOT NULL DEFAULT '{}',
    allowances  JSONB NOT NULL DEFAULT '[]',
    taken_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS iou_checkpoints`)
				return err
			},
		},
	)
}

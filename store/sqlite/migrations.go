package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the IOU store (SQLite).
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
    seq         INTEGER NOT NULL,
    op          TEXT NOT NULL,
    caller      TEXT NOT NULL DEFAULT '',
    args        TEXT NOT NULL DEFAULT '{}',
    events      TEXT NOT NULL DEFAULT '[]',
    recorded_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_iou_journal_contract_seq ON iou_journal (contract_id, seq);
CREATE INDEX IF NOT EXISTS idx_iou_journal_op ON iou_journal (op, recorded_at);
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
    seq         INTEGER NOT NULL,
    state       TEXT NOT NULL DEFAULT '{}',
    taken_at    TEXT NOT NULL DEFAULT (datetime('now'))
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

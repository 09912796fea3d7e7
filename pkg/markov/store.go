package markov

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// SetupSchema initializes the snapshot tables in the provided database. It is
// idempotent and safe to call on an already-initialized database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaSnapshots = `
CREATE TABLE IF NOT EXISTS model_snapshots (
    snapshot_id INTEGER PRIMARY KEY,
    fingerprint TEXT NOT NULL UNIQUE,
    model_order INTEGER NOT NULL,
    token_stream BLOB NOT NULL,
    created_at INTEGER NOT NULL
);
`
		schemaVocab = `
CREATE TABLE IF NOT EXISTS snapshot_vocabulary (
    snapshot_id INTEGER NOT NULL,
    token_id INTEGER NOT NULL,
    token_text TEXT NOT NULL,
    PRIMARY KEY (snapshot_id, token_id)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	// If the transaction succeeds, tx.Commit() will be called first, and the rollback will do nothing. If it fails, this will clean up.
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaSnapshots); err != nil {
		return fmt.Errorf("could not create snapshot schema: %w", err)
	}

	if _, err = tx.Exec(schemaVocab); err != nil {
		return fmt.Errorf("could not create vocabulary schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// Fingerprint identifies a corpus together with the settings that shape the
// built model. Two loads with equal fingerprints produce identical models.
func Fingerprint(corpus []byte, cfg Config) string {
	h := sha256.New()
	h.Write(corpus)
	var buf []byte
	for _, v := range []int{cfg.StartLine, cfg.EndLine, cfg.Order, cfg.VocabSize} {
		buf = strconv.AppendInt(append(buf, ' '), int64(v), 10)
	}
	h.Write(buf)
	return hex.EncodeToString(h.Sum(nil))
}

// Store caches built models in SQLite. It holds prepared statements and must
// be closed when no longer needed.
type Store struct {
	db                *sql.DB
	stmtGetSnapshot   *sql.Stmt
	stmtGetVocab      *sql.Stmt
	stmtCountSnapshot *sql.Stmt
}

// NewStore prepares the statements used by the store. SetupSchema must have
// been called on db first.
func NewStore(db *sql.DB) (*Store, error) {
	stmtGetSnapshot, err := db.Prepare(`SELECT snapshot_id, model_order, token_stream FROM model_snapshots WHERE fingerprint = ?;`)
	if err != nil {
		return nil, err
	}

	stmtGetVocab, err := db.Prepare(`SELECT token_id, token_text FROM snapshot_vocabulary WHERE snapshot_id = ? ORDER BY token_id;`)
	if err != nil {
		return nil, err
	}

	stmtCountSnapshot, err := db.Prepare(`SELECT COUNT(*) FROM model_snapshots;`)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:                db,
		stmtGetSnapshot:   stmtGetSnapshot,
		stmtGetVocab:      stmtGetVocab,
		stmtCountSnapshot: stmtCountSnapshot,
	}, nil
}

// Close releases all prepared SQL statements held by the Store.
func (s *Store) Close() {
	_ = s.stmtGetSnapshot.Close()
	_ = s.stmtGetVocab.Close()
	_ = s.stmtCountSnapshot.Close()
}

// Count returns the number of stored snapshots.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.stmtCountSnapshot.QueryRowContext(ctx).Scan(&n)
	return n, err
}

// Save stores m under fingerprint, replacing any snapshot with the same
// fingerprint. The operation is performed within a transaction.
func (s *Store) Save(ctx context.Context, fingerprint string, m *Model) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction for snapshot: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.ExecContext(ctx, "DELETE FROM snapshot_vocabulary WHERE snapshot_id IN (SELECT snapshot_id FROM model_snapshots WHERE fingerprint = ?)", fingerprint); err != nil {
		return fmt.Errorf("failed to remove old snapshot vocabulary: %w", err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM model_snapshots WHERE fingerprint = ?", fingerprint); err != nil {
		return fmt.Errorf("failed to remove old snapshot: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO model_snapshots (fingerprint, model_order, token_stream, created_at) VALUES (?, ?, ?, ?)",
		fingerprint, m.cfg.Order, encodeStream(m.stream), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	snapshotID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read snapshot id: %w", err)
	}

	stmtInsertVocab, err := tx.PrepareContext(ctx, `INSERT INTO snapshot_vocabulary (snapshot_id, token_id, token_text) VALUES (?, ?, ?);`)
	if err != nil {
		return fmt.Errorf("failed to prepare vocabulary insert statement: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		_ = stmt.Close()
	}(stmtInsertVocab)

	for id, text := range m.vocab.Tokens() {
		if _, err = stmtInsertVocab.ExecContext(ctx, snapshotID, id, text); err != nil {
			return fmt.Errorf("failed to insert vocabulary token %d: %w", id, err)
		}
	}

	m.logger.InfoContext(ctx, "Model snapshot saved",
		slog.String("fingerprint", fingerprint),
		slog.Int64("snapshot_id", snapshotID),
		slog.Int("vocab_size", m.vocab.Len()),
		slog.Int("stream_length", len(m.stream)),
	)

	return tx.Commit()
}

// Load rebuilds the model stored under fingerprint. It returns
// ErrSnapshotNotFound when no such snapshot exists. The transition table is
// not stored; it is rebuilt from the stored token stream.
func (s *Store) Load(ctx context.Context, fingerprint string, cfg Config, opts ...LoadOption) (*Model, error) {
	options := newLoadOptions(opts)

	var snapshotID int64
	var order int
	var blob []byte
	err := s.stmtGetSnapshot.QueryRowContext(ctx, fingerprint).Scan(&snapshotID, &order, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	if order != cfg.Order {
		return nil, fmt.Errorf("consistency error: snapshot order %d does not match configured order %d", order, cfg.Order)
	}

	rows, err := s.stmtGetVocab.QueryContext(ctx, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot vocabulary: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var ranked []string
	for rows.Next() {
		var id int
		var text string
		if err = rows.Scan(&id, &text); err != nil {
			return nil, err
		}
		if id != len(ranked) {
			return nil, fmt.Errorf("consistency error: snapshot vocabulary id %d out of sequence", id)
		}
		ranked = append(ranked, text)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	stream, err := decodeStream(blob, len(ranked))
	if err != nil {
		return nil, err
	}

	return newModel(cfg, newVocabulary(ranked), stream, options.logger)
}

// Prune deletes all but the newest keep snapshots and returns how many were
// removed. The newest snapshot is always kept, so keep values below 1 act as 1.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		keep = 1
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("could not begin transaction for pruning: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	const newest = `SELECT snapshot_id FROM model_snapshots ORDER BY created_at DESC LIMIT ?`

	if _, err = tx.ExecContext(ctx, "DELETE FROM snapshot_vocabulary WHERE snapshot_id NOT IN ("+newest+")", keep); err != nil {
		return 0, fmt.Errorf("failed to prune snapshot vocabulary: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM model_snapshots WHERE snapshot_id NOT IN ("+newest+")", keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	removed, _ := res.RowsAffected()

	return removed, tx.Commit()
}

// encodeStream packs ids as signed varints so Sentinel survives the round trip.
func encodeStream(stream []int) []byte {
	buf := make([]byte, 0, 2*len(stream))
	for _, id := range stream {
		buf = binary.AppendVarint(buf, int64(id))
	}
	return buf
}

func decodeStream(blob []byte, vocabSize int) ([]int, error) {
	stream := make([]int, 0, len(blob)/2)
	for len(blob) > 0 {
		v, n := binary.Varint(blob)
		if n <= 0 {
			return nil, errors.New("consistency error: malformed token stream")
		}
		if v < Sentinel || v >= int64(vocabSize) {
			return nil, fmt.Errorf("consistency error: token id %d outside vocabulary", v)
		}
		stream = append(stream, int(v))
		blob = blob[n:]
	}
	return stream, nil
}

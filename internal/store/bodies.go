package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/golang/snappy"

	"github.com/roach88/mirkit/internal/mir"
	"github.com/roach88/mirkit/internal/mircodec"
)

// ErrNotFound is returned when no body is cached under a key.
var ErrNotFound = errors.New("body not found")

// ErrCorrupt is returned when a cached payload no longer matches its
// fingerprint.
var ErrCorrupt = errors.New("body payload corrupt")

// Channel selects how a body is encoded.
type Channel string

const (
	// Incremental keeps crate-local payloads. Used for the same-crate cache.
	Incremental Channel = "incremental"
	// Metadata clears crate-local payloads. Used for cross-crate metadata.
	Metadata Channel = "metadata"
)

// ParseChannel parses a channel name.
func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case Incremental, Metadata:
		return Channel(s), nil
	}
	return "", fmt.Errorf("unknown channel %q (want %q or %q)", s, Incremental, Metadata)
}

func (c Channel) clearCrossCrate() bool { return c == Metadata }

// Entry describes one cached body.
type Entry struct {
	Source      mir.MirSource
	Channel     Channel
	Phase       mir.MirPhase
	Fingerprint uint64
	RawSize     int
	StoredSize  int
	Seq         int64
}

// Fingerprint is the xxhash64 of a body's encoding on channel ch.
func Fingerprint(body *mir.Body, ch Channel) uint64 {
	return xxhash.Sum64(mircodec.Marshal(body, ch.clearCrossCrate()))
}

// PutBody encodes body on channel ch and caches it under its source and
// phase. When the cached fingerprint already matches, nothing is written
// and changed is false.
func (s *Store) PutBody(ctx context.Context, ch Channel, body *mir.Body) (Entry, bool, error) {
	raw := mircodec.Marshal(body, ch.clearCrossCrate())
	payload := snappy.Encode(nil, raw)
	entry := Entry{
		Source:      body.Source,
		Channel:     ch,
		Phase:       body.Phase,
		Fingerprint: xxhash.Sum64(raw),
		RawSize:     len(raw),
		StoredSize:  len(payload),
	}
	def := body.Source.DefID()
	promoted := promotedKey(body.Source.Promoted)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		oldFP  int64
		oldSeq int64
	)
	err = tx.QueryRowContext(ctx, `
		SELECT fingerprint, seq FROM bodies
		WHERE def_crate = ? AND def_index = ? AND promoted = ? AND channel = ? AND phase = ?
	`, def.Crate, def.Index, promoted, string(ch), body.Phase.String()).Scan(&oldFP, &oldSeq)
	switch {
	case err == nil && uint64(oldFP) == entry.Fingerprint:
		entry.Seq = oldSeq
		return entry, false, nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return Entry{}, false, fmt.Errorf("read fingerprint: %w", err)
	}

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM bodies`).Scan(&entry.Seq); err != nil {
		return Entry{}, false, fmt.Errorf("next seq: %w", err)
	}

	// go-sqlite3 rejects uint64 values with the high bit set.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO bodies (def_crate, def_index, promoted, name, channel, phase, fingerprint, raw_size, payload, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (def_crate, def_index, promoted, channel, phase) DO UPDATE SET
			name = excluded.name,
			fingerprint = excluded.fingerprint,
			raw_size = excluded.raw_size,
			payload = excluded.payload,
			seq = excluded.seq
	`, def.Crate, def.Index, promoted, body.Source.Instance.Name, string(ch), body.Phase.String(),
		int64(entry.Fingerprint), entry.RawSize, payload, entry.Seq)
	if err != nil {
		return Entry{}, false, fmt.Errorf("insert body %s: %w", body.Source, err)
	}

	if err := tx.Commit(); err != nil {
		return Entry{}, false, fmt.Errorf("commit: %w", err)
	}
	return entry, true, nil
}

// GetBody loads and decodes the body cached for src at phase on channel ch.
// Returns ErrNotFound when nothing is cached and ErrCorrupt when the
// payload does not match its fingerprint.
func (s *Store) GetBody(ctx context.Context, ch Channel, src mir.MirSource, phase mir.MirPhase) (*mir.Body, error) {
	def := src.DefID()
	var (
		fp      int64
		payload []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT fingerprint, payload FROM bodies
		WHERE def_crate = ? AND def_index = ? AND promoted = ? AND channel = ? AND phase = ?
	`, def.Crate, def.Index, promotedKey(src.Promoted), string(ch), phase.String()).Scan(&fp, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s at %s on %s: %w", src, phase, ch, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read body %s: %w", src, err)
	}

	raw, err := snappy.Decode(nil, payload)
	if err != nil {
		return nil, fmt.Errorf("%s: decompress: %v: %w", src, err, ErrCorrupt)
	}
	if xxhash.Sum64(raw) != uint64(fp) {
		return nil, fmt.Errorf("%s: fingerprint mismatch: %w", src, ErrCorrupt)
	}

	body, err := mircodec.Unmarshal(raw, ch.clearCrossCrate())
	if err != nil {
		return nil, fmt.Errorf("decode body %s: %w", src, err)
	}
	return body, nil
}

// List returns every entry on channel ch in write order.
func (s *Store) List(ctx context.Context, ch Channel) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT def_crate, def_index, promoted, name, phase, fingerprint, raw_size, length(payload), seq
		FROM bodies
		WHERE channel = ?
		ORDER BY seq ASC, name COLLATE BINARY ASC
	`, string(ch))
	if err != nil {
		return nil, fmt.Errorf("query bodies: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			def      mir.DefID
			promoted int64
			name     string
			phase    string
			fp       int64
		)
		if err := rows.Scan(&def.Crate, &def.Index, &promoted, &name, &phase, &fp, &e.RawSize, &e.StoredSize, &e.Seq); err != nil {
			return nil, fmt.Errorf("scan body row: %w", err)
		}
		e.Source = mir.MirSourceItem(def, name)
		if promoted >= 0 {
			p := mir.Promoted(promoted)
			e.Source.Promoted = &p
		}
		if e.Phase, err = mir.ParsePhaseName(phase); err != nil {
			return nil, fmt.Errorf("body %s: stored phase: %w", e.Source, err)
		}
		e.Channel = ch
		e.Fingerprint = uint64(fp)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bodies: %w", err)
	}
	return entries, nil
}

// Delete removes every phase of src from channel ch and reports how many
// rows went.
func (s *Store) Delete(ctx context.Context, ch Channel, src mir.MirSource) (int64, error) {
	def := src.DefID()
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM bodies
		WHERE def_crate = ? AND def_index = ? AND promoted = ? AND channel = ?
	`, def.Crate, def.Index, promotedKey(src.Promoted), string(ch))
	if err != nil {
		return 0, fmt.Errorf("delete body %s: %w", src, err)
	}
	return res.RowsAffected()
}

func promotedKey(p *mir.Promoted) int64 {
	if p == nil {
		return -1
	}
	return int64(*p)
}

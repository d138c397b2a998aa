package indexdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
)

var ErrNotFound = errors.New("not found")

type TurnRow struct {
	Turn            uint64 `json:"turn"`
	Digest          string `json:"digest"`
	Rebuilt         bool   `json:"rebuilt"`
	Networks        int    `json:"networks"`
	TotalCapacity   int    `json:"total_capacity"`
	TotalStored     int    `json:"total_stored"`
	ReservoirStored int    `json:"reservoir_stored"`
	Edits           int    `json:"edits"`
}

type NetworkRow struct {
	Turn              uint64 `json:"turn"`
	NetworkID         int    `json:"network_id"`
	Nodes             int    `json:"nodes"`
	StorageCapacity   int    `json:"storage_capacity"`
	StoredEnergy      int    `json:"stored_energy"`
	Produced          int    `json:"produced"`
	Demand            int    `json:"demand"`
	WorkingGenerators int    `json:"working_generators"`
	Satisfied         bool   `json:"satisfied"`
}

// Reader opens an index for queries only. It does not start a writer.
type Reader struct {
	db *sql.DB
}

func OpenReader(path string) (*Reader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return &Reader{db: db}, nil
}

func (r *Reader) Close() error { return r.db.Close() }

func (r *Reader) Turn(ctx context.Context, turn uint64) (TurnRow, error) {
	var (
		row     TurnRow
		rebuilt int
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT turn,digest,rebuilt,networks,total_capacity,total_stored,reservoir_stored,edits FROM turns WHERE turn=?`,
		int64(turn),
	).Scan(&row.Turn, &row.Digest, &rebuilt, &row.Networks, &row.TotalCapacity, &row.TotalStored, &row.ReservoirStored, &row.Edits)
	if errors.Is(err, sql.ErrNoRows) {
		return TurnRow{}, fmt.Errorf("turn %d: %w", turn, ErrNotFound)
	}
	if err != nil {
		return TurnRow{}, err
	}
	row.Rebuilt = rebuilt != 0
	return row, nil
}

func (r *Reader) LastTurn(ctx context.Context) (uint64, error) {
	var last sql.NullInt64
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(turn) FROM turns`).Scan(&last); err != nil {
		return 0, err
	}
	if !last.Valid {
		return 0, ErrNotFound
	}
	return uint64(last.Int64), nil
}

// NetworkHistory returns per-turn rows for one network id in [from, to].
func (r *Reader) NetworkHistory(ctx context.Context, networkID int, from, to uint64) ([]NetworkRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT turn,network_id,nodes,storage_capacity,stored_energy,produced,demand,working_generators,satisfied
		 FROM network_turns WHERE network_id=? AND turn BETWEEN ? AND ? ORDER BY turn`,
		networkID, int64(from), int64(to),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []NetworkRow
	for rows.Next() {
		var (
			n         NetworkRow
			satisfied int
		)
		if err := rows.Scan(&n.Turn, &n.NetworkID, &n.Nodes, &n.StorageCapacity, &n.StoredEnergy, &n.Produced, &n.Demand, &n.WorkingGenerators, &satisfied); err != nil {
			return nil, err
		}
		n.Satisfied = satisfied != 0
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *Reader) ChangeCount(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM changes`).Scan(&n)
	return n, err
}

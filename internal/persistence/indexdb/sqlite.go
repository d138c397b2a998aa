package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"voltfront.ai/internal/sim/catalogs"
	"voltfront.ai/internal/sim/power"
	"voltfront.ai/internal/sim/tuning"
)

// SQLiteIndex is a queryable read-model of the turn log. Writes are queued
// and applied by a single goroutine; the JSONL log stays the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropTurnTotal   atomic.Uint64
	dropChangeTotal atomic.Uint64
	writeFailTotal  atomic.Uint64
}

type reqKind int

const (
	reqTurn reqKind = iota + 1
	reqChange
)

type req struct {
	kind reqKind

	turn   power.TurnReport
	change power.Change
}

type Stats struct {
	QueueDepth      int    `json:"queue_depth"`
	QueueCapacity   int    `json:"queue_capacity"`
	DropTurnTotal   uint64 `json:"drop_turn_total"`
	DropChangeTotal uint64 `json:"drop_change_total"`
	WriteFailTotal  uint64 `json:"write_fail_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS turns (
			turn INTEGER PRIMARY KEY,
			digest TEXT NOT NULL,
			rebuilt INTEGER NOT NULL,
			networks INTEGER NOT NULL,
			total_capacity INTEGER NOT NULL,
			total_stored INTEGER NOT NULL,
			reservoir_stored INTEGER NOT NULL,
			edits INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS network_turns (
			turn INTEGER NOT NULL,
			network_id INTEGER NOT NULL,
			nodes INTEGER NOT NULL,
			storage_capacity INTEGER NOT NULL,
			stored_energy INTEGER NOT NULL,
			produced INTEGER NOT NULL,
			demand INTEGER NOT NULL,
			working_generators INTEGER NOT NULL,
			satisfied INTEGER NOT NULL,
			PRIMARY KEY (turn, network_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_network_turns_network ON network_turns(network_id, turn);`,
		`CREATE TABLE IF NOT EXISTS edits (
			turn INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			op TEXT NOT NULL,
			category TEXT,
			q INTEGER,
			r INTEGER,
			device_id TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (turn, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_edits_device ON edits(device_id, turn);`,
		`CREATE TABLE IF NOT EXISTS changes (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			turn INTEGER NOT NULL,
			generation INTEGER NOT NULL,
			reason TEXT NOT NULL,
			highlighted INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// WriteTurn queues a turn report. It never blocks the caller and never
// fails; a full queue drops the report and counts it.
func (s *SQLiteIndex) WriteTurn(r power.TurnReport) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTurn, turn: r}:
	default:
		s.dropTurnTotal.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) WriteChange(c power.Change) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqChange, change: c}:
	default:
		s.dropChangeTotal.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:      len(s.ch),
		QueueCapacity:   cap(s.ch),
		DropTurnTotal:   s.dropTurnTotal.Load(),
		DropChangeTotal: s.dropChangeTotal.Load(),
		WriteFailTotal:  s.writeFailTotal.Load(),
	}
}

// UpsertCatalogs records the device catalog and the tuning actually applied.
func (s *SQLiteIndex) UpsertCatalogs(cat *catalogs.Catalog, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if cat != nil {
		kinds := make([]catalogs.KindDef, 0, len(cat.Kinds))
		for _, id := range cat.KindIDs() {
			kinds = append(kinds, cat.Kinds[id])
		}
		if b, _ := json.Marshal(kinds); len(b) > 0 {
			rows = append(rows, kv{name: "devices", digest: cat.Digest, json: b})
		}
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTurn, _ := s.db.Prepare(`INSERT OR REPLACE INTO turns(turn,digest,rebuilt,networks,total_capacity,total_stored,reservoir_stored,edits,raw_json) VALUES(?,?,?,?,?,?,?,?,?)`)
	insertNetwork, _ := s.db.Prepare(`INSERT OR REPLACE INTO network_turns(turn,network_id,nodes,storage_capacity,stored_energy,produced,demand,working_generators,satisfied) VALUES(?,?,?,?,?,?,?,?,?)`)
	insertEdit, _ := s.db.Prepare(`INSERT OR REPLACE INTO edits(turn,seq,op,category,q,r,device_id,raw_json) VALUES(?,?,?,?,?,?,?,?)`)
	insertChange, _ := s.db.Prepare(`INSERT INTO changes(turn,generation,reason,highlighted) VALUES(?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertTurn, insertNetwork, insertEdit, insertChange} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.writeFailTotal.Add(1)
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		s.writeFailTotal.Add(1)
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil || tx == nil {
			return false
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTurn:
			t := r.turn
			raw, _ := json.Marshal(t)
			if !exec(insertTurn,
				int64(t.Turn),
				t.Digest,
				boolInt(t.Rebuilt),
				t.Stats.Networks,
				t.Stats.TotalCapacity,
				t.Stats.TotalStored,
				t.Stats.ReservoirStored,
				len(t.Edits),
				string(raw),
			) {
				continue
			}
			for _, n := range t.Networks {
				if !exec(insertNetwork,
					int64(t.Turn), n.ID, n.Nodes, n.StorageCapacity, n.StoredEnergy,
					n.Produced, n.Demand, n.WorkingGenerators, boolInt(n.Satisfied),
				) {
					break
				}
			}
			for i, e := range t.Edits {
				if tx == nil {
					break
				}
				var q, rr any
				if e.Pos != nil {
					q, rr = e.Pos.Q, e.Pos.R
				}
				editJSON, _ := json.Marshal(e)
				if !exec(insertEdit, int64(t.Turn), i, e.Op, e.Category, q, rr, e.DeviceID, string(editJSON)) {
					break
				}
			}

		case reqChange:
			c := r.change
			exec(insertChange, int64(c.Turn), int64(c.Generation), c.Reason, c.Highlighted)
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package trackmatch

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ntuple_schema.sql defines the track_match pair ntuple and the svtx_seeds
// table of produced seeds. Rows of both are keyed by the run that wrote them,
// so event numbers restart safely when a file is written more than once.
//
//go:embed ntuple_schema.sql
var ntupleSchema string

const flushEvery = 1000

const insertPairSQL = `
	INSERT INTO track_match (
		run, event, sicrossing,
		siq, siphi, sieta, six, siy, siz, sipx, sipy, sipz,
		tpcq, tpcpt, tpcphi, tpceta, tpcx, tpcy, tpcz, tpcpx, tpcpy, tpcpz,
		tpcid, siid
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// Ntuple stores PairRecords in a SQLite file. Records are buffered and
// written in batches; the first write error is kept and returned by Err and
// Close. A run id is allocated on the first write, so opening a file only to
// read it leaves it unchanged.
type Ntuple struct {
	db      *sql.DB
	run     int64
	pending []PairRecord
	err     error
}

func OpenNtuple(path string) (*Ntuple, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(ntupleSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create ntuple schema: %w", err)
	}
	return &Ntuple{db: db}, nil
}

// ensureRun allocates the run id of this Ntuple.
func (n *Ntuple) ensureRun() error {
	if n.run != 0 {
		return nil
	}
	res, err := n.db.Exec(`INSERT INTO runs (started) VALUES (?)`, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to start ntuple run: %w", err)
	}
	run, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to start ntuple run: %w", err)
	}
	n.run = run
	return nil
}

// Run is the id rows written through n are stored under, or 0 before the
// first write.
func (n *Ntuple) Run() int64 {
	return n.run
}

func (n *Ntuple) RecordPair(r PairRecord) {
	if n.err != nil {
		return
	}
	n.pending = append(n.pending, r)
	if len(n.pending) >= flushEvery {
		n.err = n.Flush()
	}
}

// Flush writes the buffered pairs in one transaction.
func (n *Ntuple) Flush() error {
	if len(n.pending) == 0 {
		return nil
	}
	if err := n.ensureRun(); err != nil {
		return err
	}

	tx, err := n.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(insertPairSQL)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range n.pending {
		si, tpc := r.InnerKin, r.OuterKin
		_, err := stmt.Exec(
			n.run, r.Event, int(r.InnerCrossing),
			si.Charge, si.Phi, si.Eta, si.Pos.X, si.Pos.Y, si.Pos.Z, si.Mom.X, si.Mom.Y, si.Mom.Z,
			tpc.Charge, tpc.Pt, tpc.Phi, tpc.Eta, tpc.Pos.X, tpc.Pos.Y, tpc.Pos.Z, tpc.Mom.X, tpc.Mom.Y, tpc.Mom.Z,
			r.Outer, r.Inner,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert pair %d/%d: %w", r.Outer, r.Inner, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	n.pending = n.pending[:0]
	return nil
}

// RecordSeeds stores the seed container of one event. Storing the same event
// twice within a run fails.
func (n *Ntuple) RecordSeeds(event int, seeds *SeedContainer) error {
	if err := n.ensureRun(); err != nil {
		return err
	}
	tx, err := n.db.Begin()
	if err != nil {
		return err
	}
	for i, seed := range seeds.Seeds {
		_, err := tx.Exec(
			`INSERT INTO svtx_seeds (run, event, seed, tpcid, siid, crossing_estimate) VALUES (?, ?, ?, ?, ?, ?)`,
			n.run, event, i, seed.TpcID, seed.SiliconID, int(seed.CrossingEstimate),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert seed %d of event %d: %w", i, event, err)
		}
	}
	return tx.Commit()
}

// ScanPairs calls fn for every stored pair of every run in insertion order.
// Pending records are flushed first.
func (n *Ntuple) ScanPairs(fn func(PairRecord) error) error {
	if err := n.Flush(); err != nil {
		return err
	}

	rows, err := n.db.Query(`
		SELECT event, sicrossing,
			siq, siphi, sieta, six, siy, siz, sipx, sipy, sipz,
			tpcq, tpcpt, tpcphi, tpceta, tpcx, tpcy, tpcz, tpcpx, tpcpy, tpcpz,
			tpcid, siid
		FROM track_match ORDER BY rowid`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r        PairRecord
			crossing int
		)
		si, tpc := &r.InnerKin, &r.OuterKin
		err := rows.Scan(
			&r.Event, &crossing,
			&si.Charge, &si.Phi, &si.Eta, &si.Pos.X, &si.Pos.Y, &si.Pos.Z, &si.Mom.X, &si.Mom.Y, &si.Mom.Z,
			&tpc.Charge, &tpc.Pt, &tpc.Phi, &tpc.Eta, &tpc.Pos.X, &tpc.Pos.Y, &tpc.Pos.Z, &tpc.Mom.X, &tpc.Mom.Y, &tpc.Mom.Z,
			&r.Outer, &r.Inner,
		)
		if err != nil {
			return err
		}
		r.InnerCrossing = Crossing(crossing)
		if err := fn(r); err != nil {
			return err
		}
	}
	return rows.Err()
}

// SeedCount returns the number of seeds stored by this run and how many of
// them carry a silicon stub.
func (n *Ntuple) SeedCount() (total, matched int, err error) {
	err = n.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN siid >= 0 THEN 1 ELSE 0 END), 0) FROM svtx_seeds WHERE run = ?`,
		n.run,
	).Scan(&total, &matched)
	return total, matched, err
}

func (n *Ntuple) Err() error {
	return n.err
}

func (n *Ntuple) Close() error {
	err := n.err
	if err == nil {
		err = n.Flush()
	}
	if cerr := n.db.Close(); err == nil {
		err = cerr
	}
	return err
}

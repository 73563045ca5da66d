// Package store provides SQLite-backed persistence for generated
// ensembles, their per-particle rows, and downstream scattering
// results. Particle quantities are stored in physical units; loading
// converts back to dipole units through the ensemble rehydration
// entry point.
package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BU-Thermal-and-Energy-Systems-Lab/BUPTT/pkg/ensemble"
	_ "modernc.org/sqlite"
)

// Store provides a SQLite-backed ensemble database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the ensemble database at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ensembles (
			ensemble_id        TEXT     PRIMARY KEY,
			ensemble_type      TEXT     NOT NULL,
			dipole_size        FLOAT    NOT NULL,
			cloud_radius       FLOAT    NOT NULL,
			plasmonic_fv       FLOAT    NOT NULL,
			dielectric_fv      FLOAT    NOT NULL,
			pdi                FLOAT,
			ensemble_data      INTEGER  DEFAULT 0,
			ddscat_run         INTEGER  DEFAULT 0,
			postprocessing_run INTEGER  DEFAULT 0,
			created_at         DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS ensemble_particles (
			ensemble_id  TEXT    NOT NULL,
			particle_idx INTEGER NOT NULL,
			material_idx INTEGER NOT NULL,
			material     TEXT    NOT NULL,
			shape        TEXT    NOT NULL,
			radius       FLOAT   NOT NULL,
			length       FLOAT,
			volume       FLOAT   NOT NULL,
			cx           FLOAT   NOT NULL,
			cy           FLOAT   NOT NULL,
			cz           FLOAT   NOT NULL,
			rx           FLOAT,
			ry           FLOAT,
			rz           FLOAT,
			PRIMARY KEY (ensemble_id, particle_idx),
			FOREIGN KEY (ensemble_id) REFERENCES ensembles(ensemble_id)
		)`,
		`CREATE TABLE IF NOT EXISTS ensemble_scattering (
			ensemble_id TEXT    NOT NULL,
			wavelength  FLOAT   NOT NULL,
			num_ori     INTEGER NOT NULL,
			abs_eff     FLOAT   NOT NULL,
			sca_eff     FLOAT   NOT NULL,
			abs_enh     FLOAT,
			PRIMARY KEY (ensemble_id, wavelength, num_ori),
			FOREIGN KEY (ensemble_id) REFERENCES ensembles(ensemble_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// keyBytes is the entropy of an ensemble identifier; keys are
// 2*keyBytes hexadecimal characters.
const keyBytes = 5

// newKey allocates an ensemble identifier not yet present in the
// ensembles table.
func (s *Store) newKey(ctx context.Context) (string, error) {
	for {
		buf := make([]byte, keyBytes)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generate key: %w", err)
		}
		key := hex.EncodeToString(buf)

		var n int
		err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM ensembles WHERE ensemble_id = ?", key).Scan(&n)
		if err != nil {
			return "", fmt.Errorf("check key: %w", err)
		}
		if n == 0 {
			return key, nil
		}
	}
}

// fractionColumns maps family volume fractions onto the two-column
// plasmonic/dielectric metadata layout by declaration order: the first
// family fills plasmonic_fv and every remaining family accumulates
// into dielectric_fv. Keying on position rather than shape keeps
// same-shape configurations (two sphere families) from collapsing
// into a single column.
func fractionColumns(ens *ensemble.Ensemble) (plasmonic, dielectric float64) {
	for i, f := range ens.Families {
		if i == 0 {
			plasmonic = f.VolumeFraction
		} else {
			dielectric += f.VolumeFraction
		}
	}
	return plasmonic, dielectric
}

// SaveEnsemble persists a generated ensemble and its particles inside
// one transaction and returns the allocated ensemble id. Lengths are
// converted to physical units by the record layer.
func (s *Store) SaveEnsemble(ctx context.Context, ens *ensemble.Ensemble) (string, error) {
	if s == nil || s.db == nil {
		return "", fmt.Errorf("storage is not configured")
	}
	if ens == nil {
		return "", fmt.Errorf("ensemble is required")
	}

	id, err := s.newKey(ctx)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	plasmonicFv, dielectricFv := fractionColumns(ens)
	_, err = tx.ExecContext(ctx, `INSERT INTO ensembles (
		ensemble_id, ensemble_type, dipole_size, cloud_radius, plasmonic_fv, dielectric_fv, pdi
	) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id,
		string(ens.Strategy),
		ens.DipoleSize,
		ens.CloudRadius*ens.DipoleSize,
		plasmonicFv,
		dielectricFv,
		ens.Polydispersity,
	)
	if err != nil {
		return "", fmt.Errorf("insert ensemble: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO ensemble_particles (
		ensemble_id, particle_idx, material_idx, material, shape,
		radius, length, volume, cx, cy, cz, rx, ry, rz
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare particle insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range ens.Records() {
		_, err := stmt.ExecContext(ctx,
			id, rec.Index, rec.MaterialIdx, rec.Material, rec.Shape,
			rec.Radius, rec.Length, rec.Volume,
			rec.CX, rec.CY, rec.CZ, rec.RX, rec.RY, rec.RZ,
		)
		if err != nil {
			return "", fmt.Errorf("insert particle %d: %w", rec.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// LoadEnsemble reads an ensemble's metadata and particle rows and
// rehydrates the in-memory cloud in dipole units.
func (s *Store) LoadEnsemble(ctx context.Context, id string) (*ensemble.Ensemble, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	var meta ensemble.Snapshot
	var strategy string
	var pdi sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `SELECT ensemble_type, dipole_size, cloud_radius, pdi
		FROM ensembles WHERE ensemble_id = ?`, id).
		Scan(&strategy, &meta.DipoleSize, &meta.CloudRadius, &pdi)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("ensemble %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load ensemble %q: %w", id, err)
	}
	meta.Strategy = ensemble.Strategy(strategy)
	if pdi.Valid {
		meta.Polydispersity = pdi.Float64
	}

	rows, err := s.db.QueryContext(ctx, `SELECT particle_idx, material_idx, material, shape,
		radius, length, volume, cx, cy, cz, rx, ry, rz
		FROM ensemble_particles WHERE ensemble_id = ? ORDER BY particle_idx`, id)
	if err != nil {
		return nil, fmt.Errorf("load particles for %q: %w", id, err)
	}
	defer rows.Close()

	var records []ensemble.ParticleRecord
	for rows.Next() {
		var rec ensemble.ParticleRecord
		var length, rx, ry, rz sql.NullFloat64
		err := rows.Scan(&rec.Index, &rec.MaterialIdx, &rec.Material, &rec.Shape,
			&rec.Radius, &length, &rec.Volume,
			&rec.CX, &rec.CY, &rec.CZ, &rx, &ry, &rz)
		if err != nil {
			return nil, fmt.Errorf("scan particle row: %w", err)
		}
		if length.Valid {
			rec.Length = &length.Float64
		}
		if rx.Valid && ry.Valid && rz.Valid {
			rec.RX, rec.RY, rec.RZ = &rx.Float64, &ry.Float64, &rz.Float64
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate particle rows: %w", err)
	}

	ens, err := ensemble.Rehydrate(meta, records)
	if err != nil {
		return nil, fmt.Errorf("rehydrate %q: %w", id, err)
	}
	return ens, nil
}

// flagColumns whitelists the updatable progress flags; the flag name
// is interpolated into SQL, so it must never come from user input
// unchecked.
var flagColumns = map[string]bool{
	"ensemble_data":      true,
	"ddscat_run":         true,
	"postprocessing_run": true,
}

// SetFlag marks a calculation stage as completed for an ensemble.
func (s *Store) SetFlag(ctx context.Context, id, flag string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	if !flagColumns[flag] {
		return fmt.Errorf("unknown flag %q", flag)
	}

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE ensembles SET %s = 1 WHERE ensemble_id = ?", flag), id)
	if err != nil {
		return fmt.Errorf("set flag %s: %w", flag, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set flag %s: %w", flag, err)
	}
	if n == 0 {
		return fmt.Errorf("ensemble %q not found", id)
	}
	return nil
}

// ScatteringRecord is one scattering result row for an ensemble.
type ScatteringRecord struct {
	Wavelength      float64
	NumOrientations int
	AbsEff          float64
	ScaEff          float64
	AbsEnh          *float64
}

// InsertScattering stores a scattering result row.
func (s *Store) InsertScattering(ctx context.Context, id string, rec ScatteringRecord) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO ensemble_scattering (
		ensemble_id, wavelength, num_ori, abs_eff, sca_eff, abs_enh
	) VALUES (?, ?, ?, ?, ?, ?)`,
		id, rec.Wavelength, rec.NumOrientations, rec.AbsEff, rec.ScaEff, rec.AbsEnh)
	if err != nil {
		return fmt.Errorf("insert scattering for %q: %w", id, err)
	}
	return nil
}

// EnsembleInfo is a listing row of ensemble metadata and progress.
type EnsembleInfo struct {
	ID             string
	Strategy       string
	DipoleSize     float64
	CloudRadius    float64
	EnsembleData   bool
	DDSCATRun      bool
	Postprocessing bool
	CreatedAt      string
}

// ListEnsembles returns stored ensembles, newest first.
func (s *Store) ListEnsembles(ctx context.Context) ([]EnsembleInfo, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT ensemble_id, ensemble_type, dipole_size,
		cloud_radius, ensemble_data, ddscat_run, postprocessing_run, created_at
		FROM ensembles ORDER BY created_at DESC, ensemble_id`)
	if err != nil {
		return nil, fmt.Errorf("list ensembles: %w", err)
	}
	defer rows.Close()

	var infos []EnsembleInfo
	for rows.Next() {
		var info EnsembleInfo
		err := rows.Scan(&info.ID, &info.Strategy, &info.DipoleSize, &info.CloudRadius,
			&info.EnsembleData, &info.DDSCATRun, &info.Postprocessing, &info.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan ensemble row: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ensemble rows: %w", err)
	}
	return infos, nil
}

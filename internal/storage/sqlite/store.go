// Package sqlite provides the embedded relational store for the
// product/vulnerability/CVE graph.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/vulnfeed/advisory-crawler/internal/advisory"
	"github.com/vulnfeed/advisory-crawler/internal/metrics"
)

// Store implements advisory.Store on a file-based SQLite database using the
// pure-Go driver. All writes are serialized through a single connection.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// New opens (or creates) the database at path and pings it.
func New(path string, logger *zap.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("db.path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer at a time; the pipeline never needs concurrent writes and
	// this avoids SQLITE_BUSY on the embedded store.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		if cerr := db.Close(); cerr != nil {
			logger.Warn("close database after failed ping", zap.Error(cerr))
		}
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS product (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS vulnerability (
		id VARCHAR(25) PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cve (
		id VARCHAR(25) PRIMARY KEY,
		link TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS product_vulnerability (
		product_id INTEGER,
		vulnerability_id VARCHAR(25),
		FOREIGN KEY (product_id) REFERENCES product(id),
		FOREIGN KEY (vulnerability_id) REFERENCES vulnerability(id),
		PRIMARY KEY (product_id, vulnerability_id)
	)`,
	`CREATE TABLE IF NOT EXISTS vulnerability_cve (
		vulnerability_id VARCHAR(25),
		cve_id VARCHAR(25),
		FOREIGN KEY (vulnerability_id) REFERENCES vulnerability(id),
		FOREIGN KEY (cve_id) REFERENCES cve(id),
		PRIMARY KEY (vulnerability_id, cve_id)
	)`,
}

// CreateSchema creates the five relations if absent, inside one transaction.
// Safe to call repeatedly.
func (s *Store) CreateSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			s.rollback(tx)
			return fmt.Errorf("create schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Persist writes one vulnerability and its CVE references for productName in
// a single transaction. The product row is found or created by name; CVE rows
// are found or created by id with the existing row kept authoritative. A
// vulnerability id already present in the store yields
// advisory.ErrAlreadyExists with the whole transaction rolled back.
func (s *Store) Persist(ctx context.Context, vuln advisory.Vulnerability, productName string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	productID, err := s.findOrCreateProduct(ctx, tx, productName)
	if err != nil {
		s.rollback(tx)
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO vulnerability (id, name) VALUES (?, ?)`,
		vuln.VendorID, vuln.Name,
	); err != nil {
		s.rollback(tx)
		if isConstraintViolation(err) {
			return fmt.Errorf("vulnerability %s: %w", vuln.VendorID, advisory.ErrAlreadyExists)
		}
		return fmt.Errorf("insert vulnerability %s: %w", vuln.VendorID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO product_vulnerability (product_id, vulnerability_id) VALUES (?, ?)`,
		productID, vuln.VendorID,
	); err != nil {
		s.rollback(tx)
		return fmt.Errorf("link product %d to vulnerability %s: %w", productID, vuln.VendorID, err)
	}

	links, err := s.insertCVEs(ctx, tx, vuln)
	if err != nil {
		s.rollback(tx)
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit vulnerability %s: %w", vuln.VendorID, err)
	}

	metrics.AddVulnerabilitiesStored(1)
	metrics.AddCVELinks(links)
	s.logger.Debug("vulnerability persisted",
		zap.String("vulnerability", vuln.VendorID),
		zap.String("product", productName),
		zap.Int("cve_links", links),
	)
	return nil
}

// findOrCreateProduct resolves the surrogate id for productName, inserting
// the row on first sighting.
func (s *Store) findOrCreateProduct(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM product WHERE name = ?`, name).Scan(&id)
	switch {
	case err == nil:
		return id, nil
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx, `INSERT INTO product (name) VALUES (?)`, name)
		if err != nil {
			return 0, fmt.Errorf("insert product %q: %w", name, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("product %q insert id: %w", name, err)
		}
		return id, nil
	default:
		return 0, fmt.Errorf("look up product %q: %w", name, err)
	}
}

// insertCVEs find-or-creates every referenced CVE row and links it to the
// vulnerability. An existing CVE row is reused as-is; its link column is
// never overwritten. Returns the number of junction rows written.
func (s *Store) insertCVEs(ctx context.Context, tx *sql.Tx, vuln advisory.Vulnerability) (int, error) {
	links := 0
	for _, ref := range vuln.CVEs {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM cve WHERE id = ?`, ref.ID).Scan(&exists)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO cve (id, link) VALUES (?, ?)`, ref.ID, ref.Link,
			); err != nil {
				return 0, fmt.Errorf("insert cve %s: %w", ref.ID, err)
			}
		case err != nil:
			return 0, fmt.Errorf("look up cve %s: %w", ref.ID, err)
		}

		// OR IGNORE absorbs duplicate references within one detail page.
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO vulnerability_cve (vulnerability_id, cve_id) VALUES (?, ?)`,
			vuln.VendorID, ref.ID,
		)
		if err != nil {
			return 0, fmt.Errorf("link vulnerability %s to cve %s: %w", vuln.VendorID, ref.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			links += int(n)
		}
	}
	return links, nil
}

func (s *Store) rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		s.logger.Warn("transaction rollback failed", zap.Error(err))
	}
}

// isConstraintViolation reports whether err is a SQLite uniqueness or other
// constraint failure.
func isConstraintViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}

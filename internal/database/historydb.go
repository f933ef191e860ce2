package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/idml2doc/internal/model"
)

// DBFileName is the file name of the history database inside its directory.
const DBFileName = "idml2doc.db"

// Conversion status values stored in the status column.
const (
	StatusSucceeded = "ok"
	StatusFailed    = "failed"
)

// timestampLayout is the layout used to store conversion timestamps.
const timestampLayout = "2006-01-02 15:04:05.000"

// HistoryDB provides SQLite-based storage for conversion records.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in the given directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a new file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the path of the database file.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		package_name TEXT NOT NULL,
		source TEXT NOT NULL,
		package_hash TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		status TEXT NOT NULL,
		stories INTEGER DEFAULT 0,
		spreads INTEGER DEFAULT 0,
		fragments INTEGER DEFAULT 0,
		markers INTEGER DEFAULT 0,
		failed_entries INTEGER DEFAULT 0,
		conversion_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_conversions_package ON conversions(package_name);
	CREATE INDEX IF NOT EXISTS idx_conversions_hash ON conversions(package_hash);
	CREATE INDEX IF NOT EXISTS idx_conversions_timestamp ON conversions(timestamp);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveConversion stores a conversion record and returns its ID.
func (hdb *HistoryDB) SaveConversion(ctx context.Context, conv *model.Conversion) (int64, error) {
	convJSON, err := json.Marshal(conv)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize conversion: %w", err)
	}

	status := StatusSucceeded
	if !conv.Succeeded() {
		status = StatusFailed
	}
	stories, spreads := conv.CountEntries()

	query := `
	INSERT INTO conversions (package_name, source, package_hash, timestamp, status,
		stories, spreads, fragments, markers, failed_entries, conversion_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := hdb.db.ExecContext(ctx, query,
		conv.PackageName,
		conv.Source,
		conv.PackageHash,
		conv.DateConverted.UTC().Format(timestampLayout),
		status,
		stories,
		spreads,
		conv.Model.FragmentCount(),
		conv.Model.MarkerCount(),
		len(conv.FailedEntries()),
		string(convJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save conversion: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read conversion id: %w", err)
	}
	return id, nil
}

// GetConversionByID retrieves a conversion by its database ID.
// It returns nil and no error when there is no such conversion.
func (hdb *HistoryDB) GetConversionByID(ctx context.Context, id int64) (*model.Conversion, error) {
	query := `
	SELECT conversion_json FROM conversions
	WHERE id = ?
	`
	return hdb.queryConversion(ctx, query, id)
}

// GetLatestConversion retrieves the most recent conversion of a package.
// It returns nil and no error when the package was never converted.
func (hdb *HistoryDB) GetLatestConversion(ctx context.Context, packageName string) (*model.Conversion, error) {
	query := `
	SELECT conversion_json FROM conversions
	WHERE package_name = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`
	return hdb.queryConversion(ctx, query, packageName)
}

func (hdb *HistoryDB) queryConversion(ctx context.Context, query string, arg any) (*model.Conversion, error) {
	var convJSON string
	err := hdb.db.QueryRowContext(ctx, query, arg).Scan(&convJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversion: %w", err)
	}

	var conv model.Conversion
	if err := json.Unmarshal([]byte(convJSON), &conv); err != nil {
		return nil, fmt.Errorf("failed to parse conversion: %w", err)
	}
	return &conv, nil
}

// ListPackages returns the names of all converted packages.
func (hdb *HistoryDB) ListPackages(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT package_name FROM conversions
	ORDER BY package_name
	`

	rows, err := hdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	defer rows.Close()

	var packages []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan package: %w", err)
		}
		packages = append(packages, name)
	}

	return packages, rows.Err()
}

// ConversionMetadata contains summary information about a stored conversion.
type ConversionMetadata struct {
	ID            int64     `json:"id"`
	PackageName   string    `json:"package_name"`
	Source        string    `json:"source"`
	PackageHash   string    `json:"package_hash"`
	Timestamp     time.Time `json:"timestamp"`
	Status        string    `json:"status"`
	Stories       int       `json:"stories"`
	Spreads       int       `json:"spreads"`
	Fragments     int       `json:"fragments"`
	Markers       int       `json:"markers"`
	FailedEntries int       `json:"failed_entries"`
}

const metadataColumns = `id, package_name, source, package_hash, timestamp, status,
	stories, spreads, fragments, markers, failed_entries`

// GetHistoryWithMetadata retrieves conversion metadata for a package, newest
// first. It does not load the stored content models.
func (hdb *HistoryDB) GetHistoryWithMetadata(ctx context.Context, packageName string) ([]ConversionMetadata, error) {
	query := `
	SELECT ` + metadataColumns + `
	FROM conversions
	WHERE package_name = ?
	ORDER BY timestamp DESC, id DESC
	`
	return hdb.queryMetadata(ctx, query, packageName)
}

// FindByHash returns the conversions of packages with the given fingerprint,
// newest first.
func (hdb *HistoryDB) FindByHash(ctx context.Context, hash string) ([]ConversionMetadata, error) {
	query := `
	SELECT ` + metadataColumns + `
	FROM conversions
	WHERE package_hash = ?
	ORDER BY timestamp DESC, id DESC
	`
	return hdb.queryMetadata(ctx, query, hash)
}

func (hdb *HistoryDB) queryMetadata(ctx context.Context, query string, arg any) ([]ConversionMetadata, error) {
	rows, err := hdb.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversion history: %w", err)
	}
	defer rows.Close()

	var results []ConversionMetadata
	for rows.Next() {
		var meta ConversionMetadata
		var timestamp string
		var hash sql.NullString

		if err := rows.Scan(
			&meta.ID,
			&meta.PackageName,
			&meta.Source,
			&hash,
			&timestamp,
			&meta.Status,
			&meta.Stories,
			&meta.Spreads,
			&meta.Fragments,
			&meta.Markers,
			&meta.FailedEntries,
		); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.PackageHash = hash.String
		meta.Timestamp = parseTimestamp(timestamp)
		results = append(results, meta)
	}

	return results, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,
	"2006-01-02 15:04:05",  // SQLite default datetime format
	"2006-01-02T15:04:05Z", // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",  // ISO 8601 without timezone
	time.RFC3339,
	time.RFC3339Nano,
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

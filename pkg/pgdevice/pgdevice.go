// Package pgdevice stores an image's blocks as rows of a Postgres table.
package pgdevice

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/gosimple/slug"
	"github.com/lib/pq"
	. "github.com/weberc2/assoofs/pkg/types"
)

const DefaultTable = "blocks"

// PGDevice is a block device backed by the rows of `Table` whose `image`
// column equals `Image`. Rows that don't exist read as zeroed blocks.
type PGDevice struct {
	DB    *sql.DB
	Table string
	Image string
}

func New(db *sql.DB, table, image string) *PGDevice {
	if table == "" {
		table = DefaultTable
	}
	return &PGDevice{DB: db, Table: table, Image: slug.Make(image)}
}

// OpenEnv connects using the `PG_*` environment variables.
func OpenEnv() (*sql.DB, error) {
	db, err := sql.Open(
		"postgres",
		fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("PG_HOST", "localhost"),
			getEnv("PG_PORT", "5432"),
			getEnv("PG_USER", "postgres"),
			getEnv("PG_PASS", ""),
			getEnv("PG_DB_NAME", "postgres"),
			getEnv("PG_SSL_MODE", "disable"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("opening postgres database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres database: %w", err)
	}

	return db, nil
}

func getEnv(env, def string) string {
	x := os.Getenv(env)
	if x == "" {
		return def
	}
	return x
}

func (d *PGDevice) table() string { return pq.QuoteIdentifier(d.Table) }

func (d *PGDevice) EnsureTable() error {
	if _, err := d.DB.Exec(
		"CREATE TABLE IF NOT EXISTS " + d.table() + " (" +
			"image VARCHAR(255) NOT NULL, " +
			"number BIGINT NOT NULL, " +
			"data BYTEA NOT NULL, " +
			"PRIMARY KEY (image, number))",
	); err != nil {
		return fmt.Errorf("creating `%s` postgres table: %w", d.Table, err)
	}
	return nil
}

func (d *PGDevice) DropTable() error {
	if _, err := d.DB.Exec("DROP TABLE IF EXISTS " + d.table()); err != nil {
		return fmt.Errorf("dropping table `%s`: %w", d.Table, err)
	}
	return nil
}

func (d *PGDevice) ResetTable() error {
	if err := d.DropTable(); err != nil {
		return err
	}
	return d.EnsureTable()
}

// Wipe deletes this image's blocks, leaving other images in the table alone.
func (d *PGDevice) Wipe() error {
	if _, err := d.DB.Exec(
		"DELETE FROM "+d.table()+" WHERE image = $1",
		d.Image,
	); err != nil {
		return fmt.Errorf("wiping image `%s`: %w", d.Image, err)
	}
	return nil
}

func (d *PGDevice) ReadBlock(b Block, p *[BlockSize]byte) error {
	var data []byte
	if err := d.DB.QueryRow(
		"SELECT data FROM "+d.table()+" WHERE image = $1 AND number = $2",
		d.Image,
		int64(b),
	).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			*p = [BlockSize]byte{}
			return nil
		}
		return &IOErr{Op: "reading", Block: b, Err: err}
	}
	if len(data) != int(BlockSize) {
		return &IOErr{
			Op:    "reading",
			Block: b,
			Err: fmt.Errorf(
				"wanted `%d` bytes; found `%d`",
				BlockSize,
				len(data),
			),
		}
	}
	copy(p[:], data)
	return nil
}

func (d *PGDevice) WriteBlock(b Block, p *[BlockSize]byte) error {
	if _, err := d.DB.Exec(
		"INSERT INTO "+d.table()+" (image, number, data) "+
			"VALUES ($1, $2, $3) "+
			"ON CONFLICT (image, number) DO UPDATE SET data = EXCLUDED.data",
		d.Image,
		int64(b),
		p[:],
	); err != nil {
		return &IOErr{Op: "writing", Block: b, Err: err}
	}
	return nil
}

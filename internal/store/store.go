// Package store keeps a history of runs and the records they extracted in
// a sqlite database.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ddfeed/internal/extract"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

var tracer = otel.Tracer("ddfeed/store")

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("run not found")

const (
	StatusSuccess = "success"
	StatusAborted = "aborted"
)

type Run struct {
	Id           string
	StartedAt    time.Time
	AddressQuery string
	Label        string
	SectionFound bool
	Token        string
	Status       string
	AbortedStep  string
	Error        string
	RecordCount  int
}

type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the database at path, `:memory:` is
// accepted.
func Open(path string) (Store, error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return Store{}, err
	}
	if path == ":memory:" {
		// every connection to :memory: is a different database
		database.SetMaxOpenConns(1)
	}
	_, err = database.Exec(Schema)
	if err != nil {
		database.Close()
		return Store{}, fmt.Errorf("apply schema: %w", err)
	}
	return Store{db: database}, nil
}

func (s Store) Close() error {
	return s.db.Close()
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// SaveRun stores the run and its records in a single transaction.
// RecordCount is taken from the records.
func (s Store) SaveRun(ctx context.Context, run Run, records []extract.StoreRecord) error {
	ctx, span := tracer.Start(ctx, "SaveRun")
	defer span.End()

	span.SetAttributes(
		attribute.String("run", run.Id),
		attribute.Int("records", len(records)),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fail(span, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(
		ctx,
		`insert into runs (
			id, started_at, address_query, label, section_found, token,
			status, aborted_step, error, record_count
		) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Id,
		run.StartedAt.Unix(),
		run.AddressQuery,
		run.Label,
		run.SectionFound,
		run.Token,
		run.Status,
		run.AbortedStep,
		run.Error,
		len(records),
	)
	if err != nil {
		return fail(span, fmt.Errorf("insert run: %w", err))
	}

	for i, record := range records {
		deliveryFee, err := encodeLoose(record.DeliveryFee)
		if err != nil {
			return fail(span, fmt.Errorf("encode delivery fee of %s: %w", record.Name, err))
		}
		deliveryTime, err := encodeLoose(record.DeliveryTime)
		if err != nil {
			return fail(span, fmt.Errorf("encode delivery time of %s: %w", record.Name, err))
		}

		var rating sql.NullFloat64
		if record.Rating != nil {
			rating = sql.NullFloat64{Float64: *record.Rating, Valid: true}
		}

		_, err = tx.ExecContext(
			ctx,
			`insert into records (
				run_id, position, name, subtitle, rating, delivery_fee,
				delivery_time, store_id, uri, source, path
			) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.Id,
			i,
			record.Name,
			record.Subtitle,
			rating,
			deliveryFee,
			deliveryTime,
			record.ExternalId,
			record.Uri,
			record.SourceLabel,
			record.Path,
		)
		if err != nil {
			return fail(span, fmt.Errorf("insert record %s: %w", record.Name, err))
		}
	}

	err = tx.Commit()
	if err != nil {
		return fail(span, err)
	}
	return nil
}

const runColumns = `id, started_at, address_query, label, section_found, token,
	status, aborted_step, error, record_count`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var run Run
	var startedAt int64
	err := row.Scan(
		&run.Id,
		&startedAt,
		&run.AddressQuery,
		&run.Label,
		&run.SectionFound,
		&run.Token,
		&run.Status,
		&run.AbortedStep,
		&run.Error,
		&run.RecordCount,
	)
	if err != nil {
		return Run{}, err
	}
	run.StartedAt = time.Unix(startedAt, 0)
	return run, nil
}

// ListRuns returns the most recent runs first, at most limit of them (all
// of them when limit <= 0).
func (s Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	ctx, span := tracer.Start(ctx, "ListRuns")
	defer span.End()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(
		ctx,
		`select `+runColumns+` from runs order by started_at desc, rowid desc limit ?`,
		limit,
	)
	if err != nil {
		return nil, fail(span, err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fail(span, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(span, err)
	}
	return runs, nil
}

func (s Store) GetRun(ctx context.Context, id string) (Run, error) {
	ctx, span := tracer.Start(ctx, "GetRun")
	defer span.End()

	row := s.db.QueryRowContext(ctx, `select `+runColumns+` from runs where id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fail(span, err)
	}
	return run, nil
}

// RunRecords returns the records of a run in the order they were extracted.
func (s Store) RunRecords(ctx context.Context, runId string) ([]extract.StoreRecord, error) {
	ctx, span := tracer.Start(ctx, "RunRecords")
	defer span.End()

	span.SetAttributes(attribute.String("run", runId))

	rows, err := s.db.QueryContext(
		ctx,
		`select name, subtitle, rating, delivery_fee, delivery_time, store_id, uri, source, path
		from records where run_id = ? order by position`,
		runId,
	)
	if err != nil {
		return nil, fail(span, err)
	}
	defer rows.Close()

	records := []extract.StoreRecord{}
	for rows.Next() {
		var record extract.StoreRecord
		var rating sql.NullFloat64
		var deliveryFee, deliveryTime sql.NullString
		err := rows.Scan(
			&record.Name,
			&record.Subtitle,
			&rating,
			&deliveryFee,
			&deliveryTime,
			&record.ExternalId,
			&record.Uri,
			&record.SourceLabel,
			&record.Path,
		)
		if err != nil {
			return nil, fail(span, err)
		}
		if rating.Valid {
			value := rating.Float64
			record.Rating = &value
		}
		record.DeliveryFee, err = decodeLoose(deliveryFee)
		if err != nil {
			return nil, fail(span, err)
		}
		record.DeliveryTime, err = decodeLoose(deliveryTime)
		if err != nil {
			return nil, fail(span, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(span, err)
	}
	return records, nil
}

// encodeLoose stores a loosely typed value as JSON so its type survives the
// round trip, nil is stored as NULL.
func encodeLoose(value any) (sql.NullString, error) {
	if value == nil {
		return sql.NullString{}, nil
	}
	serialized, err := json.Marshal(value)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(serialized), Valid: true}, nil
}

func decodeLoose(value sql.NullString) (any, error) {
	if !value.Valid {
		return nil, nil
	}
	var out any
	err := json.Unmarshal([]byte(value.String), &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

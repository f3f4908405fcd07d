// Package store implements the PostgreSQL persistence layer for contract
// state: schemas, operations, and anchors, keyed the way validator.Consignment
// groups them (spec.md §6 "Persisted state layout").
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerseal/rgbcore/pkg/anchor"
	"github.com/ledgerseal/rgbcore/pkg/ids"
	"github.com/ledgerseal/rgbcore/pkg/operation"
	"github.com/ledgerseal/rgbcore/pkg/schema"
	"github.com/ledgerseal/rgbcore/pkg/strictcodec"
	"github.com/ledgerseal/rgbcore/pkg/validator"
)

var (
	ErrNotFound     = errors.New("store: not found")
	ErrDBConnection = errors.New("store: database connection error")
)

// Config holds database connection parameters.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
}

// DefaultConfig returns sane local defaults.
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     5432,
		User:     "rgbcore",
		Password: "",
		Database: "rgbcore",
		SSLMode:  "disable",
		MaxConns: 20,
	}
}

// Store persists schemas, operations, and anchors in PostgreSQL, and
// reassembles validator.Consignment values from them on demand.
type Store struct {
	pool *pgxpool.Pool
}

// New opens a connection pool and verifies it's reachable.
func New(ctx context.Context, cfg *Config) (*Store, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode, cfg.MaxConns,
	)
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDBConnection, err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDBConnection, err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() { s.pool.Close() }

// SaveSchema persists sch under its own SchemaId, idempotently.
func (s *Store) SaveSchema(ctx context.Context, sch schema.Schema) (ids.SchemaId, error) {
	id := ids.SchemaId(sch.SchemaId())
	w := strictcodec.NewWriter()
	if err := sch.StrictEncode(w); err != nil {
		return ids.SchemaId{}, fmt.Errorf("store: encode schema: %w", err)
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO schemas (schema_id, bytes) VALUES ($1, $2) ON CONFLICT (schema_id) DO NOTHING`,
		id.Bytes(), w.Bytes(),
	)
	if err != nil {
		return ids.SchemaId{}, fmt.Errorf("store: save schema: %w", err)
	}
	return id, nil
}

// SaveGenesis persists g under its ContractId, idempotently.
func (s *Store) SaveGenesis(ctx context.Context, g operation.Genesis) (ids.ContractId, error) {
	contractId := g.ContractId()
	w := strictcodec.NewWriter()
	if err := g.StrictEncode(w); err != nil {
		return ids.ContractId{}, fmt.Errorf("store: encode genesis: %w", err)
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO genesis (contract_id, schema_id, bytes) VALUES ($1, $2, $3) ON CONFLICT (contract_id) DO NOTHING`,
		contractId.Bytes(), g.SchemaId.Bytes(), w.Bytes(),
	)
	if err != nil {
		return ids.ContractId{}, fmt.Errorf("store: save genesis: %w", err)
	}
	return contractId, nil
}

// SaveTransition persists t under its OpId, idempotently.
func (s *Store) SaveTransition(ctx context.Context, t operation.Transition) (ids.OpId, error) {
	opid := t.OpId()
	w := strictcodec.NewWriter()
	if err := t.StrictEncode(w); err != nil {
		return ids.OpId{}, fmt.Errorf("store: encode transition: %w", err)
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO transitions (op_id, contract_id, schema_id, bytes) VALUES ($1, $2, $3, $4) ON CONFLICT (op_id) DO NOTHING`,
		opid.Bytes(), t.ContractId.Bytes(), t.SchemaId.Bytes(), w.Bytes(),
	)
	if err != nil {
		return ids.OpId{}, fmt.Errorf("store: save transition: %w", err)
	}
	return opid, nil
}

// SaveAnchor persists an's binding to opid, idempotently.
func (s *Store) SaveAnchor(ctx context.Context, opid ids.OpId, a anchor.Anchor) error {
	w := strictcodec.NewWriter()
	if err := a.StrictEncode(w); err != nil {
		return fmt.Errorf("store: encode anchor: %w", err)
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO anchors (op_id, bytes) VALUES ($1, $2) ON CONFLICT (op_id) DO NOTHING`,
		opid.Bytes(), w.Bytes(),
	)
	if err != nil {
		return fmt.Errorf("store: save anchor: %w", err)
	}
	return nil
}

// GetSchema retrieves a schema by id.
func (s *Store) GetSchema(ctx context.Context, id ids.SchemaId) (schema.Schema, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT bytes FROM schemas WHERE schema_id = $1`, id.Bytes()).Scan(&raw)
	if err == pgx.ErrNoRows {
		return schema.Schema{}, ErrNotFound
	}
	if err != nil {
		return schema.Schema{}, fmt.Errorf("store: get schema: %w", err)
	}
	var sch schema.Schema
	err = strictcodec.DecodeExact(raw, func(r *strictcodec.Reader) error {
		var err error
		sch, err = schema.DecodeSchema(r)
		return err
	})
	if err != nil {
		return schema.Schema{}, fmt.Errorf("store: decode schema: %w", err)
	}
	return sch, nil
}

// GetGenesis retrieves the genesis operation of contractId.
func (s *Store) GetGenesis(ctx context.Context, contractId ids.ContractId) (operation.Genesis, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT bytes FROM genesis WHERE contract_id = $1`, contractId.Bytes()).Scan(&raw)
	if err == pgx.ErrNoRows {
		return operation.Genesis{}, ErrNotFound
	}
	if err != nil {
		return operation.Genesis{}, fmt.Errorf("store: get genesis: %w", err)
	}
	var g operation.Genesis
	err = strictcodec.DecodeExact(raw, func(r *strictcodec.Reader) error {
		var err error
		g, err = operation.DecodeGenesis(r)
		return err
	})
	if err != nil {
		return operation.Genesis{}, fmt.Errorf("store: decode genesis: %w", err)
	}
	return g, nil
}

// ListTransitions returns every transition persisted against contractId.
func (s *Store) ListTransitions(ctx context.Context, contractId ids.ContractId) (map[ids.OpId]operation.Transition, error) {
	rows, err := s.pool.Query(ctx, `SELECT bytes FROM transitions WHERE contract_id = $1`, contractId.Bytes())
	if err != nil {
		return nil, fmt.Errorf("store: list transitions: %w", err)
	}
	defer rows.Close()

	out := map[ids.OpId]operation.Transition{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("store: scan transition: %w", err)
		}
		var t operation.Transition
		if err := strictcodec.DecodeExact(raw, func(r *strictcodec.Reader) error {
			var err error
			t, err = operation.DecodeTransition(r)
			return err
		}); err != nil {
			return nil, fmt.Errorf("store: decode transition: %w", err)
		}
		out[t.OpId()] = t
	}
	return out, rows.Err()
}

// ListAnchors returns every anchor persisted against contractId's
// transitions, keyed by the transition's OpId.
func (s *Store) ListAnchors(ctx context.Context, contractId ids.ContractId) (map[ids.OpId]anchor.Anchor, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT a.op_id, a.bytes FROM anchors a
		 JOIN transitions t ON t.op_id = a.op_id
		 WHERE t.contract_id = $1`,
		contractId.Bytes(),
	)
	if err != nil {
		return nil, fmt.Errorf("store: list anchors: %w", err)
	}
	defer rows.Close()

	out := map[ids.OpId]anchor.Anchor{}
	for rows.Next() {
		var opidBytes, raw []byte
		if err := rows.Scan(&opidBytes, &raw); err != nil {
			return nil, fmt.Errorf("store: scan anchor: %w", err)
		}
		var a anchor.Anchor
		if err := strictcodec.DecodeExact(raw, func(r *strictcodec.Reader) error {
			var err error
			a, err = anchor.DecodeAnchor(r)
			return err
		}); err != nil {
			return nil, fmt.Errorf("store: decode anchor: %w", err)
		}
		out[ids.OpId(ids.Bytes32FromSlice(opidBytes))] = a
	}
	return out, rows.Err()
}

// LoadConsignment reassembles the full validator.Consignment for
// contractId: its schema, genesis, every stored transition, and every
// stored anchor. Callers wanting to validate only a subset of the graph
// (e.g. a consignment received over the wire) should build a
// validator.Consignment directly instead of going through the store.
func (s *Store) LoadConsignment(ctx context.Context, contractId ids.ContractId) (validator.Consignment, error) {
	g, err := s.GetGenesis(ctx, contractId)
	if err != nil {
		return validator.Consignment{}, err
	}
	sch, err := s.GetSchema(ctx, g.SchemaId)
	if err != nil {
		return validator.Consignment{}, err
	}
	transitions, err := s.ListTransitions(ctx, contractId)
	if err != nil {
		return validator.Consignment{}, err
	}
	anchors, err := s.ListAnchors(ctx, contractId)
	if err != nil {
		return validator.Consignment{}, err
	}
	return validator.Consignment{
		Schema:      sch,
		Genesis:     g,
		Transitions: transitions,
		Anchors:     anchors,
	}, nil
}

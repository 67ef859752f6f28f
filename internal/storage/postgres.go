package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schema string

// PostgresJournal implements Journal using PostgreSQL.
type PostgresJournal struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresJournal connects to PostgreSQL and ensures the journal table exists.
func NewPostgresJournal(ctx context.Context, cfg *PostgresConfig) (*PostgresJournal, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	journal := &PostgresJournal{
		db:     db,
		logger: cfg.Logger,
	}

	err = journal.ensureSchema(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	cfg.Logger.Info("postgres-journal-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return journal, nil
}

func (p *PostgresJournal) ensureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Record stores a decision in PostgreSQL.
func (p *PostgresJournal) Record(ctx context.Context, d *Decision) error {
	query := `
		INSERT INTO fill_decisions (
			id, cycle_id, order_hash, outcome, reason, message,
			input_token, output_token, input_amount, output_amount,
			implied_price, reference_price, balance, tx_hash, decided_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		d.ID,
		d.CycleID,
		d.OrderHash,
		string(d.Outcome),
		d.Reason,
		d.Message,
		d.InputToken,
		d.OutputToken,
		d.InputAmount,
		d.OutputAmount,
		d.ImpliedPrice,
		d.ReferencePrice,
		d.Balance,
		d.TxHash,
		d.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}

	p.logger.Debug("decision-stored",
		zap.String("decision-id", d.ID),
		zap.String("order-hash", d.OrderHash),
		zap.String("outcome", string(d.Outcome)))

	return nil
}

// Close closes the database connection.
func (p *PostgresJournal) Close() error {
	p.logger.Info("closing-postgres-journal")
	return p.db.Close()
}

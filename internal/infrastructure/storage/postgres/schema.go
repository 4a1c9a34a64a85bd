package postgres

import (
	"context"
	"fmt"
)

// LedgerSchema creates the tables read by the report repository and the
// triggers feeding LedgerChannel. Statements are idempotent.
var LedgerSchema = []string{
	`CREATE TABLE IF NOT EXISTS partners (
		code        TEXT PRIMARY KEY,
		short_name  TEXT NOT NULL,
		full_name   TEXT,
		type        SMALLINT NOT NULL CHECK (type IN (0, 1))
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		code          TEXT PRIMARY KEY,
		category      TEXT,
		product_model TEXT NOT NULL,
		remark        TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS inbound_records (
		id                  BIGSERIAL PRIMARY KEY,
		supplier_code       TEXT NOT NULL,
		supplier_short_name TEXT,
		supplier_full_name  TEXT,
		product_code        TEXT,
		product_model       TEXT NOT NULL,
		quantity            NUMERIC(18, 4) NOT NULL,
		unit_price          DOUBLE PRECISION NOT NULL,
		total_price         DOUBLE PRECISION,
		inbound_date        DATE NOT NULL,
		order_number        TEXT,
		remark              TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS outbound_records (
		id                  BIGSERIAL PRIMARY KEY,
		customer_code       TEXT NOT NULL,
		customer_short_name TEXT,
		customer_full_name  TEXT,
		product_code        TEXT,
		product_model       TEXT NOT NULL,
		quantity            NUMERIC(18, 4) NOT NULL,
		unit_price          DOUBLE PRECISION NOT NULL,
		total_price         DOUBLE PRECISION,
		outbound_date       DATE NOT NULL,
		order_number        TEXT,
		remark              TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_inbound_model_date ON inbound_records (product_model, inbound_date)`,
	`CREATE INDEX IF NOT EXISTS idx_outbound_model_date ON outbound_records (product_model, outbound_date)`,
	`CREATE OR REPLACE FUNCTION notify_ledger_changed() RETURNS trigger AS $$
	BEGIN
		PERFORM pg_notify('` + LedgerChannel + `', TG_TABLE_NAME);
		RETURN NULL;
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS inbound_records_changed ON inbound_records`,
	`CREATE TRIGGER inbound_records_changed AFTER INSERT OR UPDATE OR DELETE ON inbound_records
		FOR EACH STATEMENT EXECUTE FUNCTION notify_ledger_changed()`,
	`DROP TRIGGER IF EXISTS outbound_records_changed ON outbound_records`,
	`CREATE TRIGGER outbound_records_changed AFTER INSERT OR UPDATE OR DELETE ON outbound_records
		FOR EACH STATEMENT EXECUTE FUNCTION notify_ledger_changed()`,
}

// EnsureSchema applies LedgerSchema in the transaction carried by ctx.
func EnsureSchema(ctx context.Context, exec *BatchExecutor) error {
	queries := make([]BatchQuery, len(LedgerSchema))
	for i, stmt := range LedgerSchema {
		queries[i] = BatchQuery{SQL: stmt}
	}
	if err := exec.ExecuteBatch(ctx, queries); err != nil {
		return fmt.Errorf("ensure ledger schema: %w", err)
	}
	return nil
}

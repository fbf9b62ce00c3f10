package pgrealtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is satisfied by *pgx.Conn and *pgxpool.Pool.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// TriggerSQL returns the statements that publish changes to table on
// channel. Payloads above 8000 bytes are rejected by Postgres, which bounds
// the size of the encrypted data column.
func TriggerSQL(table, channel string) string {
	if channel == "" {
		channel = DefaultChannel
	}
	parts := strings.Split(table, ".")
	name := parts[len(parts)-1]
	fnName := pgx.Identifier{name + "_" + channel + "_notify"}.Sanitize()
	trigger := pgx.Identifier{name + "_" + channel + "_trigger"}.Sanitize()
	literal := "'" + strings.ReplaceAll(channel, "'", "''") + "'"

	return fmt.Sprintf(`
CREATE OR REPLACE FUNCTION %[1]s() RETURNS trigger AS $$
BEGIN
	PERFORM pg_notify(%[2]s, json_build_object(
		'type', TG_OP,
		'table', TG_TABLE_NAME,
		'record', row_to_json(NEW)
	)::text);
	RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS %[3]s ON %[4]s;
CREATE TRIGGER %[3]s AFTER INSERT OR UPDATE ON %[4]s
	FOR EACH ROW EXECUTE FUNCTION %[1]s();
`, fnName, literal, trigger, pgx.Identifier(parts).Sanitize())
}

// Install creates the trigger TriggerSQL describes.
func Install(ctx context.Context, db Execer, table, channel string) error {
	if _, err := db.Exec(ctx, TriggerSQL(table, channel)); err != nil {
		return fmt.Errorf("install notify trigger on %s: %w", table, err)
	}
	return nil
}

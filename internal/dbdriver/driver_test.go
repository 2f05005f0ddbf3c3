package dbdriver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	drivers := []Driver{SQLite(), Postgres()}

	d, err := Lookup("postgres", drivers)
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	_, err = Lookup("sqlsrv", drivers)
	assert.Error(t, err)
}

func TestDialects(t *testing.T) {
	assert.Equal(t, "?", SQLite().Placeholder(3))
	assert.Equal(t, "$3", Postgres().Placeholder(3))

	assert.False(t, SQLite().SupportsProcedures())
	assert.Empty(t, SQLite().ProcCall("QueryEntityBySecop1", 3))

	assert.True(t, Postgres().SupportsProcedures())
	assert.Equal(t,
		"SELECT * FROM QueryEntityBySecop1($1, $2, $3)",
		Postgres().ProcCall("QueryEntityBySecop1", 3))
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := SQLite()

	conn, err := d.Open(ctx, "file:roundtrip?mode=memory&cache=shared")
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.Ping(ctx))

	setup, err := conn.Prepare(ctx, `CREATE TABLE contracts (numero TEXT, nit TEXT, valor REAL, firmado TIMESTAMP)`)
	require.NoError(t, err)
	require.NoError(t, setup.BindAndExecute(ctx))
	require.NoError(t, setup.Close())

	ins, err := conn.Prepare(ctx, `INSERT INTO contracts VALUES (?, ?, ?, ?)`)
	require.NoError(t, err)
	require.NoError(t, ins.BindAndExecute(ctx, "C-001", "900123456", 1500.5, "2025-01-10 00:00:00"))
	require.NoError(t, ins.Close())

	sel, err := conn.Prepare(ctx, `SELECT numero, nit, valor, firmado FROM contracts WHERE nit LIKE ?`)
	require.NoError(t, err)
	defer sel.Close()
	require.NoError(t, sel.BindAndExecute(ctx, "%900123456%"))

	rec, ok, err := sel.FetchNext()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"numero", "nit", "valor", "firmado"}, rec.Columns())

	v, _ := rec.Get("numero")
	assert.Equal(t, "C-001", v)

	_, ok, err = sel.FetchNext()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFetchBeforeExecute(t *testing.T) {
	ctx := context.Background()
	conn, err := SQLite().Open(ctx, "file:fetchfirst?mode=memory&cache=shared")
	require.NoError(t, err)
	defer conn.Close()

	st, err := conn.Prepare(ctx, `SELECT 1`)
	require.NoError(t, err)
	defer st.Close()

	_, _, err = st.FetchNext()
	assert.ErrorIs(t, err, errNotExecuted)
}

func TestProbePicksWorkingDriver(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// postgres first: it cannot reach anything with a sqlite file DSN, so
	// probing should fall through to sqlite.
	d, err := Probe(ctx, "file:probe?mode=memory&cache=shared", []Driver{Postgres(), SQLite()})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())
}

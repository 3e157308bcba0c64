package conn_test

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/mickamy/mysqlwire/conn"
	"github.com/mickamy/mysqlwire/protocol"
)

const (
	testUser     = "root"
	testPassword = "test"
	testDB       = "test"
)

// startMySQL launches a MySQL container and returns its host and port.
func startMySQL(t *testing.T) (string, int) {
	t.Helper()

	ctx := context.Background()
	ctr, err := mysql.Run(ctx, "mysql:8",
		mysql.WithDatabase(testDB),
		mysql.WithUsername(testUser),
		mysql.WithPassword(testPassword),
	)
	if err != nil {
		t.Fatalf("start mysql container: %v", err)
	}
	t.Cleanup(func() {
		if err := ctr.Terminate(context.Background()); err != nil {
			t.Logf("terminate mysql container: %v", err)
		}
	})

	host, err := ctr.Host(ctx)
	if err != nil {
		t.Fatalf("get host: %v", err)
	}
	port, err := ctr.MappedPort(ctx, "3306/tcp")
	if err != nil {
		t.Fatalf("get port: %v", err)
	}
	p, err := strconv.Atoi(port.Port())
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	return host, p
}

func dial(t *testing.T, host string, port int) *conn.Conn {
	t.Helper()
	return dialCfg(t, host, port, func(*conn.Config) {})
}

// dialCfg is dial with a hook to tweak the Config before connecting
// (e.g. to turn on MultiStatements), sharing the same credentials and
// timeout every other test in this file relies on.
func dialCfg(t *testing.T, host string, port int, tweak func(*conn.Config)) *conn.Conn {
	t.Helper()

	cfg := conn.Config{
		Host:           host,
		Port:           port,
		Username:       testUser,
		Password:       testPassword,
		Database:       testDB,
		ConnectTimeout: 10 * time.Second,
	}
	tweak(&cfg)

	c, err := conn.Dial(context.Background(), cfg)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestDial_HandshakeToIdle(t *testing.T) {
	t.Parallel()
	host, port := startMySQL(t)
	dial(t, host, port)
}

func TestQuery_SimpleSelect(t *testing.T) {
	t.Parallel()
	host, port := startMySQL(t)
	c := dial(t, host, port)

	set, err := c.Query(t.Context(), "SELECT 1 UNION SELECT 2 UNION SELECT 3")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if set.RowCh == nil {
		t.Fatal("expected a row stream")
	}

	var count int
	for row := range set.RowCh {
		count++
		field, ok := row.Field(0)
		if !ok || field.Null {
			t.Fatalf("row %d: missing field 0", count)
		}
	}
	if count != 3 {
		t.Errorf("expected 3 rows, got %d", count)
	}
}

func TestQuery_DDLAndAffectedRows(t *testing.T) {
	t.Parallel()
	host, port := startMySQL(t)
	c := dial(t, host, port)

	ctx := t.Context()
	if _, err := c.Exec(ctx, "CREATE TABLE widgets (id INT PRIMARY KEY)"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	set, err := c.Exec(ctx, "INSERT INTO widgets (id) VALUES (1), (2), (3)")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	rows, ok := set.RowsUpdated()
	if !ok {
		t.Fatal("expected an affected-rows result")
	}
	if rows != 3 {
		t.Errorf("expected 3 rows affected, got %d", rows)
	}
}

func TestPrepare_ExecuteWithBindings(t *testing.T) {
	t.Parallel()
	host, port := startMySQL(t)
	c := dial(t, host, port)

	ctx := t.Context()
	stmt, err := c.Prepare(ctx, "SELECT CONCAT(?, ?)")
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	defer func() { _ = stmt.Close(ctx) }()

	if stmt.ParamCount() != 2 {
		t.Fatalf("expected 2 params, got %d", stmt.ParamCount())
	}

	binding := conn.Binding{Slots: []conn.Slot{
		conn.Bind(protocol.TypeVarString, false, []byte("hello")),
		conn.Bind(protocol.TypeVarString, false, []byte("world")),
	}}
	set, err := stmt.Execute(ctx, binding)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if set.RowCh == nil {
		t.Fatal("expected a row stream")
	}
	row, ok := <-set.RowCh
	if !ok {
		t.Fatal("expected a row")
	}
	field, ok := row.Field(0)
	if !ok || string(field.Raw) != "helloworld" {
		t.Errorf("expected %q, got %q", "helloworld", field.Raw)
	}
}

func TestPrepare_InsertBatch(t *testing.T) {
	t.Parallel()
	host, port := startMySQL(t)
	c := dial(t, host, port)

	ctx := t.Context()
	if _, err := c.Exec(ctx, "CREATE TABLE batch_items (id INT PRIMARY KEY, name VARCHAR(32))"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	stmt, err := c.Prepare(ctx, "INSERT INTO batch_items (id, name) VALUES (?, ?)")
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	defer func() { _ = stmt.Close(ctx) }()

	for i := 1; i <= 5; i++ {
		binding := conn.Binding{Slots: []conn.Slot{
			conn.Bind(protocol.TypeLong, false, encodeInt32(int32(i))),
			conn.Bind(protocol.TypeVarString, false, []byte(fmt.Sprintf("item-%d", i))),
		}}
		set, err := stmt.Execute(ctx, binding)
		if err != nil {
			t.Fatalf("execute %d: %v", i, err)
		}
		if rows, ok := set.RowsUpdated(); !ok || rows != 1 {
			t.Errorf("insert %d: expected 1 row affected, got %d (ok=%v)", i, rows, ok)
		}
	}

	set, err := c.Query(ctx, "SELECT COUNT(*) FROM batch_items")
	if err != nil {
		t.Fatalf("count query: %v", err)
	}
	row, ok := <-set.RowCh
	if !ok {
		t.Fatal("expected a row")
	}
	field, _ := row.Field(0)
	if string(field.Raw) != "5" {
		t.Errorf("expected count 5, got %q", field.Raw)
	}
}

func TestQuery_CancelMidResult(t *testing.T) {
	t.Parallel()
	host, port := startMySQL(t)
	c := dial(t, host, port)

	ctx := t.Context()
	set, err := c.Query(ctx, "SELECT 1 UNION SELECT 2 UNION SELECT 3 UNION SELECT 4 UNION SELECT 5")
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	<-set.RowCh
	set.Cancel()
	for range set.RowCh {
	}

	// The connection's single exchange slot must be free again; a
	// second query on the same Conn is the observable proof.
	set2, err := c.Query(t.Context(), "SELECT 42")
	if err != nil {
		t.Fatalf("query after cancel: %v", err)
	}
	row, ok := <-set2.RowCh
	if !ok {
		t.Fatal("expected a row")
	}
	field, _ := row.Field(0)
	if string(field.Raw) != "42" {
		t.Errorf("expected 42, got %q", field.Raw)
	}
}

func TestQuery_SequenceResetAcrossExchanges(t *testing.T) {
	t.Parallel()
	host, port := startMySQL(t)
	c := dial(t, host, port)

	ctx := t.Context()
	for i := range 3 {
		set, err := c.Query(ctx, "SELECT 1")
		if err != nil {
			t.Fatalf("query %d: %v", i, err)
		}
		for range set.RowCh {
		}
	}
}

func TestQuery_MultiStatementWindows(t *testing.T) {
	t.Parallel()
	host, port := startMySQL(t)
	c := dialCfg(t, host, port, func(cfg *conn.Config) { cfg.MultiStatements = true })

	ctx := t.Context()
	set, err := c.Query(ctx, "SELECT 1; SELECT 2, 3; SELECT 'x'")
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	var windows [][]string
	for set != nil {
		var rows []string
		for row := range set.RowCh {
			var fields []string
			for i := 0; i < row.Columns.Len(); i++ {
				field, _ := row.Field(i)
				fields = append(fields, string(field.Raw))
			}
			rows = append(rows, fmt.Sprint(fields))
		}
		windows = append(windows, rows)

		set, err = set.NextResult(ctx)
		if err != nil {
			t.Fatalf("next result: %v", err)
		}
	}

	if len(windows) != 3 {
		t.Fatalf("expected 3 result windows, got %d", len(windows))
	}
	if len(windows[0]) != 1 || len(windows[1]) != 1 || len(windows[2]) != 1 {
		t.Errorf("expected 1 row in each window, got %v", windows)
	}
}

func TestQuery_MultiStatementWithAffectedRows(t *testing.T) {
	t.Parallel()
	host, port := startMySQL(t)
	c := dialCfg(t, host, port, func(cfg *conn.Config) { cfg.MultiStatements = true })

	ctx := t.Context()
	if _, err := c.Exec(ctx, "CREATE TABLE multi_items (id INT PRIMARY KEY)"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	set, err := c.Query(ctx, "INSERT INTO multi_items (id) VALUES (1); INSERT INTO multi_items (id) VALUES (2)")
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	var windows int
	for set != nil {
		rows, ok := set.RowsUpdated()
		if !ok || rows != 1 {
			t.Errorf("window %d: expected 1 row affected, got %d (ok=%v)", windows, rows, ok)
		}
		windows++

		set, err = set.NextResult(ctx)
		if err != nil {
			t.Fatalf("next result: %v", err)
		}
	}
	if windows != 2 {
		t.Errorf("expected 2 windows, got %d", windows)
	}
}

func TestPrepare_RebindToNullForcesNewParams(t *testing.T) {
	t.Parallel()
	host, port := startMySQL(t)
	c := dial(t, host, port)

	ctx := t.Context()
	if _, err := c.Exec(ctx, "CREATE TABLE nullable_items (id INT PRIMARY KEY, name VARCHAR(32))"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	stmt, err := c.Prepare(ctx, "INSERT INTO nullable_items (id, name) VALUES (?, ?)")
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	defer func() { _ = stmt.Close(ctx) }()

	// First execute: name bound as a non-null VAR_STRING.
	binding := conn.Binding{Slots: []conn.Slot{
		conn.Bind(protocol.TypeLong, false, encodeInt32(1)),
		conn.Bind(protocol.TypeVarString, false, []byte("alice")),
	}}
	if _, err := stmt.Execute(ctx, binding); err != nil {
		t.Fatalf("execute 1: %v", err)
	}

	// Second execute: same declared type, but NULL -- spec.md §8
	// scenario 3 requires this to still behave as a type change.
	binding = conn.Binding{Slots: []conn.Slot{
		conn.Bind(protocol.TypeLong, false, encodeInt32(2)),
		conn.BindNull(protocol.TypeVarString),
	}}
	set, err := stmt.Execute(ctx, binding)
	if err != nil {
		t.Fatalf("execute 2 (null rebind): %v", err)
	}
	if rows, ok := set.RowsUpdated(); !ok || rows != 1 {
		t.Errorf("expected 1 row affected, got %d (ok=%v)", rows, ok)
	}

	set, err = c.Query(ctx, "SELECT name FROM nullable_items WHERE id = 2")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	row, ok := <-set.RowCh
	if !ok {
		t.Fatal("expected a row")
	}
	field, ok := row.Field(0)
	if !ok || !field.Null {
		t.Errorf("expected NULL name, got %+v", field)
	}
}

func TestQuery_ErrorCapture(t *testing.T) {
	t.Parallel()
	host, port := startMySQL(t)
	c := dial(t, host, port)

	_, err := c.Query(t.Context(), "SELECT id FROM _nonexistent_table_12345")
	if err == nil {
		t.Fatal("expected an error")
	}
}

func encodeInt32(v int32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

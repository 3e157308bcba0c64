// Command mysqlcli is a small interactive demo client for the
// mysqlwire driver core: it dials a server, runs a scripted mix of
// simple queries, prepared statements, and EXPLAIN on a timer,
// printing syntax-highlighted SQL and results as it goes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/mickamy/mysqlwire/clipboard"
	"github.com/mickamy/mysqlwire/cmd/mysqlcli/cliwatch"
	"github.com/mickamy/mysqlwire/conn"
	"github.com/mickamy/mysqlwire/explain"
	"github.com/mickamy/mysqlwire/highlight"
	"github.com/mickamy/mysqlwire/protocol"
	"github.com/mickamy/mysqlwire/query"
)

var version = "dev"

func main() {
	fs := flag.NewFlagSet("mysqlcli", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "mysqlcli — mysqlwire demo client\n\nUsage:\n  mysqlcli [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}

	host := fs.String("host", "127.0.0.1", "server host")
	port := fs.Int("port", 3306, "server port")
	user := fs.String("user", "root", "username")
	pass := fs.String("password", "", "password")
	db := fs.String("database", "", "initial database")
	interval := fs.Duration("interval", 3*time.Second, "delay between rounds")
	copyPlan := fs.Bool("copy-plan", false, "copy each round's EXPLAIN plan to the system clipboard")
	watch := fs.Bool("watch", false, "render a live Bubble Tea view of the connection's exchange trace")
	showVersion := fs.Bool("version", false, "show version and exit")

	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("mysqlcli %s\n", version)
		return
	}

	var recorder *cliwatch.Recorder
	if *watch {
		recorder = cliwatch.NewRecorder()
	}

	cfg := conn.Config{
		Host:           *host,
		Port:           *port,
		Username:       *user,
		Password:       *pass,
		Database:       *db,
		ConnectTimeout: 5 * time.Second,
	}
	if recorder != nil {
		cfg.Tracer = recorder
	}

	if err := run(cfg, *interval, *copyPlan, recorder); err != nil {
		log.Fatal(err)
	}
}

func run(cfg conn.Config, interval time.Duration, copyPlan bool, recorder *cliwatch.Recorder) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c, err := conn.Dial(ctx, cfg)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = c.Close() }()

	if recorder == nil {
		fmt.Printf("connected to mysql at %s:%d\n", cfg.Host, cfg.Port)
	}

	quiet := recorder != nil

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for i := 1; ; i++ {
			if err := doRound(ctx, c, i, copyPlan, quiet); err != nil && !quiet {
				log.Printf("[%d] round failed: %v", i, err)
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	if recorder != nil {
		return cliwatch.Run(recorder.Rows())
	}

	<-ctx.Done()
	fmt.Println("shutting down")
	return nil
}

const upsertUser = "INSERT INTO users (name, email) VALUES (?, ?)" +
	" ON DUPLICATE KEY UPDATE name = VALUES(name)"

func doRound(ctx context.Context, c *conn.Conn, i int, copyPlan, quiet bool) error {
	name := fmt.Sprintf("user-%d", i)
	email := name + "@example.com"

	runSQL(ctx, c, "SELECT COUNT(*) FROM users", quiet)

	stmt, err := c.Prepare(ctx, upsertUser)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close(ctx) }()

	if !quiet {
		fmt.Println(highlight.SQL(query.Bind(upsertUser, []string{name, email})))
	}

	binding := conn.Binding{Slots: []conn.Slot{
		conn.Bind(protocol.TypeVarString, false, []byte(name)),
		conn.Bind(protocol.TypeVarString, false, []byte(email)),
	}}
	set, err := stmt.Execute(ctx, binding)
	if err != nil {
		return fmt.Errorf("exec upsert: %w", err)
	}
	if n, ok := set.RowsUpdated(); ok && !quiet {
		fmt.Printf("[%d] upserted %s (%d rows affected)\n", i, name, n)
	}

	explainCount(ctx, c, copyPlan, quiet)

	if i%3 == 0 {
		doNPlus1(ctx, c, i, quiet)
	}

	return nil
}

// explainCount runs EXPLAIN on the round's count query and prints the
// highlighted plan, optionally copying it to the clipboard. The
// exchange itself is still traced (and thus still visible under
// -watch) even when quiet suppresses this function's own stdout
// output.
func explainCount(ctx context.Context, c *conn.Conn, copyPlan, quiet bool) {
	result, err := explain.NewClient(c).Run(ctx, explain.Explain, "SELECT COUNT(*) FROM users", nil)
	if err != nil {
		if !quiet {
			log.Printf("explain: %v", err)
		}
		return
	}
	if !quiet {
		fmt.Println(highlight.Plan(result.Plan))
	}

	if copyPlan {
		if err := clipboard.Copy(ctx, result.Plan); err != nil && !quiet {
			log.Printf("clipboard: %v", err)
		}
	}
}

// runSQL prints highlighted SQL, runs it, and drains any rows so the
// connection's single active exchange frees up before the caller's
// next statement.
func runSQL(ctx context.Context, c *conn.Conn, sql string, quiet bool) {
	if !quiet {
		fmt.Println(highlight.SQL(sql))
	}
	set, err := c.Query(ctx, sql)
	if err != nil {
		if !quiet {
			log.Printf("query %q: %v", sql, err)
		}
		return
	}
	if set.RowCh == nil {
		return
	}
	for range set.RowCh {
	}
}

func doNPlus1(ctx context.Context, c *conn.Conn, i int, quiet bool) {
	stmt, err := c.Prepare(ctx, "SELECT name FROM users WHERE id = ?")
	if err != nil {
		if !quiet {
			log.Printf("prepare n+1: %v", err)
		}
		return
	}
	defer func() { _ = stmt.Close(ctx) }()

	for j := range 10 {
		id := (i+j)%100 + 1
		binding := conn.Binding{Slots: []conn.Slot{
			conn.Bind(protocol.TypeLong, false, encodeInt32(int32(id))),
		}}
		set, err := stmt.Execute(ctx, binding)
		if err != nil {
			if !quiet {
				log.Printf("exec n+1: %v", err)
			}
			continue
		}
		if set.RowCh != nil {
			for range set.RowCh {
			}
		}
	}
	if !quiet {
		fmt.Printf("[%d] N+1 simulation done (10 individual SELECTs)\n", i)
	}
}

func encodeInt32(v int32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

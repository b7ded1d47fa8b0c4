package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"heapdb/pkg/config"
	"heapdb/pkg/heapdb"
	"heapdb/pkg/record"
)

const (
	version = "0.1.0"
	banner  = `
heapdb CLI v%s
Heap-file storage engine REPL

Type 'help' for available commands
Type 'exit' or 'quit' to exit

`
	// demoSeed keeps 'seed' reproducible across runs.
	demoSeed = 42
)

var schema = record.Schema{
	{Name: "id", Type: record.Int},
	{Name: "value", Type: record.VarStr},
}

type cli struct {
	ctl     *heapdb.Controller
	scanner *bufio.Scanner
}

func newCLI(dataDir string) (*cli, error) {
	cfg := config.Default()
	cfg.DataDir = dataDir
	cfg.Sort.WorkDir = dataDir + "/spill"

	ctl, err := heapdb.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open heap: %w", err)
	}
	return &cli{ctl: ctl, scanner: bufio.NewScanner(os.Stdin)}, nil
}

func (c *cli) run() error {
	fmt.Printf(banner, version)

	for {
		fmt.Print("heapdb> ")
		if !c.scanner.Scan() {
			break
		}

		line := strings.TrimSpace(c.scanner.Text())
		if line == "" {
			continue
		}

		if err := c.execute(line); err != nil {
			if err.Error() == "exit" {
				fmt.Println("Goodbye!")
				return nil
			}
			fmt.Printf("Error: %v\n", err)
		}
	}
	return nil
}

func (c *cli) execute(line string) error {
	fields := strings.Fields(line)
	cmd := fields[0]

	switch cmd {
	case "exit", "quit":
		return fmt.Errorf("exit")

	case "help":
		printHelp()
		return nil

	case "insert":
		if len(fields) < 3 {
			return fmt.Errorf("usage: insert <id> <value>")
		}
		id, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid id: %w", err)
		}
		return c.ctl.Insert([]any{uint32(id), fields[2]}, schema)

	case "read":
		if len(fields) < 2 {
			return fmt.Errorf("usage: read <id>")
		}
		id, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid id: %w", err)
		}
		values, err := c.ctl.Read(uint32(id), schema)
		if err != nil {
			return err
		}
		fmt.Printf("id=%v value=%v\n", values[0], values[1])
		return nil

	case "update":
		if len(fields) < 3 {
			return fmt.Errorf("usage: update <id> <value>")
		}
		id, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid id: %w", err)
		}
		return c.ctl.Update(uint32(id), []any{uint32(id), fields[2]}, schema)

	case "delete":
		if len(fields) < 2 {
			return fmt.Errorf("usage: delete <id>")
		}
		id, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid id: %w", err)
		}
		return c.ctl.Delete(uint32(id), schema)

	case "commit":
		return c.ctl.Commit()

	case "sort":
		path, count, err := c.ctl.Sort(0)
		if err != nil {
			return err
		}
		fmt.Printf("sorted %d records into %s\n", count, path)
		return nil

	case "inspect":
		if len(fields) < 2 {
			return fmt.Errorf("usage: inspect <page>")
		}
		number, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid page number: %w", err)
		}
		dump, err := c.ctl.InspectPage(uint32(number))
		if err != nil {
			return err
		}
		fmt.Print(dump)
		return nil

	case "seed":
		if len(fields) < 2 {
			return fmt.Errorf("usage: seed <n>")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("invalid row count: %w", err)
		}
		inserted, err := c.ctl.SeedDemoData(n, schema, demoSeed)
		if err != nil {
			return err
		}
		fmt.Printf("inserted %d demo rows (try 'sort' next)\n", inserted)
		return nil

	default:
		return fmt.Errorf("unknown command: %s (type 'help')", cmd)
	}
}

func printHelp() {
	fmt.Println(`Available commands:
  insert <id> <value>   insert a record
  read <id>              read a record
  update <id> <value>   update a record (keeps id, changes value)
  delete <id>            delete a record
  commit                  flush to disk
  sort                    external merge sort, prints the result file path
  seed <n>                insert n synthetic demo rows
  inspect <page>          dump a data page's footer and slot directory
  help                    show this help
  exit, quit              leave the REPL`)
}

func main() {
	dataDir := "./data"
	if len(os.Args) > 1 {
		dataDir = os.Args[1]
	}

	c, err := newCLI(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start heapdb: %v\n", err)
		os.Exit(1)
	}
	defer c.ctl.Commit()

	if err := c.run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// Command navql compiles one or more source-language queries against a
// catalog and prints the rendered SQL (plus bound parameters) for each.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/navql"
	"github.com/syssam/navql/catalog"
	"github.com/syssam/navql/dialect"
	"github.com/syssam/navql/dialectcfg"
)

func main() {
	catalogPath := flag.String("catalog", "", "path to a catalog YAML file")
	dialectName := flag.String("dialect", dialect.Postgres, "dialect profile name or path to a dialectcfg YAML file")
	queryFile := flag.String("queries", "", "path to a file of newline-separated queries (defaults to stdin)")
	concurrency := flag.Int("concurrency", 4, "number of queries to compile concurrently")
	flag.Parse()

	if err := run(*catalogPath, *dialectName, *queryFile, *concurrency); err != nil {
		fmt.Fprintln(os.Stderr, "navql:", err)
		os.Exit(1)
	}
}

func run(catalogPath, dialectName, queryFile string, concurrency int) error {
	logger := slog.Default()

	if catalogPath == "" {
		return fmt.Errorf("-catalog is required")
	}
	cat, err := catalog.LoadStaticFile(catalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	profile, err := resolveProfile(dialectName)
	if err != nil {
		return err
	}

	queries, err := readQueries(queryFile)
	if err != nil {
		return err
	}

	compiler := navql.New(cat, profile)
	results := make([]result, len(queries))

	g := new(errgroup.Group)
	g.SetLimit(concurrency)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			correlationID := uuid.NewString()
			r, err := compiler.Compile(q, nil)
			if err != nil {
				logger.Warn("compile failed", "query", q, "correlation_id", correlationID, "err", err)
				results[i] = result{Query: q, Error: err.Error()}
				return nil
			}
			logger.Info("compiled", "query", q, "correlation_id", correlationID)
			results[i] = result{Query: q, SQL: r.SQL, Params: r.Params}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

type result struct {
	Query  string `json:"query"`
	SQL    string `json:"sql,omitempty"`
	Params []any  `json:"params,omitempty"`
	Error  string `json:"error,omitempty"`
}

func resolveProfile(name string) (dialect.Profile, error) {
	if profile, ok := dialect.ByName(name); ok {
		return profile, nil
	}
	cfg, err := dialectcfg.LoadFile(name)
	if err != nil {
		return dialect.Profile{}, fmt.Errorf("resolve dialect %q: %w", name, err)
	}
	return cfg.Profile()
}

func readQueries(path string) ([]string, error) {
	f := os.Stdin
	if path != "" {
		var err error
		f, err = os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open queries: %w", err)
		}
		defer f.Close()
	}
	var queries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		queries = append(queries, line)
	}
	return queries, scanner.Err()
}

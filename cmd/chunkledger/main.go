// Command chunkledger provides a CLI tool for inspecting ledger directories.
package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/vnykmshr/chunkledger"
	"github.com/vnykmshr/chunkledger/internal/chunk"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "stats":
		handleStats()
	case "inspect":
		handleInspect()
	case "read":
		handleRead()
	case "verify":
		handleVerify()
	case "version":
		fmt.Printf("chunkledger version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("chunkledger - Ledger Directory Inspection")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  chunkledger <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  stats <ledger-dir>             Show ledger statistics")
	fmt.Println("  inspect <ledger-dir>           Per-chunk listing")
	fmt.Println("  read <ledger-dir> <idx>        Print the entry at idx to stdout")
	fmt.Println("  verify <ledger-dir>            Walk every chunk and check integrity")
	fmt.Println("  version                        Show version information")
	fmt.Println("  help                           Show this help message")
	fmt.Println()
	fmt.Println("Configuration is read from $CHUNKLEDGER_CONFIG or ./chunkledger.toml.")
}

func openLedger(dir string) *chunkledger.Ledger {
	cfg := loadConfig()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.WarnLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	l, err := chunkledger.Open(dir, &chunkledger.Options{
		ChunkThreshold: cfg.ChunkThreshold,
		ReadCacheBound: cfg.ReadCacheBound,
		ReadOnlyDirs:   cfg.ReadOnlyDirs,
		Logger:         logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		os.Exit(1)
	}
	return l
}

func requireDir(usage string) string {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Error: ledger directory required")
		fmt.Fprintf(os.Stderr, "Usage: chunkledger %s\n", usage)
		os.Exit(1)
	}
	return os.Args[2]
}

func handleStats() {
	dir := requireDir("stats <ledger-dir>")

	l := openLedger(dir)
	defer l.Close()

	stats := l.Stats()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Ledger Statistics")
	fmt.Fprintln(w, "=================")
	fmt.Fprintf(w, "Directory:\t%s\n", dir)
	fmt.Fprintf(w, "Last Index:\t%d\n", stats.LastIndex)
	fmt.Fprintf(w, "Commit Index:\t%d\n", stats.CommitIndex)
	fmt.Fprintf(w, "Chunks:\t%d\n", stats.ChunkCount)
	fmt.Fprintf(w, "Committed Chunks:\t%d\n", stats.CommittedChunks)
	fmt.Fprintf(w, "Disk Usage:\t%s\n", humanize.Bytes(uint64(stats.DiskUsageBytes)))
	fmt.Fprintf(w, "Open Read Handles:\t%d\n", stats.OpenReadHandles)
	w.Flush()
}

func handleInspect() {
	dir := requireDir("inspect <ledger-dir>")

	infos, err := chunk.Discover(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading ledger directory: %v\n", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "START\tLAST\tENTRIES\tSIZE\tSTATE\tFILE")
	for _, info := range infos {
		c, err := chunk.Open(info.Path)
		if err != nil {
			fmt.Fprintf(w, "%d\t-\t-\t%s\tunreadable\t%s\n",
				info.StartIdx, humanize.Bytes(uint64(info.Size)), info.Path)
			continue
		}
		state := "pending"
		if info.Committed {
			state = "committed"
		}
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%s\t%s\n",
			c.StartIdx(), c.LastIdx(), c.EntryCount(),
			humanize.Bytes(uint64(info.Size)), state, info.Path)
		c.Close()
	}
	w.Flush()
}

func handleRead() {
	dir := requireDir("read <ledger-dir> <idx>")
	if len(os.Args) < 4 {
		fmt.Fprintln(os.Stderr, "Error: entry index required")
		os.Exit(1)
	}
	idx, err := strconv.ParseUint(os.Args[3], 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid index %q\n", os.Args[3])
		os.Exit(1)
	}

	l := openLedger(dir)
	defer l.Close()

	data, ok := l.ReadEntry(idx)
	if !ok {
		fmt.Fprintf(os.Stderr, "Entry %d not found (last index %d)\n", idx, l.LastIndex())
		os.Exit(1)
	}
	os.Stdout.Write(data)
}

func handleVerify() {
	dir := requireDir("verify <ledger-dir>")

	infos, err := chunk.Discover(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading ledger directory: %v\n", err)
		os.Exit(1)
	}

	var expected uint64
	problems := 0
	for _, info := range infos {
		c, err := chunk.Open(info.Path)
		if err != nil {
			fmt.Printf("FAIL  %s: %v\n", info.Path, err)
			problems++
			expected = 0
			continue
		}
		if expected != 0 && c.StartIdx() != expected {
			fmt.Printf("FAIL  %s: starts at %d, expected %d\n", info.Path, c.StartIdx(), expected)
			problems++
		} else {
			fmt.Printf("OK    %s: entries [%d, %d]\n", info.Path, c.StartIdx(), c.LastIdx())
		}
		expected = c.LastIdx() + 1
		c.Close()
	}

	if problems > 0 {
		fmt.Printf("\n%d chunk(s) failed verification\n", problems)
		os.Exit(1)
	}
	fmt.Printf("\n%d chunk(s) verified\n", len(infos))
}

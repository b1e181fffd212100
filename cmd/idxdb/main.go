// idxdb is an interactive shell over the storage engine.
// Run: go run ./cmd/idxdb -data data
// Type "help" for the commands.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"IdxDB/internal/config"
	storageengine "IdxDB/storage_engine"
)

func main() {
	cfg := config.Default()
	cfg.LogLevel = "warn"
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	se, err := storageengine.NewStorageEngine(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer se.Close()

	scanner := bufio.NewScanner(os.Stdin)
	// REPL
	for {
		fmt.Print("idx> ")

		if !scanner.Scan() { // Ctrl+D pressed
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(line, "exit") || strings.EqualFold(line, "quit") {
			break
		}
		if line == "" {
			continue
		}

		if err := execute(se, line, os.Stdout); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

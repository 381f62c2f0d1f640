package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/downfa11-org/go-journal/pkg/bench"
	"github.com/downfa11-org/go-journal/pkg/config"
	"github.com/downfa11-org/go-journal/pkg/journal"
)

func main() {
	location := flag.String("location", "", "journal directory (default: a temporary directory)")
	producers := flag.Int("producers", 12, "number of concurrent producers")
	messages := flag.Int("messages", 1000, "messages per producer")
	payload := flag.Int("payload", 256, "payload size in bytes")
	compression := flag.String("compression", "none", "payload compression (none, gzip, snappy, lz4)")
	confirm := flag.Bool("confirm", true, "delete every message after sending it")
	flag.Parse()

	dir := *location
	if dir == "" {
		tmp, err := os.MkdirTemp("", "journal-bench-")
		if err != nil {
			log.Fatalf("❌ temp dir: %v", err)
		}
		defer os.RemoveAll(tmp)
		dir = tmp
	}

	st, err := journal.NewStore(&config.Config{
		Location:       dir,
		GroupID:        "bench",
		Compression:    *compression,
		ArchiveAfterMS: -1,
	}, nil)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if err := st.Open(); err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer st.Close()

	runner := bench.NewBenchmarkRunner(st, *producers, *messages, *payload, config.DefaultRetryCount, *confirm)
	runner.Print(runner.Run(context.Background()))
}

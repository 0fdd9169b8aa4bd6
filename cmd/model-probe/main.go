// Package main 模型探测工具：列出候选、解析可用模型并输出结果
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"ptt-copy-ai/internal/config"
	"ptt-copy-ai/internal/infrastructure/secrets"
	"ptt-copy-ai/internal/wire"
	"ptt-copy-ai/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	provider := flag.String("provider", "", "provider name (default: llm.default_provider)")
	setKey := flag.Bool("set-key", false, "read an api key from stdin and store it in the keyring")
	listOnly := flag.Bool("list", false, "print candidates without probing")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	name := strings.TrimSpace(*provider)
	if name == "" {
		name = cfg.LLM.DefaultProvider
	}

	store, err := secrets.Open(cfg.Secrets)
	if *setKey {
		if err != nil {
			log.Fatalf("failed to open keyring: %v", err)
		}
		fmt.Fprintf(os.Stderr, "api key for %s: ", name)
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if err := store.Set(name, line); err != nil {
			log.Fatalf("failed to store key: %v", err)
		}
		fmt.Printf("stored api key for %s in keyring service %q\n", name, cfg.Secrets.KeyringService)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var getter secrets.Getter
	if err == nil {
		getter = store
	}
	if err := secrets.ResolveCredentials(ctx, cfg, getter); err != nil {
		log.Fatalf("%v", err)
	}

	probe, cleanup, err := wire.InitializeProbe(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize: %v", err)
	}
	defer cleanup()

	candidates, source, err := probe.Resolver.Candidates(ctx, name)
	if err != nil {
		log.Fatalf("failed to list candidates: %v", err)
	}
	fmt.Printf("provider: %s\ncandidate source: %s\n", name, source)
	for i, c := range candidates {
		fmt.Printf("  %2d. %s\n", i+1, c)
	}
	if *listOnly {
		return
	}

	res, err := probe.Resolver.Refresh(ctx, name)
	if err != nil {
		log.Fatalf("resolution failed: %v", err)
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
}

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/downfa11-org/go-journal/pkg/config"
	"github.com/downfa11-org/go-journal/pkg/controller"
	"github.com/downfa11-org/go-journal/pkg/journal"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Println("❌ Failed to load config:", err)
		os.Exit(1)
	}

	m := journal.NewManager(cfg, nil)
	defer m.CloseAll()

	ctx := controller.NewClientContext(cfg.GroupID)
	ch := controller.NewCommandHandler(m, cfg)

	fmt.Printf("🔹 Journal shell on group %s. Type HELP for commands.\n", cfg.GroupID)
	fmt.Println("")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.EqualFold(strings.TrimSpace(line), "EXIT") {
			break
		}
		result := ch.HandleCommand(line, ctx)
		fmt.Println(result)
	}
}

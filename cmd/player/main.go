package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/AaronLay10/AdventureEngine/internal/config"
	"github.com/AaronLay10/AdventureEngine/internal/player"
	"github.com/AaronLay10/AdventureEngine/internal/remote"
	"github.com/AaronLay10/AdventureEngine/internal/walkthrough"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config.yaml")
	logPath := flag.String("log", "", "write debug log to this file")
	flag.Parse()

	cfg, err := config.LoadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "player: %v\n", err)
		os.Exit(1)
	}

	if *logPath != "" {
		f, err := tea.LogToFile(*logPath, "player")
		if err != nil {
			fmt.Fprintf(os.Stderr, "player: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	learnerID := cfg.Player.LearnerID
	if learnerID == "" {
		learnerID = uuid.NewString()
	}
	client := remote.New(cfg.ServerURL(), learnerID, cfg.Timeout())
	log.Printf("player: learner %s on %s", learnerID, cfg.ServerURL())

	ctx, cancel := context.WithCancel(context.Background())
	w := walkthrough.New(ctx, client, client, cfg.Timeout())
	// In-flight step requests are abandoned before telemetry is flushed.
	defer func() {
		cancel()
		w.Close()
	}()

	p := tea.NewProgram(player.New(player.LoopController{W: w}), tea.WithAltScreen())
	w.OnChange(func(s walkthrough.Snapshot) {
		p.Send(player.SnapshotMsg(s))
	})

	go func() {
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("player: walkthrough stopped: %v", err)
		}
	}()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "player: %v\n", err)
		os.Exit(1)
	}
}

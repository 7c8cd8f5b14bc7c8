package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/sirupsen/logrus"

	"oddsley/internal/config"
	"oddsley/internal/database"
	"oddsley/internal/oddsapi"
	"oddsley/internal/services"
	"oddsley/internal/tasks"
)

// Runs one named task from the command line, e.g.
//
//	task -name update_events sport=soccer_epl
//	task -name update_odds sport=soccer_epl regions=au markets=h2h date=2023-09-01/00:00:00
func main() {
	name := flag.String("name", "", "task name to run")
	list := flag.Bool("list", false, "list registered tasks and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db := database.GetDB()
	client := oddsapi.NewClient(cfg.OddsAPI.BaseURL, cfg.OddsAPI.APIKey, logger)

	registry := tasks.NewRegistry(logger)
	taskSet := tasks.NewTasks(
		client,
		services.NewSportService(db, logger),
		services.NewEventService(db, logger),
		services.NewOddsService(db, logger),
		services.NewResultService(db, logger),
		cfg.Results.SourceTimezone,
	)
	taskSet.RegisterAll(registry)

	if *list {
		for _, taskName := range registry.Names() {
			fmt.Println(taskName)
		}
		return
	}

	if *name == "" {
		log.Fatal("A task name is required, e.g. -name update_sports (use -list to see all tasks)")
	}

	params := tasks.Params{}
	for _, arg := range flag.Args() {
		key, value, found := strings.Cut(arg, "=")
		if !found {
			log.Fatalf("Task parameters must be key=value pairs, got %q", arg)
		}
		params[key] = value
	}

	status, err := registry.Run(context.Background(), *name, params)
	if err != nil {
		log.Fatalf("Task failed: %v", err)
	}
	fmt.Println(status)
}

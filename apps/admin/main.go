package main

import (
	"log"
	"os"

	"github.com/gradewise/gradewise/core"
	logsvc "github.com/gradewise/gradewise/services/logger"
	"github.com/gradewise/gradewise/storage/database"
	sqlxrepos "github.com/gradewise/gradewise/storage/database/sqlx"
)

var logger *logsvc.RollbarLogger

func main() {
	conf := core.NewConfig()
	logger = logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal("creating database", err)
	}
	db, err := database.OpenX(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer func() { _ = db.Close() }()

	// start CLI
	cli := commandLine{
		conf:   conf,
		db:     db.DB,
		papers: sqlxrepos.NewPaperRepository(db),
		jobs:   sqlxrepos.NewGradingRepository(db),
		logger: logger,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			log.Printf("\nerror: %+v\n", err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}

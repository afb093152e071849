package main

import (
	"log"
	"os"

	"github.com/trezcool/notas/core"
	"github.com/trezcool/notas/core/grading"
	"github.com/trezcool/notas/services/email"
	"github.com/trezcool/notas/services/logger"
	"github.com/trezcool/notas/storage/database"
	"github.com/trezcool/notas/storage/database/sqlx"
)

func main() {
	stdLogger := log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer func() { _ = db.Close() }()
	if err = db.Ping(); err != nil {
		logger.Fatal("pinging database", err)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	grading.RegisterValidators(validate, translator)
	svc := grading.NewService(sqlxrepos.NewGradingRepository(db), grading.OpenRoster{}, mailSvc, logger, validate, conf)

	// start CLI
	cli := commandLine{
		db:     db.DB,
		engine: conf.Database.Engine,
		svc:    svc,
		out:    os.Stdout,
	}
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			stdLogger.Printf("\nerror: %s\n", err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/academic"
	"github.com/trezcool/gradebook/core/grading"
	"github.com/trezcool/gradebook/core/score"
	"github.com/trezcool/gradebook/core/user"
	emailsvc "github.com/trezcool/gradebook/services/email"
	logsvc "github.com/trezcool/gradebook/services/logger"
	"github.com/trezcool/gradebook/storage/database"
	sqlxrepos "github.com/trezcool/gradebook/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout*6)
	err := database.CreateIfNotExist(ctx, conf)
	cancel()
	if err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	scale, err := grading.LoadScaleFile(conf.Grading.ScaleFile)
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading grading scale: %v", err), err)
	}

	usrRepo := sqlxrepos.NewUserRepository(db)
	mailSvc := emailsvc.NewConsoleService(conf, logger)
	usrSvc := user.NewService(usrRepo, mailSvc, conf, logger)
	academicSvc := academic.NewService(sqlxrepos.NewAcademicRepository(db), usrSvc)
	scoreSvc := score.NewService(sqlxrepos.NewScoreRepository(db), academicSvc, mailSvc, scale, conf, logger)

	// start CLI
	cli := commandLine{
		db:       db.DB,
		usrRepo:  usrRepo,
		scoreSvc: scoreSvc,
		out:      os.Stdout,
	}
	err = cli.run(os.Args)

	_ = db.Close()
	logger.Close()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

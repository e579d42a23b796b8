package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
	logsvc "github.com/trezcool/darasa/services/logger"
	"github.com/trezcool/darasa/storage/database"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
	mongorepos "github.com/trezcool/darasa/storage/database/mongodb"
)

func main() {
	os.Exit(execute())
}

func execute() int {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(logger)

	ctx := context.Background()
	cli := commandLine{validate: validate}

	switch conf.Database.Engine {
	case "memory":
		cli.usrSvc = user.NewService(inmemdb.NewUserRepository(inmemdb.Open()))
	default:
		client, db, err := database.Open(ctx, conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
		}
		defer func(client *mongo.Client) {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Error(fmt.Sprintf("closing database: %v", err), err)
			}
		}(client)

		cli.usrSvc = user.NewService(mongorepos.NewUserRepository(db))
		cli.ensureIndexes = func(ctx context.Context) error { return database.EnsureIndexes(ctx, db) }
	}

	if err := cli.run(ctx, os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		return 1
	}
	return 0
}

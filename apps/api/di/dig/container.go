package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/chat"
	"github.com/trezcool/darasa/core/feedback"
	"github.com/trezcool/darasa/core/group"
	"github.com/trezcool/darasa/core/user"
	aisvc "github.com/trezcool/darasa/services/ai"
	emailsvc "github.com/trezcool/darasa/services/email"
	"github.com/trezcool/darasa/services/filestore"
	logsvc "github.com/trezcool/darasa/services/logger"
	"github.com/trezcool/darasa/storage/database"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
	mongorepos "github.com/trezcool/darasa/storage/database/mongodb"
)

const engineMemory = "memory"

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// IndexEnsurer creates the database indexes. It is a no-op for the memory engine.
	IndexEnsurer func(ctx context.Context) error

	// Closers releases, in reverse order, the clients opened by the providers.
	Closers struct {
		mu   sync.Mutex
		fns  []func(ctx context.Context) error
		name []string
	}

	repositories struct {
		dig.Out
		UserRepo       user.Repository
		GroupRepo      group.Repository
		AssignmentRepo assignment.Repository
		ChatRepo       chat.Repository
		Cleaner        group.AssignmentCleaner
		EnsureIndexes  IndexEnsurer
	}

	serverParams struct {
		dig.In
		Conf          *core.Config
		Logger        core.Logger
		UserSvc       user.ServiceInterface
		GroupSvc      group.ServiceInterface
		AssignmentSvc assignment.ServiceInterface
		FeedbackSvc   feedback.ServiceInterface
		ChatSvc       chat.ServiceInterface
		FileStore     filestore.Store
		Validate      *validator.Validate
		Translator    ut.Translator
	}
)

func (c *Closers) add(name string, fn func(ctx context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fns = append(c.fns, fn)
	c.name = append(c.name, name)
}

// Close runs every registered closer and reports the failures to logger.
func (c *Closers) Close(ctx context.Context, logger core.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.fns) - 1; i >= 0; i-- {
		if err := c.fns[i](ctx); err != nil {
			logger.Error(fmt.Sprintf("closing %s: %v", c.name[i], err), err)
		}
	}
	c.fns, c.name = nil, nil
}

func newClosers() *Closers {
	return new(Closers)
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newRepositories(conf *core.Config, loggerParam DBLoggerParam, closers *Closers) repositories {
	if conf.Database.Engine == engineMemory {
		loggerParam.Logger.Warn("using the in-memory database: data is lost on shutdown")
		db := inmemdb.Open()
		asgmtRepo := inmemdb.NewAssignmentRepository(db)
		return repositories{
			UserRepo:       inmemdb.NewUserRepository(db),
			GroupRepo:      inmemdb.NewGroupRepository(db),
			AssignmentRepo: asgmtRepo,
			ChatRepo:       inmemdb.NewChatRepository(db),
			Cleaner:        asgmtRepo,
			EnsureIndexes:  func(context.Context) error { return nil },
		}
	}

	client, db, err := database.Open(context.Background(), conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	closers.add("database", client.Disconnect)

	asgmtRepo := mongorepos.NewAssignmentRepository(db)
	return repositories{
		UserRepo:       mongorepos.NewUserRepository(db),
		GroupRepo:      mongorepos.NewGroupRepository(db),
		AssignmentRepo: asgmtRepo,
		ChatRepo:       mongorepos.NewChatRepository(db),
		Cleaner:        asgmtRepo,
		EnsureIndexes: func(ctx context.Context) error {
			return database.EnsureIndexes(ctx, db)
		},
	}
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newGenerator(conf *core.Config, logger core.Logger, closers *Closers) (feedback.Generator, error) {
	gen, closer, err := aisvc.NewGenerator(context.Background(), conf, logger)
	if err != nil {
		return nil, errors.Wrap(err, "setting up AI generator")
	}
	closers.add("AI client", func(context.Context) error { return closer.Close() })
	return gen, nil
}

func newFileStore(conf *core.Config, closers *Closers) (filestore.Store, error) {
	store, closer, err := filestore.New(context.Background(), conf)
	if err != nil {
		return nil, errors.Wrap(err, "setting up file store")
	}
	closers.add("file store", func(context.Context) error { return closer.Close() })
	return store, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		UserSvc:       p.UserSvc,
		GroupSvc:      p.GroupSvc,
		AssignmentSvc: p.AssignmentSvc,
		FeedbackSvc:   p.FeedbackSvc,
		ChatSvc:       p.ChatSvc,
		FileStore:     p.FileStore,
		Validate:      p.Validate,
		Translator:    p.Translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newClosers))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newRepositories))
	must(c.Provide(newEmailService))
	must(c.Provide(newGenerator))
	must(c.Provide(newFileStore))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))
	must(c.Provide(user.NewService, dig.As(new(user.ServiceInterface))))
	must(c.Provide(group.NewService, dig.As(new(group.ServiceInterface))))
	must(c.Provide(feedback.NewService, dig.As(new(feedback.ServiceInterface))))
	must(c.Provide(assignment.NewService, dig.As(new(assignment.ServiceInterface))))
	must(c.Provide(chat.NewService, dig.As(new(chat.ServiceInterface))))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}

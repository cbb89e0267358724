package dig_container

import (
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/gradewise/gradewise/apps/api/echo"
	"github.com/gradewise/gradewise/core"
	"github.com/gradewise/gradewise/core/grading"
	"github.com/gradewise/gradewise/core/paper"
	emailsvc "github.com/gradewise/gradewise/services/email"
	logsvc "github.com/gradewise/gradewise/services/logger"
	"github.com/gradewise/gradewise/storage/database"
	inmemdb "github.com/gradewise/gradewise/storage/database/inmem"
	sqlxrepos "github.com/gradewise/gradewise/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	GradingLoggerParam struct {
		dig.In
		Logger core.Logger `name:"gradingLogger"`
	}

	// StorageCloser releases the storage backend on shutdown.
	StorageCloser func() error

	Stores struct {
		dig.Out
		Papers paper.Repository
		Jobs   grading.Repository
		Close  StorageCloser
	}
)

func newStdLogger(prefix string) *log.Logger {
	return log.New(os.Stdout, prefix+" : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
}

func newRollbarLogger(prefix string, conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(newStdLogger(prefix), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newLogger(conf *core.Config) core.Logger        { return newRollbarLogger("API", conf) }
func newDBLogger(conf *core.Config) core.Logger      { return newRollbarLogger("DB", conf) }
func newGradingLogger(conf *core.Config) core.Logger { return newRollbarLogger("GRADING", conf) }

func newStores(conf *core.Config, loggerParam DBLoggerParam) (Stores, error) {
	switch conf.Storage {
	case core.StorageMemory:
		db, err := inmemdb.Open()
		if err != nil {
			return Stores{}, errors.Wrap(err, "opening in-memory database")
		}
		return Stores{
			Papers: inmemdb.NewPaperRepository(db),
			Jobs:   inmemdb.NewGradingRepository(db),
			Close:  func() error { return nil },
		}, nil

	case core.StoragePostgres:
		if err := database.CreateIfNotExist(conf); err != nil {
			return Stores{}, err
		}
		db, err := database.OpenX(conf)
		if err != nil {
			return Stores{}, err
		}
		if err = database.Migrate(db.DB, "up"); err != nil {
			_ = db.Close()
			return Stores{}, err
		}
		loggerParam.Logger.Info("database ready", map[string]interface{}{"host": conf.Database.Address(), "name": conf.Database.Name})
		return Stores{
			Papers: sqlxrepos.NewPaperRepository(db),
			Jobs:   sqlxrepos.NewGradingRepository(db),
			Close:  db.Close,
		}, nil
	}
	return Stores{}, errors.Errorf("unknown storage %q", conf.Storage)
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	paper.InitValidators(validate, translator)
	return validate
}

func newProgressor(conf *core.Config) grading.Progressor {
	return grading.NewRandomProgressor(conf.Grading.MaxIncrement)
}

func newScheduler(
	conf *core.Config,
	jobs grading.Repository,
	progressor grading.Progressor,
	mailSvc core.EmailService,
	loggerParam GradingLoggerParam,
) *grading.Scheduler {
	sched := grading.NewScheduler(jobs, progressor, grading.SchedulerConfig{
		TickInterval:    conf.Grading.TickInterval,
		MaxDuration:     conf.Grading.MaxDuration,
		MaxTickFailures: conf.Grading.MaxTickFailures,
	}, loggerParam.Logger)

	if notifier := emailsvc.NewGradingNotifier(mailSvc, conf); notifier != nil {
		sched.OnTerminal(notifier.JobFinished)
	}
	return sched
}

func newReaper(conf *core.Config, jobs grading.Repository, loggerParam GradingLoggerParam) (*grading.Reaper, error) {
	return grading.NewReaper(jobs, conf.Grading.Retention, conf.Grading.ReapSchedule, loggerParam.Logger)
}

func newGradingService(
	conf *core.Config,
	jobs grading.Repository,
	papers paper.Repository,
	sched *grading.Scheduler,
	loggerParam GradingLoggerParam,
) *grading.Service {
	return grading.NewService(jobs, papers, sched, conf.Grading.EstimatedTime, loggerParam.Logger)
}

func newServer(
	conf *core.Config,
	logger core.Logger,
	paperSvc *paper.Service,
	gradingSvc *grading.Service,
	validate *validator.Validate,
	translator ut.Translator,
) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		PaperSvc:   paperSvc,
		GradingSvc: gradingSvc,
		Validate:   validate,
		Translator: translator,
	})
}

// New returns a new dependency injection dig.Container. newConfig defaults to core.NewConfig.
func New(newConfig ...func() *core.Config) *dig.Container {
	c := dig.New()

	confFunc := core.NewConfig
	if len(newConfig) > 0 {
		confFunc = newConfig[0]
	}

	must(c.Provide(confFunc))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newGradingLogger, dig.Name("gradingLogger")))
	must(c.Provide(newStores))
	must(c.Provide(newEmailService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(newProgressor))
	must(c.Provide(newScheduler))
	must(c.Provide(newReaper))
	must(c.Provide(paper.NewService))
	must(c.Provide(newGradingService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}

package loggers

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/pkg/errors"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"

	"github.com/axiomesh/token-ledger/pkg/repo"
)

const (
	Executor       = "executor"
	App            = "app"
	API            = "api"
	Storage        = "storage"
	SystemContract = "system_contract"
)

var w = &LoggerWrapper{
	loggers: map[string]*logrus.Entry{
		Executor:       newWithModule(logrus.StandardLogger(), Executor),
		App:            newWithModule(logrus.StandardLogger(), App),
		API:            newWithModule(logrus.StandardLogger(), API),
		Storage:        newWithModule(logrus.StandardLogger(), Storage),
		SystemContract: newWithModule(logrus.StandardLogger(), SystemContract),
	},
}

type LoggerWrapper struct {
	loggers map[string]*logrus.Entry
}

func newWithModule(l *logrus.Logger, module string) *logrus.Entry {
	return l.WithField("module", module)
}

// ParseLevel falls back to info on unknown level names.
func ParseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// Initialize rebuilds the module loggers from config. With persist set, every
// module also writes to a daily rotated file under the repo logs dir.
func Initialize(rep *repo.Repo, persist bool) error {
	config := rep.Config.Log

	var hook logrus.Hook
	if persist {
		logDir := filepath.Join(rep.RepoRoot, repo.LogsDirName)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return errors.Wrap(err, "create log dir")
		}
		writer, err := rotatelogs.New(
			filepath.Join(logDir, config.Filename+".%Y%m%d.log"),
			rotatelogs.WithLinkName(filepath.Join(logDir, config.Filename+".log")),
			rotatelogs.WithMaxAge(time.Duration(config.MaxAge)*24*time.Hour),
			rotatelogs.WithRotationTime(config.RotationTime.ToDuration()),
		)
		if err != nil {
			return errors.Wrap(err, "log initialize")
		}
		hook = lfshook.NewHook(writer, &logrus.JSONFormatter{})
	}

	newModule := func(module, level string) *logrus.Entry {
		l := logrus.New()
		l.SetReportCaller(config.ReportCaller)
		l.SetFormatter(&logrus.TextFormatter{
			ForceColors:      config.EnableColor,
			DisableColors:    !config.EnableColor,
			DisableTimestamp: config.DisableTimestamp,
			FullTimestamp:    true,
			TimestampFormat:  "2006-01-02T15:04:05.000",
		})
		l.SetLevel(ParseLevel(level))
		if hook != nil {
			l.AddHook(hook)
		}
		return newWithModule(l, module)
	}

	m := make(map[string]*logrus.Entry)
	m[Executor] = newModule(Executor, config.Module.Executor)
	m[App] = newModule(App, config.Module.APP)
	m[API] = newModule(API, config.Module.API)
	m[Storage] = newModule(Storage, config.Module.Storage)
	m[SystemContract] = newModule(SystemContract, config.Module.SystemContract)

	w = &LoggerWrapper{loggers: m}
	return nil
}

func Logger(name string) logrus.FieldLogger {
	return w.loggers[name]
}

package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Log: глобальный логгер. До вызова Init пишет в stderr с уровнем Info.
var Log = logrus.New()

// Init настраивает уровень и формат логов. В development пишем текстом,
// в остальных окружениях JSON для сборщика логов.
func Init(level, env string) {
	l := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	if env == "development" {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap:        logrus.FieldMap{logrus.FieldKeyMsg: "message"},
		})
	}
	Log = l

	if err != nil {
		l.WithField("level", level).Warn("неизвестный уровень логирования, используется info")
	}
}

// WithUser возвращает запись лога с полем user_id.
func WithUser(userID any) *logrus.Entry {
	return Log.WithField("user_id", userID)
}

// WithJob возвращает запись лога с полем job_id.
func WithJob(jobID any) *logrus.Entry {
	return Log.WithField("job_id", jobID)
}

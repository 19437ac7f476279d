package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Log глобальный логгер сервиса. До вызова Init пишет в stderr с уровнем info.
var Log = logrus.New()

// Init инициализирует структурированный логгер.
func Init(level string) {
	Log = logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	// Используем JSON формат для production, text для development
	Log.SetFormatter(&logrus.JSONFormatter{})
}

// SetTextFormatter устанавливает текстовый формат логов (для development).
func SetTextFormatter() {
	Log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

// Discard отключает вывод логов (используется в тестах).
func Discard() {
	Log.SetOutput(io.Discard)
}

// RecoveryLogger направляет сообщения о перехваченных panic в глобальный логгер.
type RecoveryLogger struct{}

func (RecoveryLogger) Errorf(format string, args ...interface{}) {
	Log.Errorf(format, args...)
}

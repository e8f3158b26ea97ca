package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is a logger
type Logger struct {
	*zap.SugaredLogger
}

// Option configures a Logger
type Option func(*options)

type options struct {
	file       string
	maxSizeMB  int
	maxBackups int
}

// WithFile additionally writes every log line to a size-rotated file
func WithFile(path string, maxSizeMB, maxBackups int) Option {
	return func(o *options) {
		o.file = path
		o.maxSizeMB = maxSizeMB
		o.maxBackups = maxBackups
	}
}

// New creates a new logger
func New(loglevel zapcore.Level, opts ...Option) *Logger {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	// Log errors to stderr
	stderrLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= loglevel && lvl >= zapcore.ErrorLevel
	})

	stdoutLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= loglevel && lvl < zapcore.ErrorLevel
	})

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), stderrLevel),
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), stdoutLevel),
	}

	if o.file != "" {
		rotating := &lumberjack.Logger{
			Filename:   o.file,
			MaxSize:    o.maxSizeMB,
			MaxBackups: o.maxBackups,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(rotating), zap.NewAtomicLevelAt(loglevel)))
	}

	log := zap.New(zapcore.NewTee(cores...), zap.AddCaller())

	// Redirect stdlib log package to zap
	_, _ = zap.RedirectStdLogAt(log, zapcore.ErrorLevel)

	return &Logger{
		log.Sugar(),
	}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{zap.NewNop().Sugar()}
}

// Request returns a child logger annotated with the identity of an image request
func (l *Logger) Request(taskID, url string, circle bool) *Logger {
	return &Logger{l.With("task-id", taskID, "url", url, "circle", circle)}
}

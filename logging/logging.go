package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Options selects the level and output format of the logger.
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// New builds a logger. Format "json" emits one JSON object per line; anything
// else uses logrus' text formatter with full timestamps.
func New(opts Options) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetLevel(level)
	if opts.Output != nil {
		log.SetOutput(opts.Output)
	} else {
		log.SetOutput(os.Stdout)
	}

	if opts.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}

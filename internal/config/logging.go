package config

import (
	"github.com/sirupsen/logrus" // Logging library
)

// SetupLogger configures the global logrus logger: JSON in production,
// human readable text with full timestamps otherwise
func (c *Config) SetupLogger() {
	if c.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		logrus.WithField("level", c.LogLevel).Warn("Unknown LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

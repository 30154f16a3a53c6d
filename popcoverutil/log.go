/*
Copyright © 2026 the popcover authors.
This file is part of popcover.

popcover is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

popcover is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with popcover.  If not, see <http://www.gnu.org/licenses/>.
*/


package popcoverutil

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// logger returns a logger that writes to standard error and, if LogFile
// is set, to a rotated log file. The returned function closes the log file.
func (cfg *Cfg) logger() (*logrus.Logger, func(), error) {
	log := logrus.New()
	log.Formatter = &logrus.TextFormatter{
		ForceColors:     true,
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339Nano,
		DisableSorting:  true,
	}
	lvl, err := logrus.ParseLevel(cfg.GetString("LogLevel"))
	if err != nil {
		return nil, nil, fmt.Errorf("popcover: invalid LogLevel: %v", err)
	}
	log.Level = lvl

	var out io.Writer = os.Stderr
	logFile := os.ExpandEnv(cfg.GetString("LogFile"))
	if logFile == "" {
		log.Out = out
		return log, func() {}, nil
	}
	w := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    64, // MB
		MaxBackups: 3,
		MaxAge:     28,
	}
	log.Out = io.MultiWriter(out, w)
	return log, func() { w.Close() }, nil
}

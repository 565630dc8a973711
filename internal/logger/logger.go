package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

// Log is the process-wide logger. Stdout belongs to the JSON envelope, so
// Log only ever writes to stderr and the optional log file.
var Log = logrus.New()

// Init points the logger at out (normally stderr) and, when logDir is set,
// also appends to logDir/odbcbridge.log.
func Init(out io.Writer, logDir, level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.WarnLevel
	}
	Log.SetLevel(lvl)

	if isTerminal(out) {
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		Log.SetFormatter(&logrus.JSONFormatter{})
	}

	if logDir == "" {
		Log.SetOutput(out)
		return nil
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		Log.SetOutput(out)
		return err
	}

	logFile, err := os.OpenFile(filepath.Join(logDir, "odbcbridge.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		Log.SetOutput(out)
		return err
	}

	Log.SetOutput(io.MultiWriter(out, logFile))
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

package common

import (
	"bytes"
	"os"

	"github.com/sirupsen/logrus"
)

// OutputSplitter sends error level entries to stderr and everything else to stdout.
type OutputSplitter struct{}

var (
	textErrorLevel = []byte("level=error")
	jsonErrorLevel = []byte(`"level":"error"`)
)

func (splitter *OutputSplitter) Write(p []byte) (n int, err error) {
	if bytes.Contains(p, textErrorLevel) || bytes.Contains(p, jsonErrorLevel) {
		return os.Stderr.Write(p)
	}
	return os.Stdout.Write(p)
}

// Logger is the process-wide logger.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(&OutputSplitter{})
}

package global

import (
	"os"

	"github.com/go-kit/log"
)

// Logger is the process-wide logfmt logger. Credential values never reach
// it and identity handles are shortened (util.ShortIdentity) before they do.
var Logger log.Logger

func init() {
	Logger = log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	Logger = log.With(Logger, "ts", log.DefaultTimestampUTC)
}

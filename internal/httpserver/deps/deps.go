package deps

import (
	"time"

	"github.com/jmallet/outreach/internal/ledger"
	"github.com/jmallet/outreach/internal/logger"
	"github.com/jmallet/outreach/internal/safety"
)

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string
	TimeNow   func() time.Time // for testing, defaults to time.Now

	Ledger ledger.Ledger   // read-only here: handlers never write
	Quota  *safety.Manager // quota usage and next-eligible estimates
}

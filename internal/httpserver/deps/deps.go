package deps

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/markstack/markstack/internal/backup"
	"github.com/markstack/markstack/internal/engine"
	"github.com/markstack/markstack/internal/gist"
	"github.com/markstack/markstack/internal/local"
	"github.com/markstack/markstack/internal/logger"
	"github.com/markstack/markstack/internal/scheduler"
)

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string

	Scheduler   *scheduler.SyncScheduler // sync + resolve entrypoints
	Engine      *engine.Engine           // state/conflict introspection
	Local       *local.Store             // bookmark CRUD surface
	Backups     *backup.Manager          // backup operations
	Gist        *gist.Client             // auth + rate-limit status
	RedisClient *redis.Client            // readiness probe
}

package session

import (
	"database/sql"
	"go-course-format/internal/config"
	"net/http"
	"time"

	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
)

// New creates a session manager whose store matches the database driver.
// PostgreSQL deployments keep sessions in process memory.
func New(cfg config.SessionConfig, secure bool, driver string, db *sql.DB) *scs.SessionManager {
	sm := scs.New()
	switch driver {
	case "mysql":
		sm.Store = mysqlstore.New(db)
	case "sqlite3":
		sm.Store = sqlite3store.New(db)
	default:
		sm.Store = memstore.New()
	}
	sm.Lifetime = time.Duration(cfg.Lifetime) * time.Hour
	sm.Cookie.Name = "CourseSession"
	sm.Cookie.Persist = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = secure
	return sm
}

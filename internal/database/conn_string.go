package database

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rickgao/pairs-data/internal/config"
)

// BuildConnString builds a pgx connection URL. The password is escaped as URL userinfo.
func BuildConnString(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = config.DefaultDBSSLMode
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:     "/" + cfg.Name,
		RawQuery: "sslmode=" + url.QueryEscape(sslMode),
	}
	return u.String()
}

// BuildSQLiteDSN builds a modernc.org/sqlite DSN with WAL journaling and a busy timeout.
func BuildSQLiteDSN(cfg config.SQLiteConfig) string {
	path := cfg.Path
	if path == "" {
		path = "data.db"
	}
	busy := cfg.BusyTimeout.D().Milliseconds()
	if busy <= 0 {
		busy = 5000
	}

	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy))
	if path != ":memory:" {
		q.Add("_pragma", "journal_mode(WAL)")
	}
	q.Add("_pragma", "synchronous(NORMAL)")

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + path + sep + q.Encode()
}

package database

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeMySQLDSN turns a URL-style DSN (mysql://, jdbc:mysql://) into the
// go-sql-driver form user:pass@tcp(host:port)/db?params. Driver-native DSNs
// pass through untouched. user and pass, when set, override the DSN's
// credentials. JDBC parameters are translated and parseTime/charset get
// defaults so DATETIME columns scan into time.Time.
func NormalizeMySQLDSN(input, user, pass string) string {
	in := strings.TrimSpace(input)
	in = strings.TrimPrefix(in, "jdbc:")
	if !strings.HasPrefix(in, "mysql://") {
		return in
	}
	u, err := url.Parse(in)
	if err != nil {
		return in // let the driver report it
	}

	var dsnUser, dsnPass string
	if u.User != nil {
		dsnUser = u.User.Username()
		dsnPass, _ = u.User.Password()
	}
	q := u.Query()
	if v := q.Get("user"); v != "" {
		dsnUser = v
	}
	if v := q.Get("password"); v != "" {
		dsnPass = v
	}
	q.Del("user")
	q.Del("password")
	if user != "" {
		dsnUser = user
	}
	if pass != "" {
		dsnPass = pass
	}

	if v := q.Get("characterEncoding"); v != "" && q.Get("charset") == "" {
		q.Set("charset", v)
	}
	for _, k := range []string{"characterEncoding", "useUnicode", "zeroDateTimeBehavior"} {
		q.Del(k)
	}
	if v := strings.ToLower(q.Get("useSSL")); v != "" {
		switch v {
		case "true", "1":
			q.Set("tls", "true")
		case "skip-verify", "preferred":
			q.Set("tls", v)
		default:
			q.Set("tls", "false")
		}
		q.Del("useSSL")
	}
	if tz := q.Get("serverTimezone"); tz != "" {
		q.Set("loc", tz)
		q.Del("serverTimezone")
	}
	if q.Get("parseTime") == "" {
		q.Set("parseTime", "true")
	}
	if q.Get("charset") == "" {
		q.Set("charset", "utf8mb4")
	}

	cred := dsnUser
	if dsnPass != "" {
		cred += ":" + dsnPass
	}
	if cred != "" {
		cred += "@"
	}
	dsn := fmt.Sprintf("%stcp(%s)/%s", cred, u.Host, strings.TrimPrefix(u.Path, "/"))
	if enc := q.Encode(); enc != "" {
		dsn += "?" + enc
	}
	return dsn
}

// maskDSN hides the password of a user:pass@... DSN for logging.
func maskDSN(dsn string) string {
	at := strings.Index(dsn, "@")
	if at <= 0 {
		return dsn
	}
	colon := strings.Index(dsn[:at], ":")
	if colon <= 0 {
		return dsn
	}
	return dsn[:colon+1] + "****" + dsn[at:]
}

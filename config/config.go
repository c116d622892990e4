package config

import (
	"errors"
	"flag"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr          string
	DBUrl         string
	TokenSecret   string
	TokenTTL      time.Duration
	AdminUsername string
	AdminPassword string
	PublicDir     string
	PrivateDir    string
	CORSOrigins   []string
	Debug         bool
}

func ParseFlags() (Config, error) {
	return ParseArgs(os.Args[1:])
}

func ParseArgs(args []string) (cfg Config, err error) {
	fs := flag.NewFlagSet("quick-form", flag.ContinueOnError)

	var host string
	fs.StringVar(&host, "host", "0.0.0.0", "listen host name")
	var port uint
	fs.UintVar(&port, "port", 80, "listen port number")
	fs.StringVar(&cfg.DBUrl, "db-url", "qform.sqlite", "path to SQLite3 DB file")
	fs.StringVar(&cfg.TokenSecret, "token-secret", "", "secret key for token encryption and decryption")
	var ttl uint
	fs.UintVar(&ttl, "token-ttl", 120, "token TTL in seconds")
	fs.StringVar(&cfg.AdminUsername, "admin-username", "admin", "bootstrap admin account, created on first login")
	fs.StringVar(&cfg.AdminPassword, "admin-password", "admin", "password of the bootstrap admin account")
	fs.StringVar(&cfg.PublicDir, "public-dir", "public", "directory served at /")
	fs.StringVar(&cfg.PrivateDir, "private-dir", "private", "directory served at /admin")
	var origins string
	fs.StringVar(&origins, "cors-origins", "*", "comma separated list of allowed CORS origins")
	fs.BoolVar(&cfg.Debug, "debug", false, "log at DEBUG level")

	if err = fs.Parse(args); err != nil {
		return
	}

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	switch {
	case cfg.TokenSecret == "":
		err = errors.New("missing parameter -token-secret")
	case cfg.AdminUsername == "":
		err = errors.New("parameter -admin-username must not be empty")
	}

	return
}

var reAnyHost = regexp.MustCompile(`^0\.0\.0\.0`)

func (cfg Config) Url() (url string) {
	url = reAnyHost.ReplaceAllString(cfg.Addr, "localhost")
	url = "http://" + url
	return
}

package configuration

import (
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/role-import/pkg/logging"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
)

// DefaultEnvFiles are loaded when no --env-file flag is given.
var DefaultEnvFiles = []string{".env", ".env.local"}

func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if fs.FileExists(file) {
			existingFiles = append(existingFiles, file)
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

type DatabaseOptions struct {
	Driver   string        `env:"DB_DRIVER" envDefault:"mysql" validate:"oneof=mysql postgres pgx"`
	DSN      string        `env:"DB_DSN"`
	Name     string        `env:"DB_NAME" envDefault:"auth_server"`
	Host     string        `env:"DB_HOST" envDefault:"localhost"`
	Port     string        `env:"DB_PORT" envDefault:"3306"`
	User     string        `env:"DB_USER" envDefault:"root"`
	Password string        `env:"DB_PASSWORD"`
	Timeout  time.Duration `env:"DB_TIMEOUT" envDefault:"30s" validate:"gt=0"`

	UsersTable string `env:"DB_USERS_TABLE" envDefault:"auth_user" validate:"required,sqlident"`
	RolesTable string `env:"DB_ROLES_TABLE" envDefault:"auth_role" validate:"required,sqlident"`
	JoinTable  string `env:"DB_JOIN_TABLE" envDefault:"auth_contact_user_role" validate:"required,sqlident"`
}

// ConnectionString returns DB_DSN verbatim when set, otherwise a DSN built
// for the configured driver.
func (d *DatabaseOptions) ConnectionString() string {
	if strings.TrimSpace(d.DSN) != "" {
		return d.DSN
	}
	switch d.Driver {
	case DriverMySQL:
		cfg := mysql.NewConfig()
		cfg.User = d.User
		cfg.Passwd = d.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(d.Host, d.Port)
		cfg.DBName = d.Name
		return cfg.FormatDSN()
	default:
		return fmt.Sprintf(
			"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
			d.Host, d.Port, d.User, d.Name, d.Password,
		)
	}
}

type ImportOptions struct {
	StartRow    int  `env:"IMPORT_START_ROW" envDefault:"1" validate:"gte=0"`
	BatchCommit bool `env:"IMPORT_BATCH_COMMIT" envDefault:"true"`
}

type MetricsOptions struct {
	PushgatewayURL string `env:"PUSHGATEWAY_URL"`
	Job            string `env:"METRICS_JOB" envDefault:"role_import"`
}

type Configuration struct {
	Database DatabaseOptions
	Import   ImportOptions
	Metrics  MetricsOptions
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	logger *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	return logging.ParseLevel(c.LogLevel)
}

// Load reads the given env files (missing ones are ignored), parses the
// process environment and validates the result.
func Load(envFiles []string) (*Configuration, error) {
	c := &Configuration{}
	if err := c.load(envFiles); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 && len(envFiles) > 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if err := newValidator().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Database.DSN == "" && c.Database.Driver != DriverMySQL && c.Database.Port == "3306" {
		log.Printf("DB_DRIVER=%s with DB_PORT=3306; set DB_PORT for postgres", c.Database.Driver)
	}

	c.logger = logging.ConsoleLogger(c.LogrusLogLevel())
	return nil
}

var sqlIdentRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("sqlident", func(fl validator.FieldLevel) bool {
		return sqlIdentRe.MatchString(fl.Field().String())
	})
	return v
}

// ValidIdentifier reports whether name is safe to interpolate as a table name.
func ValidIdentifier(name string) bool {
	return sqlIdentRe.MatchString(name)
}

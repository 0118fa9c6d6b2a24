package daemon

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ssobridge/ssobridge/internal/config"
	"github.com/ssobridge/ssobridge/internal/db/dsn"
	"github.com/ssobridge/ssobridge/internal/db/models"
	"github.com/ssobridge/ssobridge/internal/sso"
	"github.com/ssobridge/ssobridge/internal/token"
	"github.com/ssobridge/ssobridge/internal/web"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	webService web.Service
}

// Start starts the Daemon's web service and blocks until it shut down.
func (d *Daemon) Start() error {
	go d.webService.WaitShutdown()

	return d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	db, err := gorm.Open(openDialector(cfg), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	if err = db.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.Role{},
		&models.TenantSSOConfig{},
		&models.ExternalUserMapping{},
		&models.UserProfile{},
	); err != nil {
		panic("failed to migrate database")
	}

	seed(cfg, db)

	registry := sso.NewRegistry(
		sso.NewCASProvider(),
		sso.NewLDAPProvider(),
		sso.NewKeycloakProvider(),
		sso.NewJWTProvider(),
		sso.NewRESTTokenProvider(),
		sso.NewHTTPFormProvider(),
		sso.NewRelayProvider(sso.NewHTTPRelayClient()),
	)

	tokens := token.New(cfg.Token.Secret, cfg.Token.AccessTTL, cfg.Token.RefreshTTL)
	authService := sso.NewService(db, registry, tokens)

	return &Daemon{
		cfg:        cfg,
		webService: *web.New(cfg, db, authService),
	}
}

// openDialector picks the gorm driver for the configured engine.
func openDialector(cfg *config.Config) gorm.Dialector {
	switch cfg.DB.GormEngine {
	case "postgres":
		return gormpostgres.Open(dsn.Create(cfg))
	case "sqlite":
		return sqlite.Open(dsn.Create(cfg))
	default:
		return gormmysql.Open(dsn.Create(cfg))
	}
}

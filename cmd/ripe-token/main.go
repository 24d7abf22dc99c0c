// Command ripe-token issues development access tokens signed with the configured JWT secret.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/noah-isme/ripe-api/internal/models"
	"github.com/noah-isme/ripe-api/internal/service"
	"github.com/noah-isme/ripe-api/pkg/config"
	"github.com/noah-isme/ripe-api/pkg/logger"
)

func main() {
	var (
		userID     = flag.Int64("user", 0, "user id")
		role       = flag.String("role", string(models.RoleFacilitator), "ADMIN, FACILITATOR or RESEARCHER")
		department = flag.Int64("department", 0, "department id")
		unit       = flag.Int64("unit", 0, "unit id")
		email      = flag.String("email", "", "e-mail claim")
		name       = flag.String("name", "", "full name claim")
		ttl        = flag.Duration("ttl", 0, "token lifetime, defaults to JWT_EXPIRATION")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Env == config.EnvProduction {
		log.Fatal("refusing to issue tokens in production")
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	expiry := cfg.JWT.Expiration
	if *ttl > 0 {
		expiry = *ttl
	}
	auth := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: expiry,
		Issuer:            cfg.JWT.Issuer,
	})

	token, expiresAt, err := auth.IssueToken(service.TokenSubject{
		UserID:       *userID,
		Role:         models.UserRole(strings.ToUpper(*role)),
		Email:        *email,
		FullName:     *name,
		DepartmentID: *department,
		UnitID:       *unit,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue token: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.Format(time.RFC3339))
}

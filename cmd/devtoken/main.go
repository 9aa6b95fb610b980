// Command devtoken mints access tokens for local testing against a server
// started with the same JWT settings.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	jwttoken "eventdesk/internal/jwt_token"
	"eventdesk/internal/platform/config"
	id "eventdesk/pkg/domain"
)

func main() {
	var (
		role    = flag.String("role", "attendee", "admin or attendee")
		userID  = flag.String("user", "", "user id, random when empty")
		name    = flag.String("name", "", "display name carried in the token")
		email   = flag.String("email", "", "email carried in the token")
		expires = flag.Duration("expires", time.Hour, "token lifetime")
	)
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.IsProduction() {
		fmt.Fprintln(os.Stderr, "refusing to mint tokens in production")
		os.Exit(1)
	}
	subject := id.UserID(uuid.New())
	if *userID != "" {
		if subject, err = id.ParseUserID(*userID); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	svc := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	token, err := svc.GenerateAccessToken(jwttoken.Identity{
		UserID: subject,
		Role:   *role,
		Name:   *name,
		Email:  *email,
	}, *expires)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}

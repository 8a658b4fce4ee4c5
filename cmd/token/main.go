package main

import (
	"flag"
	"fmt"
	"log"

	"campusflow/internal/config"
	"campusflow/internal/identity"
	"campusflow/internal/model"

	"github.com/google/uuid"
)

func main() {
	var (
		userID   = flag.String("user", "", "User id the token is issued for")
		role     = flag.String("role", string(model.UserRoleStudent), "Role: student, admin, super-admin")
		complete = flag.Bool("profile-complete", true, "Whether the user profile is complete")
		ttl      = flag.Duration("ttl", 0, "Token lifetime (defaults to AUTH_TOKEN_TTL)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	id, err := uuid.Parse(*userID)
	if err != nil {
		log.Fatalf("Invalid user id %q: %v", *userID, err)
	}
	r := model.UserRole(*role)
	if !r.Valid() {
		log.Fatalf("Unknown role: %s", *role)
	}

	lifetime := *ttl
	if lifetime <= 0 {
		lifetime = cfg.Auth.TokenTTL
	}

	token, err := identity.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer).Issue(model.Principal{
		UserID:          id,
		Role:            r,
		ProfileComplete: *complete,
	}, lifetime)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Println(token)
}

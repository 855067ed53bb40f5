package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/oksasatya/waveai-auth/config"
	"github.com/oksasatya/waveai-auth/internal/domain/entity"
	"github.com/oksasatya/waveai-auth/internal/domain/repository"
	"github.com/oksasatya/waveai-auth/internal/infrastructure/redisstore"
	"github.com/oksasatya/waveai-auth/pkg/helpers"
)

type demoUser struct {
	email string
	name  string
	role  entity.Role
	org   string
}

var demoUsers = []demoUser{
	{email: "volunteer@waveai.dev", name: "Demo Volunteer", role: entity.RoleVolunteer},
	{email: "organizer@waveai.dev", name: "Demo Organizer", role: entity.RoleOrganizer, org: "Wave Cleanup Crew"},
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	rdb, err := helpers.NewRedisClient(helpers.RedisOptions{
		URL:      cfg.RedisURL,
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Fatalf("failed to create redis client: %v", err)
	}
	defer func() { _ = rdb.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := helpers.RedisPing(ctx, rdb); err != nil {
		log.Fatalf("redis not reachable: %v", err)
	}

	users := redisstore.NewUserRepository(rdb)
	for _, d := range demoUsers {
		u := entity.NewUser(uuid.NewString(), d.email, d.name, d.role, entity.ProviderLocal, time.Now())
		u.OrganizationName = d.org
		err := users.Create(ctx, u)
		switch {
		case errors.Is(err, repository.ErrEmailTaken):
			fmt.Printf("exists: %s\n", d.email)
		case err != nil:
			log.Fatalf("failed to seed %s: %v", d.email, err)
		default:
			fmt.Printf("seeded user: id=%s email=%s role=%s\n", u.ID, u.Email, u.Role)
		}
	}
}

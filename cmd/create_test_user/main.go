package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"taprealm/internal/db"
	"taprealm/internal/domain"
	"taprealm/internal/game"
	"taprealm/internal/repository"
	"taprealm/internal/service"
)

func main() {
	tgID := flag.Int64("tg-id", 1234567890, "telegram id of the test user")
	balance := flag.Int64("balance", 0, "starting balance")
	flag.Parse()

	// expects DATABASE_URL and JWT_SECRET env vars
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool := db.Connect(ctx, dsn)
	defer pool.Close()

	repo := repository.NewUserRepository(pool)
	engine := game.NewEngine(game.StaticSettings(game.DefaultSettings()))

	// try to find existing user
	u, err := repo.GetByTgID(ctx, *tgID)
	switch {
	case err == nil:
		log.Printf("user already exists id=%d\n", u.ID)
	case errors.Is(err, repository.ErrUserNotFound):
		u = &domain.User{
			TgID:      *tgID,
			Username:  "testuser",
			FirstName: "Tester",
		}
		st := engine.NewPlayer(0, time.Now())
		st.Balance = *balance
		st.TotalEarned = *balance
		st.League = engine.Settings().Leagues.For(*balance)
		if err := repo.Create(ctx, u, st); err != nil {
			log.Fatalf("create user failed: %v", err)
		}
		log.Printf("user created id=%d\n", u.ID)
	default:
		log.Fatalf("get by tg id failed: %v", err)
	}

	// verify read
	st, err := repository.NewPlayerStore(pool).Load(ctx, u.ID)
	if err != nil {
		log.Fatalf("load state failed: %v", err)
	}
	log.Printf("user id=%d username=%s balance=%d energy=%d/%d league=%s\n",
		u.ID, u.Username, st.Balance, st.Energy, st.MaxEnergy, st.League)

	// initialize JWT and print token
	service.InitJWT(os.Getenv("JWT_SECRET"), 0)
	token, err := service.GenerateJWT(u.ID)
	if err != nil {
		log.Fatalf("failed to generate token: %v", err)
	}
	log.Printf("token=%s\n", token)
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"taprealm/internal/db"
	"taprealm/internal/domain"
	"taprealm/internal/game"
	"taprealm/internal/repository"
	"taprealm/internal/service"
	"taprealm/internal/ws"
)

// ws_smoke drives a running server: it opens a push stream, taps over HTTP
// and waits for the state event that the tap must produce.
func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET not set")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	ctx := context.Background()
	pool := db.Connect(ctx, dsn)
	defer pool.Close()

	ur := repository.NewUserRepository(pool)
	engine := game.NewEngine(game.StaticSettings(game.DefaultSettings()))

	// prepare user
	u, err := ur.GetByTgID(ctx, 3001)
	if errors.Is(err, repository.ErrUserNotFound) {
		u = &domain.User{TgID: 3001, Username: "smokeA", FirstName: "A"}
		err = ur.Create(ctx, u, engine.NewPlayer(0, time.Now()))
	}
	if err != nil {
		log.Fatalf("prepare user: %v", err)
	}

	service.InitJWT(jwtSecret, time.Hour)
	token, err := service.GenerateJWT(u.ID)
	if err != nil {
		log.Fatalf("gen token: %v", err)
	}

	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	base := fmt.Sprintf("127.0.0.1:%s", port)
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+base+"/ws?token="+token, nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitFor := func(msgType string) ws.Envelope {
		deadline := time.Now().Add(3 * time.Second)
		for time.Now().Before(deadline) {
			conn.SetReadDeadline(deadline)
			var env ws.Envelope
			if err := conn.ReadJSON(&env); err != nil {
				log.Fatalf("read: %v", err)
			}
			if env.Type == msgType {
				return env
			}
		}
		log.Fatalf("no %q message", msgType)
		return ws.Envelope{}
	}

	waitFor(ws.MsgReady)
	initial := waitFor(service.EventState)
	log.Printf("initial state: %s", initial.Data)

	body, _ := json.Marshal(map[string]int64{"taps": 1})
	req, _ := http.NewRequest(http.MethodPost, "http://"+base+"/api/v1/game/tap", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("tap: %v", err)
	}
	res.Body.Close()
	log.Printf("tap status: %d", res.StatusCode)
	if res.StatusCode != http.StatusOK {
		log.Fatalf("tap rejected")
	}

	pushed := waitFor(service.EventState)
	log.Printf("pushed state: %s", pushed.Data)

	log.Println("smoke test finished")
}

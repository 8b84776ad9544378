// sessionwatch registers this process as a device for a user and watches the
// realtime session feed: it heartbeats in the background, prints new-login
// warnings, and exits when the session is killed from another device.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"main/repository"
	"main/services"
	"main/utils"
)

func main() {
	username := flag.String("user", "", "username to register a session for")
	userAgent := flag.String("user-agent", "sessionwatch/1.0", "user agent reported for this device")
	flag.Parse()

	if *username == "" {
		log.Fatal("usage: sessionwatch -user <username>")
	}

	utils.InitMongoClient()

	feed, err := services.NewRedisSessionFeed(os.Getenv("REDIS_URL"))
	if err != nil {
		log.Fatalf("Failed to connect to session feed: %v", err)
	}
	defer feed.Close()
	services.GlobalSessionFeed = feed

	sessionRepo := repository.GetSessionRepo(utils.MongoClient)
	auditRepo := repository.GetAuditRepo(utils.MongoClient)
	userRepo := repository.GetUserRepo(utils.MongoClient)

	user, err := userRepo.FindUserByUsername(*username)
	if err != nil {
		log.Fatalf("Failed to look up user: %v", err)
	}
	if user == nil {
		log.Fatalf("No such user: %s", *username)
	}

	registrar := services.NewSessionRegistrar(sessionRepo, auditRepo, nil)

	killed := make(chan struct{})
	client := services.NewSessionClient(user, registrar, feed, services.SessionClientOptions{
		Notify: func(message string) {
			log.Printf("notice: %s", message)
		},
		Refresh: func() {
			sessions, err := sessionRepo.GetUserActiveSessions(user.UserID)
			if err != nil {
				log.Printf("Warning: failed to refresh session list: %v", err)
				return
			}
			log.Printf("%d live sessions:", len(sessions))
			for _, s := range sessions {
				log.Printf("  %s (%s, last active %s)", s.DeviceName, s.IPAddress, s.LastActiveAt.Format("15:04:05"))
			}
		},
		SignOut: func() {
			close(killed)
		},
	})

	hadOthers, err := client.Start(context.Background(), *userAgent, "")
	if err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}
	defer client.Close()

	log.Printf("Registered session for %s (hash %s...)", user.Username, client.Hash()[:12])
	if hadOthers {
		log.Printf("Other sessions were already live for this account")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case <-stop:
		log.Printf("Shutting down")
	case <-killed:
		log.Printf("Session was signed out remotely, exiting")
	}
}

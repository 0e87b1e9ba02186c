package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Karim-Nady/Smart-Task-Reminder/internal/clock"
	"github.com/Karim-Nady/Smart-Task-Reminder/internal/database"
	"github.com/Karim-Nady/Smart-Task-Reminder/internal/repositories"
	"github.com/Karim-Nady/Smart-Task-Reminder/internal/routes"
	"github.com/Karim-Nady/Smart-Task-Reminder/internal/workers"
)

func main() {
	// .envがなくても環境変数が揃っていれば動く
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	db := database.InitDB()
	defer db.Close()

	clk := clock.System()
	r := routes.SetupRouter(db, clk)

	// リマインダーのスイープループ。リクエスト処理とは独立に動きます。
	notifRepo := repositories.NewNotificationRepository(db)
	sweeper := workers.NewSweeper(notifRepo, clk)
	scheduler := workers.NewScheduler(sweeper, workers.SweepIntervalFromEnv())
	scheduler.Start()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		log.Printf("Server listening on port %s...", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Fatal: server error: %v", err)
		}
	}()

	// SIGINT/SIGTERMでグレースフルシャットダウン。
	// HTTPを先に閉じ、実行中のスイープが終わるのを待ってから終了します。
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	scheduler.Stop()
	log.Println("Shutdown complete")
}

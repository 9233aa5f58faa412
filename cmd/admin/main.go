// Команда admin создаёт администратора с входом по email и паролю.
//
//	go run ./cmd/admin -phone +77000000001 -email admin@example.com
//
// Пароль берётся из ADMIN_PASSWORD, чтобы не оставлять его в истории shell.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/ignatzorin/gig-marketplace/internal/config"
	"github.com/ignatzorin/gig-marketplace/internal/db"
	"github.com/ignatzorin/gig-marketplace/internal/infrastructure/persistence"
	"github.com/ignatzorin/gig-marketplace/internal/logger"
	"github.com/ignatzorin/gig-marketplace/internal/usecase/user"
)

func main() {
	phone := flag.String("phone", "", "телефон администратора в формате E.164")
	email := flag.String("email", "", "email для входа")
	flag.Parse()

	password := os.Getenv("ADMIN_PASSWORD")
	if *phone == "" || *email == "" || password == "" {
		flag.Usage()
		log.Fatal("admin: нужны -phone, -email и переменная ADMIN_PASSWORD")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("admin: ошибка загрузки конфигурации: %v", err)
	}
	logger.Init(cfg.LogLevel, "development")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatalf("admin: ошибка подключения к базе: %v", err)
	}
	defer conn.Close()

	uc := user.NewCreateAdminUseCase(
		persistence.NewTransactor(conn),
		persistence.NewUserRepositoryAdapter(conn),
		persistence.NewProfileRepositoryAdapter(conn),
	)
	admin, err := uc.Execute(ctx, *phone, *email, password)
	if err != nil {
		logger.Log.Fatalf("admin: не удалось создать администратора: %v", err)
	}
	logger.Log.WithField("user_id", admin.ID).Info("администратор создан")
}

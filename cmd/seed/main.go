// Command seed creates the first admin account and, with SEED_DEMO=true, a
// verified demo waste collector so the public directory is not empty.
// Existing accounts are left untouched, so the command can be re-run.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iliyamo/ecowaste-cert/internal/config"
	"github.com/iliyamo/ecowaste-cert/internal/database"
	"github.com/iliyamo/ecowaste-cert/internal/logger"
	"github.com/iliyamo/ecowaste-cert/internal/model"
	"github.com/iliyamo/ecowaste-cert/internal/repository"
	"github.com/iliyamo/ecowaste-cert/internal/utils"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.Init(cfg.Env); err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.L()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(db, cfg.DBName); err != nil {
		log.Fatal("database migration failed", zap.Error(err))
	}

	users := repository.NewUserRepo(db)

	adminEmail := envOr("SEED_ADMIN_EMAIL", "admin@ecowastecert.com")
	adminPass := os.Getenv("SEED_ADMIN_PASSWORD")
	if adminPass == "" {
		log.Fatal("SEED_ADMIN_PASSWORD must be set")
	}
	if !utils.IsValidPassword(adminPass) {
		log.Fatal("SEED_ADMIN_PASSWORD does not meet the password policy")
	}
	admin, err := ensureUser(ctx, users, cfg.BcryptCost, model.User{
		Name:  "Platform Admin",
		Email: adminEmail,
		Role:  model.RoleAdmin,
	}, adminPass)
	if err != nil {
		log.Fatal("seed admin failed", zap.Error(err))
	}
	log.Info("admin ready", zap.Uint64("id", admin.ID), zap.String("email", admin.Email))

	if os.Getenv("SEED_DEMO") != "true" {
		return
	}

	collector, err := ensureUser(ctx, users, cfg.BcryptCost, model.User{
		Name:   "Green Haul Collectors",
		Email:  "collector@example.com",
		Phone:  "+94 77 000 0000",
		Region: "Western",
		Role:   model.RoleWasteCollector,
	}, adminPass)
	if err != nil {
		log.Fatal("seed collector failed", zap.Error(err))
	}
	dir := repository.NewDirectoryRepo(db)
	wc, err := dir.UpsertCollector(ctx, &model.WasteCollector{
		UserID:          collector.ID,
		Name:            collector.Name,
		Email:           collector.Email,
		Phone:           collector.Phone,
		Region:          collector.Region,
		Specialization:  "E-waste",
		Availability:    "Weekdays",
		PriceRange:      "$$",
		Experience:      "5 years",
		ServicesOffered: []string{"pickup", "sorting"},
		VehicleTypes:    []string{"truck"},
		OperatingHours:  "08:00-17:00",
	})
	if err != nil {
		log.Fatal("seed collector profile failed", zap.Error(err))
	}
	if _, err := dir.SetCollectorVerified(ctx, wc.ID, true); err != nil {
		log.Fatal("verify collector profile failed", zap.Error(err))
	}
	log.Info("demo collector ready", zap.Uint64("id", wc.ID))
}

// ensureUser returns the existing account for u.Email or creates it as a
// verified, active user.
func ensureUser(ctx context.Context, users *repository.UserRepo, cost int, u model.User, password string) (*model.User, error) {
	existing, err := users.GetByEmail(ctx, u.Email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = hash
	u.IsEmailVerified = true
	u.IsActive = true
	if err := users.Create(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

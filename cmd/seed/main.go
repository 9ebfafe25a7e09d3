// Command seed fills the database with demo accounts so the app has
// something to show on first run: twenty verified users (user1..user20,
// password "12345678"), a small follow graph, and a handful of posts.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/sociable/sociable/internal/auth"
	"github.com/sociable/sociable/internal/config"
	"github.com/sociable/sociable/internal/model"
	"github.com/sociable/sociable/internal/repository/sqlite"
)

const (
	seedUserCount = 20
	seedPassword  = "12345678"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("loading configuration failed", slog.Any("error", err))
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("seeding failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	passwords := auth.NewPasswordService(cfg.Auth.BcryptCost)

	// one hash shared by all demo accounts; hashing 20 times at cost 12
	// would just be slow
	hash, err := passwords.Hash(seedPassword)
	if err != nil {
		return err
	}

	users := db.Users()
	for i := 1; i <= seedUserCount; i++ {
		name := fmt.Sprintf("user%d", i)
		user := &model.User{
			Username:       name,
			Email:          name + "@sociable.local",
			PasswordHash:   hash,
			ProfilePicture: cfg.Auth.DefaultAvatar,
			IsVerified:     true,
		}
		if err := users.Create(ctx, user); err != nil {
			return fmt.Errorf("creating %s: %w", name, err)
		}
		logger.Info("user created", slog.String("username", name))
	}

	// every user follows the next three, wrapping around, so each feed
	// has content immediately
	follows := db.Follows()
	for i := 1; i <= seedUserCount; i++ {
		for step := 1; step <= 3; step++ {
			target := (i+step-1)%seedUserCount + 1
			if err := follows.Create(ctx, &model.Follow{
				FollowedBy: fmt.Sprintf("user%d", i),
				Following:  fmt.Sprintf("user%d", target),
			}); err != nil {
				return fmt.Errorf("following user%d -> user%d: %w", i, target, err)
			}
		}
	}

	posts := db.Posts()
	for i := 1; i <= seedUserCount; i++ {
		desc := fmt.Sprintf("hello from user%d", i)
		if err := posts.Create(ctx, &model.Post{
			AuthorName:  fmt.Sprintf("user%d", i),
			Image:       fmt.Sprintf("https://picsum.photos/seed/sociable%d/600/400", i),
			Description: &desc,
		}); err != nil {
			return fmt.Errorf("posting for user%d: %w", i, err)
		}
	}

	logger.Info("seeding complete",
		slog.Int("users", seedUserCount),
		slog.Int("posts", seedUserCount))
	return nil
}

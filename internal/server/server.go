// Package server is the composition root: it builds the repositories,
// services, and handlers from the configuration, wires the router, and
// owns the HTTP server and database lifecycles.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/sociable/sociable/internal/auth"
	"github.com/sociable/sociable/internal/config"
	"github.com/sociable/sociable/internal/handler"
	"github.com/sociable/sociable/internal/mailer"
	"github.com/sociable/sociable/internal/media"
	mw "github.com/sociable/sociable/internal/middleware"
	"github.com/sociable/sociable/internal/repository/sqlite"
	"github.com/sociable/sociable/internal/service"
)

const shutdownTimeout = 10 * time.Second

// Server bundles the HTTP server with the resources it owns.
type Server struct {
	httpServer *http.Server
	db         *sqlite.DB
	logger     *slog.Logger
}

// New builds the whole application from its configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret)
	if err != nil {
		db.Close()
		return nil, err
	}
	passwords := auth.NewPasswordService(cfg.Auth.BcryptCost)

	mediaStore, err := buildMediaStore(cfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	mail, err := buildMailer(cfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	users := db.Users()
	follows := db.Follows()
	posts := db.Posts()
	likes := db.Likes()
	comments := db.Comments()

	accounts := service.NewAccountService(
		users, follows, posts, passwords, tokens, mail, mediaStore,
		logger.With(slog.String("service", "account")),
		cfg.HTTP.PublicOrigin, cfg.Auth.DefaultAvatar,
	)
	graph := service.NewGraphService(follows, users,
		logger.With(slog.String("service", "graph")))
	feed := service.NewFeedService(posts, follows,
		logger.With(slog.String("service", "feed")))
	postSvc := service.NewPostService(posts, likes, comments, mediaStore,
		logger.With(slog.String("service", "post")))

	userHandler := handler.NewUserHandler(accounts, graph,
		logger.With(slog.String("handler", "user")))
	postHandler := handler.NewPostHandler(postSvc, feed,
		logger.With(slog.String("handler", "post")))

	router := newRouter(cfg, logger, tokens, users, userHandler, postHandler)

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		db:     db,
		logger: logger,
	}, nil
}

func buildMediaStore(cfg *config.Config, logger *slog.Logger) (media.Store, error) {
	if cfg.Cloudinary.CloudName == "" {
		return media.NewNoopStore(logger), nil
	}
	return media.NewCloudinaryStore(
		cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret, logger)
}

func buildMailer(cfg *config.Config, logger *slog.Logger) (mailer.Mailer, error) {
	if cfg.SMTP.Host == "" {
		return mailer.NewLogMailer(logger), nil
	}
	return mailer.NewSMTPMailer(
		cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password,
		cfg.SMTP.From, logger)
}

func newRouter(
	cfg *config.Config,
	logger *slog.Logger,
	tokens *auth.TokenService,
	users auth.UserResolver,
	user *handler.UserHandler,
	post *handler.PostHandler,
) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true, // session rides in a cookie
		MaxAge:           300,
	}))

	requireAuth := auth.RequireAuth(tokens, users)

	// credential endpoints get a tighter per-IP budget than the rest
	throttle := httprate.LimitByIP(10, time.Minute)

	r.Route("/api", func(r chi.Router) {
		r.Route("/user", func(r chi.Router) {
			r.With(throttle).Post("/signup", user.SignUp)
			r.With(throttle).Post("/signIn", user.SignIn)
			r.With(throttle).Post("/sendresetlink", user.SendResetLink)
			r.Get("/verifyemail", user.VerifyEmail)
			r.Patch("/resetPassword", user.ResetPassword)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/signOut", user.SignOut)
				r.Get("/isLoggedIn", user.IsLoggedIn)
				r.Patch("/updateProfilepic", user.UpdateProfilePic)
				r.Patch("/updateUsername", user.UpdateUsername)
				r.Patch("/updateEmail", user.UpdateEmail)
				r.Patch("/changePassword", user.ChangePassword)
				r.Get("/userSearch/{username}", user.UserSearch)
				r.Get("/profile/{username}", user.Profile)
				r.Get("/loggedInUserProfile", user.LoggedInUserProfile)
				r.Get("/suggestions", user.Suggestions)
				r.Post("/follow/{username}", user.Follow)
				r.Delete("/unfollow/{username}", user.Unfollow)
			})
		})

		r.Route("/post", func(r chi.Router) {
			r.Get("/singlePost/{postId}", post.SinglePost)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/followingUsersPosts", post.FollowingUsersPosts)
				r.Get("/morefollowingUsersPosts/{cursor}", post.MoreFollowingUsersPosts)
				r.Post("/newPost", post.NewPost)
				r.Get("/userPosts/{username}", post.UserPosts)
				r.Patch("/updatePost", post.UpdatePost)
				r.Delete("/deletePost", post.DeletePost)
				r.Post("/like", post.Like)
				r.Delete("/unlike", post.Unlike)
				r.Get("/getlike/{postId}/{username}", post.GetLike)
				r.Get("/getLikes/{postId}", post.GetLikes)
				r.Post("/createComment", post.CreateComment)
				r.Patch("/updateComment", post.UpdateComment)
				r.Delete("/deleteComment", post.DeleteComment)
				r.Get("/getComments/{postId}", post.GetComments)
				r.Get("/getUserComments/{postId}/{username}", post.GetUserComments)
			})
		})
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully and
// closes the database.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.db.Close()
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	if cerr := s.db.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

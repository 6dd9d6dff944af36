// seed は開発用の商品とユーザーを入れる。既にあるものは飛ばす
package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/domain/model"
	"storefront/internal/infra/db"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/pkg/logging"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type seedProduct struct {
	name  string
	desc  string
	price string
	stock int64
	image string
}

var products = []seedProduct{
	{"Pro Grade English Willow Bat", "Grade 1 English willow, full size.", "350.00", 15, "/images/products/bat.jpg"},
	{"Match Quality Leather Ball", "Four-piece leather ball for match play.", "35.00", 100, "/images/products/ball.jpg"},
	{"Elite Batting Pads", "Lightweight pads with cane reinforcement.", "75.00", 25, "/images/products/equipment.jpg"},
	{"Junior Cricket Kit", "Bat, pads, gloves and bag for juniors.", "120.00", 10, "/images/products/equipment.jpg"},
}

type seedUser struct {
	email     string
	firstName string
	password  string
	role      model.Role
}

var users = []seedUser{
	{"admin@cricstore.com", "Admin", "admin123", model.RoleAdmin},
	{"customer@cricstore.com", "Casey", "customer123", model.RoleUser},
}

func main() {
	cfg, err := config.Load(".env", "../.env")
	if err != nil {
		panic(err)
	}
	log := logging.MustNewLogger(cfg.ServiceName+"-seed", cfg.GoEnv)
	defer func() { _ = log.Sync() }()

	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatal("connect", zap.Error(err))
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	ctx := context.Background()
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	userRepo := infraRepo.NewUserGormRepository(gormDB)

	for _, p := range products {
		if _, err := productRepo.FindByName(ctx, p.name); err == nil {
			log.Info("product exists", zap.String("name", p.name))
			continue
		} else if !errors.Is(err, repo.ErrNotFound) {
			log.Fatal("find product", zap.Error(err))
		}

		created, err := productRepo.Create(ctx, model.Product{
			Name:        p.name,
			Description: p.desc,
			ImageURL:    p.image,
			Price:       decimal.RequireFromString(p.price),
			Stock:       p.stock,
			IsActive:    true,
		})
		if err != nil {
			log.Fatal("create product", zap.Error(err))
		}
		log.Info("product created", zap.Int64("id", created.ID), zap.String("name", created.Name))
	}

	hasher := auth.NewBcryptPasswordHasher(12)
	for _, su := range users {
		u, err := userRepo.FindByEmail(ctx, su.email)
		if errors.Is(err, repo.ErrNotFound) {
			hash, herr := hasher.Hash(su.password)
			if herr != nil {
				log.Fatal("hash password", zap.Error(herr))
			}
			u = &model.User{
				Email:        su.email,
				FirstName:    su.firstName,
				PasswordHash: hash,
				Role:         su.role,
				IsActive:     true,
			}
			if err := userRepo.Create(ctx, u); err != nil {
				log.Fatal("create user", zap.Error(err))
			}
			log.Info("user created", zap.String("email", u.Email), zap.String("role", string(u.Role)))
		} else if err != nil {
			log.Fatal("find user", zap.Error(err))
		}

		//ローカル確認用のトークン
		token, err := auth.IssueAccessToken(cfg.JWTSecret, u.ID, string(u.Role), u.TokenVersion, cfg.AccessTTL, time.Now())
		if err != nil {
			log.Fatal("issue token", zap.Error(err))
		}
		fmt.Printf("%s (%s): %s\n", u.Email, u.Role, token)
	}
}

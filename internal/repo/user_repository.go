//go:generate go run go.uber.org/mock/mockgen -source=user_repository.go -destination=mocks/mock_user_repository.go -package=mocks
package repo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"photochat/internal/db"
	"photochat/internal/model"
)

// UserRepository is the read-only view of the platform's user directory.
type UserRepository interface {
	// GetUser returns nil, nil when the user does not exist.
	GetUser(ctx context.Context, id int64) (*model.User, error)
}

type userRepository struct {
	mongoRepo *db.Repository[model.User]
	logger    *zap.Logger
}

func NewUserRepository(con *mongo.Database, collection string, logger *zap.Logger) UserRepository {
	return &userRepository{
		mongoRepo: db.NewRepository[model.User](con, collection),
		logger:    logger,
	}
}

func (r *userRepository) GetUser(ctx context.Context, id int64) (*model.User, error) {
	if id <= 0 {
		return nil, nil
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	user, err := r.mongoRepo.FindByID(ctx, id)
	if err != nil {
		r.logger.Error("failed to fetch user", zap.Int64("user_id", id), zap.Error(err))
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bandhanapp/bandhan-server/internal/db"
)

// BlockRepository provides data access for directed Block rows.
type BlockRepository struct {
	db *gorm.DB
}

// NewBlockRepository creates a new repository bound to the given DB connection.
func NewBlockRepository(database *gorm.DB) *BlockRepository {
	return &BlockRepository{db: database}
}

// Create records a block. Idempotent: blocking twice is a no-op.
func (r *BlockRepository) Create(ctx context.Context, blockerID, blockedID string) error {
	block := db.Block{BlockerID: blockerID, BlockedID: blockedID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&block).Error
}

// ExistsBetween reports whether a block exists in either direction
// between two users.
func (r *BlockRepository) ExistsBetween(ctx context.Context, userA, userB string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)",
			userA, userB, userB, userA).
		Count(&count).Error
	return count > 0, err
}

// LinkedUserIDs returns every user linked to the given user by a block in
// either direction. Used to build the candidate exclusion set.
func (r *BlockRepository) LinkedUserIDs(ctx context.Context, userID string) ([]string, error) {
	var blocks []db.Block
	err := r.db.WithContext(ctx).
		Where("blocker_id = ? OR blocked_id = ?", userID, userID).
		Find(&blocks).Error
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b.BlockerID != userID {
			ids = append(ids, b.BlockerID)
		}
		if b.BlockedID != userID {
			ids = append(ids, b.BlockedID)
		}
	}
	return ids, nil
}

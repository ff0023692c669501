package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Posts stores questions and their comment sub collections
type Posts interface {
	FindByPublicID(ctx context.Context, publicID string) (*Post, error)
	FindByPublicIDTx(ctx context.Context, tx bun.IDB, publicID string) (*Post, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Post) (*Post, error)
	AddCommentTx(ctx context.Context, tx bun.IDB, post *Post, record *Comment) (*Comment, error)
	ListComments(ctx context.Context, post *Post) ([]*Comment, error)
	ListCommentsTx(ctx context.Context, tx bun.IDB, post *Post) ([]*Comment, error)
}

type posts struct {
	db *bun.DB
}

var _ Posts = (*posts)(nil)

// NewPostsRepository returns the bun post store
func NewPostsRepository(db *bun.DB) Posts {
	return &posts{db: db}
}

func (p *posts) FindByPublicID(ctx context.Context, publicID string) (*Post, error) {
	return p.FindByPublicIDTx(ctx, p.db, publicID)
}

func (p *posts) FindByPublicIDTx(ctx context.Context, tx bun.IDB, publicID string) (*Post, error) {
	var records []*Post
	err := tx.NewSelect().
		Model(&records).
		Where("?TableAlias.public_id = ?", publicID).
		Limit(2).
		Scan(ctx)
	if err != nil && !isNoRows(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to query posts")
	}

	switch len(records) {
	case 0:
		return nil, ErrPostNotFound
	case 1:
		return records[0], nil
	default:
		return nil, ErrDuplicatePost
	}
}

func (p *posts) CreateTx(ctx context.Context, tx bun.IDB, record *Post) (*Post, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert post")
	}
	return record, nil
}

func (p *posts) AddCommentTx(ctx context.Context, tx bun.IDB, post *Post, record *Comment) (*Comment, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.PostID = post.ID

	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert comment")
	}
	return record, nil
}

func (p *posts) ListComments(ctx context.Context, post *Post) ([]*Comment, error) {
	return p.ListCommentsTx(ctx, p.db, post)
}

func (p *posts) ListCommentsTx(ctx context.Context, tx bun.IDB, post *Post) ([]*Comment, error) {
	records := []*Comment{}
	err := tx.NewSelect().
		Model(&records).
		Where("?TableAlias.post_id = ?", post.ID).
		OrderExpr("?TableAlias.created_at ASC").
		Scan(ctx)
	if err != nil && !isNoRows(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list comments")
	}
	return records, nil
}

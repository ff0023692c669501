package auth

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// PostIDSuffixLength is the length of the random tail of a post identifier
const PostIDSuffixLength = 3

// PostGate decides who may write posts and comments, and stamps the
// server owned fields on what it lets through.
type PostGate struct {
	repo     RepositoryManager
	suffix   CodeGenerator
	now      clock
	logger   Logger
	activity ActivitySink
}

// PostGateOption customizes the gate
type PostGateOption func(*PostGate)

// WithPostGateClock injects a custom clock (useful for tests).
func WithPostGateClock(now func() time.Time) PostGateOption {
	return func(g *PostGate) {
		if now != nil {
			g.now = now
		}
	}
}

// WithPostGateSuffixGenerator overrides the identifier suffix source
func WithPostGateSuffixGenerator(gen CodeGenerator) PostGateOption {
	return func(g *PostGate) {
		if gen != nil {
			g.suffix = gen
		}
	}
}

// WithPostGateLogger overrides the logger
func WithPostGateLogger(logger Logger) PostGateOption {
	return func(g *PostGate) {
		g.logger = normalizeLogger(logger)
	}
}

// WithPostGateActivitySink sets the sink used to publish creation events
func WithPostGateActivitySink(sink ActivitySink) PostGateOption {
	return func(g *PostGate) {
		g.activity = normalizeActivitySink(sink)
	}
}

// NewPostGate returns a gate backed by repo
func NewPostGate(repo RepositoryManager, opts ...PostGateOption) *PostGate {
	gate := &PostGate{
		repo:     repo,
		suffix:   NewRandomCodeGenerator(PostIDSuffixLength, AlnumCharset),
		now:      systemClock,
		logger:   defLogger{},
		activity: noopActivitySink{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(gate)
		}
	}
	return gate
}

// PostQuestion stores a new post for any signed in caller. The identifier is
// readable, not unique: two posts by the same user in the same millisecond
// can collide on the suffix.
func (g *PostGate) PostQuestion(ctx context.Context, claims *SessionClaims, content map[string]any) (*Post, error) {
	accountID, err := callerID(claims)
	if err != nil {
		return nil, err
	}

	var post *Post
	err = g.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, err := g.repo.Accounts().GetByIDTx(ctx, tx, accountID)
		if err != nil {
			return err
		}

		now := g.now()
		publicID, err := g.postID(account.Username, now)
		if err != nil {
			return err
		}

		post, err = g.repo.Posts().CreateTx(ctx, tx, &Post{
			PublicID:  publicID,
			CreatedBy: account.ID,
			CreatedAt: now,
			Content:   sanitizeContent(content),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	g.record(ctx, ActivityEventPostCreated, post.CreatedBy, map[string]any{
		"post_id": post.PublicID,
	})

	return post, nil
}

// PostComment adds a comment under the post identified by postID. Only
// administrators and the author of the post may comment.
func (g *PostGate) PostComment(ctx context.Context, claims *SessionClaims, postID string, content map[string]any) (*Comment, error) {
	accountID, err := callerID(claims)
	if err != nil {
		return nil, err
	}

	var comment *Comment
	err = g.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		post, err := g.repo.Posts().FindByPublicIDTx(ctx, tx, postID)
		if err != nil {
			return err
		}

		if !CanComment(claims, accountID, post) {
			return ErrForbidden
		}

		comment, err = g.repo.Posts().AddCommentTx(ctx, tx, post, &Comment{
			CreatedBy: accountID,
			CreatedAt: g.now(),
			Content:   sanitizeContent(content),
		})
		return err
	})
	if err != nil {
		if IsForbidden(err) {
			g.logger.Warn("comment denied", "account", accountID.String(), "post", postID)
		}
		return nil, err
	}

	g.record(ctx, ActivityEventCommentCreated, comment.CreatedBy, map[string]any{
		"post_id":    postID,
		"comment_id": comment.ID.String(),
	})

	return comment, nil
}

// CanComment reports whether the caller may comment on post
func CanComment(claims *SessionClaims, accountID uuid.UUID, post *Post) bool {
	if claims == nil || post == nil {
		return false
	}
	if claims.Role.CanCommentAnywhere() {
		return true
	}
	return accountID != uuid.Nil && accountID == post.CreatedBy
}

func (g *PostGate) postID(username string, at time.Time) (string, error) {
	suffix, err := g.suffix.Generate()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%s", username, at.UnixMilli(), suffix), nil
}

func (g *PostGate) record(ctx context.Context, eventType ActivityEventType, actor uuid.UUID, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		Actor:      ActorRef{ID: actor.String(), Type: "user"},
		UserID:     actor.String(),
		Metadata:   metadata,
		OccurredAt: g.now(),
	}
	if err := g.activity.Record(ctx, event); err != nil {
		g.logger.Warn("activity sink error in post gate", "error", err)
	}
}

func callerID(claims *SessionClaims) (uuid.UUID, error) {
	if claims == nil {
		return uuid.Nil, ErrMissingSession
	}
	id, err := claims.AccountID()
	if err != nil {
		return uuid.Nil, goerrors.Wrap(err, goerrors.CategoryAuth, "session subject is not an account id").
			WithTextCode(TextCodeTokenMalformed).
			WithCode(goerrors.CodeUnauthorized)
	}
	return id, nil
}

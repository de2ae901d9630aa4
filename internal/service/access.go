package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/internal/repository"
	"github.com/quocanhngo/chatcore/pkg/apperror"
	"github.com/quocanhngo/chatcore/pkg/cache"
	"go.uber.org/zap"
)

// Decision is the outcome of an access check.
type Decision int

const (
	Allowed Decision = iota
	Denied
	RequiresAuth
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Denied:
		return "denied"
	case RequiresAuth:
		return "requires_auth"
	}
	return "unknown"
}

// Access answers membership questions from a cached participant list.
type Access struct {
	convRepo     *repository.ConversationRepository
	participants *cache.Cache
	log          *zap.Logger
}

// NewAccess builds an Access. participants may be nil, in which case every
// lookup goes to the database.
func NewAccess(convRepo *repository.ConversationRepository, participants *cache.Cache, log *zap.Logger) *Access {
	return &Access{convRepo: convRepo, participants: participants, log: log}
}

func participantsKey(conversationID uuid.UUID) string {
	return "participants:" + conversationID.String()
}

// ParticipantIDs returns the members of a conversation. Unknown
// conversations have no members.
func (a *Access) ParticipantIDs(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error) {
	load := func(ctx context.Context) ([]uuid.UUID, error) {
		return a.convRepo.GetMemberIDs(ctx, conversationID)
	}
	if a.participants == nil {
		return load(ctx)
	}
	return cache.GetOrLoad(ctx, a.participants, participantsKey(conversationID), load)
}

// Invalidate drops the cached participant list after a membership change.
func (a *Access) Invalidate(ctx context.Context, conversationID uuid.UUID) {
	if a.participants == nil {
		return
	}
	if err := a.participants.Delete(ctx, participantsKey(conversationID)); err != nil {
		a.log.Warn("participant cache invalidation failed",
			zap.String("conversation_id", conversationID.String()), zap.Error(err))
	}
}

// CheckAccess decides whether userID may use the conversation. uuid.Nil
// stands for an unauthenticated caller.
func (a *Access) CheckAccess(ctx context.Context, userID, conversationID uuid.UUID) (Decision, error) {
	if userID == uuid.Nil {
		return RequiresAuth, nil
	}

	members, err := a.ParticipantIDs(ctx, conversationID)
	if err != nil {
		return Denied, apperror.Internal(err)
	}
	for _, id := range members {
		if id == userID {
			return Allowed, nil
		}
	}
	return Denied, nil
}

// RequireParticipant converts a non-Allowed decision into its error.
func (a *Access) RequireParticipant(ctx context.Context, userID, conversationID uuid.UUID) error {
	decision, err := a.CheckAccess(ctx, userID, conversationID)
	if err != nil {
		return err
	}
	switch decision {
	case Allowed:
		return nil
	case RequiresAuth:
		return apperror.ErrUnauthenticated
	default:
		return apperror.ErrNotParticipant
	}
}

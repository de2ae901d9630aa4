package apperror

var (
	// Domain errors returned by services, matched with errors.Is
	ErrNotParticipant      = New(CodeNotParticipant, "you are not a participant of this conversation")
	ErrPermissionDenied    = Forbidden("only the sender can modify this message")
	ErrInvalidReply        = New(CodeInvalidReply, "reply target is not a message of this conversation")
	ErrConversationMissing = NotFound("conversation not found")
	ErrMessageMissing      = NotFound("message not found")
	ErrUserMissing         = NotFound("user not found")
	ErrRateLimited         = New(CodeRateLimited, "too many messages, slow down")
	ErrUnauthenticated     = Unauthorized("authentication required")
)

func ErrDeliveryFailed(cause error) error {
	return Wrap(CodeTransientDeliveryFailure, "out-of-band delivery failed", cause)
}

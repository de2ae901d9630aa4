package service

import (
	"errors"

	"github.com/quocanhngo/chatcore/internal/model"
	"github.com/quocanhngo/chatcore/pkg/apperror"
	"gorm.io/gorm"
)

const replyPreviewLength = 100

// AttachmentURLs turns a storage key into a URL clients can fetch.
type AttachmentURLs interface {
	GetPublicURL(objectName string) string
}

// viewOf hydrates msg for clients. msg must have its Sender (and ReplyTo,
// when set) preloaded.
func viewOf(msg *model.Message, urls AttachmentURLs) model.MessageView {
	view := model.MessageView{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		Content:        msg.Content,
		SenderID:       msg.SenderID,
		SenderName:     msg.Sender.Name,
		SenderAvatar:   msg.Sender.Avatar,
		MessageType:    msg.Type,
		AttachmentName: msg.AttachmentName,
		IsEdited:       msg.IsEdited,
		EditedAt:       msg.EditedAt,
		IsDeleted:      msg.IsDeleted,
		CreatedAt:      msg.CreatedAt,
	}
	if msg.AttachmentKey != "" && urls != nil {
		view.AttachmentURL = urls.GetPublicURL(msg.AttachmentKey)
	}
	if msg.ReplyTo != nil {
		view.ReplyTo = &model.ReplyPreview{
			ID:         msg.ReplyTo.ID,
			Content:    model.Truncate(msg.ReplyTo.Content, replyPreviewLength),
			SenderName: msg.ReplyTo.Sender.Name,
			IsDeleted:  msg.ReplyTo.IsDeleted,
		}
	}
	return view
}

func viewsOf(messages []model.Message, urls AttachmentURLs) []model.MessageView {
	views := make([]model.MessageView, 0, len(messages))
	for i := range messages {
		views = append(views, viewOf(&messages[i], urls))
	}
	return views
}

// storeError maps a repository error onto the taxonomy: a missing row
// becomes notFound, anything else is internal.
func storeError(err error, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return apperror.Internal(err)
}

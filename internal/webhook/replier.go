package webhook

import (
	"fmt"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// Replier sends messages back to LINE.
type Replier interface {
	Reply(replyToken string, messages []messaging_api.MessageInterface) error
	ShowLoading(chatID string, seconds int32) error
}

// APIReplier is a Replier backed by the Messaging API.
type APIReplier struct {
	client *messaging_api.MessagingApiAPI
}

// NewAPIReplier creates a Messaging API client for the channel access token.
func NewAPIReplier(channelToken string) (*APIReplier, error) {
	client, err := messaging_api.NewMessagingApiAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("create messaging API client: %w", err)
	}
	return &APIReplier{client: client}, nil
}

// Reply sends up to five messages bound to a reply token.
func (r *APIReplier) Reply(replyToken string, messages []messaging_api.MessageInterface) error {
	_, err := r.client.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   messages,
	})
	return err
}

// ShowLoading displays the loading indicator in a one-to-one chat.
// LINE accepts 5-60 seconds in steps of 5.
func (r *APIReplier) ShowLoading(chatID string, seconds int32) error {
	_, err := r.client.ShowLoadingAnimation(&messaging_api.ShowLoadingAnimationRequest{
		ChatId:         chatID,
		LoadingSeconds: seconds,
	})
	return err
}

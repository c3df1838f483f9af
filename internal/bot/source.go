package bot

import "github.com/line/line-bot-sdk-go/v8/linebot/webhook"

// sourceIDs returns the sender and the conversation of a LINE source.
// userID is empty when LINE withholds it (group members who have not
// agreed to the official account terms).
func sourceIDs(source webhook.SourceInterface) (userID, chatID string) {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId, s.UserId
	case webhook.GroupSource:
		return s.UserId, s.GroupId
	case webhook.RoomSource:
		return s.UserId, s.RoomId
	}
	return "", ""
}

// GetChatID returns the conversation ID: user, group or room.
func GetChatID(source webhook.SourceInterface) string {
	_, chatID := sourceIDs(source)
	return chatID
}

// SessionID keys the result list by sender, so a list follows the person
// across chats. Falls back to the chat ID.
func SessionID(source webhook.SourceInterface) string {
	userID, chatID := sourceIDs(source)
	if userID != "" {
		return userID
	}
	return chatID
}

// IsPersonalChat reports whether the source is a one-to-one chat.
func IsPersonalChat(source webhook.SourceInterface) bool {
	_, ok := source.(webhook.UserSource)
	return ok
}

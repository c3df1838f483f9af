package lineutil

// LINE API limits (rune count unless noted)
// References: https://developers.line.biz/en/reference/messaging-api/
const (
	MaxTextMessageLength = 5000 // Text message max content length
	MaxMessagesPerReply  = 5    // Messages accepted by one reply call
	MaxAltTextLength     = 400  // Template/Flex message alt text length

	// Quick Reply Limits
	MaxQuickReplyItemCount = 13 // Max items in a quick reply
	MaxQuickReplyLabel     = 20 // Max label length for quick reply item
)

// Safe Buffer Limits (application-defined)
const (
	// TextListChunkLimit bounds each chunk of a long text list, leaving room
	// below MaxTextMessageLength for the header and truncation notice.
	TextListChunkLimit = 4000
)

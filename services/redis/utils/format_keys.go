package utils

/**
 * This file contains utility functions to format the keys for Redis
 * (key, value) pairs. It avoids repeating the same "fmt.Sprintf(...)"
 * format string at every call site and drifting the key layout.
 */

import "fmt"

func FormatChatroomKey(chatroomID string) string {
	return fmt.Sprintf("chatroom:%s", chatroomID)
}

// FormatBookingChatroomKey is the reservation key behind the
// one-chatroom-per-booking invariant (written with SETNX).
func FormatBookingChatroomKey(bookingID string) string {
	return fmt.Sprintf("booking:%s:chatroom", bookingID)
}

func FormatUserChatroomsKey(userID string) string {
	return fmt.Sprintf("user:%s:chatrooms", userID)
}

func ActiveChatroomsKey() string {
	return "chatrooms:active"
}

func FormatConversationChannel(conversationID string) string {
	return fmt.Sprintf("conversation:%s:messages", conversationID)
}

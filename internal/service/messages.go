package service

// Operator-facing texts. All of them are sent with HTML parse mode.
const (
	helpText = `🤖 <b>Confirmation relay bot</b>

📋 <b>Commands:</b>
/set [ID] - choose the chat that receives approved messages
/chat - show the current destination chat
/status - bot status

🔧 <b>Setup:</b>
1. Add the bot to the group or channel as an administrator
2. Look up the chat ID, for example with @username_to_id_bot
3. Send: <code>/set -1001234567890</code>

📤 <b>Usage:</b>
Send any message to the bot in a private chat.
After you confirm it, it is forwarded to the configured chat.`

	setUsageText = "❌ <b>Specify a chat ID!</b>\n" +
		"Example: <code>/set -1001234567890</code>\n\n" +
		"How to find the ID:\n" +
		"1. Add @username_to_id_bot to the group\n" +
		"2. Send the /id command\n" +
		"3. Copy the group ID (it starts with -100)"

	setNotIntegerText = "❌ <b>The ID must be a number!</b>\n" +
		"Example: <code>/set -1001234567890</code>"

	setZeroText = "❌ <b>0 is not a valid chat ID!</b>\n" +
		"Example: <code>/set -1001234567890</code>"

	setDoneFormat = "✅ <b>Destination chat configured!</b>\n" +
		"ID: <code>%d</code>\n\n" +
		"Approved messages will now be sent to this chat."

	setFailedText = "❌ Failed to save the destination!"

	chatCurrentFormat = "📌 <b>Current destination:</b>\n" +
		"ID: <code>%d</code>"

	chatNotConfiguredText = "❌ <b>Destination not configured!</b>\n" +
		"Use the command: <code>/set [chat_id]</code>"

	notConfiguredText = "❌ <b>Destination not configured!</b>\n" +
		"Configure it first with:\n" +
		"<code>/set [chat_id]</code>\n\n" +
		"You can get the ID from @username_to_id_bot"

	statusFailedFormat = "❌ Failed to get status: %s"

	promptHeader      = "📤 <b>Confirm sending:</b>\n\n"
	promptDestination = "\n\n➡️ <b>Will be sent to chat:</b> <code>%d</code>"

	approveButton = "✅ Send"
	cancelButton  = "❌ Cancel"

	cancelledText = "❌ <b>Sending cancelled</b>"
	sendingText   = "🔄 <b>Sending...</b>"
	deliveredText = "✅ <b>Message sent!</b>"
	expiredText   = "⌛ <b>This message has expired</b>"
	failedPrefix  = "❌ <b>Sending failed:</b>\n"

	hintBotKickedText       = "\n\n⚠️ <b>The bot was removed from the chat!</b>"
	hintNotEnoughRightsText = "\n\n⚠️ <b>The bot has no permission to post there!</b>"
	hintChatNotFoundText    = "\n\n⚠️ <b>The chat does not exist or the bot cannot see it. Check the ID with /chat.</b>"

	ackCancelled = "Cancelled"
	ackDelivered = "Sent successfully!"
	ackFailed    = "Error!"
	ackExpired   = "Message expired"

	attributionPrefix = "📨 <b>From:</b> "
)

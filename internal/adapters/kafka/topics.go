package kafka

// Topic definitions for Kafka event streaming
const (
	// Conversation events
	TopicConversationTurn = "conversations.turns"

	// Expense events
	TopicExpenseCreated = "expenses.created"
	TopicExpenseUpdated = "expenses.updated"
	TopicExpenseDeleted = "expenses.deleted"

	// Profile events
	TopicProfileUpdated = "profiles.updated"
)

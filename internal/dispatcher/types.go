// Package dispatcher implements the in-process pub/sub event bus (§4.7):
// FIFO delivery per source, synchronous fan-out, and failure isolation
// between subscribers.
package dispatcher

// Topic names the kind of event carried by a Message.
type Topic string

const (
	TopicStateChanged      Topic = "StateChanged"
	TopicMoodChanged       Topic = "MoodChanged"
	TopicRuleDiscovered    Topic = "RuleDiscovered"
	TopicCandidateCreated  Topic = "CandidateCreated"
	TopicCandidateAccepted Topic = "CandidateAccepted"
	TopicCandidateDismissed Topic = "CandidateDismissed"
	TopicZoneEntered       Topic = "ZoneEntered"
	TopicZoneLeft          Topic = "ZoneLeft"
	TopicPresenceChanged   Topic = "PresenceChanged"
	TopicSuggestionGenerated Topic = "SuggestionGenerated"

	// TopicAutomationAdoptionAcked is a pass-through topic the facade
	// publishes to when an external caller confirms a candidate was turned
	// into a live automation. No automation logic lives in this package.
	TopicAutomationAdoptionAcked Topic = "AutomationAdoptionAcked"
)

// Message is one published event.
type Message struct {
	Topic   Topic
	Source  string
	Seq     uint64
	AtMs    int64
	Payload any
}

// Package conversation implements the direct messenger.
//
// # Overview
//
// Conversations live inside the user-scoped state of the loaded identity and
// are keyed by a symmetric id built from both participants:
//
//	conversation.ID("alice", "bob") == conversation.ID("bob", "alice") // "alice--bob"
//
// The Engine appends, edits and reacts to messages, keeps unread counters and
// produces the automated replies that stand in for the other participant.
//
// # Replies
//
// ScheduleReply arranges for a simulated reply after a delay. Pending replies
// are cancelled whenever the session identity changes and when the engine is
// closed, so a reply can never land in the namespace of a different user.
//
// # Events
//
// Every applied mutation is published on an EventBroadcaster to both
// participants. The interactive shell subscribes to print incoming replies.
package conversation

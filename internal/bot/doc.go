// Package bot implements the Telegram front end: a long-poll transport
// on top of a persisted per-chat conversation state machine.
//
// Architecture:
//
//	┌─────────────────────────────────────────────────┐
//	│                      Bot                        │
//	│    (long-poll transport, screens, keyboards)    │
//	└────────────┬──────────────────────┬─────────────┘
//	             │                      │
//	             ▼                      ▼
//	┌──────────────────────┐ ┌──────────────────────┐
//	│       Machine        │ │     SessionStore     │
//	│ (pure transitions:   │ │ (bot_sessions table, │
//	│  add + edit flows)   │ │  state + payload)    │
//	└──────────┬───────────┘ └──────────────────────┘
//	           │
//	           ▼
//	┌──────────────────────┐
//	│  Checker + Writer    │
//	│  (device registry)   │
//	└──────────────────────┘
//
// Each update loads the chat's session, feeds one input through the
// machine and rewrites the session. Validation failures re-prompt in
// the same state, so a typo never aborts a flow. Keyboard selections
// arrive as callback queries and run through the same transitions as
// free text.
package bot

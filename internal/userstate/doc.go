// Package userstate keeps the per-identity slices of client state.
//
// Four independent slices are stored under "{slice}_{identity}" keys, or
// "{slice}_guest" when nobody is logged in:
//
//   - favorites: []int facility IDs
//   - friends:   []Relation
//   - dms:       map[conversationID][]Message
//   - unread:    map[conversationID]int
//
// Load reads all four together. A slice that is missing or fails to decode
// resets to its empty value without affecting the others. Attach binds a
// State to an auth.Session so every identity change (login, logout, switch)
// triggers a full reload; nothing from the previous namespace survives it.
//
// Every mutation writes its slice back immediately. A failed write is logged
// and otherwise ignored: the in-memory state stays as mutated.
package userstate

// Package friends implements the one-sided friend list.
//
// AddFriend creates a "pending" relation in the owner's namespace after
// checking, in order: the peer is not the owner (ErrSelfFriend), no relation
// to the peer exists in any status (ErrAlreadyRequested), and the peer has a
// credential record (ErrNotFound). The peer never sees or answers the
// request; only Accept, called from outside the messenger, moves a relation
// to "accepted". Only accepted relations appear in conversation listings.
package friends

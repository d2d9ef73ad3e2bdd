// Package facility models the sport complexes users browse and book.
//
// A Catalog holds the complexes fetched from a Source (the AI gateway in
// production), per-complex reviews and a transient chat room per complex.
// Bookings, reviews and chat live only in memory for the running client.
package facility

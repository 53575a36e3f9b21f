// Package cart implements the cafe cart state manager. A Store owns the cart
// held in one persisted slot (see package slot), applies the add / change /
// clear mutations, and derives every displayed aggregate from the cart on each
// call. Persistence problems never reach the caller: an unreadable slot loads
// as an empty cart and a failed write is reported to the store's error handler
// while the in-memory cart keeps driving the views.
package cart

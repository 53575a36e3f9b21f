// Package slot defines the persisted slot a cart lives in. A slot is a single
// named value holding the whole serialized cart; backends differ only in where
// that value is kept (process memory, a file, a cookie, SQLite or a remote
// key/value service). Writes replace the full value, so concurrent writers
// resolve as last-writer-wins.
package slot

// Package cafecart bootstraps a cart store from configuration. It resolves
// which slot backend to use (memory, file, sqlite, remote or cookie), loads
// seeds, performs the initial load and connects the store to the backend's
// change notifications so writes made elsewhere trigger a reload.
//
// Configuration is read from an optional YAML file and CAFECART_* environment
// variables; see Config for the recognised keys.
package cafecart

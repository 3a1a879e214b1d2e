// Package daemon defines the boundary between the agent and the network
// configuration daemon.
//
// The daemon owns persistent profile storage and drives real network state.
// The agent only reflects that state, so everything it needs is captured by
// the Client interface:
//
//   - WaitForEvent blocks for the next asynchronous daemon event
//   - Enumerate, ReadProperties, ReadProperty and State read objects
//   - Create, Commit, Enable, Disable and Destroy change them
//   - ScanWLANs, SelectWLAN and SetWLANKey drive wireless links
//
// # Vocabulary
//
// Objects are identified by a Handle (type, parent, name). Connections
// (NCUs) exist twice in the daemon, once as a link and once as an
// interface, and use typed names such as "link:net0" and "interface:net0".
// ParseTypedName and TypedName convert between the two forms.
//
// Every object reports a (State, AuxState) pair. The agent never infers
// state; it caches the last pair it was told about.
//
// # Transport
//
// DBusClient implements Client over D-Bus: daemon calls become method calls
// on the manager object and events arrive as signals.
package daemon

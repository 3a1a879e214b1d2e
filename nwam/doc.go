// Package nwam is the agent's object model: profiles (NCPs) and their
// connections (NCUs), locations (ENVs), modifiers (ENMs), wireless networks
// and the condition rules that drive conditional activation.
//
// Objects cache the last (state, aux state) pair the daemon reported and a
// small set of properties. Setters return whether anything changed so the
// caller can publish notifications. Local edits are remembered until the
// next commit, and a reload from the daemon never overwrites them.
package nwam

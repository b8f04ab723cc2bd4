// Package core contains the canonical client contracts, credential domain
// types, and the authenticated request pipeline. Lower-level adapters
// (transport, stores, realtime) must depend on this package; core must not
// depend on transport-specific or storage-specific adapters.
package core

package events

type Event = string

const (
	EventStart      Event = "start"      // start loading
	EventLoaded     Event = "loaded"     // first ruleset applied
	EventReload     Event = "reload"     // ruleset file changed
	EventApplied    Event = "applied"    // ruleset applied to the kernel
	EventQuit       Event = "quit"       // quit gracefully
	EventTerminated Event = "terminated" // killed by a signal

	EventNFTablesReady Event = "nftablesReady" // firewall tables are created
)

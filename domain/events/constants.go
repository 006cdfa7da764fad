package events

// Event sources - These define where events originate from
const (
	// SourceLinks is the link generation service source
	SourceLinks = "kbgraph.links"

	// SourceIngestion is the entry ingestion pipeline source
	SourceIngestion = "kbgraph.ingestion"
)

// Event types - These define the types of events in the system
const (
	// TypeGenerateLinksRequested asks a worker to rebuild one owner's links
	TypeGenerateLinksRequested = "GenerateLinksRequested"

	// TypeLinksGenerated reports the outcome of a generation run
	TypeLinksGenerated = "LinksGenerated"
)

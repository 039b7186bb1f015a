package ir

// Version constants for the tree encoding and engine.
const (
	// TreeVersion is the descriptor encoding version stored with journaled renders.
	TreeVersion = "1"

	// EngineVersion is the flash engine version.
	EngineVersion = "0.1.0"
)

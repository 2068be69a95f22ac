/*
Package domain defines the core types of the blue-green rotation engine.

A deployment has exactly two slots, BLUE and GREEN. The persisted RotationState
records which slot most recently received a version (ActiveSlot) and the two
versions currently tracked. Every other component (stores, the rotator, the
priming bridge and the deployer) speaks in terms of these types.

# Wire Format

A RotationState is persisted as a single JSON object:

	{"activeSlot":"BLUE","currentVersion":1,"previousVersion":1}

There is no schema versioning. DecodeState rejects anything that does not parse
as exactly this shape with a CorruptStateError.
*/
package domain

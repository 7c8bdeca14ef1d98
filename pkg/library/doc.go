/*
Package library manages the named sequences an operator can save and recall.

A Manager serializes access per sequence name over any ports.SequenceStore,
optionally coordinating replicas through a ports.DistributedLocker. A Host
adapts a Manager to the engine's save/load capability.
*/
package library

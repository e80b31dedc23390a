/*
Package domain contains the core domain models of the Haptix workflow engine.

It defines the immutable workflow graph (Nodes, Triggers, Actions, Edges), the wire form
clients submit to build one, and the records the engine reports back after each step.
This package is kept pure and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - Graph: The validated, read-only workflow shared by every session that runs it.
  - Node: A listening point with a Trigger and an ordered list of Actions.
  - Trigger: A condition over transcript text (a case-insensitive phrase today).
  - Action: Either a StimulusAction (pulses sent to the hardware) or a WaitAction.
  - Edge: A transition taken when its source node fires.
  - ActionRecord: The display shape of an executed action.
*/
package domain

/*
Package haptix drives haptic stimuli from transcribed speech, guided by a
user-authored workflow graph.

A graph is a set of nodes, each with a phrase trigger and an ordered list of
actions (stimulus pulses and waits), joined by directed edges. A session keeps
the set of nodes currently listening. Every transcript fragment submitted to a
session is matched against the listening nodes; each match runs its actions
through the stimulus dispatcher, stops listening and hands off to the targets
of its outgoing edges.

# Usage

	eng, err := haptix.New(memory.NewDispatcher())
	if err != nil {
		log.Fatal(err)
	}

	id, err := eng.StartSession(ctx, domain.GraphDefinition{
		Nodes: []domain.NodeDefinition{{
			ID:      "greet",
			Trigger: domain.TriggerDefinition{Phrase: "hello"},
			Actions: []domain.ActionDefinition{{Type: domain.ActionStimulus, Mode: "vibe", Value: 50}},
		}},
	})
	if err != nil {
		log.Fatal(err)
	}

	step, err := eng.SubmitTranscript(ctx, id, "Hello there")

Sessions live in memory only. Work on different sessions never blocks each
other; calls on the same session are applied one at a time, in arrival order.

# Adapters

  - pkg/adapters/pavlok: sends pulses to the Pavlok API.
  - pkg/adapters/memory: records pulses (dry-run) and stores trigger configs in memory.
  - pkg/adapters/redis: stores trigger configs in Redis.
  - pkg/adapters/scribe: issues realtime transcription tokens.
  - pkg/adapters/http: REST front door.
  - pkg/adapters/mcp: Model Context Protocol tools.
*/
package haptix

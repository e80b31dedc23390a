package haptix_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/haptix"
	"github.com/aretw0/haptix/pkg/adapters/memory"
	"github.com/aretw0/haptix/pkg/domain"
)

// ExampleNew drives a two-node graph with a recording dispatcher.
func ExampleNew() {
	dispatcher := memory.NewDispatcher()
	eng, err := haptix.New(dispatcher)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	id, err := eng.StartSession(ctx, domain.GraphDefinition{
		Nodes: []domain.NodeDefinition{
			{
				ID:      "greet",
				Trigger: domain.TriggerDefinition{Phrase: "hello"},
				Actions: []domain.ActionDefinition{{Type: domain.ActionStimulus, Mode: "vibe", Value: 50}},
			},
			{
				ID:      "farewell",
				Trigger: domain.TriggerDefinition{Phrase: "goodbye"},
				Actions: []domain.ActionDefinition{{Type: domain.ActionStimulus, Mode: "beep", Value: 20}},
			},
		},
		Edges: []domain.EdgeDefinition{{ID: "e1", Source: "greet", Target: "farewell"}},
	})
	if err != nil {
		log.Fatal(err)
	}

	for _, text := range []string{"goodbye", "Hello there", "ok goodbye"} {
		step, err := eng.SubmitTranscript(ctx, id, text)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(text, "->", step.ExecutedNodes, step.ActiveNodes)
	}
	fmt.Println("pulses:", len(dispatcher.Pulses()))

	// Output:
	// goodbye -> [] [greet]
	// Hello there -> [greet] [farewell]
	// ok goodbye -> [farewell] []
	// pulses: 2
}

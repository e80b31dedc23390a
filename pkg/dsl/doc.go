/*
Package dsl provides a Go DSL for programmatically constructing haptix graphs.

It is an alternative to authoring YAML or JSON definitions by hand, useful for
generated graphs and tests.

Example usage:

	b := dsl.New()

	b.Add("greet").
		On("hello").
		Stimulus("vibe", 50).
		Go("calm")

	b.Add("calm").
		On("relax").
		Preset(presets.Breathing, "vibe", 2).
		Terminal()

	// Store or send the document form...
	def := b.Definition()

	// ...or compile it directly.
	g, err := b.Build(domain.WithPresets(presets.NewCatalog()))
*/
package dsl

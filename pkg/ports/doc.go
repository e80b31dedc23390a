/*
Package ports defines the driven ports (interfaces) for the Haptix engine.

These interfaces decouple the workflow core from the outside world: the hardware
vendor that delivers stimuli, the document store holding trigger configurations,
and the transcription vendor that issues realtime tokens.

# Key Interfaces

  - StimulusDispatcher: Sends one stimulus pulse to the hardware (best-effort).
  - TriggerStore: Persists named workflow definitions.
  - TokenIssuer: Issues single-use realtime transcription tokens.
*/
package ports

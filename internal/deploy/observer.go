package deploy

import "github.com/rs/zerolog"

// Observer receives run narration separately from orchestration logic, so
// console presentation stays out of the pipeline.
type Observer interface {
	OnStep(step, total int, title string)
	OnSuccess(msg string)
	OnWarning(msg string)
	OnError(msg string)
}

// LogObserver narrates through a zerolog logger.
type LogObserver struct {
	Log zerolog.Logger
}

func (o LogObserver) OnStep(step, total int, title string) {
	o.Log.Info().Int("step", step).Int("of", total).Msg(title)
}

func (o LogObserver) OnSuccess(msg string) { o.Log.Info().Msg(msg) }
func (o LogObserver) OnWarning(msg string) { o.Log.Warn().Msg(msg) }
func (o LogObserver) OnError(msg string)   { o.Log.Error().Msg(msg) }

// NopObserver discards narration (tests).
type NopObserver struct{}

func (NopObserver) OnStep(int, int, string) {}
func (NopObserver) OnSuccess(string)        {}
func (NopObserver) OnWarning(string)        {}
func (NopObserver) OnError(string)          {}

package events

import (
	"context"

	"github.com/rs/zerolog"
)

// LogPublisher writes each event as a structured log line. It is used when
// no broker is configured.
type LogPublisher struct {
	Logger zerolog.Logger
}

// Publish implements Publisher.
func (p LogPublisher) Publish(_ context.Context, evs ...Event) error {
	for _, ev := range evs {
		e := p.Logger.Info().
			Str("event", ev.Type).
			Str("key", ev.Key).
			Str("subject_id", ev.SubjectID).
			Time("occurred_at", ev.OccurredAt)
		if ev.ActorID != "" {
			e = e.Str("actor_id", ev.ActorID).Str("actor_role", ev.ActorRole)
		}
		if len(ev.Attributes) > 0 {
			d := zerolog.Dict()
			for k, v := range ev.Attributes {
				d = d.Str(k, v)
			}
			e = e.Dict("attributes", d)
		}
		e.Msg("lifecycle event")
	}
	return nil
}

// Close implements Publisher.
func (LogPublisher) Close() error { return nil }

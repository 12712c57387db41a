package witness

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/witnessnet/witnessnet/crypto"
	"github.com/witnessnet/witnessnet/model/payload"
	"github.com/witnessnet/witnessnet/module"
	"github.com/witnessnet/witnessnet/module/base"
)

const TimestampConfigSchema = "network.xyo.witness.timestamp.config"

// TimestampObserver observes the current time. Supplied payloads are returned after the
// timestamp payload, each stamped with the same time.
type TimestampObserver struct {
	now func() time.Time
}

func NewTimestampObserver(now func() time.Time) *TimestampObserver {
	if now == nil {
		now = time.Now
	}
	return &TimestampObserver{now: now}
}

func (o *TimestampObserver) Observe(_ context.Context, payloads []payload.Payload) ([]payload.Payload, error) {
	ts := o.now().UnixMilli()
	out := make([]payload.Payload, 0, len(payloads)+1)
	out = append(out, payload.NewTimestamp(ts))
	for _, p := range payloads {
		stamped := p.Clone()
		stamped["timestamp"] = ts
		out = append(out, stamped)
	}
	return out, nil
}

// NewTimestamp creates a witness observing the wall clock.
func NewTimestamp(log zerolog.Logger, account *crypto.Account, config module.Config, opts ...base.Option) (*Witness, error) {
	if config.Schema == "" {
		config.Schema = TimestampConfigSchema
	}
	return New(log, account, config, NewTimestampObserver(nil), opts...)
}

package pipeline

import (
	"context"
	"errors"
)

// FanOut delivers every alert through each notifier in turn. It fails only
// when all channels fail.
type FanOut []Notifier

// Notify sends message to recipient on every channel
func (f FanOut) Notify(ctx context.Context, recipient, message string) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, recipient, message); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == len(f) {
		return errors.Join(errs...)
	}
	return nil
}

// Package advertiser pushes advertising payloads to a controller, once or
// on a rotation timer.
package advertiser

import (
	"context"
	"time"

	"github.com/muxable/bleadv/pkg/ad"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DataSetter loads an encoded payload into a controller buffer.
// *hci.Adapter implements it.
type DataSetter interface {
	SetAdvertisingPayload(handle uint8, payload *ad.Payload) error
}

type Config struct {
	// Handle is the advertising set. Legacy controllers ignore it.
	Handle         uint8
	RotateInterval time.Duration
}

func NewConfig() Config {
	return Config{RotateInterval: 10 * time.Second}
}

type Advertiser struct {
	setter DataSetter
	cfg    Config
}

func New(setter DataSetter, cfg Config) *Advertiser {
	return &Advertiser{setter: setter, cfg: cfg}
}

// Apply validates p and loads it into the buffer named by p.Target. Encoder
// errors are returned unwrapped and nothing reaches the controller.
func (a *Advertiser) Apply(p ad.Payload) error {
	if _, err := p.Encode(); err != nil {
		return err
	}
	if err := a.setter.SetAdvertisingPayload(a.cfg.Handle, &p); err != nil {
		return errors.Wrapf(err, "apply %s payload", p.Target)
	}
	return nil
}

func isEncodeError(err error) bool {
	return errors.Is(err, ad.ErrPayloadTooLarge) ||
		errors.Is(err, ad.ErrNullElement) ||
		errors.Is(err, ad.ErrLengthMismatch)
}

// Rotate applies payloads round-robin, one every RotateInterval, until ctx
// is done. Payloads that fail to encode are logged and skipped; a controller
// failure ends the rotation.
func (a *Advertiser) Rotate(ctx context.Context, payloads []ad.Payload) error {
	if len(payloads) == 0 {
		return errors.New("no payloads to rotate")
	}
	if a.cfg.RotateInterval <= 0 {
		return errors.Errorf("invalid rotate interval %v", a.cfg.RotateInterval)
	}
	ticker := time.NewTicker(a.cfg.RotateInterval)
	defer ticker.Stop()

	for i := 0; ; i = (i + 1) % len(payloads) {
		if err := a.Apply(payloads[i]); isEncodeError(err) {
			zap.L().Warn("skipping payload", zap.Int("index", i), zap.Error(err))
		} else if err != nil {
			return err
		} else {
			zap.L().Debug("rotated payload", zap.Int("index", i), zap.Stringer("target", payloads[i].Target))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

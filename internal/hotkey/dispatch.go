package hotkey

import (
	"context"
	"log/slog"

	"github.com/chaz8081/bledob/internal/controller"
)

// BrightnessStep is the brightness change per key press, in percent.
const BrightnessStep = 10

// Doer processes controller intents.
type Doer interface {
	Do(ctx context.Context, in controller.Intent) (controller.Result, error)
}

// IntentFor returns the controller intent for a hotkey action.
func IntentFor(action string) (controller.Intent, bool) {
	switch action {
	case "power_toggle":
		return controller.Intent{Kind: controller.KindTogglePower}, true
	case "brightness_up":
		return controller.Intent{Kind: controller.KindAdjustBrightness, Percent: BrightnessStep}, true
	case "brightness_down":
		return controller.Intent{Kind: controller.KindAdjustBrightness, Percent: -BrightnessStep}, true
	case "next_effect":
		return controller.Intent{Kind: controller.KindNextEffect}, true
	}
	return controller.Intent{}, false
}

// Dispatch forwards hotkey events to ctrl until events is closed or ctx is
// cancelled. Failed intents are logged.
func Dispatch(ctx context.Context, events <-chan Event, ctrl Doer) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			in, ok := IntentFor(ev.Action)
			if !ok {
				slog.Warn("[hotkey] unknown action", "action", ev.Action)
				continue
			}
			if _, err := ctrl.Do(ctx, in); err != nil {
				slog.Warn("[hotkey] action failed", "action", ev.Action, "error", err)
			}
		}
	}
}

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"artillery-planner/ballistics"
	"artillery-planner/game"
	"artillery-planner/planner"
	"artillery-planner/view"
)

type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type ServerMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

var errUnknownType = errors.New("unknown message type")

// PointerPayload is a mouse or touch event in viewport coordinates. Button
// uses DOM numbering: 0 primary, 2 secondary. At is optional, in Unix
// milliseconds.
type PointerPayload struct {
	Phase  string  `json:"phase"`
	Device string  `json:"device"`
	Button int     `json:"button"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	At     int64   `json:"at,omitempty"`
}

type WheelPayload struct {
	X         float64        `json:"x"`
	Y         float64        `json:"y"`
	DeltaY    float64        `json:"deltaY"`
	DeltaMode view.WheelMode `json:"deltaMode"`
}

type TouchesPayload struct {
	Points []view.Point `json:"points"`
}

type KeyPayload struct {
	Key   string `json:"key"`
	Ctrl  bool   `json:"ctrl"`
	Meta  bool   `json:"meta"`
	Shift bool   `json:"shift"`
}

type ViewportPayload struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type ModePayload struct {
	Mode game.Kind `json:"mode"`
}

type WeaponPayload struct {
	WeaponID string `json:"weaponId"`
}

type AssignWeaponPayload struct {
	Emitter  int    `json:"emitter"`
	WeaponID string `json:"weaponId"`
}

// PairPayload pairs Emitter with Target. A nil Target unpairs.
type PairPayload struct {
	Emitter int  `json:"emitter"`
	Target  *int `json:"target"`
}

type MapPayload struct {
	MapID string `json:"mapId"`
}

type SavePlanPayload struct {
	Name string `json:"name"`
}

type LoadPlanPayload struct {
	ID string `json:"id"`
}

type PlanSavedPayload struct {
	ID string `json:"id"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func decode(msg ClientMessage, v any) error {
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("%s payload: %w", msg.Type, err)
	}
	return nil
}

func pointerEvent(p PointerPayload) (planner.PointerEvent, error) {
	ev := planner.PointerEvent{X: p.X, Y: p.Y}
	switch p.Phase {
	case "down":
		ev.Phase = planner.PointerDown
	case "move":
		ev.Phase = planner.PointerMove
	case "up":
		ev.Phase = planner.PointerUp
	case "cancel":
		ev.Phase = planner.PointerCancel
	default:
		return ev, fmt.Errorf("unknown pointer phase %q", p.Phase)
	}
	switch p.Device {
	case "", "mouse":
		ev.Device = view.Mouse
	case "touch":
		ev.Device = view.Touch
	default:
		return ev, fmt.Errorf("unknown pointer device %q", p.Device)
	}
	switch p.Button {
	case 0:
		ev.Button = planner.Primary
	case 2:
		ev.Button = planner.Secondary
	default:
		return ev, fmt.Errorf("unsupported button %d", p.Button)
	}
	if p.At > 0 {
		ev.At = time.UnixMilli(p.At)
	}
	return ev, nil
}

// processCommand applies one planner command. Commands that need the
// backend (saving and loading plans) are handled by the session.
func processCommand(msg ClientMessage, p *planner.Planner) error {
	switch msg.Type {
	case "pointer":
		var pl PointerPayload
		if err := decode(msg, &pl); err != nil {
			return err
		}
		ev, err := pointerEvent(pl)
		if err != nil {
			return err
		}
		p.HandlePointer(ev)
	case "wheel":
		var pl WheelPayload
		if err := decode(msg, &pl); err != nil {
			return err
		}
		p.HandleWheel(pl.X, pl.Y, view.WheelPixelsDelta(pl.DeltaY, pl.DeltaMode))
	case "touches":
		var pl TouchesPayload
		if err := decode(msg, &pl); err != nil {
			return err
		}
		p.HandleTouches(pl.Points)
	case "double_click":
		p.HandleDoubleClick()
	case "key":
		var pl KeyPayload
		if err := decode(msg, &pl); err != nil {
			return err
		}
		p.HandleKey(planner.KeyEvent{Key: pl.Key, Ctrl: pl.Ctrl, Meta: pl.Meta, Shift: pl.Shift})
	case "viewport":
		var pl ViewportPayload
		if err := decode(msg, &pl); err != nil {
			return err
		}
		if !p.SetViewport(pl.Width, pl.Height) {
			return fmt.Errorf("invalid viewport %vx%v", pl.Width, pl.Height)
		}
	case "set_mode":
		var pl ModePayload
		if err := decode(msg, &pl); err != nil {
			return err
		}
		p.SetMode(pl.Mode)
	case "select":
		var ref game.Ref
		if err := decode(msg, &ref); err != nil {
			return err
		}
		p.Select(ref)
	case "clear_selection":
		p.ClearSelection()
	case "select_weapon":
		var pl WeaponPayload
		if err := decode(msg, &pl); err != nil {
			return err
		}
		p.SelectWeapon(pl.WeaponID)
	case "assign_weapon":
		var pl AssignWeaponPayload
		if err := decode(msg, &pl); err != nil {
			return err
		}
		p.AssignWeapon(pl.Emitter, pl.WeaponID)
	case "pair":
		var pl PairPayload
		if err := decode(msg, &pl); err != nil {
			return err
		}
		if pl.Target == nil {
			p.Unpair(pl.Emitter)
		} else {
			p.Pair(pl.Emitter, *pl.Target)
		}
	case "set_wind":
		var w ballistics.Wind
		if err := decode(msg, &w); err != nil {
			return err
		}
		return p.SetWind(w)
	case "change_map":
		var pl MapPayload
		if err := decode(msg, &pl); err != nil {
			return err
		}
		p.ChangeMap(pl.MapID)
	case "undo":
		p.Undo()
	case "redo":
		p.Redo()
	default:
		return fmt.Errorf("%w: %s", errUnknownType, msg.Type)
	}
	return nil
}

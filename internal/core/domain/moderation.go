package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Verb is the kind of moderation action a panel button carries.
type Verb string

const (
	VerbApprove Verb = "approve"
	VerbReject  Verb = "reject"
	VerbDelete  Verb = "delete"
	VerbRotate  Verb = "rotate"
	VerbEdit    Verb = "edit"
)

// Action is a parsed moderation action.
type Action struct {
	Verb     Verb
	ReviewID string
	Angle    int // only set for VerbRotate
}

// Approval is the moderation status a panel displays.
type Approval string

const (
	ApprovalPending  Approval = "pending"
	ApprovalApproved Approval = "approved"
	ApprovalRejected Approval = "rejected"
	// ApprovalDeleted is terminal; no further verbs are accepted.
	ApprovalDeleted Approval = "deleted"
)

// PanelState is the moderation status of a single review as encoded in its
// posted panel. The panel message itself is the durable store; this snapshot
// is recovered from the rendered keyboard and never kept anywhere else.
type PanelState struct {
	ReviewID        string
	HasImage        bool
	Approval        Approval
	Actor           string // who last acted, empty while pending
	RotationEnabled bool
}

// EffectKind enumerates the remote calls a transition may require.
type EffectKind int

const (
	EffectNone EffectKind = iota
	EffectSetApproved
	EffectDelete
	EffectRotate
)

// Effect is the single side effect a transition demands. It must be executed
// (and succeed) before the new state may be rendered.
type Effect struct {
	Kind     EffectKind
	Approved bool // for EffectSetApproved
	Angle    int  // for EffectRotate
}

var (
	// ErrMalformedAction marks callback data that does not encode an action.
	ErrMalformedAction = errors.New("malformed action identifier")
	// ErrDeleted is returned for any verb against a deleted panel.
	ErrDeleted = errors.New("review already deleted")
	// ErrNoImage is returned for a rotate verb on an imageless panel.
	ErrNoImage = errors.New("review has no image to rotate")
	// ErrReviewMismatch is returned when an action targets a different
	// review than the panel it was pressed on.
	ErrReviewMismatch = errors.New("action review id does not match panel")
)

// validAngles are the rotations the image service supports.
var validAngles = map[int]bool{90: true, 180: true, 270: true}

// ParseAction decodes a button's callback data of the form
// "<verb>_<reviewID>" or "rotate_<reviewID>_<angle>". It fails closed:
// anything that does not match exactly is ErrMalformedAction. Sentinel data
// on disabled buttons intentionally never parses.
func ParseAction(data string) (Action, error) {
	parts := strings.Split(data, "_")
	if len(parts) < 2 || len(parts) > 3 {
		return Action{}, fmt.Errorf("%w: %q has %d segments", ErrMalformedAction, data, len(parts))
	}

	verb := Verb(parts[0])
	id := parts[1]
	if id == "" {
		return Action{}, fmt.Errorf("%w: %q has empty review id", ErrMalformedAction, data)
	}

	switch verb {
	case VerbApprove, VerbReject, VerbDelete, VerbEdit:
		if len(parts) != 2 {
			return Action{}, fmt.Errorf("%w: %q has a trailing segment", ErrMalformedAction, data)
		}
		return Action{Verb: verb, ReviewID: id}, nil
	case VerbRotate:
		if len(parts) != 3 {
			return Action{}, fmt.Errorf("%w: %q is missing an angle", ErrMalformedAction, data)
		}
		angle, err := strconv.Atoi(parts[2])
		if err != nil {
			return Action{}, fmt.Errorf("%w: bad angle in %q: %v", ErrMalformedAction, data, err)
		}
		if !validAngles[angle] {
			return Action{}, fmt.Errorf("%w: unsupported angle %d", ErrMalformedAction, angle)
		}
		return Action{Verb: verb, ReviewID: id, Angle: angle}, nil
	default:
		return Action{}, fmt.Errorf("%w: unknown verb %q", ErrMalformedAction, parts[0])
	}
}

// Transition computes the side effect and next panel state for an action.
// It is a pure function of (prev, action, actor): no clock, no I/O. The
// caller executes the effect first and only renders next on success.
func Transition(prev PanelState, action Action, actor string) (Effect, PanelState, error) {
	if action.ReviewID != prev.ReviewID {
		return Effect{}, prev, ErrReviewMismatch
	}
	if prev.Approval == ApprovalDeleted {
		return Effect{}, prev, ErrDeleted
	}

	next := prev
	switch action.Verb {
	case VerbApprove:
		next.Approval = ApprovalApproved
		next.Actor = actor
		next.RotationEnabled = false
		return Effect{Kind: EffectSetApproved, Approved: true}, next, nil
	case VerbReject:
		next.Approval = ApprovalRejected
		next.Actor = actor
		next.RotationEnabled = prev.HasImage
		return Effect{Kind: EffectSetApproved, Approved: false}, next, nil
	case VerbDelete:
		next.Approval = ApprovalDeleted
		next.Actor = actor
		next.RotationEnabled = false
		return Effect{Kind: EffectDelete}, next, nil
	case VerbRotate:
		if !prev.HasImage {
			return Effect{}, prev, ErrNoImage
		}
		// Approval, actor and buttons stay as they are; only the image
		// preview is refreshed after the rotate call.
		return Effect{Kind: EffectRotate, Angle: action.Angle}, next, nil
	case VerbEdit:
		return Effect{Kind: EffectNone}, next, nil
	default:
		return Effect{}, prev, fmt.Errorf("%w: unknown verb %q", ErrMalformedAction, action.Verb)
	}
}

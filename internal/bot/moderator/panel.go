package moderator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mensatt/notifier/internal/core/domain"
	"github.com/mensatt/notifier/internal/core/ports"
)

// The panel message is the durable store of moderation state: the keyboard
// below a review encodes the PanelState, and RecoverState is the inverse of
// Keyboard. Telegram has no disabled buttons, so logically disabled buttons
// carry sentinel callback data that can never parse as an action; pressing
// a stale button is therefore a no-op.

const (
	sentinelApproveApproved = "_____approve_approved_"
	sentinelApproveDeleted  = "_____approve_deleted_"
	sentinelRejectDeleted   = "_____reject_deleted_"
	sentinelRotate          = "_____rotate_"
)

const (
	labelApprove          = "✅ Approve"
	labelApprovedByPrefix = "✅ Approved by "
	labelReject           = "🗑 Reject"
	labelUnapprove        = "🗑 Unapprove"
	labelRejectedPrefix   = "🗑 Delete (rejected by "
	labelRejectedSuffix   = ")"
	labelDeletedByPrefix  = "🗑 Deleted by "
)

// rotation buttons, left to right, mirroring the web UI's arrows
var rotationAngles = []struct {
	angle int
	label string
}{
	{270, "↪"},
	{180, "↕"},
	{90, "↩"},
}

// NewPanelState is the state of a freshly posted panel.
func NewPanelState(reviewID string, hasImage bool) domain.PanelState {
	return domain.PanelState{
		ReviewID:        reviewID,
		HasImage:        hasImage,
		Approval:        domain.ApprovalPending,
		RotationEnabled: hasImage,
	}
}

// Keyboard renders the inline keyboard for a panel state.
func Keyboard(s domain.PanelState) [][]ports.Button {
	approve := ports.Button{Text: labelApprove, Data: "approve_" + s.ReviewID}
	reject := ports.Button{Text: labelReject, Data: "reject_" + s.ReviewID}

	switch s.Approval {
	case domain.ApprovalApproved:
		approve = ports.Button{
			Text: labelApprovedByPrefix + s.Actor,
			Data: sentinelApproveApproved + s.ReviewID,
		}
		reject.Text = labelUnapprove
	case domain.ApprovalRejected:
		reject = ports.Button{
			Text: labelRejectedPrefix + s.Actor + labelRejectedSuffix,
			Data: "delete_" + s.ReviewID,
		}
	case domain.ApprovalDeleted:
		approve.Data = sentinelApproveDeleted + s.ReviewID
		reject = ports.Button{
			Text: labelDeletedByPrefix + s.Actor,
			Data: sentinelRejectDeleted + s.ReviewID,
		}
	}

	row := []ports.Button{approve}
	if s.HasImage {
		for _, rot := range rotationAngles {
			data := fmt.Sprintf("rotate_%s_%d", s.ReviewID, rot.angle)
			if !s.RotationEnabled {
				data = fmt.Sprintf("%s%s_%d", sentinelRotate, s.ReviewID, rot.angle)
			}
			row = append(row, ports.Button{Text: rot.label, Data: data})
		}
	}
	row = append(row, reject)

	return [][]ports.Button{row}
}

// ErrUnrecognizedPanel marks a keyboard that does not look like a panel.
var ErrUnrecognizedPanel = errors.New("message keyboard is not a moderation panel")

// RecoverState reconstructs the panel state from a rendered keyboard. For
// every reachable state, RecoverState(Keyboard(s)) == s.
func RecoverState(keyboard [][]ports.Button) (domain.PanelState, error) {
	s := domain.PanelState{Approval: domain.ApprovalPending}
	found := false

	for _, row := range keyboard {
		for _, btn := range row {
			switch {
			case strings.HasPrefix(btn.Data, "approve_"):
				s.ReviewID = strings.TrimPrefix(btn.Data, "approve_")
				found = true
			case strings.HasPrefix(btn.Data, sentinelApproveApproved):
				s.ReviewID = strings.TrimPrefix(btn.Data, sentinelApproveApproved)
				s.Approval = domain.ApprovalApproved
				s.Actor = strings.TrimPrefix(btn.Text, labelApprovedByPrefix)
				found = true
			case strings.HasPrefix(btn.Data, sentinelApproveDeleted):
				s.ReviewID = strings.TrimPrefix(btn.Data, sentinelApproveDeleted)
				s.Approval = domain.ApprovalDeleted
				found = true
			case strings.HasPrefix(btn.Data, "delete_"):
				s.ReviewID = strings.TrimPrefix(btn.Data, "delete_")
				s.Approval = domain.ApprovalRejected
				s.Actor = strings.TrimSuffix(strings.TrimPrefix(btn.Text, labelRejectedPrefix), labelRejectedSuffix)
				found = true
			case strings.HasPrefix(btn.Data, sentinelRejectDeleted):
				s.Actor = strings.TrimPrefix(btn.Text, labelDeletedByPrefix)
			case strings.HasPrefix(btn.Data, "rotate_"):
				s.HasImage = true
				s.RotationEnabled = true
			case strings.HasPrefix(btn.Data, sentinelRotate):
				s.HasImage = true
			}
		}
	}

	if !found {
		return domain.PanelState{}, ErrUnrecognizedPanel
	}
	return s, nil
}

// RecoverImageID extracts the image id from a panel caption. The caption's
// last line is the authenticated image URL; the id is its final path
// segment with the query stripped.
func RecoverImageID(caption string) (string, error) {
	lines := strings.Split(strings.TrimSpace(caption), "\n")
	last := lines[len(lines)-1]
	if !strings.Contains(last, "?auth=") {
		return "", fmt.Errorf("caption carries no image URL: %q", last)
	}
	withQuery := last[strings.LastIndex(last, "/")+1:]
	id, _, _ := strings.Cut(withQuery, "?")
	if id == "" {
		return "", fmt.Errorf("could not extract image id from %q", last)
	}
	return id, nil
}

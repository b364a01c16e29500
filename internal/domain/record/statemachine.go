package record

import "time"

// TargetCollection maps a (role, decision) pair to the collection the record
// belongs in afterwards. It depends only on who decided and how, never on the
// record, so callers can pick the right store operation before taking locks.
func TargetCollection(role Role, decision Decision) Collection {
	if role == RoleTeamLeader && decision == DecisionApprove {
		return CollectionActiveQueue
	}
	if decision == DecisionApprove {
		return CollectionApprovedArchive
	}
	return CollectionRejectedArchive
}

// Transition applies one reviewer decision to rec in place.
//
// Legality: a team leader may only act on pending_team_leader, an admin only
// on pending_admin. Any mismatch returns ErrInvalidTransition and leaves rec
// untouched. On success the status and decision fields are updated and
// exactly one workflow history entry is appended.
func Transition(rec *Record, role Role, decision Decision, actor, reason string, requestChanges bool, now time.Time) (Collection, error) {
	switch role {
	case RoleTeamLeader:
		if rec.Status != StatusPendingTeamLeader {
			return "", ErrInvalidTransition
		}
	case RoleAdmin:
		if rec.Status != StatusPendingAdmin {
			return "", ErrInvalidTransition
		}
	default:
		return "", ErrInvalidTransition
	}

	var next Status
	switch {
	case decision == DecisionApprove && role == RoleTeamLeader:
		next = StatusPendingAdmin
	case decision == DecisionApprove && role == RoleAdmin:
		next = StatusApproved
	case decision == DecisionReject && requestChanges:
		next = StatusChangesRequested
	case decision == DecisionReject && role == RoleTeamLeader:
		next = StatusRejectedByTeamLeader
	case decision == DecisionReject && role == RoleAdmin:
		next = StatusRejectedByAdmin
	default:
		return "", ErrInvalidTransition
	}

	rec.Status = next
	rec.DecidedBy = actor
	t := now.UTC()
	rec.DecidedDate = &t
	if decision == DecisionReject {
		rec.RejectionReason = reason
	}
	rec.WorkflowHistory = append(rec.WorkflowHistory, HistoryEntry{
		Status:    next,
		Timestamp: t,
		Actor:     actor,
		Comment:   reason,
	})
	return TargetCollection(role, decision), nil
}

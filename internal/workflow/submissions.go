package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bubblecast/internal/auth"
	"bubblecast/internal/models"
)

// SubmitWork marks a creator's deliverables as handed in. Only the creator
// themselves may submit, except that agency staff may submit on a creator's
// behalf. Allowed from pending or revision_requested; the guarded update
// rejects anything else.
func (o *Orchestrator) SubmitWork(ctx context.Context, actor auth.Role, castingID, creatorID uuid.UUID) error {
	if !actor.IsAgency() && !actor.IsCreator(creatorID) {
		return ErrUnauthorized
	}

	submission, err := o.db.Submissions.GetByCastingAndCreator(castingID, creatorID)
	if err != nil {
		return notFoundOr(err)
	}

	now := time.Now().UTC()
	ok, err := o.db.Submissions.UpdateStatusIf(submission.ID,
		[]models.SubmissionStatus{models.SubmissionPending, models.SubmissionRevisionRequested},
		models.SubmissionPendingReview,
		map[string]interface{}{"submitted_at": now},
	)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: submission is not awaiting work", ErrInvalidState)
	}
	return nil
}

// ReviewSubmission records the internal review verdict. Approval stamps the
// reviewer and, when the parent casting still sits in approved_by_client,
// nudges it to shooting with the usual guarded update. Rejection requires
// feedback and sends the submission back for revision.
func (o *Orchestrator) ReviewSubmission(ctx context.Context, actor auth.Role, castingID, creatorID uuid.UUID, approved bool, feedback string) error {
	if !actor.IsAgency() {
		return ErrUnauthorized
	}
	if !approved && feedback == "" {
		return fmt.Errorf("%w: feedback is required when requesting a revision", ErrValidation)
	}

	submission, err := o.db.Submissions.GetByCastingAndCreator(castingID, creatorID)
	if err != nil {
		return notFoundOr(err)
	}

	now := time.Now().UTC()
	if approved {
		ok, err := o.db.Submissions.UpdateStatusIf(submission.ID,
			[]models.SubmissionStatus{models.SubmissionPendingReview},
			models.SubmissionApproved,
			map[string]interface{}{
				"approved_by": actor.UserID,
				"approved_at": now,
				"feedback":    feedback,
			},
		)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: submission is not awaiting review", ErrInvalidState)
		}

		flipped, err := o.db.Castings.UpdateStatusIf(castingID, models.CastingApprovedByClient, models.CastingShooting)
		if err != nil {
			o.logger.WithError(err).WithField("casting_id", castingID).Warn("could not advance casting after submission approval")
		} else if flipped {
			o.logger.WithField("casting_id", castingID).Info("casting advanced to shooting after submission approval")
		}
		return nil
	}

	ok, err := o.db.Submissions.UpdateStatusIf(submission.ID,
		[]models.SubmissionStatus{models.SubmissionPendingReview},
		models.SubmissionRevisionRequested,
		map[string]interface{}{"feedback": feedback},
	)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: submission is not awaiting review", ErrInvalidState)
	}
	return nil
}

// AttachUploadLink stores the creator's external upload link on their
// submission without touching its status.
func (o *Orchestrator) AttachUploadLink(ctx context.Context, actor auth.Role, castingID, creatorID uuid.UUID, link string) error {
	if !actor.IsAgency() && !actor.IsCreator(creatorID) {
		return ErrUnauthorized
	}
	if link == "" {
		return fmt.Errorf("%w: upload link is required", ErrValidation)
	}

	submission, err := o.db.Submissions.GetByCastingAndCreator(castingID, creatorID)
	if err != nil {
		return notFoundOr(err)
	}

	submission.ContentUploadLink = link
	return o.db.Submissions.Update(submission)
}
